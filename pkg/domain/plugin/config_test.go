package plugin

import "testing"

func TestPluginConfigs(t *testing.T) {
	c := NewPluginConfigs()
	if c.Get("local") != nil {
		t.Fatal("expected nil for unknown plugin")
	}

	c.Set("remote", PluginConfig{Binary: "/bin/remote"})
	c.Set("local", PluginConfig{Binary: "/bin/local", Config: map[string]string{"root": "/srv"}})

	names := c.Names()
	if len(names) != 2 || names[0] != "local" || names[1] != "remote" {
		t.Errorf("Names() = %v", names)
	}
	if got := c.Get("local"); got == nil || got.Binary != "/bin/local" {
		t.Errorf("Get(local) = %+v", got)
	}

	var nilConfigs *PluginConfigs
	if nilConfigs.Get("x") != nil || nilConfigs.Names() != nil {
		t.Error("nil configs must be empty")
	}
}

func TestPluginConfig_WithDefaults(t *testing.T) {
	cfg := PluginConfig{Config: map[string]string{"root": "/srv"}}
	got := cfg.WithDefaults(map[string]string{"root": "/default", "container_root": "/app"})
	if got["root"] != "/srv" {
		t.Errorf("root = %q, configured value must win", got["root"])
	}
	if got["container_root"] != "/app" {
		t.Errorf("container_root = %q", got["container_root"])
	}
}
