package plugin

import "sort"

// PluginConfig represents a named executor plugin
type PluginConfig struct {
	// Binary is the path to the plugin binary
	Binary string `yaml:"binary" json:"binary"`
	// Config is sent to the plugin's Init
	Config map[string]string `yaml:"config" json:"config"`
}

// PluginConfigs holds all configured plugins by name
type PluginConfigs struct {
	Plugins map[string]PluginConfig `yaml:"plugins" json:"plugins"`
}

func NewPluginConfigs() *PluginConfigs {
	return &PluginConfigs{Plugins: make(map[string]PluginConfig)}
}

// Get returns the plugin configuration for the given name, or nil if not found
func (c *PluginConfigs) Get(name string) *PluginConfig {
	if c == nil || c.Plugins == nil {
		return nil
	}
	cfg, ok := c.Plugins[name]
	if !ok {
		return nil
	}
	return &cfg
}

func (c *PluginConfigs) Set(name string, cfg PluginConfig) {
	if c.Plugins == nil {
		c.Plugins = make(map[string]PluginConfig)
	}
	c.Plugins[name] = cfg
}

// Names returns the configured plugin names, sorted.
func (c *PluginConfigs) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Plugins))
	for name := range c.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithDefaults returns a copy of cfg.Config with defaults filled in for
// keys it does not set.
func (cfg PluginConfig) WithDefaults(defaults map[string]string) map[string]string {
	out := make(map[string]string, len(cfg.Config)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range cfg.Config {
		out[k] = v
	}
	return out
}
