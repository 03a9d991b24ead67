package plugin

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestLoader_Full(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the local executor plugin")
	}
	tempDir := t.TempDir()
	pluginBin := filepath.Join(tempDir, "autostack-executor-local")
	cmd := exec.Command("go", "build", "-o", pluginBin, "../../cmd/autostack-executor-local")
	if err := cmd.Run(); err != nil {
		t.Skipf("Skipping full plugin test: build failed: %v", err)
	}

	l := NewLoader()
	defer l.Cleanup()

	projectDir := t.TempDir()
	ex, err := l.Load(pluginBin, map[string]string{"root": projectDir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := ex.WriteFile(context.Background(), "/app/hello.txt", "hi"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(projectDir, "hello.txt"))
	if err != nil || string(data) != "hi" {
		t.Fatalf("plugin write not visible: %q, %v", data, err)
	}
	out, err := ex.RunCommand(context.Background(), "cat hello.txt", "")
	if err != nil || out != "hi" {
		t.Fatalf("RunCommand = %q, %v", out, err)
	}
}

func TestLoader_Handshake(t *testing.T) {
	l := NewLoader()
	l.Cleanup()

	if HandshakeConfig.MagicCookieKey != "AUTOSTACK_PLUGIN" {
		t.Errorf("wrong magic cookie key")
	}
	if _, ok := PluginMap[PluginName]; !ok {
		t.Errorf("executor plugin not registered")
	}
}

func TestLoader_LoadError(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load("/invalid/path/999", nil); err == nil {
		t.Error("expected error for invalid plugin path")
	}
}

func TestLoader_LoadDirectory(t *testing.T) {
	l := NewLoader()
	if _, err := l.Load(t.TempDir(), nil); err == nil {
		t.Error("expected error for directory path")
	}
}

func TestLoader_LoadNonExecutable(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "plugin")
	if err := os.WriteFile(filePath, []byte("not executable"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	l := NewLoader()
	if _, err := l.Load(filePath, nil); err == nil {
		t.Error("expected error for non-executable file")
	}
}
