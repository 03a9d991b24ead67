// Package plugin loads executor plugins over hashicorp/go-plugin.
package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	domainPlugin "github.com/autostack/autostack/pkg/domain/plugin"
	goplugin "github.com/hashicorp/go-plugin"
)

var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AUTOSTACK_PLUGIN",
	MagicCookieValue: "autostack",
}

// PluginName is the key executors are dispensed under.
const PluginName = "executor"

var PluginMap = map[string]goplugin.Plugin{
	PluginName: &domainPlugin.ExecutorPlugin{},
}

type Loader struct {
	mu      sync.Mutex
	plugins map[string]*goplugin.Client
}

func NewLoader() *Loader {
	return &Loader{
		plugins: make(map[string]*goplugin.Client),
	}
}

// Load starts the plugin at path, calls Init with config and returns it
// as an executor.
func (l *Loader) Load(path string, config map[string]string) (domainPlugin.Remote, error) {
	absPath, err := validateBinary(path)
	if err != nil {
		return domainPlugin.Remote{}, err
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(absPath), //nolint:gosec // configured plugin binary
		AllowedProtocols: []goplugin.Protocol{
			goplugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return domainPlugin.Remote{}, fmt.Errorf("failed to create plugin client: %w", err)
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return domainPlugin.Remote{}, fmt.Errorf("failed to dispense plugin: %w", err)
	}
	svc, ok := raw.(domainPlugin.ExecutorService)
	if !ok {
		client.Kill()
		return domainPlugin.Remote{}, fmt.Errorf("plugin %s is not an executor", absPath)
	}
	if err := svc.Init(config); err != nil {
		client.Kill()
		return domainPlugin.Remote{}, fmt.Errorf("plugin init: %w", err)
	}

	l.mu.Lock()
	if prev, ok := l.plugins[absPath]; ok {
		prev.Kill()
	}
	l.plugins[absPath] = client
	l.mu.Unlock()
	return domainPlugin.Remote{Service: svc}, nil
}

func (l *Loader) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for path, client := range l.plugins {
		client.Kill()
		delete(l.plugins, path)
	}
}

func validateBinary(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid plugin path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("plugin not found: %s", absPath)
		}
		return "", fmt.Errorf("cannot access plugin: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("plugin path is a directory: %s", absPath)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("plugin is not executable: %s", absPath)
	}
	return absPath, nil
}
