// Command autostack-executor-local is an executor plugin that writes files
// and runs commands directly on the host, for machines without docker.
package main

import (
	"errors"

	"github.com/autostack/autostack/pkg/domain/execution"
	domainPlugin "github.com/autostack/autostack/pkg/domain/plugin"
	"github.com/autostack/autostack/pkg/executor"
	infraPlugin "github.com/autostack/autostack/pkg/plugin"
	"github.com/hashicorp/go-plugin"
)

func build(config map[string]string) (execution.Executor, error) {
	root := config["root"]
	if root == "" {
		return nil, errors.New("config key root is required")
	}
	ws := executor.NewLocalWorkspace(root, nil)
	if cr := config["container_root"]; cr != "" {
		ws.ContainerRoot = cr
	}
	return ws, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: infraPlugin.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			infraPlugin.PluginName: &domainPlugin.ExecutorPlugin{Impl: &domainPlugin.Local{Build: build}},
		},
	})
}
