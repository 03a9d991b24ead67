package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/autostack/autostack/internal/infrastructure/config"
	"github.com/autostack/autostack/internal/infrastructure/wiring"
	"github.com/autostack/autostack/pkg/domain"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, NewCLIError("invalid configuration", fmt.Sprintf("Fix %s or run 'autostack config init --force'", configFlag), err)
	}
	if workspaceFlag != "" {
		cfg.Workspace.Root = workspaceFlag
	}
	return cfg, nil
}

func loadWorkspace() (*wiring.Workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return wiring.NewWorkspace(cfg, slog.Default())
}

// loadProject wires the named project, which may not exist yet.
func loadProject(name string) (*wiring.ProjectServices, error) {
	ws, err := loadWorkspace()
	if err != nil {
		return nil, err
	}
	svc, err := ws.Project(name)
	if err != nil {
		return nil, MapError(err)
	}
	return svc, nil
}

// requireProject is loadProject for commands that need an initialised
// project.
func requireProject(name string) (*wiring.ProjectServices, error) {
	svc, err := loadProject(name)
	if err != nil {
		return nil, err
	}
	if !svc.Project.Exists() {
		return nil, MapError(fmt.Errorf("%w: %s", domain.ErrProjectNotFound, name))
	}
	return svc, nil
}

// signalContext is cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
