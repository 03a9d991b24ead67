package wiring

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/autostack/autostack/internal/infrastructure/config"
	"github.com/autostack/autostack/pkg/container"
	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/execution"
	"github.com/autostack/autostack/pkg/executor"
	"github.com/autostack/autostack/pkg/plugin"
)

// Session is an open execution environment. Close releases it; the
// project container itself keeps running.
type Session struct {
	Executor  execution.Executor
	Container *container.Container
	close     func()
}

func (s *Session) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// ContainerConfig derives the container settings of the project.
func (s *ProjectServices) ContainerConfig() (container.Config, error) {
	name, err := domain.NewProjectName(s.Name)
	if err != nil {
		return container.Config{}, err
	}
	hostPath, err := filepath.Abs(s.Repo.Root())
	if err != nil {
		return container.Config{}, err
	}
	c := s.Config.Container
	cfg := container.DefaultConfig()
	cfg.Name = name.ContainerName()
	cfg.Image = c.Image
	cfg.HostPath = hostPath
	cfg.Workdir = c.Workdir
	cfg.ContainerPort = c.ContainerPort
	cfg.HostPortMin = c.HostPortMin
	cfg.HostPortMax = c.HostPortMax
	cfg.RestartPolicy = c.RestartPolicy
	cfg.BootCommands = c.BootCommands
	cfg.StartupWait = s.Config.StartupWait()
	return cfg, nil
}

// StartContainer starts or reuses the project container.
func (s *ProjectServices) StartContainer(ctx context.Context, runner container.Runner) (*container.Container, error) {
	cfg, err := s.ContainerConfig()
	if err != nil {
		return nil, err
	}
	c, err := container.Start(ctx, runner, cfg, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}
	if proj, err := s.Repo.LoadProject(); err == nil {
		proj.ContainerID = c.ID
		proj.HostPort = c.HostPort
		if err := s.Repo.SaveProject(proj); err != nil {
			s.Logger.Warn("record container on project", "error", err)
		}
	}
	s.emit(ctx, events.EventTypeContainerStarted, map[string]interface{}{
		"container": c.Name,
		"url":       c.URL(),
	})
	return c, nil
}

// AttachContainer returns a handle on the project container without
// starting it.
func (s *ProjectServices) AttachContainer(runner container.Runner) (*container.Container, error) {
	cfg, err := s.ContainerConfig()
	if err != nil {
		return nil, err
	}
	return container.Attach(runner, cfg, s.Logger), nil
}

// OpenExecutor opens the execution environment selected by executor.kind.
func (s *ProjectServices) OpenExecutor(ctx context.Context) (*Session, error) {
	root := s.Repo.Root()
	switch s.Config.Executor.Kind {
	case config.ExecutorLocal:
		ws := executor.NewLocalWorkspace(root, s.Logger)
		ws.ContainerRoot = s.Config.Container.Workdir
		return &Session{Executor: ws}, nil

	case config.ExecutorPlugin:
		name := s.Config.Executor.Plugin
		pc := s.Config.PluginConfigs().Get(name)
		if pc == nil {
			return nil, fmt.Errorf("executor plugin %q is not configured", name)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		loader := plugin.NewLoader()
		remote, err := loader.Load(pc.Binary, pc.WithDefaults(map[string]string{
			"root":           abs,
			"container_root": s.Config.Container.Workdir,
		}))
		if err != nil {
			loader.Cleanup()
			return nil, fmt.Errorf("load executor plugin %q: %w", name, err)
		}
		return &Session{Executor: remote, close: loader.Cleanup}, nil

	case config.ExecutorDocker, "":
		c, err := s.StartContainer(ctx, container.NewCLIRunner())
		if err != nil {
			return nil, err
		}
		ws := executor.NewContainerWorkspace(root, c, s.Logger)
		ws.ContainerRoot = s.Config.Container.Workdir
		return &Session{Executor: ws, Container: c, close: c.Wait}, nil
	}
	return nil, errors.New("unknown executor kind " + s.Config.Executor.Kind)
}

func (s *ProjectServices) emit(ctx context.Context, eventType string, metadata map[string]interface{}) {
	if err := s.Dispatcher.Dispatch(ctx, events.New(eventType, s.Name, "autostack", metadata)); err != nil {
		s.Logger.Warn("event dispatch failed", "event", eventType, "error", err)
	}
}
