// Package executor carries out file and command directives against a
// project workspace, either on the host or inside the project container.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autostack/autostack/pkg/domain/execution"
	"github.com/autostack/autostack/pkg/textutil"
)

// DefaultContainerRoot is where the project is mounted in the container.
const DefaultContainerRoot = "/app"

// Workspace is an execution.Executor that translates paths from the
// agent's view of the project onto the host checkout before writing, and
// hands commands to an Environment.
type Workspace struct {
	Env           execution.Environment
	FS            execution.Filesystem
	HostRoot      string
	ContainerRoot string
	// TranslateWorkdir maps command workdirs onto the host as well. Set it
	// when Env runs on the host rather than in the container.
	TranslateWorkdir bool
	Logger           *slog.Logger
}

var _ execution.Executor = (*Workspace)(nil)

// NewContainerWorkspace runs commands through env, which is expected to
// see the project at DefaultContainerRoot.
func NewContainerWorkspace(hostRoot string, env execution.Environment, logger *slog.Logger) *Workspace {
	return &Workspace{
		Env:           env,
		FS:            HostFS{},
		HostRoot:      hostRoot,
		ContainerRoot: DefaultContainerRoot,
		Logger:        logger,
	}
}

// NewLocalWorkspace runs commands on the host inside hostRoot.
func NewLocalWorkspace(hostRoot string, logger *slog.Logger) *Workspace {
	return &Workspace{
		Env:              LocalShell{},
		FS:               HostFS{},
		HostRoot:         hostRoot,
		ContainerRoot:    DefaultContainerRoot,
		TranslateWorkdir: true,
		Logger:           logger,
	}
}

func (w *Workspace) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func (w *Workspace) root() string {
	if w.ContainerRoot == "" {
		return DefaultContainerRoot
	}
	return w.ContainerRoot
}

// WriteFile writes content at path, where path is in the container's view.
func (w *Workspace) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.FS == nil {
		return errors.New("executor has no filesystem")
	}
	hostPath, err := textutil.ContainerToHostPath(w.HostRoot, path, w.root())
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := w.FS.WriteFile(hostPath, content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.logger().Debug("file written", "path", path, "bytes", len(content))
	return nil
}

// RunCommand runs command in workdir. An empty workdir means the project
// root. Output is returned even when the command fails.
func (w *Workspace) RunCommand(ctx context.Context, command, workdir string) (string, error) {
	if w.Env == nil {
		return "", errors.New("executor has no environment")
	}
	if workdir == "" {
		workdir = w.root()
	}
	if w.TranslateWorkdir {
		hostDir, err := textutil.ContainerToHostPath(w.HostRoot, workdir, w.root())
		if err != nil {
			return "", fmt.Errorf("resolve workdir %s: %w", workdir, err)
		}
		workdir = hostDir
	}
	w.logger().Info("running command", "command", command, "workdir", workdir)
	return w.Env.Execute(ctx, command, workdir)
}
