// Package execution defines where the directives of a task are carried out.
package execution

import (
	"context"
	"errors"
)

// ErrNoActions marks a perform-task response that contained no actions.
var ErrNoActions = errors.New("response contained no actions")

// Environment runs shell commands. The returned output is the combined
// stdout and stderr; err is set when the command could not run or exited
// non-zero, and output is still returned in that case.
type Environment interface {
	Execute(ctx context.Context, command, workdir string) (string, error)
}

// Filesystem writes files addressed by host paths.
type Filesystem interface {
	WriteFile(path, content string) error
}

// Executor carries out directives addressed in the agent's view of the
// project, where the project root is a fixed directory such as /app.
type Executor interface {
	WriteFile(ctx context.Context, path, content string) error
	RunCommand(ctx context.Context, command, workdir string) (string, error)
}
