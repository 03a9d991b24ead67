package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// HostFS writes files on the local disk, creating parent directories.
type HostFS struct{}

func (HostFS) WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644) //nolint:gosec // project sources are world readable
}

// LocalShell runs commands through sh on the host.
type LocalShell struct {
	// Env is appended to the current environment.
	Env []string
}

func (s LocalShell) Execute(ctx context.Context, command, workdir string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // agent-issued command
	cmd.Dir = workdir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return string(bytes.TrimRight(out.Bytes(), "\n")), fmt.Errorf("command %q: %w", command, err)
	}
	return string(bytes.TrimRight(out.Bytes(), "\n")), nil
}
