package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingEnv struct {
	command, workdir string
	output           string
	err              error
}

func (e *recordingEnv) Execute(ctx context.Context, command, workdir string) (string, error) {
	e.command, e.workdir = command, workdir
	return e.output, e.err
}

func TestWorkspace_WriteFileTranslatesPath(t *testing.T) {
	root := t.TempDir()
	w := NewContainerWorkspace(root, &recordingEnv{}, nil)

	if err := w.WriteFile(context.Background(), "/app/src/x.ts", "hello"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "src", "x.ts"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestWorkspace_WriteFileRejectsEscapes(t *testing.T) {
	w := NewContainerWorkspace(t.TempDir(), &recordingEnv{}, nil)
	if err := w.WriteFile(context.Background(), "/etc/passwd", "x"); err == nil {
		t.Error("expected error for path outside the project")
	}
	if err := w.WriteFile(context.Background(), "/app/../etc/passwd", "x"); err == nil {
		t.Error("expected error for path climbing out of the project")
	}
}

func TestWorkspace_RunCommandInContainer(t *testing.T) {
	env := &recordingEnv{output: "ok"}
	w := NewContainerWorkspace("/host/demo", env, nil)

	out, err := w.RunCommand(context.Background(), "npm install", "")
	if err != nil || out != "ok" {
		t.Fatalf("RunCommand = %q, %v", out, err)
	}
	if env.workdir != "/app" {
		t.Errorf("workdir = %q, want /app", env.workdir)
	}
}

func TestWorkspace_RunCommandKeepsOutputOnFailure(t *testing.T) {
	env := &recordingEnv{output: "boom", err: errors.New("exit status 2")}
	w := NewContainerWorkspace("/host/demo", env, nil)

	out, err := w.RunCommand(context.Background(), "false", "/app/api")
	if err == nil {
		t.Fatal("expected error")
	}
	if out != "boom" {
		t.Errorf("output = %q", out)
	}
	if env.workdir != "/app/api" {
		t.Errorf("workdir = %q", env.workdir)
	}
}

func TestLocalWorkspace(t *testing.T) {
	root := t.TempDir()
	w := NewLocalWorkspace(root, nil)
	ctx := context.Background()

	if err := w.WriteFile(ctx, "/app/sub/a.txt", "data"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err := w.RunCommand(ctx, "cat a.txt", "/app/sub")
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if out != "data" {
		t.Errorf("output = %q", out)
	}

	out, err = w.RunCommand(ctx, "echo failing; exit 3", "")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out, "failing") {
		t.Errorf("output = %q", out)
	}
}
