// Package container manages the long running docker container a project
// is built in. It shells out to the docker CLI.
package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Runner executes docker CLI invocations.
type Runner interface {
	// Run returns trimmed stdout. Failures carry stderr in the error.
	Run(ctx context.Context, args ...string) (string, error)
	// Stream calls onLine for every line of combined output as it arrives.
	Stream(ctx context.Context, onLine func(string), args ...string) error
}

// CLIRunner runs the docker binary.
type CLIRunner struct {
	bin string
}

func NewCLIRunner() *CLIRunner {
	bin := "docker"
	if p, err := exec.LookPath("docker"); err == nil {
		bin = p
	}
	return &CLIRunner{bin: bin}
}

func (c *CLIRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *CLIRunner) Stream(ctx context.Context, onLine func(string), args ...string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	w := &lineWriter{onLine: onLine}
	cmd.Stdout = w
	cmd.Stderr = w
	err := cmd.Run()
	w.Flush()
	return err
}

// lineWriter splits written bytes into lines. os/exec serialises writes
// when Stdout and Stderr are the same writer.
type lineWriter struct {
	mu     sync.Mutex
	buf    []byte
	onLine func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.onLine(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line without newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.onLine(strings.TrimRight(string(w.buf), "\r"))
		w.buf = nil
	}
}
