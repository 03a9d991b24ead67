package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config describes the project container.
type Config struct {
	Name          string
	Image         string
	HostPath      string // mounted read-write at Workdir
	Workdir       string
	ContainerPort int
	HostPortMin   int
	HostPortMax   int
	RestartPolicy string
	// Command keeps the container alive.
	Command      []string
	BootCommands []string
	StartupWait  time.Duration
}

// DefaultConfig returns the settings used for NestJS projects.
func DefaultConfig() Config {
	return Config{
		Image:         "zhengyuzhang/nestjs:latest",
		Workdir:       "/app",
		ContainerPort: 3000,
		HostPortMin:   30000,
		HostPortMax:   50000,
		RestartPolicy: "always",
		Command:       []string{"tail", "-f", "/dev/null"},
		BootCommands: []string{
			"service postgresql restart",
			"ln -sf /usr/share/zoneinfo/Asia/Shanghai /etc/localtime",
		},
		StartupWait: 3 * time.Second,
	}
}

// Container is a handle on a running project container. Foreground
// commands are serialised; detached commands run alongside them.
type Container struct {
	ID       string
	Name     string
	HostPort int

	cfg    Config
	runner Runner
	logger *slog.Logger

	execMu sync.Mutex
}

// Attach returns a handle on the container called cfg.Name without
// starting it. It is used to stop or remove a project's container.
func Attach(runner Runner, cfg Config, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{Name: cfg.Name, cfg: cfg, runner: runner, logger: logger.With("container", cfg.Name)}
}

// Running reports whether the container is up.
func (c *Container) Running(ctx context.Context) (bool, error) {
	return c.listed(ctx, false)
}

// Start reuses a running container called cfg.Name, restarts a stopped
// one, or creates it. Boot commands run after every (re)start; their
// failures are logged, not returned.
func Start(ctx context.Context, runner Runner, cfg Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		return nil, errors.New("container name is required")
	}
	if cfg.Image == "" || cfg.HostPath == "" || cfg.Workdir == "" {
		return nil, errors.New("container image, host path and workdir are required")
	}

	c := &Container{Name: cfg.Name, cfg: cfg, runner: runner, logger: logger.With("container", cfg.Name)}

	running, err := c.listed(ctx, false)
	if err != nil {
		return nil, err
	}
	if running {
		c.logger.Info("reusing running container")
		return c, c.refresh(ctx)
	}

	exists, err := c.listed(ctx, true)
	if err != nil {
		return nil, err
	}
	if exists {
		c.logger.Info("starting stopped container")
		if _, err := runner.Run(ctx, "start", cfg.Name); err != nil {
			return nil, err
		}
	} else {
		if err := c.create(ctx); err != nil {
			return nil, err
		}
	}

	if err := sleepContext(ctx, cfg.StartupWait); err != nil {
		return nil, err
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	for _, cmd := range cfg.BootCommands {
		if _, err := c.Execute(ctx, cmd, cfg.Workdir); err != nil {
			c.logger.Warn("boot command failed", "command", cmd, "error", err)
		}
	}
	return c, nil
}

func (c *Container) create(ctx context.Context) error {
	port, err := pickPort(c.cfg.HostPortMin, c.cfg.HostPortMax)
	if err != nil {
		return err
	}
	args := []string{"run", "-d", "--name", c.cfg.Name}
	if c.cfg.RestartPolicy != "" {
		args = append(args, "--restart", c.cfg.RestartPolicy)
	}
	if c.cfg.ContainerPort > 0 {
		args = append(args, "-p", fmt.Sprintf("%d:%d/tcp", port, c.cfg.ContainerPort))
	}
	args = append(args,
		"-v", c.cfg.HostPath+":"+c.cfg.Workdir+":rw",
		"-w", c.cfg.Workdir,
		c.cfg.Image,
	)
	args = append(args, c.cfg.Command...)

	c.logger.Info("creating container", "image", c.cfg.Image, "host_port", port)
	id, err := c.runner.Run(ctx, args...)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// refresh reads the id and published port of the container.
func (c *Container) refresh(ctx context.Context) error {
	id, err := c.runner.Run(ctx, "inspect", "--format", "{{.Id}}", c.Name)
	if err != nil {
		return err
	}
	c.ID = id
	if c.cfg.ContainerPort <= 0 {
		return nil
	}
	out, err := c.runner.Run(ctx, "port", c.Name, fmt.Sprintf("%d/tcp", c.cfg.ContainerPort))
	if err != nil {
		return err
	}
	port, err := parsePortOutput(out)
	if err != nil {
		return err
	}
	c.HostPort = port
	return nil
}

func (c *Container) listed(ctx context.Context, all bool) (bool, error) {
	args := []string{"ps", "--filter", "name=^/" + c.cfg.Name + "$", "--format", "{{.Names}}"}
	if all {
		args = append(args, "-a")
	}
	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == c.cfg.Name {
			return true, nil
		}
	}
	return false, nil
}

// Execute runs command through sh inside workdir and returns the
// de-duplicated output. A non-zero exit returns the output and an error.
func (c *Container) Execute(ctx context.Context, command, workdir string) (string, error) {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	return c.exec(ctx, command, workdir)
}

func (c *Container) exec(ctx context.Context, command, workdir string) (string, error) {
	if workdir == "" {
		workdir = c.cfg.Workdir
	}
	var out outputCollector
	log := c.logger.With("command", command)
	log.Debug("exec", "workdir", workdir)
	err := c.runner.Stream(ctx, func(line string) {
		if out.Add(line) {
			log.Debug(line)
		}
	}, "exec", "-w", workdir, c.Name, "sh", "-c", command)
	if err != nil {
		return out.String(), fmt.Errorf("command %q: %w", command, err)
	}
	return out.String(), nil
}

// ExecuteDetached starts command inside workdir and returns once docker
// has accepted it. The command keeps running after the caller exits, so
// its output is not collected.
func (c *Container) ExecuteDetached(ctx context.Context, command, workdir string) error {
	if workdir == "" {
		workdir = c.cfg.Workdir
	}
	c.logger.Info("exec detached", "command", command, "workdir", workdir)
	if _, err := c.runner.Run(ctx, "exec", "-d", "-w", workdir, c.Name, "sh", "-c", command); err != nil {
		return fmt.Errorf("command %q: %w", command, err)
	}
	return nil
}

// Stop stops the container.
func (c *Container) Stop(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "stop", c.Name)
	return err
}

// Remove force-removes the container.
func (c *Container) Remove(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "rm", "-f", c.Name)
	return err
}

// URL is the host address of the published application port.
func (c *Container) URL() string {
	if c.HostPort == 0 {
		return ""
	}
	return "http://localhost:" + strconv.Itoa(c.HostPort)
}

// parsePortOutput reads "0.0.0.0:34567" style lines from docker port.
func parsePortOutput(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		i := strings.LastIndex(line, ":")
		if i < 0 {
			continue
		}
		if port, err := strconv.Atoi(line[i+1:]); err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no host port in %q", out)
}

// pickPort returns a random free port in [min, max].
func pickPort(lo, hi int) (int, error) {
	if lo <= 0 || hi < lo {
		return 0, fmt.Errorf("invalid host port range %d-%d", lo, hi)
	}
	for i := 0; i < 20; i++ {
		port := lo + rand.IntN(hi-lo+1)
		l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
		if err != nil {
			continue
		}
		l.Close() //nolint:errcheck // port availability check
		return port, nil
	}
	return 0, fmt.Errorf("no free host port in %d-%d", lo, hi)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
