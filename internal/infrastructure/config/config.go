// Package config loads autostack.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainPlugin "github.com/autostack/autostack/pkg/domain/plugin"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "autostack.yaml"

// Executor kinds.
const (
	ExecutorDocker = "docker"
	ExecutorLocal  = "local"
	ExecutorPlugin = "plugin"
)

type AIConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url,omitempty"`
	APIKey       string `yaml:"-"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	// PromptsDir holds <name>.prompt files replacing the bundled ones.
	PromptsDir   string `yaml:"prompts_dir,omitempty"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelayMS int    `yaml:"retry_delay_ms"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

type ContainerConfig struct {
	Image         string   `yaml:"image"`
	Workdir       string   `yaml:"workdir"`
	ContainerPort int      `yaml:"container_port"`
	HostPortMin   int      `yaml:"host_port_min"`
	HostPortMax   int      `yaml:"host_port_max"`
	BootCommands  []string `yaml:"boot_commands"`
	RestartPolicy string   `yaml:"restart_policy"`
	StartupWaitMS int      `yaml:"startup_wait_ms"`
}

type PlannerConfig struct {
	InitialMaxTasks  int  `yaml:"initial_max_tasks"`
	ReplanMaxTasks   int  `yaml:"replan_max_tasks"`
	ReplanMaxRetries int  `yaml:"replan_max_retries"`
	MaxIterations    int  `yaml:"max_iterations"`
	Review           bool `yaml:"review"`
}

type ExecutorConfig struct {
	Kind string `yaml:"kind"`
	// Plugin names an entry of Plugins used when Kind is "plugin".
	Plugin  string                               `yaml:"plugin,omitempty"`
	Plugins map[string]domainPlugin.PluginConfig `yaml:"plugins,omitempty"`
}

// WebhookConfig is an endpoint that receives the events of every run.
type WebhookConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Secret string `yaml:"secret,omitempty"`
	// Events limits delivery to these event types.
	Events       []string `yaml:"events,omitempty"`
	MaxRetries   int      `yaml:"max_retries,omitempty"`
	RetryDelayMS int      `yaml:"retry_delay_ms,omitempty"`
}

type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// Config is the content of autostack.yaml.
type Config struct {
	AI        AIConfig        `yaml:"ai"`
	Container ContainerConfig `yaml:"container"`
	Planner   PlannerConfig   `yaml:"planner"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Webhooks  []WebhookConfig `yaml:"webhooks,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Provider:     "openai",
			Model:        "gpt-4o",
			MaxRetries:   2,
			RetryDelayMS: 1000,
			TimeoutSec:   600,
		},
		Container: ContainerConfig{
			Image:         "zhengyuzhang/nestjs:latest",
			Workdir:       "/app",
			ContainerPort: 3000,
			HostPortMin:   30000,
			HostPortMax:   50000,
			BootCommands: []string{
				"service postgresql restart",
				"ln -sf /usr/share/zoneinfo/Asia/Shanghai /etc/localtime",
			},
			RestartPolicy: "always",
			StartupWaitMS: 3000,
		},
		Planner: PlannerConfig{
			InitialMaxTasks:  7,
			ReplanMaxTasks:   5,
			ReplanMaxRetries: 3,
		},
		Executor:  ExecutorConfig{Kind: ExecutorDocker},
		Workspace: WorkspaceConfig{Root: "workspace"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) // #nosec G304 -- user supplied config path
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.AI.Provider, "AUTOSTACK_AI_PROVIDER")
	set(&c.AI.Model, "AUTOSTACK_AI_MODEL")
	set(&c.AI.BaseURL, "LLM_BASE_URL")
	set(&c.AI.APIKey, "LLM_API_KEY")
	set(&c.Container.Image, "AUTOSTACK_CONTAINER_IMAGE")
	set(&c.Workspace.Root, "AUTOSTACK_WORKSPACE")
}

func (c *Config) Validate() error {
	switch c.Executor.Kind {
	case ExecutorDocker, ExecutorLocal:
	case ExecutorPlugin:
		if c.Executor.Plugin == "" {
			return errors.New("executor.plugin is required when executor.kind is plugin")
		}
		if _, ok := c.Executor.Plugins[c.Executor.Plugin]; !ok {
			return fmt.Errorf("executor plugin %q is not configured", c.Executor.Plugin)
		}
	default:
		return fmt.Errorf("unknown executor kind %q", c.Executor.Kind)
	}
	if c.Container.HostPortMin > c.Container.HostPortMax {
		return fmt.Errorf("container host port range %d-%d is empty", c.Container.HostPortMin, c.Container.HostPortMax)
	}
	if c.Planner.MaxIterations < 0 {
		return errors.New("planner.max_iterations must not be negative")
	}
	for i, w := range c.Webhooks {
		if w.Name == "" || w.URL == "" {
			return fmt.Errorf("webhooks[%d] needs a name and a url", i)
		}
	}
	return nil
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.AI.RetryDelayMS) * time.Millisecond
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

func (c *Config) StartupWait() time.Duration {
	return time.Duration(c.Container.StartupWaitMS) * time.Millisecond
}

// PluginConfigs returns the executor plugins as a lookup table.
func (c *Config) PluginConfigs() *domainPlugin.PluginConfigs {
	pc := domainPlugin.NewPluginConfigs()
	for name, p := range c.Executor.Plugins {
		pc.Set(name, p)
	}
	return pc
}
