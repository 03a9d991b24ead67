package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/prompt"
)

// collaborator bundles what every service needs to talk to the model.
type collaborator struct {
	provider   ai.Provider
	prompts    *prompt.Library
	system     string
	logger     *slog.Logger
	dispatcher *events.Dispatcher
	aggregate  string
}

func newCollaborator(provider ai.Provider) collaborator {
	return collaborator{
		provider: provider,
		prompts:  prompt.NewLibrary(nil),
		logger:   slog.Default(),
	}
}

// systemPrompt returns the configured system prompt or the bundled one.
func (c *collaborator) systemPrompt() string {
	if c.system != "" {
		return c.system
	}
	text, err := c.prompts.Template(prompt.System)
	if err != nil {
		return ""
	}
	return text
}

// ask renders the named prompt and sends it as a single user message.
func (c *collaborator) ask(ctx context.Context, op, name string, vars map[string]string) (string, error) {
	text, err := c.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	req := ai.NewPromptRequest(c.systemPrompt(), text)
	req.Temperature = 0.2

	start := time.Now()
	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		c.logger.Error("model call failed", "op", op, "provider", c.provider.ID(), "error", err)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Info("model call",
		"op", op,
		"provider", c.provider.ID(),
		"messages", len(req.Messages)+1,
		"latency", time.Since(start).Round(time.Millisecond),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text, nil
}

// emit dispatches an event. Handler failures are logged, never returned.
func (c *collaborator) emit(ctx context.Context, eventType string, metadata map[string]interface{}) {
	if c.dispatcher == nil {
		return
	}
	if err := c.dispatcher.Dispatch(ctx, events.New(eventType, c.aggregate, events.ActorAgent, metadata)); err != nil {
		c.logger.Warn("event handler failed", "event", eventType, "error", err)
	}
}

// Option configures the services of this package.
type Option func(*collaborator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *collaborator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrompts replaces the bundled prompt library.
func WithPrompts(lib *prompt.Library) Option {
	return func(c *collaborator) {
		if lib != nil {
			c.prompts = lib
		}
	}
}

// WithSystemPrompt overrides the bundled system prompt.
func WithSystemPrompt(system string) Option {
	return func(c *collaborator) { c.system = system }
}

// WithEvents sends the service's events to d, tagged with the project name.
func WithEvents(d *events.Dispatcher, project string) Option {
	return func(c *collaborator) {
		c.dispatcher = d
		c.aggregate = project
	}
}
