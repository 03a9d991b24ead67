package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"
)

const schemaURI = "autostack://schema"

// Client calls the tools of an autostack MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
}

// NewClient wraps transport. Initialize must be called before any tool.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:     client.New(transport, client.WithTimeout(o.timeout)),
		timeout: o.timeout,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

func (c *Client) Close() error {
	return c.mcp.Close()
}

func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

func unmarshalText[T any](result *client.ToolResult) (T, error) {
	var v T
	text, err := textResult(result)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return v, fmt.Errorf("unmarshal: %w", err)
	}
	return v, nil
}

func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

func callJSON[T any](ctx context.Context, c *Client, tool string, args map[string]any) (T, error) {
	res, err := c.call(ctx, tool, args)
	if err != nil {
		var zero T
		return zero, err
	}
	return unmarshalText[T](res)
}

func (c *Client) callText(ctx context.Context, tool string, args map[string]any) (string, error) {
	res, err := c.call(ctx, tool, args)
	if err != nil {
		return "", err
	}
	return textResult(res)
}

// GetSchema reads the tool set version from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, schemaURI)
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible returns an error when the server's tool set has a different
// major version.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	if major := majorVersion(info.SchemaVersion); major != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), client supports major %s",
			info.SchemaVersion, major, SupportedSchemaMajor)
	}
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}

func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	return callJSON[[]string](ctx, c, "autostack_list_projects", nil)
}

func (c *Client) GetProject(ctx context.Context, name string) (*Project, error) {
	return callJSON[*Project](ctx, c, "autostack_get_project", map[string]any{"project": name})
}

func (c *Client) GetPlan(ctx context.Context, name string) (*Plan, error) {
	return callJSON[*Plan](ctx, c, "autostack_get_plan", map[string]any{"project": name})
}

func (c *Client) PlanStatus(ctx context.Context, name string) (*PlanStatus, error) {
	return callJSON[*PlanStatus](ctx, c, "autostack_plan_status", map[string]any{"project": name})
}

// Memories returns the finished tasks in the form the model is shown.
func (c *Client) Memories(ctx context.Context, name string) (string, error) {
	return c.callText(ctx, "autostack_memories", map[string]any{"project": name})
}

// GetDocument reads a generated document. An empty doc selects the
// requirement document.
func (c *Client) GetDocument(ctx context.Context, name, doc string) (string, error) {
	args := map[string]any{"project": name}
	if doc != "" {
		args["document"] = doc
	}
	return c.callText(ctx, "autostack_get_document", args)
}

func (c *Client) ProjectTree(ctx context.Context, name string) (string, error) {
	return c.callText(ctx, "autostack_project_tree", map[string]any{"project": name})
}

func (c *Client) Events(ctx context.Context, name string, req EventsRequest) ([]*Event, error) {
	args := map[string]any{"project": name}
	if req.Type != "" {
		args["type"] = req.Type
	}
	if req.Limit > 0 {
		args["limit"] = req.Limit
	}
	return callJSON[[]*Event](ctx, c, "autostack_events", args)
}
