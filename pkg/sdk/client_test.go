package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/felixgeelhaar/mcp-go/client"
	"github.com/felixgeelhaar/mcp-go/protocol"
)

// mockTransport answers requests by method name. lastArgs records the
// arguments of the last tools/call.
type mockTransport struct {
	closed    bool
	responses map[string]any
	lastTool  string
	lastArgs  map[string]any
}

func newMockTransport() *mockTransport {
	return &mockTransport{responses: make(map[string]any)}
}

func (m *mockTransport) setToolResponse(text string, isError bool) {
	result := map[string]any{"content": []any{map[string]any{"type": "text", "text": text}}}
	if isError {
		result["isError"] = true
	}
	m.responses["tools/call"] = result
}

func (m *mockTransport) setResourceResponse(text string) {
	m.responses["resources/read"] = map[string]any{
		"contents": []any{map[string]any{"uri": schemaURI, "text": text}},
	}
}

func (m *mockTransport) Send(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
	if req.Method == "tools/call" {
		var call struct {
			Params struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			} `json:"params"`
		}
		if data, err := json.Marshal(req); err == nil {
			_ = json.Unmarshal(data, &call)
		}
		m.lastTool, m.lastArgs = call.Params.Name, call.Params.Arguments
	}
	if result, ok := m.responses[req.Method]; ok {
		return protocol.NewResponse(req.ID, result), nil
	}
	if req.Method == "initialize" {
		return protocol.NewResponse(req.ID, map[string]any{
			"serverInfo":      map[string]any{"name": "mock", "version": "1.0.0"},
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}), nil
	}
	if req.IsNotification() {
		return nil, nil
	}
	return protocol.NewResponse(req.ID, map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "ok"}},
	}), nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

func newTestClient(t *testing.T, mt *mockTransport) *Client {
	t.Helper()
	c := NewClient(mt, WithRetry(1, time.Millisecond))
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func TestListProjects(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`["blog","shop"]`, false)
	c := newTestClient(t, mt)

	names, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[1] != "shop" {
		t.Errorf("names = %v", names)
	}
	if mt.lastTool != "autostack_list_projects" {
		t.Errorf("tool = %q", mt.lastTool)
	}
}

func TestPlanAndStatus(t *testing.T) {
	mt := newMockTransport()
	c := newTestClient(t, mt)
	ctx := context.Background()

	mt.setToolResponse(`{"goal":"build","tasks":[{"task_id":"t1","task_desc":"init","result":[],"is_success":true,"is_finished":true}],"current_task_id":""}`, false)
	plan, err := c.GetPlan(ctx, "blog")
	if err != nil {
		t.Fatal(err)
	}
	if plan.Goal != "build" || len(plan.Tasks) != 1 || !plan.Tasks[0].IsFinished {
		t.Errorf("plan = %+v", plan)
	}
	if mt.lastArgs["project"] != "blog" {
		t.Errorf("args = %v", mt.lastArgs)
	}

	mt.setToolResponse(`{"goal":"build","state":"done","total":1,"finished":1,"succeeded":1}`, false)
	status, err := c.PlanStatus(ctx, "blog")
	if err != nil {
		t.Fatal(err)
	}
	if status.State != planning.StateDone || status.Succeeded != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestTextTools(t *testing.T) {
	mt := newMockTransport()
	c := newTestClient(t, mt)
	ctx := context.Background()

	mt.setToolResponse("# Blog", false)
	doc, err := c.GetDocument(ctx, "blog", "")
	if err != nil || doc != "# Blog" {
		t.Fatalf("GetDocument = %q, %v", doc, err)
	}
	if _, ok := mt.lastArgs["document"]; ok {
		t.Error("empty document should not be sent")
	}

	mt.setToolResponse("src/\n  main.ts", false)
	tree, err := c.ProjectTree(ctx, "blog")
	if err != nil || !strings.Contains(tree, "main.ts") {
		t.Fatalf("ProjectTree = %q, %v", tree, err)
	}
}

func TestEventsArgs(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`[{"id":"e1","type":"task.confirmed","aggregate_id":"blog"}]`, false)
	c := newTestClient(t, mt)

	list, err := c.Events(context.Background(), "blog", EventsRequest{Type: events.EventTypeTaskConfirmed, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "e1" {
		t.Errorf("events = %+v", list)
	}
	if mt.lastArgs["type"] != events.EventTypeTaskConfirmed || mt.lastArgs["limit"] != float64(5) {
		t.Errorf("args = %v", mt.lastArgs)
	}
}

func TestToolErrorResult(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`Project "ghost" does not exist.`, true)
	c := newTestClient(t, mt)

	_, err := c.GetProject(context.Background(), "ghost")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Tool != "autostack_get_project" || !strings.Contains(toolErr.Message, "ghost") {
		t.Errorf("tool error = %+v", toolErr)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"1.4.2", false},
		{"2.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			mt := newMockTransport()
			mt.setResourceResponse(fmt.Sprintf(`{"schema_version":%q,"server_version":"dev","tools":[]}`, tt.version))
			c := newTestClient(t, mt)
			if err := c.Compatible(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("Compatible() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTextResultEmpty(t *testing.T) {
	if _, err := textResult(&client.ToolResult{}); !errors.Is(err, ErrNoContent) {
		t.Errorf("got %v, want ErrNoContent", err)
	}
}

func TestClose(t *testing.T) {
	mt := newMockTransport()
	c := newTestClient(t, mt)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !mt.closed {
		t.Error("transport not closed")
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found")
		}
		dir = parent
	}
}

func TestIntegrationStdio(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tempDir := t.TempDir()
	binPath := filepath.Join(tempDir, "autostack")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/autostack")
	build.Dir = findRepoRoot(t)
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build autostack: %v\n%s", err, out)
	}

	transport, err := client.NewStdioTransport(binPath, "--workspace", filepath.Join(tempDir, "ws"), "--config", filepath.Join(tempDir, "autostack.yaml"), "mcp")
	if err != nil {
		t.Fatalf("stdio transport: %v", err)
	}
	defer transport.Close()

	c := NewClient(transport, WithTimeout(30*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := c.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !info.Capabilities.Tools {
		t.Fatal("expected tools capability")
	}
	names, err := c.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected an empty workspace, got %v", names)
	}
	if _, err := c.GetPlan(ctx, "ghost"); err == nil {
		t.Error("expected an error for a missing project")
	}
	if err := c.Compatible(ctx); err != nil {
		t.Fatalf("compatible: %v", err)
	}
}
