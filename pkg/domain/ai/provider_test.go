package ai

import (
	"context"
	"fmt"
	"testing"
)

// mockProvider implements the Provider interface for testing.
type mockProvider struct {
	id       string
	response *CompletionResponse
	err      error
}

func (m *mockProvider) ID() string { return m.id }
func (m *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestProvider_InterfaceContract(t *testing.T) {
	var _ Provider = &mockProvider{}
}

func TestProvider_Complete_Error(t *testing.T) {
	provider := &mockProvider{
		id:  "error-provider",
		err: fmt.Errorf("connection refused"),
	}

	_, err := provider.Complete(context.Background(), NewPromptRequest("", "test"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "connection refused" {
		t.Errorf("error = %v, want connection refused", err)
	}
}

func TestNewPromptRequest(t *testing.T) {
	req := NewPromptRequest("You are a project planner", "Generate tasks")

	if req.System != "You are a project planner" {
		t.Errorf("System = %s", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
		t.Fatalf("Messages = %+v", req.Messages)
	}
	if req.LastUserMessage() != "Generate tasks" {
		t.Errorf("LastUserMessage = %s", req.LastUserMessage())
	}
}

func TestLastUserMessage(t *testing.T) {
	req := CompletionRequest{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply again"},
	}}
	if got := req.LastUserMessage(); got != "second" {
		t.Errorf("LastUserMessage = %q, want second", got)
	}
	if got := (CompletionRequest{}).LastUserMessage(); got != "" {
		t.Errorf("empty request returned %q", got)
	}
}
