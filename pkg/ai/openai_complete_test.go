package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	infraAI "github.com/autostack/autostack/pkg/ai"
	"github.com/autostack/autostack/pkg/domain/ai"
)

func TestOpenAIProvider_Complete_Success(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", r.Header.Get("Content-Type"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Hello from OpenAI!"}},
			},
			"usage": map[string]int{
				"prompt_tokens":     10,
				"completion_tokens": 5,
			},
		})
	}))
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4", "test-key", server.URL+"/v1", server.Client())
	resp, err := p.Complete(context.Background(), ai.NewPromptRequest("", "Hello"))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("expected /v1/chat/completions, got %s", gotPath)
	}
	if resp.Text != "Hello from OpenAI!" {
		t.Errorf("expected 'Hello from OpenAI!', got %q", resp.Text)
	}
	if resp.Model != "gpt-4" {
		t.Errorf("expected model gpt-4, got %s", resp.Model)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestOpenAIProvider_Complete_SystemPromptFirst(t *testing.T) {
	var receivedBody struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "OK"}},
			},
		})
	}))
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4", "test-key", server.URL, server.Client())
	_, err := p.Complete(context.Background(), ai.CompletionRequest{
		System: "You are a helpful assistant",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Hello"},
			{Role: ai.RoleAssistant, Content: "Hi"},
			{Role: ai.RoleUser, Content: "Again"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if len(receivedBody.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(receivedBody.Messages))
	}
	if receivedBody.Messages[0].Role != "system" || receivedBody.Messages[0].Content != "You are a helpful assistant" {
		t.Errorf("unexpected first message %+v", receivedBody.Messages[0])
	}
	if receivedBody.Messages[3].Content != "Again" {
		t.Errorf("unexpected last message %+v", receivedBody.Messages[3])
	}
}

func TestOpenAIProvider_Complete_NoAPIKey(t *testing.T) {
	p := infraAI.NewOpenAIProvider("gpt-4", "")
	_, err := p.Complete(context.Background(), ai.NewPromptRequest("", "Hello"))
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestOpenAIProvider_Complete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4", "test-key", server.URL, server.Client())
	_, err := p.Complete(context.Background(), ai.NewPromptRequest("", "Hello"))
	var statusErr *infraAI.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Body != "boom" {
		t.Errorf("unexpected status error %+v", statusErr)
	}
}

func TestOpenAIProvider_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("", "test-key", server.URL, server.Client())
	if p.ID() != "openai:gpt-4o" {
		t.Errorf("expected default model, got %s", p.ID())
	}
	if _, err := p.Complete(context.Background(), ai.NewPromptRequest("", "Hello")); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
