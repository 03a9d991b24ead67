package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	infraAI "github.com/autostack/autostack/pkg/ai"
	"github.com/autostack/autostack/pkg/domain/ai"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	var body struct {
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("missing api key header")
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"text": "hi"}},
			"usage":   map[string]int{"input_tokens": 3, "output_tokens": 1},
		})
	}))
	defer server.Close()

	p := infraAI.NewAnthropicProviderWithClient("claude", "k", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{
		System: "base",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "extra"},
			{Role: ai.RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "hi" || resp.Usage.InputTokens != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
	if body.System != "base\n\nextra" {
		t.Errorf("system prompt not merged: %q", body.System)
	}
	if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
		t.Errorf("unexpected messages %+v", body.Messages)
	}
	if body.MaxTokens != 4096 {
		t.Errorf("expected default max tokens, got %d", body.MaxTokens)
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	var body struct {
		Contents []struct {
			Role string `json:"role"`
		} `json:"contents"`
		SystemInstruction *struct{} `json:"system_instruction"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": "gemini says hi"}}}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 4, "candidatesTokenCount": 2},
		})
	}))
	defer server.Close()

	p := infraAI.NewGeminiProviderWithClient("", "k", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{
		System: "sys",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "a"},
			{Role: ai.RoleAssistant, Content: "b"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "gemini says hi" || resp.Usage.OutputTokens != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(body.Contents) != 2 || body.Contents[1].Role != "model" {
		t.Errorf("unexpected contents %+v", body.Contents)
	}
	if body.SystemInstruction == nil {
		t.Error("expected system instruction")
	}
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	p := infraAI.NewGeminiProviderWithClient("g", "k", server.URL, server.Client())
	if _, err := p.Complete(context.Background(), ai.NewPromptRequest("", "x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":           map[string]string{"role": "assistant", "content": "  local answer \n"},
			"prompt_eval_count": 7,
			"eval_count":        3,
		})
	}))
	defer server.Close()

	p := infraAI.NewOllamaProviderWithClient("llama3", server.URL, server.Client())
	resp, err := p.Complete(context.Background(), ai.NewPromptRequest("sys", "q"))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != "local answer" || resp.Usage.InputTokens != 7 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestOllamaProvider_RejectsUnsafeModel(t *testing.T) {
	p := infraAI.NewOllamaProvider("bad model; rm -rf")
	if _, err := p.Complete(context.Background(), ai.NewPromptRequest("", "q")); err == nil {
		t.Fatal("expected invalid model error")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		opts    infraAI.ProviderOptions
		wantID  string
		wantErr bool
	}{
		{infraAI.ProviderOptions{}, "openai:gpt-4o", false},
		{infraAI.ProviderOptions{Provider: "anthropic", Model: "m"}, "anthropic:m", false},
		{infraAI.ProviderOptions{Provider: "gemini", Model: "g"}, "gemini:g", false},
		{infraAI.ProviderOptions{Provider: "ollama"}, "ollama:llama3", false},
		{infraAI.ProviderOptions{Provider: "mock", Model: "x"}, "mock:x", false},
		{infraAI.ProviderOptions{Provider: "nope"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.opts.Provider, func(t *testing.T) {
			p, err := infraAI.NewProvider(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.ID() != tt.wantID {
				t.Errorf("ID = %s, want %s", p.ID(), tt.wantID)
			}
		})
	}
}
