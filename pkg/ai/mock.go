package ai

import (
	"context"
	"errors"
	"sync"

	"github.com/autostack/autostack/pkg/domain/ai"
)

// MockProvider answers every request with Text. With no Text it answers an
// empty task list, which lets a planning loop terminate offline.
type MockProvider struct {
	Model string
	Text  string
}

func (m *MockProvider) ID() string { return "mock:" + m.Model }

func (m *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := m.Text
	if text == "" {
		text = "```json\n[]\n```"
	}
	return &ai.CompletionResponse{Text: text, Model: m.Model}, nil
}

// ErrScriptExhausted is returned once a ScriptedProvider has no replies left.
var ErrScriptExhausted = errors.New("scripted provider has no more replies")

// ScriptedReply is one canned answer. A non-nil Err is returned instead of Text.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedProvider replays replies in order and records every request.
type ScriptedProvider struct {
	mu       sync.Mutex
	replies  []ScriptedReply
	requests []ai.CompletionRequest
}

// NewScriptedProvider queues texts as successful replies.
func NewScriptedProvider(texts ...string) *ScriptedProvider {
	s := &ScriptedProvider{}
	for _, t := range texts {
		s.replies = append(s.replies, ScriptedReply{Text: t})
	}
	return s
}

// Push appends replies to the queue.
func (s *ScriptedProvider) Push(replies ...ScriptedReply) *ScriptedProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
	return s
}

func (s *ScriptedProvider) ID() string { return "scripted" }

func (s *ScriptedProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &ai.CompletionResponse{Text: reply.Text, Model: "scripted"}, nil
}

// Requests returns a copy of the requests seen so far.
func (s *ScriptedProvider) Requests() []ai.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ai.CompletionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Remaining reports how many replies are still queued.
func (s *ScriptedProvider) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}
