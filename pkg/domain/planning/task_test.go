package planning_test

import (
	"regexp"
	"testing"

	"github.com/autostack/autostack/pkg/domain/planning"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestNewTask(t *testing.T) {
	task := planning.NewTask("init db")
	if !hexID.MatchString(task.ID) {
		t.Errorf("expected 32 hex chars, got %q", task.ID)
	}
	if task.IsFinished || task.IsSuccess {
		t.Error("new task must not be finished or successful")
	}
	if task.Result == nil || len(task.Result) != 0 {
		t.Error("new task must have an empty result")
	}
	if other := planning.NewTask("x"); other.ID == task.ID {
		t.Error("ids must be unique")
	}
}

func TestTask_Reset(t *testing.T) {
	task := planning.NewTask("old")
	id := task.ID
	task.Result = []planning.Action{{Kind: planning.ActionFile}}
	task.IsFinished = true
	task.IsSuccess = true

	task.Reset("new")
	if task.ID != id {
		t.Error("reset must keep the id")
	}
	if task.Description != "new" || len(task.Result) != 0 || task.IsFinished || task.IsSuccess {
		t.Errorf("reset did not clear task: %+v", task)
	}
}

func TestDecodeDirective(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		target  string
		body    string
		want    planning.Directive
		wantErr bool
	}{
		{"file", "file", "/app/src/x.ts", "\nhello\n", planning.FileDirective{Path: "/app/src/x.ts", Content: "hello"}, false},
		{"shell", "Shell", "/app", "npm install", planning.CommandDirective{Workdir: "/app", Command: "npm install"}, false},
		{"command", "command", "", "ls", planning.CommandDirective{Command: "ls"}, false},
		{"file without path", "file", "", "x", nil, true},
		{"empty command", "shell", "/app", "  ", nil, true},
		{"unknown", "deploy", "/app", "x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planning.DecodeDirective(tt.kind, tt.target, tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}
