package planning

import (
	"fmt"
	"strings"
)

// ActionKind discriminates the two things an agent can do.
type ActionKind string

const (
	ActionFile    ActionKind = "file"
	ActionCommand ActionKind = "command"
)

// Outcomes recorded for file actions.
const (
	WriteSuccess = "write success"
	WriteFailed  = "write failed"
)

// Action is the record of one executed directive. For file actions
// Content is the written body; for command actions it is the command line.
type Action struct {
	Kind    ActionKind `json:"type"`
	Target  string     `json:"target,omitempty"`
	Content string     `json:"content"`
	Result  string     `json:"result"`
}

// Directive is a decoded instruction from a model response, ready to be
// executed. It is either a FileDirective or a CommandDirective.
type Directive interface {
	Kind() ActionKind
	isDirective()
}

// FileDirective asks for Content to be written at Path.
type FileDirective struct {
	Path    string
	Content string
}

func (FileDirective) Kind() ActionKind { return ActionFile }
func (FileDirective) isDirective()     {}

// CommandDirective asks for Command to be run inside Workdir.
type CommandDirective struct {
	Workdir string
	Command string
}

func (CommandDirective) Kind() ActionKind { return ActionCommand }
func (CommandDirective) isDirective()     {}

// DecodeDirective turns the raw pieces of a parsed action element into a
// Directive. kind accepts "file", "shell" and "command" in any case.
func DecodeDirective(kind, target, body string) (Directive, error) {
	target = strings.TrimSpace(target)
	body = strings.TrimSpace(body)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "file":
		if target == "" {
			return nil, fmt.Errorf("file action without a path")
		}
		return FileDirective{Path: target, Content: body}, nil
	case "shell", "command":
		if body == "" {
			return nil, fmt.Errorf("command action without a command")
		}
		return CommandDirective{Workdir: target, Command: body}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", kind)
	}
}
