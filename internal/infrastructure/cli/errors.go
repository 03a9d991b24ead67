package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/prompt"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
	// Detail is printed after the message, e.g. a model response that
	// could not be parsed.
	Detail string
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var decErr *planning.DecompositionError
	if errors.As(err, &decErr) {
		e := NewCLIError("the model returned a plan that could not be read", "Run again, or lower planner.initial_max_tasks in autostack.yaml", err)
		e.Detail = decErr.Raw
		return e
	}

	var missing *prompt.MissingVariableError
	if errors.As(err, &missing) {
		return NewCLIError("prompt template is incomplete", fmt.Sprintf("Check the %s.prompt override in ai.prompts_dir", missing.Template), err)
	}

	switch {
	case errors.Is(err, domain.ErrNotInitialized), errors.Is(err, domain.ErrProjectNotFound):
		return NewCLIError("project not found", "Run 'autostack init <name>' to create it", err)
	case errors.Is(err, domain.ErrPlanNotFound):
		return NewCLIError("no plan saved", "Run 'autostack run <project>' to start one", err)
	case errors.Is(err, domain.ErrDocumentMissing):
		return NewCLIError("document missing", "Run 'autostack init <name> --force' to regenerate the documents", err)
	case errors.Is(err, domain.ErrInvalidProjectName):
		return NewCLIError("invalid project name", "Use lower case letters, digits, dashes and underscores", err)
	case errors.Is(err, application.ErrIterationLimit):
		e := NewCLIError("stopped at the iteration limit", "Resume with 'autostack run <project> --resume'", err)
		e.ExitCode = 3
		return e
	case errors.Is(err, planning.ErrNoGoal):
		return NewCLIError("no goal set", "Pass a goal to 'autostack run'", err)
	}
	return err
}

func printError(w io.Writer, err error) {
	err = MapError(err)
	fmt.Fprintf(w, "Error: %v\n", err)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		return
	}
	if cliErr.Detail != "" {
		fmt.Fprintf(w, "\n--- model response ---\n%s\n----------------------\n", cliErr.Detail)
	}
	if cliErr.Hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
	}
}
