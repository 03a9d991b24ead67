package prompt_test

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/autostack/autostack/pkg/prompt"
)

func TestExpand(t *testing.T) {
	out, err := prompt.Expand("Goal: ${goal} (${n} tasks) $HOME ${goal}", map[string]string{
		"goal": "Build ${api}",
		"n":    "7",
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if out != "Goal: Build ${api} (7 tasks) $HOME Build ${api}" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestExpand_MissingVariables(t *testing.T) {
	_, err := prompt.Expand("${b} ${a} ${b}", map[string]string{})
	var missing *prompt.MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingVariableError, got %v", err)
	}
	if strings.Join(missing.Missing, ",") != "a,b" {
		t.Errorf("unexpected missing list %v", missing.Missing)
	}
}

func TestLibrary_BundledPromptsRender(t *testing.T) {
	lib := prompt.NewLibrary(nil)
	cases := map[string]map[string]string{
		prompt.TasksSubdivision: {"goal": "g", "context": "c", "max_tasks": "7", "existing_tasks": "[]"},
		prompt.PerformTask:      {"task_desc": "t", "cwd": "/app", "context": "c"},
		prompt.TaskReview:       {"task_desc": "t", "task_result": "[]"},
		prompt.ComposeGoal:      {"requirement_doc": "r", "database_design_doc": "d"},
		prompt.Requirement:      {"project_name": "p", "project_description": "d"},
		prompt.DatabaseDesign:   {"requirement_doc": "r"},
		prompt.DatabaseSchema:   {"database_design_doc": "d"},
		prompt.ModuleDesign:     {"requirement_doc": "r", "database_design_doc": "d"},
		prompt.System:           {},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := lib.Render(name, vars)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if strings.Contains(out, "${") {
				t.Errorf("unexpanded placeholder left in %s", name)
			}
		})
	}
}

func TestLibrary_MissingVariableNamesTemplate(t *testing.T) {
	_, err := prompt.NewLibrary(nil).Render(prompt.PerformTask, map[string]string{"task_desc": "t"})
	var missing *prompt.MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingVariableError, got %v", err)
	}
	if missing.Template != prompt.PerformTask {
		t.Errorf("expected template name, got %q", missing.Template)
	}
}

func TestLibrary_Override(t *testing.T) {
	lib := prompt.NewLibrary(fstest.MapFS{
		"task_review.prompt": {Data: []byte("custom ${task_desc}")},
	})
	out, err := lib.Render(prompt.TaskReview, map[string]string{"task_desc": "x"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "custom x" {
		t.Errorf("override not used: %q", out)
	}
	if _, err := lib.Template(prompt.PerformTask); err != nil {
		t.Errorf("bundled fallback failed: %v", err)
	}
	if _, err := lib.Template("nope"); err == nil {
		t.Error("expected error for unknown prompt")
	}
}
