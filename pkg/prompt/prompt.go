// Package prompt renders the embedded prompt templates. Placeholders use
// the ${name} form; every placeholder must be supplied.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

// Names of the bundled templates.
const (
	System           = "system"
	Requirement      = "requirement"
	DatabaseDesign   = "database_design"
	DatabaseSchema   = "database_schema"
	ModuleDesign     = "module_design"
	ComposeGoal      = "compose_goal"
	TasksSubdivision = "tasks_subdivision"
	PerformTask      = "perform_task"
	TaskReview       = "task_review"
)

//go:embed prompts/*.prompt
var bundled embed.FS

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// MissingVariableError lists placeholders that had no value.
type MissingVariableError struct {
	Template string
	Missing  []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt %q: missing variables: %s", e.Template, strings.Join(e.Missing, ", "))
}

// Library loads templates from a filesystem, falling back to the bundled
// set for names the override does not provide.
type Library struct {
	override fs.FS
}

// NewLibrary returns a library backed by the bundled prompts. override may
// be nil; otherwise "<name>.prompt" files found there win.
func NewLibrary(override fs.FS) *Library {
	return &Library{override: override}
}

// Template returns the raw text of name.
func (l *Library) Template(name string) (string, error) {
	file := name + ".prompt"
	if l != nil && l.override != nil {
		if data, err := fs.ReadFile(l.override, file); err == nil {
			return string(data), nil
		}
	}
	data, err := bundled.ReadFile("prompts/" + file)
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q: %w", name, err)
	}
	return string(data), nil
}

// Render substitutes vars into the template called name.
func (l *Library) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := l.Template(name)
	if err != nil {
		return "", err
	}
	out, err := Expand(tmpl, vars)
	if err != nil {
		var missing *MissingVariableError
		if errors.As(err, &missing) {
			missing.Template = name
		}
		return "", err
	}
	return out, nil
}

// Expand substitutes ${name} placeholders in text. Values are inserted
// verbatim, so a value containing ${x} is not expanded again.
func Expand(text string, vars map[string]string) (string, error) {
	missing := map[string]bool{}
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			missing[key] = true
			return m
		}
		return v
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for k := range missing {
			names = append(names, k)
		}
		sort.Strings(names)
		return "", &MissingVariableError{Missing: names}
	}
	return out, nil
}
