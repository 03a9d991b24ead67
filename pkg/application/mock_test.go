package application_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
)

type MockRepo struct {
	Dir         string
	Project     *project.Project
	Plan        *planning.Plan
	Docs        map[string]string
	Initialized bool
	SaveError   error
	PlanSaves   int
}

func (m *MockRepo) Initialize() error   { m.Initialized = true; return nil }
func (m *MockRepo) IsInitialized() bool { return m.Initialized }
func (m *MockRepo) Root() string        { return m.Dir }
func (m *MockRepo) SaveProject(p *project.Project) error {
	m.Project = p
	return m.SaveError
}
func (m *MockRepo) LoadProject() (*project.Project, error) {
	if m.Project == nil {
		return nil, domain.ErrProjectNotFound
	}
	return m.Project, nil
}
func (m *MockRepo) SaveDocument(name, content string) error {
	if m.Docs == nil {
		m.Docs = map[string]string{}
	}
	m.Docs[name] = content
	return m.SaveError
}
func (m *MockRepo) LoadDocument(name string) (string, error) {
	doc, ok := m.Docs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrDocumentMissing, name)
	}
	return doc, nil
}
func (m *MockRepo) SavePlan(p *planning.Plan) error {
	m.Plan = p
	m.PlanSaves++
	return m.SaveError
}
func (m *MockRepo) LoadPlan() (*planning.Plan, error) {
	if m.Plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return m.Plan, nil
}

// MockExecutor records directives. Commands listed in Failures fail with
// the mapped output.
type MockExecutor struct {
	mu         sync.Mutex
	Files      map[string]string
	Commands   []string
	Outputs    map[string]string
	Failures   map[string]string
	WriteError error
}

func (m *MockExecutor) WriteFile(ctx context.Context, path, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return m.WriteError
	}
	if m.Files == nil {
		m.Files = map[string]string{}
	}
	m.Files[path] = content
	return nil
}

func (m *MockExecutor) RunCommand(ctx context.Context, command, workdir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, command)
	if out, ok := m.Failures[command]; ok {
		return out, fmt.Errorf("command %q: exit status 1", command)
	}
	return m.Outputs[command], nil
}

func jsonTasks(descs ...string) string {
	s := "```json\n["
	for i, d := range descs {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"task_desc": %q}`, d)
	}
	return s + "]\n```"
}

func fileArtifact(path, content string) string {
	return fmt.Sprintf("<artifact id=\"a\" title=\"t\">\n<action type=\"file\" filePath=\"%s\">\n%s\n</action>\n</artifact>", path, content)
}

func shellArtifact(workdir, command string) string {
	return fmt.Sprintf("<artifact id=\"a\" title=\"t\">\n<action type=\"shell\" shellPath=\"%s\">\n%s\n</action>\n</artifact>", workdir, command)
}
