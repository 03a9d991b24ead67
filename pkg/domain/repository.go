package domain

import (
	"errors"

	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
)

var (
	ErrNotInitialized  = errors.New("project workspace is not initialized")
	ErrPlanNotFound    = errors.New("no saved plan")
	ErrProjectNotFound = errors.New("project not found")
	ErrDocumentMissing = errors.New("project document not found")
)

// WorkspaceRepository persists one project's artifacts in its .autostack/
// directory.
type WorkspaceRepository interface {
	Initialize() error
	IsInitialized() bool
	Root() string
	SaveProject(p *project.Project) error
	LoadProject() (*project.Project, error)
	SaveDocument(name, content string) error
	LoadDocument(name string) (string, error)
	SavePlan(plan *planning.Plan) error
	LoadPlan() (*planning.Plan, error)
}
