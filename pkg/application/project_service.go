package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/autostack/autostack/pkg/prompt"
	"github.com/autostack/autostack/pkg/textutil"
)

// SchemaPath is where the generated Prisma schema is written, relative to
// the project directory.
const SchemaPath = "prisma/schema.prisma"

const schemaHeader = `generator client {
  provider = "prisma-client-js"
}

datasource db {
  provider = "postgresql"
  url      = env("DATABASE_URL")
}

`

// ProjectService bootstraps a project from its description: requirement
// document, database design and schema, then module design.
type ProjectService struct {
	collaborator
	repo domain.WorkspaceRepository
}

func NewProjectService(repo domain.WorkspaceRepository, provider ai.Provider, opts ...Option) *ProjectService {
	s := &ProjectService{collaborator: newCollaborator(provider), repo: repo}
	for _, opt := range opts {
		opt(&s.collaborator)
	}
	return s
}

// Exists reports whether the project has been initialised.
func (s *ProjectService) Exists() bool {
	return s.repo.IsInitialized()
}

// Init creates the project and generates its documents.
func (s *ProjectService) Init(ctx context.Context, name, description string) (*project.Project, error) {
	pn, err := domain.NewProjectName(name)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.New("project description is required")
	}
	if err := s.repo.Initialize(); err != nil {
		return nil, err
	}
	proj := project.New(pn.String(), description)
	if err := s.repo.SaveProject(proj); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}

	requirement, err := s.ask(ctx, "requirement", prompt.Requirement, map[string]string{
		"project_name":        proj.Name,
		"project_description": description,
	})
	if err != nil {
		return nil, err
	}
	requirement = textutil.CodeBlockOrContent(requirement, "markdown")
	if err := s.repo.SaveDocument(project.DocRequirement, requirement); err != nil {
		return nil, err
	}

	design, err := s.ask(ctx, "database_design", prompt.DatabaseDesign, map[string]string{
		"requirement_doc": requirement,
	})
	if err != nil {
		return nil, err
	}
	design = textutil.CodeBlockOrContent(design, "markdown")
	if err := s.repo.SaveDocument(project.DocDatabaseDesign, design); err != nil {
		return nil, err
	}

	if err := s.GenerateSchema(ctx, design); err != nil {
		return nil, err
	}

	proj.Touch()
	if err := s.repo.SaveProject(proj); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	s.logger.Info("project initialised", "project", proj.Name)
	s.emit(ctx, events.EventTypeProjectInitialized, map[string]interface{}{"name": proj.Name})
	return proj, nil
}

// GenerateSchema asks for a Prisma schema matching design and writes it
// to SchemaPath.
func (s *ProjectService) GenerateSchema(ctx context.Context, design string) error {
	text, err := s.ask(ctx, "database_schema", prompt.DatabaseSchema, map[string]string{
		"database_design_doc": design,
	})
	if err != nil {
		return err
	}
	blocks := textutil.ExtractCodeBlocks(text, "prisma")
	if len(blocks) == 0 {
		return fmt.Errorf("database schema: no fenced prisma block in response")
	}
	schema := blocks[0]
	if !strings.Contains(schema, "datasource ") {
		schema = schemaHeader + schema
	}
	path := filepath.Join(s.repo.Root(), filepath.FromSlash(SchemaPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(schema+"\n"), 0o644); err != nil { //nolint:gosec // project source
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

// Load reads the saved project.
func (s *ProjectService) Load() (*project.Project, error) {
	return s.repo.LoadProject()
}

// Documents returns the requirement and database design documents.
func (s *ProjectService) Documents() (requirement, design string, err error) {
	if requirement, err = s.repo.LoadDocument(project.DocRequirement); err != nil {
		return "", "", err
	}
	if design, err = s.repo.LoadDocument(project.DocDatabaseDesign); err != nil {
		return "", "", err
	}
	return requirement, design, nil
}

// DesignModules asks for the module breakdown and adds modules not yet
// known to the project.
func (s *ProjectService) DesignModules(ctx context.Context) ([]project.Module, error) {
	proj, err := s.repo.LoadProject()
	if err != nil {
		return nil, err
	}
	requirement, design, err := s.Documents()
	if err != nil {
		return nil, err
	}
	text, err := s.ask(ctx, "module_design", prompt.ModuleDesign, map[string]string{
		"requirement_doc":     requirement,
		"database_design_doc": design,
	})
	if err != nil {
		return nil, err
	}
	modules, err := ParseModules(text)
	if err != nil {
		return nil, err
	}

	var added []project.Module
	for _, m := range modules {
		if proj.Module(m.Name) != nil {
			continue
		}
		proj.Modules = append(proj.Modules, m)
		added = append(added, m)
	}
	proj.Touch()
	if err := s.repo.SaveProject(proj); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	s.logger.Info("modules designed", "project", proj.Name, "added", len(added))
	return added, nil
}

// ParseModules reads the module array of a module-design response.
func ParseModules(text string) ([]project.Module, error) {
	blocks := textutil.ExtractCodeBlocks(text, "json")
	if len(blocks) == 0 {
		return nil, errors.New("module design: no fenced json block in response")
	}
	var modules []project.Module
	if err := json.Unmarshal([]byte(blocks[0]), &modules); err != nil {
		return nil, fmt.Errorf("module design: %w", err)
	}
	out := modules[:0]
	for _, m := range modules {
		m.Name = strings.TrimSpace(m.Name)
		if m.Entity.Name == "" {
			m.Entity.Name = m.Name
		}
		if m.Name == "" {
			continue
		}
		m.Created = false
		out = append(out, m)
	}
	return out, nil
}

// ComposeGoal builds the default agent goal from the project documents.
func (s *ProjectService) ComposeGoal() (string, error) {
	requirement, design, err := s.Documents()
	if err != nil {
		return "", err
	}
	return s.prompts.Render(prompt.ComposeGoal, map[string]string{
		"requirement_doc":     requirement,
		"database_design_doc": design,
	})
}
