package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"
)

const (
	StateDir    = ".autostack"
	ProjectFile = "project.yaml"
	PlanFile    = "plan.json"
	EventsFile  = "events.jsonl"
	DocsDir     = "docs"
)

var documentName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FilesystemRepository keeps a project's state under <root>/.autostack and
// its documents under <root>/docs.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
}

func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Root returns the project directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// ResolvePath ensures the path is a direct child of the state directory.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, StateDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}
	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	if err := os.MkdirAll(filepath.Join(r.root, StateDir), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", StateDir, err)
	}
	if err := os.MkdirAll(filepath.Join(r.root, DocsDir), 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", DocsDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(r.root, StateDir))
	return err == nil
}

func (r *FilesystemRepository) SaveProject(p *project.Project) error {
	path, err := r.ResolvePath(ProjectFile)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	return writeFileAtomic(path, data, 0600)
}

func (r *FilesystemRepository) LoadProject() (*project.Project, error) {
	if !r.IsInitialized() {
		return nil, domain.ErrNotInitialized
	}
	retryer := retry.New[*project.Project](r.retryConfig)

	return retryer.Do(context.Background(), func(ctx context.Context) (*project.Project, error) {
		path, err := r.ResolvePath(ProjectFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, domain.ErrProjectNotFound
			}
			return nil, fmt.Errorf("failed to read project file: %w", err)
		}

		var p project.Project
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project: %w", err)
		}
		return &p, nil
	})
}

// SaveDocument writes docs/<name>.md.
func (r *FilesystemRepository) SaveDocument(name, content string) error {
	path, err := r.documentPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}
	return writeFileAtomic(path, []byte(content), 0644)
}

func (r *FilesystemRepository) LoadDocument(name string) (string, error) {
	path, err := r.documentPath(name)
	if err != nil {
		return "", err
	}
	// #nosec G304 -- name is validated by documentPath
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrDocumentMissing, name)
		}
		return "", fmt.Errorf("failed to read document %s: %w", name, err)
	}
	return string(data), nil
}

// DocumentPath returns where the document called name is stored.
func (r *FilesystemRepository) DocumentPath(name string) (string, error) {
	return r.documentPath(name)
}

func (r *FilesystemRepository) documentPath(name string) (string, error) {
	if !documentName.MatchString(name) {
		return "", fmt.Errorf("invalid document name: %q", name)
	}
	return filepath.Join(r.root, DocsDir, name+".md"), nil
}

// SavePlan writes plan.json through a temporary file and rename so a
// crash never leaves a truncated plan behind.
func (r *FilesystemRepository) SavePlan(plan *planning.Plan) error {
	path, err := r.ResolvePath(PlanFile)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	return writeFileAtomic(path, data, 0600)
}

func (r *FilesystemRepository) LoadPlan() (*planning.Plan, error) {
	retryer := retry.New[*planning.Plan](r.retryConfig)

	plan, err := retryer.Do(context.Background(), func(ctx context.Context) (*planning.Plan, error) {
		path, err := r.ResolvePath(PlanFile)
		if err != nil {
			return nil, err
		}

		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, domain.ErrPlanNotFound
			}
			return nil, fmt.Errorf("failed to read plan file: %w", err)
		}

		var p planning.Plan
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	plan.Normalize()
	return plan, nil
}

// DeletePlan removes plan.json. A missing plan is not an error.
func (r *FilesystemRepository) DeletePlan() error {
	path, err := r.ResolvePath(PlanFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove plan: %w", err)
	}
	return nil
}

// Events opens the project's event log.
func (r *FilesystemRepository) Events() (*FileEventStore, error) {
	return NewFileEventStore(filepath.Join(r.root, StateDir))
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
