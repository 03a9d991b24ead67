package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/autostack/autostack/pkg/domain"
)

// Workspace is the directory holding one sub-directory per project.
type Workspace struct {
	root string
}

func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

func (w *Workspace) Root() string { return w.root }

// ProjectDir returns the directory for name after validating it.
func (w *Workspace) ProjectDir(name string) (string, error) {
	pn, err := domain.NewProjectName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.root, pn.String()), nil
}

// Repository returns the repository of the named project.
func (w *Workspace) Repository(name string) (*FilesystemRepository, error) {
	dir, err := w.ProjectDir(name)
	if err != nil {
		return nil, err
	}
	return NewFilesystemRepository(dir), nil
}

// Exists reports whether name has been initialised.
func (w *Workspace) Exists(name string) bool {
	repo, err := w.Repository(name)
	if err != nil {
		return false
	}
	return repo.IsInitialized()
}

// ListProjects returns the names of initialised projects, sorted.
func (w *Workspace) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if NewFilesystemRepository(filepath.Join(w.root, e.Name())).IsInitialized() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
