package application_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/project"
)

func TestScaffoldService_ScaffoldPending(t *testing.T) {
	dir := t.TempDir()
	repo := &MockRepo{
		Dir: dir,
		Project: &project.Project{Name: "blog", Modules: []project.Module{
			{Name: "User", Entity: project.Entity{Name: "User"}, Created: true},
			{Name: "BlogPost", Entity: project.Entity{Name: "BlogPost", Attributes: []project.Attribute{
				{Name: "title", Type: "String", Required: true},
			}}},
		}},
	}
	d := events.NewDispatcher()
	count := 0
	d.RegisterHandler("count", func(ctx context.Context, e events.DomainEvent) error {
		count++
		return nil
	}, events.EventTypeModuleScaffolded)

	res, err := application.NewScaffoldService(repo, nil, d).ScaffoldPending(context.Background())
	if err != nil {
		t.Fatalf("ScaffoldPending: %v", err)
	}
	if len(res.Modules) != 1 || res.Modules[0] != "BlogPost" || len(res.Files) != 8 {
		t.Errorf("unexpected result %+v", res)
	}
	if !repo.Project.Modules[1].Created {
		t.Error("module must be marked created")
	}
	if count != 1 {
		t.Errorf("expected one scaffold event, got %d", count)
	}

	app, err := os.ReadFile(filepath.Join(dir, "src", "app.module.ts"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BlogPostModule", "UserModule"} {
		if !strings.Contains(string(app), want) {
			t.Errorf("app module missing %s", want)
		}
	}
}

func TestScaffoldService_NothingPending(t *testing.T) {
	dir := t.TempDir()
	repo := &MockRepo{Dir: dir, Project: &project.Project{Name: "blog"}}
	res, err := application.NewScaffoldService(repo, nil, nil).ScaffoldPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Modules) != 0 {
		t.Errorf("unexpected modules %v", res.Modules)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "app.module.ts")); !os.IsNotExist(err) {
		t.Error("app module must not be written when nothing was generated")
	}
}
