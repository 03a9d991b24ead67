package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/scaffold"
)

// ScaffoldService generates the files of a project's designed modules.
type ScaffoldService struct {
	repo       domain.WorkspaceRepository
	generator  *scaffold.Generator
	logger     *slog.Logger
	dispatcher *events.Dispatcher
}

func NewScaffoldService(repo domain.WorkspaceRepository, logger *slog.Logger, dispatcher *events.Dispatcher) *ScaffoldService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScaffoldService{
		repo:       repo,
		generator:  scaffold.NewGenerator(repo.Root(), logger),
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// ScaffoldResult lists what a run generated.
type ScaffoldResult struct {
	Modules []string
	Files   []string
}

// ScaffoldPending generates every module not created yet, or only the
// named ones when names are given, then registers all created modules in
// the app module. A module that fails stays pending.
func (s *ScaffoldService) ScaffoldPending(ctx context.Context, names ...string) (*ScaffoldResult, error) {
	proj, err := s.repo.LoadProject()
	if err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}

	res := &ScaffoldResult{}
	var errs []error
	for _, m := range proj.PendingModules() {
		if len(wanted) > 0 && !wanted[m.Name] {
			continue
		}
		files, err := s.generator.CreateModule(m.Entity)
		res.Files = append(res.Files, files...)
		if err != nil {
			errs = append(errs, fmt.Errorf("module %s: %w", m.Name, err))
			continue
		}
		m.Created = true
		res.Modules = append(res.Modules, m.Name)
		if s.dispatcher != nil {
			ev := events.New(events.EventTypeModuleScaffolded, proj.Name, events.ActorAgent, map[string]interface{}{
				"module": m.Name,
				"files":  len(files),
			})
			if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
				s.logger.Warn("event handler failed", "error", err)
			}
		}
	}

	var created []string
	for _, m := range proj.Modules {
		if m.Created {
			created = append(created, m.Entity.Name)
		}
	}
	if len(res.Modules) > 0 {
		if err := s.generator.AddModuleToApp(created...); err != nil {
			errs = append(errs, fmt.Errorf("app module: %w", err))
		}
	}

	proj.Touch()
	if err := s.repo.SaveProject(proj); err != nil {
		errs = append(errs, fmt.Errorf("save project: %w", err))
	}
	return res, errors.Join(errs...)
}
