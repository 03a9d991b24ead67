package wiring

import (
	"log/slog"
	"path/filepath"

	"github.com/autostack/autostack/internal/infrastructure/config"
	"github.com/autostack/autostack/internal/infrastructure/webhook"
	"github.com/autostack/autostack/pkg/application"
	domainai "github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/execution"
	"github.com/autostack/autostack/pkg/storage"
	"github.com/autostack/autostack/pkg/textutil"
)

// TreeSkip lists directories never shown in the project tree.
var TreeSkip = []string{".git", storage.StateDir, "node_modules", "dist"}

// ProjectServices exposes the application services of one project.
type ProjectServices struct {
	Name       string
	Config     *config.Config
	Repo       *storage.FilesystemRepository
	Events     *storage.FileEventStore
	Dispatcher *events.Dispatcher
	Provider   domainai.Provider
	Logger     *slog.Logger
	Project    *application.ProjectService
	Scaffold   *application.ScaffoldService
	// Notifier is nil unless webhooks are configured.
	Notifier *webhook.Notifier

	options []application.Option
}

// Close waits for pending webhook deliveries.
func (s *ProjectServices) Close() {
	if s.Notifier != nil {
		s.Notifier.Wait()
	}
}

// NewPlanner returns a planner configured from the planner section.
func (s *ProjectServices) NewPlanner() *application.Planner {
	return application.NewPlanner(s.Provider, application.PlannerConfig{
		InitialMaxTasks: s.Config.Planner.InitialMaxTasks,
	}, s.options...)
}

// NewAgent returns an agent driving planner against exec. review
// overrides the configured review setting when true.
func (s *ProjectServices) NewAgent(planner *application.Planner, exec execution.Executor, review bool, maxIterations int) *application.Agent {
	if maxIterations < 0 {
		maxIterations = s.Config.Planner.MaxIterations
	}
	return application.NewAgent(s.Provider, planner, exec, s.Repo, application.AgentConfig{
		Cwd:              s.Config.Container.Workdir,
		Review:           review || s.Config.Planner.Review,
		ReplanMaxTasks:   s.Config.Planner.ReplanMaxTasks,
		ReplanMaxRetries: s.Config.Planner.ReplanMaxRetries,
		MaxIterations:    maxIterations,
		ProjectTree:      s.ProjectTree,
	}, s.options...)
}

// ProjectTree renders the project directory, honouring its .gitignore.
func (s *ProjectServices) ProjectTree() (string, error) {
	return ProjectTree(s.Repo.Root())
}

// ProjectTree renders the tree of the project checked out at root.
func ProjectTree(root string) (string, error) {
	ignore, err := textutil.LoadIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return "", err
	}
	return textutil.Tree(root, textutil.TreeOptions{Ignore: ignore, Skip: TreeSkip})
}
