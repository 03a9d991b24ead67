package wiring

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/autostack/autostack/internal/infrastructure/config"
	"github.com/autostack/autostack/internal/infrastructure/webhook"
	"github.com/autostack/autostack/pkg/application"
	domainai "github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/prompt"
	"github.com/autostack/autostack/pkg/storage"
)

// Workspace bundles the configuration and the directory holding the
// projects.
type Workspace struct {
	Config *config.Config
	Store  *storage.Workspace
	Logger *slog.Logger
}

func NewWorkspace(cfg *config.Config, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Workspace{Config: cfg, Store: storage.NewWorkspace(root), Logger: logger}, nil
}

// Project wires the services of the named project. The project does not
// need to exist yet.
func (w *Workspace) Project(name string) (*ProjectServices, error) {
	provider, err := NewAIProvider(w.Config)
	if err != nil {
		return nil, err
	}
	return w.ProjectWithProvider(name, provider)
}

// newNotifier returns nil when no webhooks are configured. Failed
// deliveries are recorded in the project's state directory.
func newNotifier(hooks []config.WebhookConfig, projectRoot string, logger *slog.Logger) *webhook.Notifier {
	if len(hooks) == 0 {
		return nil
	}
	endpoints := make([]webhook.Endpoint, 0, len(hooks))
	for _, h := range hooks {
		endpoints = append(endpoints, webhook.Endpoint{
			Name:       h.Name,
			URL:        h.URL,
			Secret:     h.Secret,
			Events:     h.Events,
			MaxRetries: h.MaxRetries,
			RetryDelay: time.Duration(h.RetryDelayMS) * time.Millisecond,
		})
	}
	deadLetters := webhook.NewDeadLetterStore(filepath.Join(projectRoot, storage.StateDir, webhook.DeadLetterFile))
	return webhook.NewNotifier(endpoints, deadLetters, logger)
}

// ProjectWithProvider is Project with a caller supplied backend.
func (w *Workspace) ProjectWithProvider(name string, provider domainai.Provider) (*ProjectServices, error) {
	repo, err := w.Store.Repository(name)
	if err != nil {
		return nil, err
	}
	store, err := repo.Events()
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	logger := w.Logger.With("project", name)
	dispatcher := events.NewDispatcher()
	events.Wire(dispatcher, logger, store)
	notifier := newNotifier(w.Config.Webhooks, repo.Root(), logger)
	if notifier != nil {
		dispatcher.RegisterWildcard("webhook", notifier.Handle)
	}

	opts := []application.Option{
		application.WithLogger(logger),
		application.WithEvents(dispatcher, name),
	}
	if dir := w.Config.AI.PromptsDir; dir != "" {
		opts = append(opts, application.WithPrompts(prompt.NewLibrary(os.DirFS(dir))))
	}
	if w.Config.AI.SystemPrompt != "" {
		opts = append(opts, application.WithSystemPrompt(w.Config.AI.SystemPrompt))
	}

	return &ProjectServices{
		Name:       name,
		Config:     w.Config,
		Repo:       repo,
		Events:     store,
		Dispatcher: dispatcher,
		Provider:   provider,
		Logger:     logger,
		Project:    application.NewProjectService(repo, provider, opts...),
		Scaffold:   application.NewScaffoldService(repo, logger, dispatcher),
		Notifier:   notifier,
		options:    opts,
	}, nil
}
