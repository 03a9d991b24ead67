// Package web serves a read-only browser view of a workspace and, while an
// agent runs in the same process, a live event stream.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the workspace HTTP server.
type Server struct {
	store  *storage.Workspace
	broker *Broker
	tmpl   *template.Template
	logger *slog.Logger
}

// NewServer serves the projects in store. broker may be nil, in which case
// /events is not routed.
func NewServer(store *storage.Workspace, broker *Broker, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"taskStatus": taskStatus,
		"percent":    percent,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{store: store, broker: broker, tmpl: tmpl, logger: logger}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /projects/{name}", s.handleProject)
	mux.HandleFunc("GET /api/projects", s.handleAPIProjects)
	mux.HandleFunc("GET /api/projects/{name}/plan", s.handleAPIPlan)
	mux.HandleFunc("GET /api/projects/{name}/status", s.handleAPIStatus)
	if s.broker != nil {
		mux.Handle("GET /events", s.broker)
		mux.HandleFunc("GET /ws", s.broker.ServeWS)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("web server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type indexPage struct {
	Projects []string
	Error    string
}

type projectPage struct {
	Name   string
	Plan   *planning.Plan
	Status application.PlanStatus
	Live   bool
	Error  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListProjects()
	page := indexPage{Projects: names}
	if err != nil {
		page.Error = err.Error()
	}
	s.render(w, "index.html", page)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	page := projectPage{Name: name, Live: s.broker != nil}
	plan, status, err := s.plan(name)
	switch {
	case errors.Is(err, domain.ErrInvalidProjectName), errors.Is(err, domain.ErrProjectNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		page.Error = err.Error()
	default:
		page.Plan, page.Status = plan, status
	}
	s.render(w, "project.html", page)
}

func (s *Server) handleAPIProjects(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListProjects()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, names)
}

func (s *Server) handleAPIPlan(w http.ResponseWriter, r *http.Request) {
	plan, _, err := s.plan(r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	writeJSON(w, plan)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	_, status, err := s.plan(r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), statusCode(err))
		return
	}
	writeJSON(w, status)
}

func (s *Server) plan(name string) (*planning.Plan, application.PlanStatus, error) {
	repo, err := s.store.Repository(name)
	if err != nil {
		return nil, application.PlanStatus{}, err
	}
	if !repo.IsInitialized() {
		return nil, application.PlanStatus{}, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, name)
	}
	plan, err := repo.LoadPlan()
	if err != nil {
		return nil, application.PlanStatus{}, err
	}
	return plan, application.StatusOf(plan, planning.StateFor(plan)), nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidProjectName):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProjectNotFound), errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func taskStatus(plan *planning.Plan, t *planning.Task) string {
	switch {
	case t.IsFinished && t.IsSuccess:
		return "done"
	case t.IsFinished:
		return "failed"
	case t.ID == plan.CurrentTaskID:
		return "current"
	default:
		return "pending"
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return done * 100 / total
}
