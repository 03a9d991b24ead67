// Package mcp exposes the projects of a workspace to MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/autostack/autostack/internal/infrastructure/wiring"
	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/autostack/autostack/pkg/storage"
	"github.com/felixgeelhaar/mcp-go"
)

var Version = "dev"

// Server answers read-only questions about the projects of a workspace.
type Server struct {
	mcpServer *mcp.Server
	store     *storage.Workspace
}

// mcpErr returns a message fit for MCP clients; internal details are
// left out.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(ws *wiring.Workspace) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(mcp.ServerInfo{Name: "autostack", Version: Version},
			mcp.WithTitle("autostack MCP Server"),
			mcp.WithDescription("Inspect generated backend projects: plans, task memories, documents and files."),
			mcp.WithInstructions("Call autostack_list_projects first, then pass a project name to the other tools."),
		),
		store: ws.Store,
	}
	s.registerTools()
	s.registerSchemaResource()
	return s
}

type ProjectArgs struct {
	Project string `json:"project" jsonschema:"description=Name of the project in the workspace"`
}

type DocumentArgs struct {
	Project  string `json:"project" jsonschema:"description=Name of the project in the workspace"`
	Document string `json:"document" jsonschema:"description=requirement or database_design"`
}

type EventsArgs struct {
	Project string `json:"project" jsonschema:"description=Name of the project in the workspace"`
	Type    string `json:"type,omitempty" jsonschema:"description=Only return events of this type"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Return at most this many of the latest events"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("autostack_list_projects").
		Description("List the initialised projects of the workspace").
		Handler(s.handleListProjects)

	s.mcpServer.Tool("autostack_get_project").
		Description("Retrieve a project with its modules and entities").
		Handler(s.handleGetProject)

	s.mcpServer.Tool("autostack_get_plan").
		Description("Retrieve the saved plan of a project: goal, tasks and their actions").
		Handler(s.handleGetPlan)

	s.mcpServer.Tool("autostack_plan_status").
		Description("Summarise plan progress: lifecycle state, task counts and the current task").
		Handler(s.handlePlanStatus)

	s.mcpServer.Tool("autostack_memories").
		Description("Return the finished tasks as they are fed back to the model").
		Handler(s.handleMemories)

	s.mcpServer.Tool("autostack_get_document").
		Description("Read a generated project document").
		Handler(s.handleGetDocument)

	s.mcpServer.Tool("autostack_project_tree").
		Description("Render the file tree of the generated code").
		Handler(s.handleProjectTree)

	s.mcpServer.Tool("autostack_events").
		Description("List the recorded events of a project").
		Handler(s.handleEvents)
}

func (s *Server) repo(name string) (*storage.FilesystemRepository, error) {
	repo, err := s.store.Repository(name)
	if err != nil {
		return nil, mcpErr("Invalid project name.")
	}
	if !repo.IsInitialized() {
		return nil, mcpErr(fmt.Sprintf("Project %q does not exist. Create it with 'autostack init'.", name))
	}
	return repo, nil
}

func (s *Server) loadPlan(name string) (*planning.Plan, error) {
	repo, err := s.repo(name)
	if err != nil {
		return nil, err
	}
	plan, err := repo.LoadPlan()
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			return nil, mcpErr("No plan saved yet. Start one with 'autostack run'.")
		}
		return nil, mcpErr("Failed to load plan.")
	}
	return plan, nil
}

func (s *Server) handleListProjects(ctx context.Context, args struct{}) (any, error) {
	names, err := s.store.ListProjects()
	if err != nil {
		return nil, mcpErr("Failed to read the workspace.")
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Server) handleGetProject(ctx context.Context, args ProjectArgs) (any, error) {
	repo, err := s.repo(args.Project)
	if err != nil {
		return nil, err
	}
	p, err := repo.LoadProject()
	if err != nil {
		return nil, mcpErr("Failed to load project.")
	}
	return p, nil
}

func (s *Server) handleGetPlan(ctx context.Context, args ProjectArgs) (any, error) {
	return s.loadPlan(args.Project)
}

func (s *Server) handlePlanStatus(ctx context.Context, args ProjectArgs) (any, error) {
	plan, err := s.loadPlan(args.Project)
	if err != nil {
		return nil, err
	}
	plan.Normalize()
	return application.StatusOf(plan, planning.StateFor(plan)), nil
}

func (s *Server) handleMemories(ctx context.Context, args ProjectArgs) (string, error) {
	plan, err := s.loadPlan(args.Project)
	if err != nil {
		return "", err
	}
	mem, err := application.MemoriesOf(plan)
	if err != nil {
		return "", mcpErr("Failed to encode memories.")
	}
	if mem == "" {
		return "No task has finished yet.", nil
	}
	return mem, nil
}

func (s *Server) handleGetDocument(ctx context.Context, args DocumentArgs) (string, error) {
	repo, err := s.repo(args.Project)
	if err != nil {
		return "", err
	}
	doc := args.Document
	if doc == "" {
		doc = project.DocRequirement
	}
	text, err := repo.LoadDocument(doc)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentMissing) {
			return "", mcpErr(fmt.Sprintf("Document %q has not been generated.", doc))
		}
		return "", mcpErr("Failed to read document.")
	}
	return text, nil
}

func (s *Server) handleProjectTree(ctx context.Context, args ProjectArgs) (string, error) {
	repo, err := s.repo(args.Project)
	if err != nil {
		return "", err
	}
	tree, err := wiring.ProjectTree(repo.Root())
	if err != nil {
		return "", mcpErr("Failed to read the project directory.")
	}
	return tree, nil
}

func (s *Server) handleEvents(ctx context.Context, args EventsArgs) (any, error) {
	repo, err := s.repo(args.Project)
	if err != nil {
		return nil, err
	}
	store, err := repo.Events()
	if err != nil {
		return nil, mcpErr("Failed to open the event log.")
	}
	filter := storage.EventFilter{Limit: args.Limit}
	if args.Type != "" {
		filter.Types = []string{args.Type}
	}
	list, err := store.Query(filter)
	if err != nil {
		return nil, mcpErr("Failed to read the event log.")
	}
	return list, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
