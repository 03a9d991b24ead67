package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autostack/autostack/internal/infrastructure/config"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/autostack/autostack/pkg/storage"
)

// testEnv writes an offline configuration: the mock model and the local
// executor.
func testEnv(t *testing.T) (cfgPath, wsRoot string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.AI.Provider = "mock"
	cfg.AI.Model = "test"
	cfg.Executor.Kind = config.ExecutorLocal
	cfg.Workspace.Root = filepath.Join(dir, "workspace")
	cfgPath = filepath.Join(dir, config.FileName)
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"AUTOSTACK_AI_PROVIDER", "AUTOSTACK_AI_MODEL", "AUTOSTACK_WORKSPACE", "AUTOSTACK_CONTAINER_IMAGE"} {
		t.Setenv(k, "")
	}
	return cfgPath, cfg.Workspace.Root
}

// runCLI executes the root command with fresh flag values.
func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, logs bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&logs)
	RootCmd.SetIn(strings.NewReader(""))
	RootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() { RootCmd.SetArgs(nil) })
	err := RootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	workspaceFlag, verboseFlag, logJSONFlag = "", false, false
	initDescription, initLoad, initForce = "", false, false
	runReview, runMaxIterations, runResume = false, -1, false
	planJSONOutput = false
	scaffoldDesign = false
	docRaw = false
	configForce = false
	containerExecWorkdir, containerExecDetach = "", false
	runServe, serveAddr = "", "127.0.0.1:8484"
	eventsTypes, eventsTask, eventsSince, eventsLimit, eventsJSON, eventsVerify = nil, "", 0, 0, false, false
}

// seedProject creates a project with documents and a half done plan.
func seedProject(t *testing.T, wsRoot, name string) *storage.FilesystemRepository {
	t.Helper()
	repo, err := storage.NewWorkspace(wsRoot).Repository(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	p := project.New(name, "a blog")
	p.Modules = []project.Module{{
		Name: "post",
		Entity: project.Entity{Name: "Post", Attributes: []project.Attribute{
			{Name: "title", Type: "String", Required: true},
		}},
	}}
	if err := repo.SaveProject(p); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(project.DocRequirement, "# Blog\n\nPosts and comments."); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveDocument(project.DocDatabaseDesign, "# Tables\n"); err != nil {
		t.Fatal(err)
	}
	plan := planning.NewPlan("build the blog")
	plan.AddTasks([]*planning.Task{planning.NewTask("create the post module"), planning.NewTask("write tests")})
	if err := plan.RecordResult([]planning.Action{{Kind: planning.ActionFile, Target: "/app/src/post.ts", Result: "write success"}}); err != nil {
		t.Fatal(err)
	}
	plan.Tasks[0].IsSuccess = true
	plan.FinishCurrentTask()
	if err := repo.SavePlan(plan); err != nil {
		t.Fatal(err)
	}
	return repo
}
