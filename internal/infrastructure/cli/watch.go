package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/autostack/autostack/internal/infrastructure/watch"
	"github.com/autostack/autostack/internal/infrastructure/wiring"
	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/storage"
	"github.com/autostack/autostack/pkg/textutil"
	"github.com/spf13/cobra"
)

var watchWindow time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <project>",
	Short: "Follow plan progress and file changes of a running project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		out := cmd.OutOrStdout()
		w, err := newProjectWatcher(svc, func(line string) { fmt.Fprintln(out, line) })
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", svc.Repo.Root())
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newProjectWatcher(svc *wiring.ProjectServices, print func(string)) (*watch.Watcher, error) {
	root := svc.Repo.Root()
	ignore, err := textutil.LoadIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil, err
	}
	planRel := storage.StateDir + "/" + storage.PlanFile
	planPath := filepath.Join(root, filepath.FromSlash(planRel))

	filter := watch.Filter{Root: root, Ignore: ignore, Skip: wiring.TreeSkip, Keep: []string{planRel}}
	return watch.New(filter, watchWindow, func(batch []watch.ChangeEvent) {
		reportChanges(context.Background(), svc, planPath, batch, print)
	}, svc.Logger)
}

// reportChanges prints plan progress when the plan moved and records the
// other changes as events.
func reportChanges(ctx context.Context, svc *wiring.ProjectServices, planPath string, batch []watch.ChangeEvent, print func(string)) {
	root := svc.Repo.Root()
	for _, e := range batch {
		if filepath.Clean(e.Path) == filepath.Clean(planPath) {
			continue
		}
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			rel = e.Path
		}
		print(fmt.Sprintf("  %-6s %s", e.ChangeType, filepath.ToSlash(rel)))
		ev := events.New(events.EventTypeFileChanged, svc.Name, "watch", map[string]interface{}{
			"path":   filepath.ToSlash(rel),
			"change": e.ChangeType,
		})
		if err := svc.Dispatcher.Dispatch(ctx, ev); err != nil {
			svc.Logger.Warn("record file change", "error", err)
		}
	}
	if !watch.Touches(batch, planPath) {
		return
	}
	plan, err := svc.Repo.LoadPlan()
	if err != nil {
		print("plan: " + err.Error())
		return
	}
	plan.Normalize()
	s := application.StatusOf(plan, planning.StateFor(plan))
	line := fmt.Sprintf("[%s] %s %d/%d finished", time.Now().Format("15:04:05"), s.State, s.Finished, s.Total)
	if s.Current != nil {
		line += " | next: " + firstLine(s.Current.Description)
	}
	print(line)
}

func init() {
	watchCmd.Flags().DurationVar(&watchWindow, "debounce", 300*time.Millisecond, "Quiet period before a batch of changes is reported")
	RootCmd.AddCommand(watchCmd)
}
