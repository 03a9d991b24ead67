package cli

import (
	"fmt"
	"io"

	"github.com/autostack/autostack/pkg/application"
	"github.com/spf13/cobra"
)

var (
	runReview        bool
	runMaxIterations int
	runResume        bool
)

var runCmd = &cobra.Command{
	Use:   "run <project> [goal]",
	Short: "Plan toward a goal and let the agent carry out the tasks",
	Long: `run decomposes the goal into tasks and performs them one at a time
against the project's execution environment, re-planning after every task.
Without a goal, one is composed from the project's documents.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		out := cmd.OutOrStdout()
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if runServe != "" {
			if err := startLiveServer(ctx, svc, runServe); err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching at http://%s/projects/%s\n", runServe, svc.Name)
		}

		session, err := svc.OpenExecutor(ctx)
		if err != nil {
			return MapError(err)
		}
		defer session.Close()
		if session.Container != nil {
			fmt.Fprintf(out, "Container %s is up at %s\n", session.Container.Name, session.Container.URL())
		}

		planner := svc.NewPlanner()
		agent := svc.NewAgent(planner, session.Executor, runReview, runMaxIterations)

		if runResume {
			plan, err := svc.Repo.LoadPlan()
			if err != nil {
				return MapError(err)
			}
			fmt.Fprintf(out, "Resuming: %s\n", plan.Goal)
			err = agent.Resume(ctx, plan)
			printStatus(out, planner.Status())
			return MapError(err)
		}

		goal := ""
		if len(args) > 1 {
			goal = args[1]
		} else {
			goal, err = svc.Project.ComposeGoal()
			if err != nil {
				return MapError(fmt.Errorf("compose goal: %w", err))
			}
		}
		fmt.Fprintf(out, "Goal: %s\n", firstLine(goal))
		err = agent.Run(ctx, goal)
		printStatus(out, planner.Status())
		return MapError(err)
	},
}

func printStatus(w io.Writer, s application.PlanStatus) {
	fmt.Fprintf(w, "State: %s  tasks: %d  finished: %d  succeeded: %d\n", s.State, s.Total, s.Finished, s.Succeeded)
	if s.Current != nil {
		fmt.Fprintf(w, "Next:  %s\n", s.Current.Description)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}

func init() {
	runCmd.Flags().BoolVar(&runReview, "review", false, "Ask the model to review every task before confirming it")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", -1, "Stop after this many tasks (0 = unlimited, default from planner.max_iterations)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Continue the saved plan instead of starting a new one")
	runCmd.Flags().StringVar(&runServe, "serve", "", "Serve the plan and a live event stream on this address while running")
	RootCmd.AddCommand(runCmd)
}
