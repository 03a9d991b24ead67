package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/spf13/cobra"
)

var planJSONOutput bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect the saved plan of a project",
}

var planShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Print every task of the plan with its actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan(args[0])
		if err != nil {
			return err
		}
		if planJSONOutput {
			return writeJSON(cmd.OutOrStdout(), plan)
		}
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

var planStatusCmd = &cobra.Command{
	Use:   "status <project>",
	Short: "Summarise plan progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan(args[0])
		if err != nil {
			return err
		}
		status := application.StatusOf(plan, planning.StateFor(plan))
		if planJSONOutput {
			return writeJSON(cmd.OutOrStdout(), status)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Goal:  %s\n", firstLine(status.Goal))
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

var planMemoriesCmd = &cobra.Command{
	Use:   "memories <project>",
	Short: "Print the finished tasks as they are sent to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan(args[0])
		if err != nil {
			return err
		}
		mem, err := application.MemoriesOf(plan)
		if err != nil {
			return err
		}
		if mem == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No task has finished yet.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), mem)
		return nil
	},
}

var planResetCmd = &cobra.Command{
	Use:   "reset <project>",
	Short: "Delete the saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		if err := svc.Repo.DeletePlan(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Plan deleted.")
		return nil
	},
}

func loadPlan(name string) (*planning.Plan, error) {
	svc, err := requireProject(name)
	if err != nil {
		return nil, err
	}
	plan, err := svc.Repo.LoadPlan()
	if err != nil {
		return nil, MapError(err)
	}
	plan.Normalize()
	return plan, nil
}

func printPlan(w io.Writer, plan *planning.Plan) {
	fmt.Fprintf(w, "Goal: %s\n\n", plan.Goal)
	for i, t := range plan.Tasks {
		mark := "[ ]"
		switch {
		case t.IsFinished && t.IsSuccess:
			mark = "[x]"
		case t.IsFinished:
			mark = "[!]"
		case t.ID == plan.CurrentTaskID:
			mark = "[>]"
		}
		fmt.Fprintf(w, "%s %2d. %s\n", mark, i+1, t.Description)
		for _, a := range t.Result {
			fmt.Fprintf(w, "         %-7s %s\n", a.Kind, firstLine(a.Target))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	planCmd.PersistentFlags().BoolVar(&planJSONOutput, "json", false, "Print JSON")
	planCmd.AddCommand(planShowCmd, planStatusCmd, planMemoriesCmd, planResetCmd)
	RootCmd.AddCommand(planCmd)
}
