package cli

import (
	"fmt"
	"strings"

	"github.com/autostack/autostack/pkg/container"
	"github.com/spf13/cobra"
)

// containerRunner talks to docker; tests replace it.
var containerRunner container.Runner = container.NewCLIRunner()

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage the container a project runs in",
}

var containerStartCmd = &cobra.Command{
	Use:   "start <project>",
	Short: "Start the project container, creating it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		c, err := svc.StartContainer(cmd.Context(), containerRunner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s running at %s\n", c.Name, c.URL())
		return nil
	},
}

var containerStopCmd = &cobra.Command{
	Use:   "stop <project>",
	Short: "Stop the project container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		c, err := svc.AttachContainer(containerRunner)
		if err != nil {
			return err
		}
		if err := c.Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s stopped\n", c.Name)
		return nil
	},
}

var containerRemoveCmd = &cobra.Command{
	Use:   "rm <project>",
	Short: "Remove the project container; the project files stay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		c, err := svc.AttachContainer(containerRunner)
		if err != nil {
			return err
		}
		if err := c.Remove(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", c.Name)
		return nil
	},
}

var (
	containerExecWorkdir string
	containerExecDetach  bool
)

var containerExecCmd = &cobra.Command{
	Use:   "exec <project> -- <command...>",
	Short: "Run a shell command in the project container",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		c, err := svc.StartContainer(ctx, containerRunner)
		if err != nil {
			return err
		}
		command := strings.Join(args[1:], " ")
		if containerExecDetach {
			if err := c.ExecuteDetached(ctx, command, containerExecWorkdir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started in %s: %s\n", c.Name, command)
			return nil
		}
		output, err := c.Execute(ctx, command, containerExecWorkdir)
		if output != "" {
			fmt.Fprintln(cmd.OutOrStdout(), output)
		}
		return err
	},
}

func init() {
	containerExecCmd.Flags().StringVar(&containerExecWorkdir, "workdir", "", "Directory inside the container (default container.workdir)")
	containerExecCmd.Flags().BoolVarP(&containerExecDetach, "detach", "d", false, "Start the command and return without waiting for it, e.g. a dev server")
	containerCmd.AddCommand(containerStartCmd, containerStopCmd, containerRemoveCmd, containerExecCmd)
	RootCmd.AddCommand(containerCmd)
}
