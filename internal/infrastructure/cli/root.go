package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	workspaceFlag string
	configFlag    string
	verboseFlag   bool
	logJSONFlag   bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "autostack",
	Version: Version,
	Short:   "Plan, generate and run backend projects with a language model",
	Long: `autostack turns a short description into a working NestJS backend.
It writes the requirement and database documents, scaffolds modules,
then lets a planner and a programmer agent finish the code inside a
project container.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), verboseFlag, logJSONFlag))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		printError(RootCmd.ErrOrStderr(), err)
	}
	return err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var cliErr *CLIError
	if errors.As(MapError(err), &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	if err != nil {
		return 1
	}
	return 0
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory holding the projects (overrides workspace.root)")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "autostack.yaml", "Path to the configuration file")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at debug level")
	RootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Write logs as JSON")
	RootCmd.SetVersionTemplate(fmt.Sprintf("autostack %s (commit %s, built %s)\n", Version, Commit, Date))
}

func newLogger(w interface{ Write([]byte) (int, error) }, verbose, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
