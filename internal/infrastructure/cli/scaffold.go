package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scaffoldDesign bool

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold <project> [module...]",
	Short: "Generate NestJS modules for the project's entities",
	Long: `scaffold writes controller, service, module, DTO and entity files for
every module not generated yet, or only the named ones, and registers
them in src/app.module.ts. With --design the modules are first designed
by the model from the project's documents.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		defer svc.Close()
		out := cmd.OutOrStdout()
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if scaffoldDesign {
			modules, err := svc.Project.DesignModules(ctx)
			if err != nil {
				return MapError(fmt.Errorf("design modules: %w", err))
			}
			fmt.Fprintf(out, "Designed %d modules\n", len(modules))
		}

		res, err := svc.Scaffold.ScaffoldPending(ctx, args[1:]...)
		if res != nil {
			for _, f := range res.Files {
				fmt.Fprintf(out, "  wrote %s\n", f)
			}
			if len(res.Modules) == 0 && err == nil {
				fmt.Fprintln(out, "Nothing to scaffold.")
			} else {
				fmt.Fprintf(out, "Scaffolded %d modules\n", len(res.Modules))
			}
		}
		return MapError(err)
	},
}

func init() {
	scaffoldCmd.Flags().BoolVar(&scaffoldDesign, "design", false, "Design the modules with the model before generating")
	RootCmd.AddCommand(scaffoldCmd)
}
