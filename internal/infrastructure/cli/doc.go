package cli

import (
	"fmt"

	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var docRaw bool

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Read the documents generated for a project",
}

var docShowCmd = &cobra.Command{
	Use:       "show <project> [requirement|database_design]",
	Short:     "Render a project document",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{project.DocRequirement, project.DocDatabaseDesign},
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		name := project.DocRequirement
		if len(args) > 1 {
			name = args[1]
		}
		text, err := svc.Repo.LoadDocument(name)
		if err != nil {
			return MapError(err)
		}
		if !docRaw {
			text = renderMarkdown(text)
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

// renderMarkdown styles md for the terminal, returning it unchanged when
// rendering fails.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func init() {
	docShowCmd.Flags().BoolVar(&docRaw, "raw", false, "Print the markdown source")
	docCmd.AddCommand(docShowCmd)
	RootCmd.AddCommand(docCmd)
}
