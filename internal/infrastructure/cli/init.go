package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/autostack/autostack/pkg/domain"
	"github.com/autostack/autostack/pkg/domain/project"
	"github.com/spf13/cobra"
)

var (
	initDescription string
	initLoad        bool
	initForce       bool
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a project and generate its requirement, database and schema documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		svc, err := loadProject(name)
		if err != nil {
			return err
		}
		defer svc.Close()
		out := cmd.OutOrStdout()

		if svc.Project.Exists() && !initForce {
			if !initLoad {
				return NewCLIError(
					fmt.Sprintf("project %s already exists", name),
					"Pass --load to reuse it or --force to generate it again",
					nil,
				)
			}
			proj, err := svc.Project.Load()
			if err != nil {
				return MapError(err)
			}
			printProject(out, proj)
			return nil
		}
		if initLoad && !svc.Project.Exists() {
			return MapError(fmt.Errorf("%w: %s", domain.ErrProjectNotFound, name))
		}

		description := strings.TrimSpace(initDescription)
		if description == "" {
			description, err = askLine(cmd.InOrStdin(), out, "Describe the project: ")
			if err != nil {
				return err
			}
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		fmt.Fprintf(out, "Generating documents for %s...\n", name)
		proj, err := svc.Project.Init(ctx, name, description)
		if err != nil {
			return MapError(fmt.Errorf("init %s: %w", name, err))
		}
		printProject(out, proj)
		fmt.Fprintf(out, "\nNext: autostack scaffold %s --design\n", name)
		return nil
	},
}

func askLine(in io.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", NewCLIError("a project description is required", "Pass --description or type one at the prompt", nil)
	}
	return line, nil
}

func printProject(w io.Writer, p *project.Project) {
	fmt.Fprintf(w, "Project:     %s\n", p.Name)
	fmt.Fprintf(w, "Description: %s\n", p.Description)
	fmt.Fprintf(w, "Updated:     %s\n", p.UpdatedAt.Format("2006-01-02 15:04"))
	if p.HostPort > 0 {
		fmt.Fprintf(w, "URL:         http://localhost:%d\n", p.HostPort)
	}
	if len(p.Modules) == 0 {
		return
	}
	fmt.Fprintln(w, "Modules:")
	for _, m := range p.Modules {
		state := "pending"
		if m.Created {
			state = "created"
		}
		fmt.Fprintf(w, "  - %-20s %-8s %s\n", m.Name, state, m.Description)
	}
}

func init() {
	initCmd.Flags().StringVarP(&initDescription, "description", "d", "", "What the backend should do")
	initCmd.Flags().BoolVar(&initLoad, "load", false, "Load the project if it already exists")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Generate the documents again for an existing project")
	RootCmd.AddCommand(initCmd)
}
