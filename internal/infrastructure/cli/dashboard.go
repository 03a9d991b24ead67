package cli

import (
	"fmt"
	"os"

	"github.com/autostack/autostack/pkg/application"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <project>",
	Short: "Interactive view of the plan's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		if os.Getenv("AUTOSTACK_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		m := newDashboardModel(args[0], func() (*planning.Plan, error) {
			plan, err := svc.Repo.LoadPlan()
			if err == nil {
				plan.Normalize()
			}
			return plan, err
		})
		if _, err := tea.NewProgram(m).Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWIP  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type dashboardModel struct {
	table   table.Model
	project string
	status  application.PlanStatus
	load    func() (*planning.Plan, error)
	err     error
}

func newDashboardModel(project string, load func() (*planning.Plan, error)) dashboardModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Status", Width: 9},
			{Title: "Task", Width: 60},
			{Title: "Actions", Width: 7},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	m := dashboardModel{table: t, project: project, load: load}
	m.refresh()
	return m
}

func (m *dashboardModel) refresh() {
	plan, err := m.load()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = application.StatusOf(plan, planning.StateFor(plan))
	m.table.SetRows(taskRows(plan))
}

func taskRows(plan *planning.Plan) []table.Row {
	rows := make([]table.Row, 0, len(plan.Tasks))
	for i, t := range plan.Tasks {
		rows = append(rows, table.Row{
			fmt.Sprint(i + 1),
			taskStatus(plan, t),
			firstLine(t.Description),
			fmt.Sprint(len(t.Result)),
		})
	}
	return rows
}

func taskStatus(plan *planning.Plan, t *planning.Task) string {
	switch {
	case t.IsFinished && t.IsSuccess:
		return "done"
	case t.IsFinished:
		return "failed"
	case t.ID == plan.CurrentTaskID:
		return "current"
	default:
		return "pending"
	}
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.refresh()
			return m, nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading plan: %v\nPress r to retry, q to quit.\n", m.err)
	}
	header := headerStyle.Render(m.project)
	progress := fmt.Sprintf("%s  %d/%d finished", m.status.State, m.status.Finished, m.status.Total)
	switch {
	case m.status.State == planning.StateDone && m.status.Succeeded == m.status.Total:
		progress = statusDone.Render(progress)
	case m.status.Finished > m.status.Succeeded:
		progress = statusErr.Render(progress)
	default:
		progress = statusWIP.Render(progress)
	}
	return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		firstLine(m.status.Goal),
		progress,
		m.table.View(),
		"[q] Quit  [r] Reload  [Up/Down] Navigate",
	)) + "\n"
}
