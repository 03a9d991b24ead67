package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/autostack/autostack/pkg/domain/planning"
	tea "github.com/charmbracelet/bubbletea"
)

func samplePlan() *planning.Plan {
	plan := planning.NewPlan("build the blog")
	plan.AddTasks([]*planning.Task{
		planning.NewTask("create posts"),
		planning.NewTask("create comments"),
		planning.NewTask("write tests"),
	})
	plan.Tasks[0].IsSuccess = true
	plan.FinishCurrentTask()
	plan.FinishCurrentTask()
	return plan
}

func TestTaskRows(t *testing.T) {
	rows := taskRows(samplePlan())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []string{"done", "failed", "current"}
	for i, row := range rows {
		if row[1] != want[i] {
			t.Errorf("row %d status = %q, want %q", i, row[1], want[i])
		}
	}
}

func TestDashboardModel(t *testing.T) {
	calls := 0
	m := newDashboardModel("blog", func() (*planning.Plan, error) {
		calls++
		return samplePlan(), nil
	})
	view := m.View()
	if !strings.Contains(view, "blog") || !strings.Contains(view, "2/3 finished") {
		t.Errorf("unexpected view:\n%s", view)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if calls != 2 {
		t.Errorf("expected reload on r, load called %d times", calls)
	}
	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command on q")
	}
}

func TestDashboardModelError(t *testing.T) {
	m := newDashboardModel("blog", func() (*planning.Plan, error) {
		return nil, errors.New("no plan")
	})
	if !strings.Contains(m.View(), "Error loading plan: no plan") {
		t.Errorf("unexpected view:\n%s", m.View())
	}
}
