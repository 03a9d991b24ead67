package planning_test

import (
	"encoding/json"
	"testing"

	"github.com/autostack/autostack/pkg/domain/planning"
)

func TestPlan_CurrentTaskTracksFirstUnfinished(t *testing.T) {
	p := planning.NewPlan("Build API")
	p.AddTasks([]*planning.Task{
		planning.NewTask("A"),
		planning.NewTask("B"),
		planning.NewTask("C"),
	})

	if got := p.CurrentTask().Description; got != "A" {
		t.Fatalf("expected current task A, got %q", got)
	}

	p.FinishCurrentTask()
	if got := p.CurrentTask().Description; got != "B" {
		t.Errorf("expected current task B, got %q", got)
	}
	if len(p.FinishedTasks()) != 1 || p.FinishedTasks()[0].Description != "A" {
		t.Errorf("unexpected finished tasks: %+v", p.FinishedTasks())
	}

	p.FinishCurrentTask()
	p.FinishCurrentTask()
	if p.CurrentTaskID != "" {
		t.Errorf("expected empty current task id, got %q", p.CurrentTaskID)
	}
	if !p.IsDone() {
		t.Error("expected plan to be done")
	}

	// No current task: finishing is a no-op.
	if p.FinishCurrentTask() {
		t.Error("expected FinishCurrentTask to report no-op")
	}
	if len(p.FinishedTasks()) != 3 {
		t.Errorf("expected 3 finished tasks, got %d", len(p.FinishedTasks()))
	}
}

func TestPlan_AddTasksPreservesOrderAndLength(t *testing.T) {
	p := planning.NewPlan("goal")
	p.AddTasks([]*planning.Task{planning.NewTask("one")})
	p.FinishCurrentTask()

	before := len(p.Tasks)
	p.AddTasks([]*planning.Task{planning.NewTask("two"), planning.NewTask("three")})
	if len(p.Tasks) != before+2 {
		t.Fatalf("expected %d tasks, got %d", before+2, len(p.Tasks))
	}

	var descs []string
	for _, task := range p.UnfinishedTasks() {
		descs = append(descs, task.Description)
	}
	if len(descs) != 2 || descs[0] != "two" || descs[1] != "three" {
		t.Errorf("unexpected unfinished order: %v", descs)
	}
	if p.CurrentTask().Description != "two" {
		t.Errorf("expected current task two, got %q", p.CurrentTask().Description)
	}

	p.AddTasks(nil)
	if len(p.Tasks) != before+2 {
		t.Error("adding no tasks must not change the plan")
	}
}

func TestPlan_AddTasksAssignsUniqueIDs(t *testing.T) {
	p := planning.NewPlan("goal")
	first := &planning.Task{ID: "dup", Description: "first"}
	second := &planning.Task{ID: "dup", Description: "second"}
	blank := &planning.Task{Description: "blank"}
	p.AddTasks([]*planning.Task{first, second, blank})

	ids := map[string]bool{}
	for _, task := range p.Tasks {
		if task.ID == "" {
			t.Errorf("task %q has empty id", task.Description)
		}
		if ids[task.ID] {
			t.Errorf("duplicate id %q", task.ID)
		}
		ids[task.ID] = true
		if task.Result == nil {
			t.Errorf("task %q has nil result", task.Description)
		}
	}
	if first.ID != "dup" {
		t.Errorf("first task should keep its id, got %q", first.ID)
	}
}

func TestPlan_AddTasksSkipsHeldTask(t *testing.T) {
	p := planning.NewPlan("goal")
	task := planning.NewTask("once")
	id := task.ID
	p.AddTask(task)
	p.AddTask(task)
	p.AddTasks([]*planning.Task{task, task})

	if task.ID != id {
		t.Errorf("id changed from %q to %q", id, task.ID)
	}
	if len(p.Tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(p.Tasks))
	}

	fresh := planning.NewTask("twice in one call")
	p.AddTasks([]*planning.Task{fresh, fresh})
	if len(p.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(p.Tasks))
	}
}

func TestPlan_FinishedUnfinishedPartition(t *testing.T) {
	p := planning.NewPlan("goal")
	for _, d := range []string{"a", "b", "c", "d"} {
		p.AddTask(planning.NewTask(d))
	}
	p.FinishCurrentTask()
	p.FinishCurrentTask()

	finished := p.FinishedTasks()
	unfinished := p.UnfinishedTasks()
	if len(finished)+len(unfinished) != len(p.Tasks) {
		t.Fatalf("partition sizes do not add up")
	}
	seen := map[string]bool{}
	for _, task := range append(finished, unfinished...) {
		if seen[task.ID] {
			t.Errorf("task %s present in both lists", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestPlan_RecordResult(t *testing.T) {
	p := planning.NewPlan("goal")
	if err := p.RecordResult(nil); err != planning.ErrNoCurrentTask {
		t.Errorf("expected ErrNoCurrentTask, got %v", err)
	}

	p.AddTask(planning.NewTask("write file"))
	actions := []planning.Action{{Kind: planning.ActionFile, Target: "/app/a.ts", Content: "x", Result: planning.WriteSuccess}}
	if err := p.RecordResult(actions); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if len(p.CurrentTask().Result) != 1 {
		t.Errorf("expected result to be stored")
	}
}

func TestPlan_JSONRoundTrip(t *testing.T) {
	p := planning.NewPlan("Build API")
	p.AddTasks([]*planning.Task{planning.NewTask("A"), planning.NewTask("B")})
	_ = p.RecordResult([]planning.Action{{Kind: planning.ActionCommand, Content: "npm i", Result: "ok"}})
	p.FinishCurrentTask()

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"goal", "tasks", "current_task_id"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	var restored planning.Plan
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored.Normalize()
	if restored.Goal != p.Goal || restored.CurrentTaskID != p.CurrentTaskID {
		t.Errorf("restored plan differs: %+v", restored)
	}
	if len(restored.Tasks) != 2 || !restored.Tasks[0].IsFinished {
		t.Errorf("tasks not restored: %+v", restored.Tasks)
	}
	if restored.Tasks[0].Result[0].Kind != planning.ActionCommand {
		t.Errorf("action kind not restored: %+v", restored.Tasks[0].Result)
	}
}

func TestPlan_NormalizeRecomputesCurrentTask(t *testing.T) {
	p := &planning.Plan{
		Goal: "g",
		Tasks: []*planning.Task{
			{ID: "1", Description: "a", IsFinished: true},
			{ID: "2", Description: "b"},
		},
		CurrentTaskID: "stale",
	}
	p.Normalize()
	if p.CurrentTaskID != "2" {
		t.Errorf("expected current task 2, got %q", p.CurrentTaskID)
	}
}
