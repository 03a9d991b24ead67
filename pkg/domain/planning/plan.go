package planning

// Plan is an ordered list of tasks toward a goal. CurrentTaskID always
// names the first unfinished task, or is empty when every task is done.
type Plan struct {
	Goal          string  `json:"goal"`
	Tasks         []*Task `json:"tasks"`
	CurrentTaskID string  `json:"current_task_id"`
}

// NewPlan creates an empty plan for goal.
func NewPlan(goal string) *Plan {
	return &Plan{Goal: goal, Tasks: []*Task{}}
}

// AddTasks appends tasks in order. A task without an id, or whose id is
// already used in the plan, gets a fresh one. Tasks already held by the
// plan are skipped, so an id never changes once assigned.
func (p *Plan) AddTasks(tasks []*Task) {
	if len(tasks) == 0 {
		return
	}
	seen := make(map[string]bool, len(p.Tasks)+len(tasks))
	held := make(map[*Task]bool, len(p.Tasks)+len(tasks))
	for _, t := range p.Tasks {
		seen[t.ID] = true
		held[t] = true
	}
	for _, t := range tasks {
		if t == nil || held[t] {
			continue
		}
		held[t] = true
		if t.ID == "" || seen[t.ID] {
			t.ID = NewTaskID()
		}
		if t.Result == nil {
			t.Result = []Action{}
		}
		seen[t.ID] = true
		p.Tasks = append(p.Tasks, t)
	}
	p.updateCurrentTask()
}

// AddTask appends a single task.
func (p *Plan) AddTask(task *Task) {
	p.AddTasks([]*Task{task})
}

// FinishCurrentTask marks the current task finished and advances. It does
// nothing when there is no current task.
func (p *Plan) FinishCurrentTask() bool {
	task := p.CurrentTask()
	if task == nil {
		return false
	}
	task.IsFinished = true
	p.updateCurrentTask()
	return true
}

// RecordResult stores the actions taken for the current task.
func (p *Plan) RecordResult(actions []Action) error {
	task := p.CurrentTask()
	if task == nil {
		return ErrNoCurrentTask
	}
	if actions == nil {
		actions = []Action{}
	}
	task.Result = actions
	return nil
}

// CurrentTask returns the task CurrentTaskID refers to, or nil.
func (p *Plan) CurrentTask() *Task {
	if p.CurrentTaskID == "" {
		return nil
	}
	return p.Task(p.CurrentTaskID)
}

// Task looks a task up by id.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// FinishedTasks returns the finished tasks in plan order.
func (p *Plan) FinishedTasks() []*Task {
	out := []*Task{}
	for _, t := range p.Tasks {
		if t.IsFinished {
			out = append(out, t)
		}
	}
	return out
}

// UnfinishedTasks returns the unfinished tasks in plan order.
func (p *Plan) UnfinishedTasks() []*Task {
	out := []*Task{}
	for _, t := range p.Tasks {
		if !t.IsFinished {
			out = append(out, t)
		}
	}
	return out
}

// IsDone reports whether there is nothing left to perform.
func (p *Plan) IsDone() bool {
	return p.CurrentTask() == nil
}

// Normalize restores the invariants of a plan read from storage.
func (p *Plan) Normalize() {
	if p.Tasks == nil {
		p.Tasks = []*Task{}
	}
	kept := p.Tasks[:0]
	for _, t := range p.Tasks {
		if t == nil {
			continue
		}
		if t.Result == nil {
			t.Result = []Action{}
		}
		kept = append(kept, t)
	}
	p.Tasks = kept
	p.updateCurrentTask()
}

func (p *Plan) updateCurrentTask() {
	p.CurrentTaskID = ""
	for _, t := range p.Tasks {
		if !t.IsFinished {
			p.CurrentTaskID = t.ID
			return
		}
	}
}
