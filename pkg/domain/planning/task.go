package planning

import (
	"strings"

	"github.com/google/uuid"
)

// Task is a unit of work inside a Plan. Result holds the actions taken
// while performing it; IsSuccess is reserved for a success-grading step.
type Task struct {
	ID          string   `json:"task_id"`
	Description string   `json:"task_desc"`
	Result      []Action `json:"result"`
	IsSuccess   bool     `json:"is_success"`
	IsFinished  bool     `json:"is_finished"`
}

// TaskBrief is the shape of a task shown to the model when it is asked
// to extend a plan.
type TaskBrief struct {
	ID          string `json:"task_id"`
	Description string `json:"task_desc"`
}

// NewTaskID returns a 32 character hexadecimal identifier.
func NewTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTask creates an unfinished task with a fresh identifier.
func NewTask(description string) *Task {
	return &Task{
		ID:          NewTaskID(),
		Description: description,
		Result:      []Action{},
	}
}

// Reset replaces the description and clears everything recorded so far.
// The identifier is kept.
func (t *Task) Reset(description string) *Task {
	t.Description = description
	t.Result = []Action{}
	t.IsSuccess = false
	t.IsFinished = false
	return t
}

// Brief returns the id/description pair of the task.
func (t *Task) Brief() TaskBrief {
	return TaskBrief{ID: t.ID, Description: t.Description}
}
