package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/xeipuuv/gojsonschema"

	"github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/prompt"
	"github.com/autostack/autostack/pkg/textutil"
)

const (
	DefaultInitialMaxTasks  = 7
	DefaultReplanMaxTasks   = 5
	DefaultReplanMaxRetries = 3
	DefaultReplanRetryDelay = 500 * time.Millisecond

	// NoProgressContext is sent as decomposition context before any task
	// has finished.
	NoProgressContext = "No progress has been made yet."
)

const decompositionSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["task_desc"],
    "properties": {
      "task_desc": { "type": "string", "minLength": 1 },
      "task_id": { "type": ["string", "integer"] }
    }
  }
}`

var decompositionSchemaLoader = gojsonschema.NewStringLoader(decompositionSchemaJSON)

// PlannerConfig tunes decomposition. Zero values select the defaults.
type PlannerConfig struct {
	InitialMaxTasks int
	RetryDelay      time.Duration
}

// PlanStatus summarises a plan for display.
type PlanStatus struct {
	Goal      string                  `json:"goal"`
	State     planning.LifecycleState `json:"state"`
	Total     int                     `json:"total"`
	Finished  int                     `json:"finished"`
	Succeeded int                     `json:"succeeded"`
	Current   *planning.TaskBrief     `json:"current,omitempty"`
}

// Planner owns a Plan and talks to the model to decompose and re-plan it.
type Planner struct {
	collaborator
	cfg PlannerConfig

	mu        sync.Mutex
	plan      *planning.Plan
	lifecycle *planning.Lifecycle
}

func NewPlanner(provider ai.Provider, cfg PlannerConfig, opts ...Option) *Planner {
	if cfg.InitialMaxTasks <= 0 {
		cfg.InitialMaxTasks = DefaultInitialMaxTasks
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultReplanRetryDelay
	}
	p := &Planner{collaborator: newCollaborator(provider), cfg: cfg}
	for _, opt := range opts {
		opt(&p.collaborator)
	}
	return p
}

// SetGoal starts a new plan for goal and decomposes it once.
func (p *Planner) SetGoal(ctx context.Context, goal string) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return planning.ErrNoGoal
	}

	p.mu.Lock()
	p.plan = planning.NewPlan(goal)
	lc, err := planning.NewLifecycle(planning.StateNoGoal, p.hasWork)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.lifecycle = lc
	err = lc.Send(planning.EventSetGoal)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(ctx, events.EventTypeGoalSet, map[string]interface{}{"goal": goal})

	if _, err := p.Decompose(ctx, "", p.cfg.InitialMaxTasks); err != nil {
		return err
	}
	return p.settle(ctx)
}

// Decompose asks the model for up to maxTasks new tasks and appends every
// task it returns; maxTasks only shapes the request. An empty context is
// replaced by NoProgressContext. The plan is left untouched when the
// response cannot be parsed.
func (p *Planner) Decompose(ctx context.Context, progress string, maxTasks int) ([]*planning.Task, error) {
	p.mu.Lock()
	plan := p.plan
	var pending []planning.TaskBrief
	if plan != nil {
		for _, t := range plan.UnfinishedTasks() {
			pending = append(pending, t.Brief())
		}
	}
	p.mu.Unlock()
	if plan == nil {
		return nil, planning.ErrNoGoal
	}

	if strings.TrimSpace(progress) == "" {
		progress = NoProgressContext
	}
	if pending == nil {
		pending = []planning.TaskBrief{}
	}
	existing, err := json.MarshalIndent(pending, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode pending tasks: %w", err)
	}

	text, err := p.ask(ctx, "decompose", prompt.TasksSubdivision, map[string]string{
		"goal":           plan.Goal,
		"context":        progress,
		"existing_tasks": string(existing),
		"max_tasks":      strconv.Itoa(maxTasks),
	})
	if err != nil {
		return nil, err
	}

	tasks, err := ParseDecomposition(text)
	if err != nil {
		p.logger.Error("decomposition rejected", "error", err)
		return nil, err
	}
	if maxTasks > 0 && len(tasks) > maxTasks {
		p.logger.Warn("model returned more tasks than requested", "requested", maxTasks, "returned", len(tasks))
	}

	p.mu.Lock()
	p.plan.AddTasks(tasks)
	p.mu.Unlock()

	p.logger.Info("plan decomposed", "added", len(tasks))
	p.emit(ctx, events.EventTypePlanDecomposed, map[string]interface{}{"added": len(tasks)})
	return tasks, nil
}

// ParseDecomposition reads the task array out of a model response. The
// first ```json block must hold an array of objects with a non-empty
// task_desc. A task_id given by the model is kept; tasks without one get
// a fresh id.
func ParseDecomposition(text string) ([]*planning.Task, error) {
	blocks := textutil.ExtractCodeBlocks(text, "json")
	if len(blocks) == 0 {
		return nil, &planning.DecompositionError{Raw: text, Reason: "no fenced json block"}
	}
	doc := blocks[0]

	result, err := gojsonschema.Validate(decompositionSchemaLoader, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, &planning.DecompositionError{Raw: text, Reason: "invalid json", Err: err}
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, &planning.DecompositionError{Raw: text, Reason: "schema: " + strings.Join(issues, "; ")}
	}

	var descriptors []struct {
		ID          any    `json:"task_id"`
		Description string `json:"task_desc"`
	}
	if err := json.Unmarshal([]byte(doc), &descriptors); err != nil {
		return nil, &planning.DecompositionError{Raw: text, Reason: "invalid json", Err: err}
	}

	tasks := make([]*planning.Task, 0, len(descriptors))
	for i, d := range descriptors {
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			return nil, &planning.DecompositionError{Raw: text, Reason: fmt.Sprintf("task %d has a blank task_desc", i)}
		}
		task := planning.NewTask(desc)
		if d.ID != nil {
			task.ID = strings.TrimSpace(fmt.Sprint(d.ID))
		}
		if task.ID == "" {
			task.ID = planning.NewTaskID()
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// UpdatePlan decomposes again with the finished tasks as context. Failed
// attempts are retried up to maxRetries times with exponential backoff;
// the error of the last attempt is returned.
func (p *Planner) UpdatePlan(ctx context.Context, maxTasks, maxRetries int) ([]*planning.Task, error) {
	memories, err := p.UsefulMemories()
	if err != nil {
		return nil, err
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	r := retry.New[[]*planning.Task](retry.Config{
		MaxAttempts:   maxRetries,
		InitialDelay:  p.cfg.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	tasks, err := r.Do(ctx, func(ctx context.Context) ([]*planning.Task, error) {
		tasks, err := p.Decompose(ctx, memories, maxTasks)
		if err != nil {
			lastErr = err
			p.logger.Warn("re-plan attempt failed", "error", err)
		}
		return tasks, err
	})
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return tasks, p.settle(ctx)
}

// settle moves the lifecycle out of PLANNING/REPLANNING once a
// decomposition round has finished.
func (p *Planner) settle(ctx context.Context) error {
	p.mu.Lock()
	lc := p.lifecycle
	p.mu.Unlock()
	if lc == nil {
		return nil
	}
	switch lc.Current() {
	case planning.StatePlanning, planning.StateReplanning:
	default:
		return nil
	}
	if p.hasWork() {
		return lc.Send(planning.EventDecomposed)
	}
	if err := lc.Send(planning.EventExhausted); err != nil {
		return err
	}
	p.logger.Info("plan finished")
	p.emit(ctx, events.EventTypePlanFinished, nil)
	return nil
}

func (p *Planner) hasWork() bool {
	// Called from lifecycle guards, which may run while p.mu is held.
	plan := p.plan
	return plan != nil && plan.CurrentTaskID != ""
}

// UsefulMemories serialises the finished tasks for the next prompt. It is
// empty while nothing has finished.
func (p *Planner) UsefulMemories() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plan == nil {
		return "", planning.ErrNoGoal
	}
	return MemoriesOf(p.plan)
}

// MemoriesOf serialises the finished tasks of plan.
func MemoriesOf(plan *planning.Plan) (string, error) {
	finished := plan.FinishedTasks()
	if len(finished) == 0 {
		return "", nil
	}
	data, err := json.MarshalIndent(finished, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode memories: %w", err)
	}
	return string(data), nil
}

// RecordResult stores actions on the current task.
func (p *Planner) RecordResult(ctx context.Context, actions []planning.Action) error {
	p.mu.Lock()
	if p.plan == nil {
		p.mu.Unlock()
		return planning.ErrNoGoal
	}
	task := p.plan.CurrentTask()
	err := p.plan.RecordResult(actions)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.emit(ctx, events.EventTypeTaskPerformed, map[string]interface{}{
		"task_id": task.ID,
		"actions": len(actions),
	})
	return nil
}

// ConfirmTask finishes the current task.
func (p *Planner) ConfirmTask(ctx context.Context) error {
	p.mu.Lock()
	if p.plan == nil {
		p.mu.Unlock()
		return planning.ErrNoGoal
	}
	task := p.plan.CurrentTask()
	if !p.plan.FinishCurrentTask() {
		p.mu.Unlock()
		return planning.ErrNoCurrentTask
	}
	lc := p.lifecycle
	p.mu.Unlock()

	if lc != nil && lc.Current() == planning.StateExecuting {
		if err := lc.Send(planning.EventTaskConfirmed); err != nil {
			return err
		}
	}
	p.emit(ctx, events.EventTypeTaskConfirmed, map[string]interface{}{
		"task_id":    task.ID,
		"is_success": task.IsSuccess,
	})
	return nil
}

// AskReview asks the model to judge the current task's recorded result.
func (p *Planner) AskReview(ctx context.Context) (planning.ReviewVerdict, error) {
	p.mu.Lock()
	var task *planning.Task
	if p.plan != nil {
		task = p.plan.CurrentTask()
	}
	p.mu.Unlock()
	if task == nil {
		return planning.ReviewVerdict{}, planning.ErrNoCurrentTask
	}

	result, err := json.MarshalIndent(task.Result, "", "    ")
	if err != nil {
		return planning.ReviewVerdict{}, fmt.Errorf("encode task result: %w", err)
	}
	text, err := p.ask(ctx, "review", prompt.TaskReview, map[string]string{
		"task_desc":   task.Description,
		"task_result": string(result),
	})
	if err != nil {
		return planning.ReviewVerdict{}, err
	}
	verdict, err := planning.ParseReviewVerdict(text)
	if err != nil {
		return planning.ReviewVerdict{}, err
	}
	p.emit(ctx, events.EventTypeTaskReviewed, map[string]interface{}{
		"task_id": task.ID,
		"verdict": string(verdict.Kind),
		"reason":  verdict.Reason,
	})
	return verdict, nil
}

// ApplyVerdict acts on a review. Confirmed and Replan both finish the
// task, the latter marking it unsuccessful; NeedsFix leaves the task
// current so the caller can perform it again.
func (p *Planner) ApplyVerdict(ctx context.Context, verdict planning.ReviewVerdict) error {
	switch verdict.Kind {
	case planning.VerdictConfirmed, planning.VerdictReplan:
		p.mu.Lock()
		if p.plan != nil {
			if task := p.plan.CurrentTask(); task != nil {
				task.IsSuccess = verdict.Kind == planning.VerdictConfirmed
			}
		}
		p.mu.Unlock()
		return p.ConfirmTask(ctx)
	case planning.VerdictNeedsFix:
		return nil
	default:
		return fmt.Errorf("unknown verdict %q", verdict.Kind)
	}
}

// Restore adopts a plan loaded from storage.
func (p *Planner) Restore(plan *planning.Plan) error {
	if plan == nil {
		return errors.New("nil plan")
	}
	plan.Normalize()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plan = plan
	lc, err := planning.NewLifecycle(planning.StateFor(plan), p.hasWork)
	if err != nil {
		return err
	}
	p.lifecycle = lc
	return nil
}

// Plan returns the plan being worked on, or nil before SetGoal.
func (p *Planner) Plan() *planning.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plan
}

// CurrentTask returns the task to perform next, or nil.
func (p *Planner) CurrentTask() *planning.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plan == nil {
		return nil
	}
	return p.plan.CurrentTask()
}

// State returns the lifecycle state.
func (p *Planner) State() planning.LifecycleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifecycle == nil {
		return planning.StateNoGoal
	}
	return p.lifecycle.Current()
}

func (p *Planner) Status() PlanStatus {
	return StatusOf(p.Plan(), p.State())
}

// StatusOf summarises plan as if it were in state.
func StatusOf(plan *planning.Plan, state planning.LifecycleState) PlanStatus {
	s := PlanStatus{State: state}
	if plan == nil {
		return s
	}
	s.Goal = plan.Goal
	s.Total = len(plan.Tasks)
	for _, t := range plan.Tasks {
		if t.IsFinished {
			s.Finished++
		}
		if t.IsSuccess {
			s.Succeeded++
		}
	}
	if cur := plan.CurrentTask(); cur != nil {
		b := cur.Brief()
		s.Current = &b
	}
	return s
}
