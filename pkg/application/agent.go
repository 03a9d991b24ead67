package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autostack/autostack/pkg/domain/ai"
	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/autostack/autostack/pkg/domain/execution"
	"github.com/autostack/autostack/pkg/domain/planning"
	"github.com/autostack/autostack/pkg/prompt"
	"github.com/autostack/autostack/pkg/textutil"
)

// ErrIterationLimit is returned when AgentConfig.MaxIterations tasks
// have been performed and work remains.
var ErrIterationLimit = errors.New("iteration limit reached")

// PlanSaver persists the plan after every task.
type PlanSaver interface {
	SavePlan(plan *planning.Plan) error
}

// AgentConfig tunes the execution loop. Zero values select the defaults,
// except MaxIterations where zero means no limit.
type AgentConfig struct {
	// Cwd is the project root as the model and the executor see it.
	Cwd              string
	Review           bool
	ReplanMaxTasks   int
	ReplanMaxRetries int
	MaxIterations    int
	// ProjectTree, when set, is rendered into every perform-task context.
	ProjectTree func() (string, error)
}

// Agent performs the tasks of a plan one at a time.
type Agent struct {
	collaborator
	planner  *Planner
	executor execution.Executor
	saver    PlanSaver
	cfg      AgentConfig
}

func NewAgent(provider ai.Provider, planner *Planner, executor execution.Executor, saver PlanSaver, cfg AgentConfig, opts ...Option) *Agent {
	if cfg.Cwd == "" {
		cfg.Cwd = "/app"
	}
	if cfg.ReplanMaxTasks <= 0 {
		cfg.ReplanMaxTasks = DefaultReplanMaxTasks
	}
	if cfg.ReplanMaxRetries <= 0 {
		cfg.ReplanMaxRetries = DefaultReplanMaxRetries
	}
	a := &Agent{
		collaborator: newCollaborator(provider),
		planner:      planner,
		executor:     executor,
		saver:        saver,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(&a.collaborator)
	}
	return a
}

func (a *Agent) Planner() *Planner { return a.planner }

// Run sets goal and works through the resulting plan.
func (a *Agent) Run(ctx context.Context, goal string) error {
	if err := a.planner.SetGoal(ctx, goal); err != nil {
		if plan := a.planner.Plan(); plan != nil {
			_ = a.save(plan)
		}
		return err
	}
	if err := a.save(a.planner.Plan()); err != nil {
		return err
	}
	return a.Loop(ctx)
}

// Resume continues a saved plan. A plan saved before its first
// decomposition finished is decomposed again.
func (a *Agent) Resume(ctx context.Context, plan *planning.Plan) error {
	if err := a.planner.Restore(plan); err != nil {
		return err
	}
	if a.planner.State() == planning.StatePlanning {
		if _, err := a.planner.Decompose(ctx, "", a.planner.cfg.InitialMaxTasks); err != nil {
			return err
		}
		if err := a.planner.settle(ctx); err != nil {
			return err
		}
		if err := a.save(a.planner.Plan()); err != nil {
			return err
		}
	}
	return a.Loop(ctx)
}

// Loop performs the current task, confirms it and re-plans until the
// plan has no current task. The plan is saved after every task.
func (a *Agent) Loop(ctx context.Context) error {
	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := a.planner.CurrentTask()
		if task == nil {
			a.logger.Info("no tasks left", "iterations", iteration)
			return a.save(a.planner.Plan())
		}
		if a.cfg.MaxIterations > 0 && iteration >= a.cfg.MaxIterations {
			a.logger.Warn("stopping at iteration limit", "limit", a.cfg.MaxIterations)
			if err := a.save(a.planner.Plan()); err != nil {
				return err
			}
			return ErrIterationLimit
		}

		stepErr := a.step(ctx, task)
		if err := a.save(a.planner.Plan()); err != nil {
			return errors.Join(stepErr, err)
		}
		if stepErr != nil {
			return stepErr
		}
	}
}

func (a *Agent) step(ctx context.Context, task *planning.Task) error {
	log := a.logger.With("task_id", task.ID)
	log.Info("performing task", "task", task.Description)

	actions, err := a.PerformTask(ctx, task, "")
	if err != nil && !errors.Is(err, execution.ErrNoActions) {
		return err
	}
	if err != nil {
		log.Warn("task produced no actions")
	}
	if err := a.planner.RecordResult(ctx, actions); err != nil {
		return err
	}

	if a.cfg.Review {
		if err := a.review(ctx, task, actions); err != nil {
			return err
		}
	} else if err := a.planner.ConfirmTask(ctx); err != nil {
		return err
	}

	_, err = a.planner.UpdatePlan(ctx, a.cfg.ReplanMaxTasks, a.cfg.ReplanMaxRetries)
	return err
}

// review asks for a verdict. A needs-fix verdict gets one more attempt
// with the reason, after which the task is confirmed regardless.
func (a *Agent) review(ctx context.Context, task *planning.Task, actions []planning.Action) error {
	verdict, err := a.planner.AskReview(ctx)
	var parseErr *planning.ReviewParseError
	if errors.As(err, &parseErr) {
		a.logger.Warn("review unreadable, confirming task", "task_id", task.ID, "error", err)
		return a.planner.ConfirmTask(ctx)
	}
	if err != nil {
		return err
	}
	a.logger.Info("task reviewed", "task_id", task.ID, "verdict", verdict.Kind, "reason", verdict.Reason)

	if verdict.Kind != planning.VerdictNeedsFix {
		return a.planner.ApplyVerdict(ctx, verdict)
	}

	fixes, err := a.PerformTask(ctx, task, verdict.Reason)
	if err != nil && !errors.Is(err, execution.ErrNoActions) {
		return err
	}
	if err := a.planner.RecordResult(ctx, append(actions, fixes...)); err != nil {
		return err
	}
	return a.planner.ConfirmTask(ctx)
}

// PerformTask asks the model how to carry out task and executes the
// returned actions. fix, when set, describes what a previous attempt got
// wrong. Failing actions are recorded in their results, not returned.
// execution.ErrNoActions is returned when the response held none.
func (a *Agent) PerformTask(ctx context.Context, task *planning.Task, fix string) ([]planning.Action, error) {
	desc := task.Description
	if fix != "" {
		desc += "\n\nA previous attempt was reviewed and needs fixing: " + fix
	}
	taskContext, err := a.taskContext()
	if err != nil {
		return nil, err
	}

	text, err := a.ask(ctx, "perform_task", prompt.PerformTask, map[string]string{
		"cwd":       a.cfg.Cwd,
		"task_desc": desc,
		"context":   taskContext,
	})
	if err != nil {
		return nil, err
	}

	directives := a.decode(text)
	actions := make([]planning.Action, 0, len(directives))
	if len(directives) == 0 {
		return actions, execution.ErrNoActions
	}
	for _, d := range directives {
		action := a.execute(ctx, d)
		actions = append(actions, action)
		a.emit(ctx, events.EventTypeActionExecuted, map[string]interface{}{
			"task_id": task.ID,
			"type":    string(action.Kind),
			"target":  action.Target,
		})
	}
	return actions, nil
}

// taskContext is the goal followed by the finished tasks and, when
// configured, the project tree.
func (a *Agent) taskContext() (string, error) {
	plan := a.planner.Plan()
	if plan == nil {
		return "", planning.ErrNoGoal
	}
	memories, err := a.planner.UsefulMemories()
	if err != nil {
		return "", err
	}
	parts := []string{plan.Goal, memories}
	if a.cfg.ProjectTree != nil {
		tree, err := a.cfg.ProjectTree()
		if err != nil {
			a.logger.Warn("project tree unavailable", "error", err)
		} else if tree != "" {
			parts = append(parts, "Project files:\n"+tree)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (a *Agent) decode(text string) []planning.Directive {
	var out []planning.Directive
	for _, raw := range textutil.ParseActions(text) {
		d, err := planning.DecodeDirective(raw.Type, raw.Target, raw.Content)
		if err != nil {
			a.logger.Warn("skipping malformed action", "error", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (a *Agent) execute(ctx context.Context, d planning.Directive) planning.Action {
	switch d := d.(type) {
	case planning.FileDirective:
		action := planning.Action{Kind: planning.ActionFile, Target: d.Path, Content: d.Content, Result: planning.WriteSuccess}
		if err := a.executor.WriteFile(ctx, d.Path, d.Content); err != nil {
			a.logger.Error("file write failed", "path", d.Path, "error", err)
			action.Result = planning.WriteFailed
		}
		return action
	case planning.CommandDirective:
		out, err := a.executor.RunCommand(ctx, d.Command, d.Workdir)
		if err != nil {
			a.logger.Error("command failed", "command", d.Command, "error", err)
			if out == "" {
				out = "command failed: " + err.Error()
			}
		}
		return planning.Action{Kind: planning.ActionCommand, Target: d.Workdir, Content: d.Command, Result: out}
	default:
		return planning.Action{Result: fmt.Sprintf("unsupported directive %T", d)}
	}
}

func (a *Agent) save(plan *planning.Plan) error {
	if a.saver == nil || plan == nil {
		return nil
	}
	if err := a.saver.SavePlan(plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}
