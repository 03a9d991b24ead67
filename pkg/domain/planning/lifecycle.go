package planning

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// LifecycleState is the phase a planner is in.
type LifecycleState string

const (
	StateNoGoal     LifecycleState = "no_goal"
	StatePlanning   LifecycleState = "planning"
	StateExecuting  LifecycleState = "executing"
	StateReplanning LifecycleState = "replanning"
	StateDone       LifecycleState = "done"
)

// Lifecycle events.
const (
	EventSetGoal       = "set_goal"
	EventDecomposed    = "decomposed"
	EventExhausted     = "exhausted"
	EventTaskConfirmed = "task_confirmed"
)

// LifecycleContext carries the data guards look at.
type LifecycleContext struct {
	HasWork func() bool
}

// Lifecycle tracks NO_GOAL -> PLANNING -> EXECUTING <-> REPLANNING -> DONE.
// DONE has no outgoing transitions; a new goal needs a new Lifecycle.
type Lifecycle struct {
	interpreter *statekit.Interpreter[LifecycleContext]
}

// NewLifecycle builds the machine starting at initial. hasWork reports
// whether the plan still has a current task.
func NewLifecycle(initial LifecycleState, hasWork func() bool) (*Lifecycle, error) {
	if hasWork == nil {
		hasWork = func() bool { return false }
	}

	builder := statekit.NewMachine[LifecycleContext]("planner-lifecycle").
		WithInitial(statekit.StateID(initial)).
		WithContext(LifecycleContext{HasWork: hasWork}).
		WithGuard("hasWork", func(ctx LifecycleContext, e statekit.Event) bool {
			return ctx.HasWork()
		}).
		WithGuard("noWork", func(ctx LifecycleContext, e statekit.Event) bool {
			return !ctx.HasWork()
		})

	builder.State(statekit.StateID(StateNoGoal)).
		On(EventSetGoal).Target(statekit.StateID(StatePlanning)).
		Done()

	builder.State(statekit.StateID(StatePlanning)).
		On(EventDecomposed).Target(statekit.StateID(StateExecuting)).Guard("hasWork").
		On(EventExhausted).Target(statekit.StateID(StateDone)).Guard("noWork").
		Done()

	builder.State(statekit.StateID(StateExecuting)).
		On(EventTaskConfirmed).Target(statekit.StateID(StateReplanning)).
		Done()

	builder.State(statekit.StateID(StateReplanning)).
		On(EventDecomposed).Target(statekit.StateID(StateExecuting)).Guard("hasWork").
		On(EventExhausted).Target(statekit.StateID(StateDone)).Guard("noWork").
		Done()

	builder.State(statekit.StateID(StateDone)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Lifecycle{interpreter: interpreter}, nil
}

// Send fires event and fails with ErrInvalidTransition when the machine
// did not move.
func (l *Lifecycle) Send(event string) error {
	before := l.Current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.Current() != before {
		return nil
	}
	return fmt.Errorf("%w: %q in state %q", ErrInvalidTransition, event, before)
}

// Current returns the active state.
func (l *Lifecycle) Current() LifecycleState {
	return LifecycleState(l.interpreter.State().Value)
}

// IsDone reports whether the terminal state was reached.
func (l *Lifecycle) IsDone() bool {
	return l.Current() == StateDone
}

// StateFor derives the lifecycle state a restored plan is in.
func StateFor(p *Plan) LifecycleState {
	switch {
	case p == nil || p.Goal == "":
		return StateNoGoal
	case p.CurrentTask() != nil:
		return StateExecuting
	case len(p.Tasks) == 0:
		return StatePlanning
	default:
		return StateDone
	}
}
