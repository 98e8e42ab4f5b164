package effect

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
)

// State is an instance's lifecycle state.
type State string

const (
	StateInert       State = "inert"
	StateActive      State = "active"
	StateDeactivated State = "deactivated"
)

const (
	eventActivate   = "activate"
	eventReject     = "reject"
	eventDeactivate = "deactivate"
)

// expired marks a timer that is not running.
const expired = -1.0

// timerEpsilon absorbs float drift from summing frame deltas, so a 5 s effect
// stepped at 0.1 s ends on frame 50.
const timerEpsilon = 1e-9

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		string(StateInert),
		fsm.Events{
			{Name: eventActivate, Src: []string{string(StateInert)}, Dst: string(StateActive)},
			{Name: eventReject, Src: []string{string(StateInert)}, Dst: string(StateDeactivated)},
			{Name: eventDeactivate, Src: []string{string(StateActive)}, Dst: string(StateDeactivated)},
		},
		fsm.Callbacks{},
	)
}

// Instance is one live activation of an effect class on a target.
//
// Lifecycle: Inert -> Active -> Deactivated. Instances are created and
// activated only by a Registry; an instance never removes itself from its
// registry, it emits Deactivated and the registry reacts.
//
// Not safe for concurrent use.
type Instance struct {
	id        uuid.UUID
	class     *Class
	hooks     Hooks
	lifecycle *fsm.FSM

	registry   *Registry
	target     actor.ID
	instigator actor.ID

	remaining       float64
	stacks          int
	tickAccumulator float64
	lastTickFrame   uint64
	hasTicked       bool

	lastSub         Subscription
	deactivated     listeners[func(*Instance, actor.ID)]
	refreshed       listeners[func(*Instance)]
	stacksIncreased listeners[func(*Instance, int)]
	stacksDecreased listeners[func(*Instance, int)]
}

func newInstance(class *Class) *Instance {
	return &Instance{
		id:        uuid.New(),
		class:     class,
		hooks:     class.newHooks(),
		lifecycle: newLifecycle(),
		remaining: expired,
	}
}

// activate binds the instance to reg and runs the activation hooks.
//
// Postcondition: Returns true iff the instance is Active; otherwise it is
// Deactivated and must be discarded.
func (i *Instance) activate(reg *Registry, instigator actor.ID) bool {
	if reg == nil || reg.closed || !reg.liveness.Alive(reg.target) {
		i.transition(eventReject)
		return false
	}
	i.registry = reg
	i.target = reg.target
	i.instigator = instigator

	if !i.hooks.CanBeActivated(i) {
		i.transition(eventReject)
		return false
	}

	def := i.class.Def
	if !def.Infinite {
		i.remaining = def.Duration
	}
	if def.Stackable {
		i.stacks = def.InitialStacks
	}
	if !i.transition(eventActivate) {
		return false
	}
	i.hooks.ActivateEffect(i)
	return i.IsActive()
}

func (i *Instance) transition(event string) bool {
	if !i.lifecycle.Can(event) {
		return false
	}
	return i.lifecycle.Event(context.Background(), event) == nil
}

// ID returns the instance's unique identifier.
func (i *Instance) ID() uuid.UUID { return i.id }

// Class returns the effect class this instance was created from.
func (i *Instance) Class() *Class { return i.class }

// Definition returns the class definition.
func (i *Instance) Definition() *Definition { return i.class.Def }

// Hooks returns the instance's hook implementation.
func (i *Instance) Hooks() Hooks { return i.hooks }

// State returns the current lifecycle state.
func (i *Instance) State() State { return State(i.lifecycle.Current()) }

// IsActive reports whether the instance is Active.
func (i *Instance) IsActive() bool { return i.lifecycle.Is(string(StateActive)) }

// Target returns the target actor, or actor.None once it is gone.
func (i *Instance) Target() actor.ID { return i.live(i.target) }

// Instigator returns the instigating actor, or actor.None when there was
// none or it is gone.
func (i *Instance) Instigator() actor.ID { return i.live(i.instigator) }

// Registry returns the owning registry, or nil once it has been torn down.
func (i *Instance) Registry() *Registry {
	if i.registry == nil || i.registry.closed {
		return nil
	}
	return i.registry
}

func (i *Instance) live(id actor.ID) actor.ID {
	if id.IsZero() || i.registry == nil || !i.registry.liveness.Alive(id) {
		return actor.None
	}
	return id
}

// CurrentStacks returns the stack count (0 for non-stackable effects).
func (i *Instance) CurrentStacks() int { return i.stacks }

// RemainingTime returns the seconds left, -1 for infinite effects.
func (i *Instance) RemainingTime() float64 {
	if i.class.Def.Infinite {
		return expired
	}
	return i.remaining
}

// ElapsedTime returns max(0, EffectiveDuration - remaining), -1 for infinite
// effects. An expired timer counts as fully elapsed.
func (i *Instance) ElapsedTime() float64 {
	def := i.class.Def
	if def.Infinite {
		return expired
	}
	return math.Max(0, def.EffectiveDuration()-math.Max(0, i.remaining))
}

// Tick advances the instance by dt seconds. frame identifies the scheduling
// pass; a second call with the same frame is ignored.
func (i *Instance) Tick(frame uint64, dt float64) {
	if !i.IsActive() {
		return
	}
	if i.hasTicked && i.lastTickFrame == frame {
		return
	}
	i.hasTicked = true
	i.lastTickFrame = frame

	if i.Target().IsZero() {
		i.Deactivate(actor.None)
		return
	}
	if !i.processDuration(dt) {
		return
	}
	i.processTick(dt)
}

// processDuration counts the timer down. Returns false when the instance
// expired during this pass.
func (i *Instance) processDuration(dt float64) bool {
	def := i.class.Def
	if def.Infinite || def.Duration <= 0 || i.remaining < 0 {
		return true
	}
	i.remaining -= dt
	if i.remaining > timerEpsilon {
		return true
	}
	i.Deactivate(actor.None)
	i.remaining = expired
	return false
}

func (i *Instance) processTick(dt float64) {
	def := i.class.Def
	if !def.TickEnabled {
		return
	}
	if def.TickInterval <= 0 {
		i.hooks.TickEffect(i, dt)
		return
	}
	if i.tickAccumulator > 0 {
		i.tickAccumulator -= dt
	}
	if i.tickAccumulator <= 0 {
		i.tickAccumulator += def.TickInterval
		i.hooks.TickEffect(i, def.TickInterval)
	}
}

// Refresh re-applies the class's refresh policies to a live instance. The
// instigator is never reassigned.
func (i *Instance) Refresh() {
	if !i.IsActive() {
		return
	}
	i.refreshTimer()
	i.refreshStacks()
	i.hooks.RefreshEffect(i)
	i.refreshed.emit(func(fn func(*Instance)) { fn(i) })
}

func (i *Instance) refreshTimer() {
	def := i.class.Def
	if def.Infinite {
		return
	}
	switch def.TimerRefresh {
	case TimerReset:
		i.remaining = def.Duration
	case TimerExtend:
		i.remaining = math.Min(i.remaining+def.DeltaDuration, def.MaxDuration)
	}
}

func (i *Instance) refreshStacks() {
	def := i.class.Def
	if !def.Stackable {
		return
	}
	switch def.StacksRefresh {
	case StacksReset:
		i.stacks = def.InitialStacks
	case StacksIncrease:
		i.IncreaseStacks(def.DeltaStacks)
	}
}

// Deactivate ends the instance. deactivator is actor.None for system-driven
// expiry. Returns false when the instance is not Active.
//
// Postcondition: the instance is Deactivated, its owning registry no longer
// holds it, and every listener has been released.
func (i *Instance) Deactivate(deactivator actor.ID) bool {
	if !i.transition(eventDeactivate) {
		return false
	}
	i.hooks.DeactivateEffect(i, deactivator)
	i.deactivated.emit(func(fn func(*Instance, actor.ID)) { fn(i, deactivator) })
	i.deactivated.clear()
	i.refreshed.clear()
	i.stacksIncreased.clear()
	i.stacksDecreased.clear()
	return true
}

// IncreaseStacks adds amount stacks, clamped to MaxStacks.
//
// Postcondition: Returns false with no state change if the effect is not
// stackable or not active, amount <= 0, or stacks are already at MaxStacks.
func (i *Instance) IncreaseStacks(amount int) bool {
	def := i.class.Def
	if !i.IsActive() || !def.Stackable || amount <= 0 || i.stacks >= def.MaxStacks {
		return false
	}
	i.stacks = min(i.stacks+amount, def.MaxStacks)
	i.hooks.HandleStacksIncreased(i, amount)
	stacks := i.stacks
	i.stacksIncreased.emit(func(fn func(*Instance, int)) { fn(i, stacks) })
	return true
}

// DecreaseStacks removes amount stacks, clamped to 0. Reaching 0 deactivates
// the instance.
//
// Postcondition: Returns false with no state change if the effect is not
// stackable or not active, or amount <= 0.
func (i *Instance) DecreaseStacks(amount int) bool {
	if !i.IsActive() || !i.class.Def.Stackable || amount <= 0 {
		return false
	}
	i.stacks = max(i.stacks-amount, 0)
	i.hooks.HandleStacksDecreased(i, amount)
	stacks := i.stacks
	i.stacksDecreased.emit(func(fn func(*Instance, int)) { fn(i, stacks) })
	if i.stacks == 0 {
		i.Deactivate(actor.None)
	}
	return true
}

func (i *Instance) nextSub() Subscription {
	i.lastSub++
	return i.lastSub
}

// OnDeactivated registers fn to run when the instance deactivates.
// Listeners on a Deactivated instance are never called.
func (i *Instance) OnDeactivated(fn func(inst *Instance, deactivator actor.ID)) Subscription {
	sub := i.nextSub()
	if i.State() != StateDeactivated {
		i.deactivated.add(sub, fn)
	}
	return sub
}

// OnRefreshed registers fn to run after each Refresh.
func (i *Instance) OnRefreshed(fn func(inst *Instance)) Subscription {
	sub := i.nextSub()
	if i.State() != StateDeactivated {
		i.refreshed.add(sub, fn)
	}
	return sub
}

// OnStacksIncreased registers fn to receive the new stack count after an increase.
func (i *Instance) OnStacksIncreased(fn func(inst *Instance, newStacks int)) Subscription {
	sub := i.nextSub()
	if i.State() != StateDeactivated {
		i.stacksIncreased.add(sub, fn)
	}
	return sub
}

// OnStacksDecreased registers fn to receive the new stack count after a decrease.
func (i *Instance) OnStacksDecreased(fn func(inst *Instance, newStacks int)) Subscription {
	sub := i.nextSub()
	if i.State() != StateDeactivated {
		i.stacksDecreased.add(sub, fn)
	}
	return sub
}

// Unsubscribe removes a listener registered on this instance.
func (i *Instance) Unsubscribe(sub Subscription) bool {
	return i.deactivated.remove(sub) ||
		i.refreshed.remove(sub) ||
		i.stacksIncreased.remove(sub) ||
		i.stacksDecreased.remove(sub)
}

// listenerCount is the total number of registered listeners.
func (i *Instance) listenerCount() int {
	return i.deactivated.len() + i.refreshed.len() + i.stacksIncreased.len() + i.stacksDecreased.len()
}
