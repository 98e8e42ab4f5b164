package effect

import "github.com/cory-johannsen/statusfx/internal/game/actor"

// Hooks is the behaviour of one effect class. The engine calls these at the
// matching lifecycle points; each instance gets its own Hooks value from the
// class factory, so implementations may keep per-instance state.
//
// Embed BaseHooks to override only the hooks an effect needs.
type Hooks interface {
	// CanBeActivated vetoes activation when it returns false.
	CanBeActivated(inst *Instance) bool
	ActivateEffect(inst *Instance)
	// TickEffect receives the frame delta, or the fixed interval for
	// interval-ticking effects.
	TickEffect(inst *Instance, dt float64)
	// DeactivateEffect receives actor.None for system-driven expiry.
	DeactivateEffect(inst *Instance, deactivator actor.ID)
	RefreshEffect(inst *Instance)
	HandleStacksIncreased(inst *Instance, amount int)
	HandleStacksDecreased(inst *Instance, amount int)
}

// BaseHooks is the default hook set: activation always allowed, every other
// hook a no-op.
type BaseHooks struct{}

func (BaseHooks) CanBeActivated(*Instance) bool        { return true }
func (BaseHooks) ActivateEffect(*Instance)             {}
func (BaseHooks) TickEffect(*Instance, float64)        {}
func (BaseHooks) DeactivateEffect(*Instance, actor.ID) {}
func (BaseHooks) RefreshEffect(*Instance)              {}
func (BaseHooks) HandleStacksIncreased(*Instance, int) {}
func (BaseHooks) HandleStacksDecreased(*Instance, int) {}

var _ Hooks = BaseHooks{}
