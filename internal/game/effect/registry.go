package effect

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
)

// Liveness answers whether an actor reference is still valid.
type Liveness interface {
	Alive(id actor.ID) bool
}

// Registry owns the active effect instances of one target actor. It enforces
// scope uniqueness, routes apply/remove/refresh/query calls and relays
// lifecycle notifications.
//
// Invariant: every member of the active list is Active; an instance leaves the
// list inside its own Deactivate call.
//
// Not safe for concurrent use; the simulation loop serialises access.
type Registry struct {
	target   actor.ID
	liveness Liveness
	logger   *zap.Logger
	effects  []*Instance
	pending  []*Instance // activation hooks still running
	closing  bool
	closed   bool

	lastSub   Subscription
	applied   listeners[func(*Registry, *Instance, actor.ID)]
	removed   listeners[func(*Registry, *Instance, actor.ID)]
	refreshed listeners[func(*Registry, *Instance)]
}

// NewRegistry creates an empty Registry for target.
//
// Precondition: liveness must not be nil. A nil logger disables logging.
func NewRegistry(target actor.ID, liveness Liveness, logger *zap.Logger) *Registry {
	if liveness == nil {
		panic("effect.NewRegistry: liveness must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		target:   target,
		liveness: liveness,
		logger:   logger.With(zap.Stringer("target", target)),
	}
}

// Target returns the actor this registry belongs to.
func (r *Registry) Target() actor.ID { return r.target }

// Closed reports whether Teardown has run.
func (r *Registry) Closed() bool { return r.closed }

// Len returns the number of active instances.
func (r *Registry) Len() int { return len(r.effects) }

// Apply applies class to the target, creating an instance or refreshing the
// existing one as the class scope dictates. A dead instigator is treated as
// no instigator.
//
// Postcondition: on error the instance is nil and the registry is unchanged.
func (r *Registry) Apply(class *Class, instigator actor.ID) (*Instance, error) {
	if class == nil || class.Def == nil {
		return nil, ErrNilClass
	}
	if r.closed || r.closing {
		return nil, ErrRegistryClosed
	}
	if !r.liveness.Alive(r.target) {
		return nil, ErrInvalidTarget
	}
	if !instigator.IsZero() && !r.liveness.Alive(instigator) {
		instigator = actor.None
	}

	var existing *Instance
	switch class.Def.Scope {
	case PerInstigator:
		if instigator.IsZero() {
			r.logger.Debug("effect rejected: missing instigator", zap.String("effect", class.ID()))
			return nil, ErrInstigatorRequired
		}
		existing = r.unique(OfClass(class).WithInstigator(instigator))
	case PerTarget:
		existing = r.unique(OfClass(class))
	}
	if existing != nil {
		existing.Refresh()
		return existing, nil
	}
	return r.create(class, instigator)
}

// unique returns the member or still-activating instance matching f. An
// activation hook that re-applies its own class refreshes the instance being
// activated instead of creating a second one.
func (r *Registry) unique(f Filter) *Instance {
	if inst := r.first(f); inst != nil {
		return inst
	}
	for _, inst := range r.pending {
		if inst.IsActive() && f.Match(inst) {
			return inst
		}
	}
	return nil
}

func (r *Registry) create(class *Class, instigator actor.ID) (*Instance, error) {
	inst := newInstance(class)
	r.pending = append(r.pending, inst)
	ok := inst.activate(r, instigator)
	r.pending = slices.DeleteFunc(r.pending, func(p *Instance) bool { return p == inst })
	if !ok {
		r.logger.Debug("effect activation rejected",
			zap.String("effect", class.ID()),
			zap.Stringer("instigator", instigator),
		)
		return nil, ErrActivationRejected
	}
	r.effects = append(r.effects, inst)
	inst.OnDeactivated(r.handleDeactivated)
	inst.OnRefreshed(r.handleRefreshed)

	r.logger.Debug("effect applied",
		zap.String("effect", class.ID()),
		zap.Stringer("instance", inst.id),
		zap.Stringer("instigator", instigator),
	)
	r.applied.emit(func(fn func(*Registry, *Instance, actor.ID)) { fn(r, inst, instigator) })
	return inst, nil
}

func (r *Registry) handleDeactivated(inst *Instance, deactivator actor.ID) {
	idx := slices.Index(r.effects, inst)
	if idx < 0 {
		return
	}
	r.effects = slices.Delete(r.effects, idx, idx+1)
	r.logger.Debug("effect removed",
		zap.String("effect", inst.class.ID()),
		zap.Stringer("instance", inst.id),
		zap.Stringer("remover", deactivator),
	)
	r.removed.emit(func(fn func(*Registry, *Instance, actor.ID)) { fn(r, inst, deactivator) })
}

func (r *Registry) handleRefreshed(inst *Instance) {
	if !slices.Contains(r.effects, inst) {
		return
	}
	r.refreshed.emit(func(fn func(*Registry, *Instance)) { fn(r, inst) })
}

// Remove deactivates the first instance of class.
// Returns whether a matching instance was found.
func (r *Registry) Remove(class *Class, remover actor.ID) bool {
	return r.removeFirst(OfClass(class), class, remover)
}

// RemoveFromInstigator deactivates the first instance of class applied by instigator.
func (r *Registry) RemoveFromInstigator(class *Class, instigator, remover actor.ID) bool {
	return r.removeFirst(OfClass(class).WithInstigator(instigator), class, remover)
}

func (r *Registry) removeFirst(f Filter, class *Class, remover actor.ID) bool {
	if class == nil {
		return false
	}
	inst := r.first(f)
	if inst == nil {
		return false
	}
	inst.Deactivate(remover)
	return true
}

// RefreshAll refreshes every active instance. Returns the number refreshed.
func (r *Registry) RefreshAll() int { return r.RefreshWhere(Filter{}) }

// RefreshAllOfClass refreshes every instance of class.
func (r *Registry) RefreshAllOfClass(class *Class) int {
	if class == nil {
		return 0
	}
	return r.RefreshWhere(OfClass(class))
}

// RefreshAllFromInstigator refreshes every instance applied by instigator.
func (r *Registry) RefreshAllFromInstigator(instigator actor.ID) int {
	return r.RefreshWhere(FromInstigator(instigator))
}

// RefreshAllOfClassFromInstigator refreshes every instance of class applied by instigator.
func (r *Registry) RefreshAllOfClassFromInstigator(class *Class, instigator actor.ID) int {
	if class == nil {
		return 0
	}
	return r.RefreshWhere(OfClass(class).WithInstigator(instigator))
}

// RefreshAllOfType refreshes every instance of type t.
func (r *Registry) RefreshAllOfType(t Type) int { return r.RefreshWhere(OfType(t)) }

// RefreshAllOfTypeFromInstigator refreshes every instance of type t applied by instigator.
func (r *Registry) RefreshAllOfTypeFromInstigator(t Type, instigator actor.ID) int {
	return r.RefreshWhere(OfType(t).WithInstigator(instigator))
}

// RefreshWhere refreshes a snapshot of the instances matching f.
func (r *Registry) RefreshWhere(f Filter) int {
	n := 0
	for _, inst := range r.Query(f) {
		if inst.IsActive() {
			inst.Refresh()
			n++
		}
	}
	return n
}

// RemoveAll deactivates every active instance. Returns the number removed.
func (r *Registry) RemoveAll(remover actor.ID) int { return r.RemoveWhere(Filter{}, remover) }

// RemoveAllOfClass deactivates every instance of class.
func (r *Registry) RemoveAllOfClass(class *Class, remover actor.ID) int {
	if class == nil {
		return 0
	}
	return r.RemoveWhere(OfClass(class), remover)
}

// RemoveAllFromInstigator deactivates every instance applied by instigator.
func (r *Registry) RemoveAllFromInstigator(instigator, remover actor.ID) int {
	return r.RemoveWhere(FromInstigator(instigator), remover)
}

// RemoveAllOfClassFromInstigator deactivates every instance of class applied by instigator.
func (r *Registry) RemoveAllOfClassFromInstigator(class *Class, instigator, remover actor.ID) int {
	if class == nil {
		return 0
	}
	return r.RemoveWhere(OfClass(class).WithInstigator(instigator), remover)
}

// RemoveAllOfType deactivates every instance of type t.
func (r *Registry) RemoveAllOfType(t Type, remover actor.ID) int {
	return r.RemoveWhere(OfType(t), remover)
}

// RemoveAllOfTypeFromInstigator deactivates every instance of type t applied by instigator.
func (r *Registry) RemoveAllOfTypeFromInstigator(t Type, instigator, remover actor.ID) int {
	return r.RemoveWhere(OfType(t).WithInstigator(instigator), remover)
}

// RemoveWhere deactivates a snapshot of the instances matching f. Each
// deactivation shrinks the live list, which is why the snapshot is iterated.
func (r *Registry) RemoveWhere(f Filter, remover actor.ID) int {
	n := 0
	for _, inst := range r.Query(f) {
		if inst.Deactivate(remover) {
			n++
		}
	}
	return n
}

// Has reports whether an instance of class is active.
func (r *Registry) Has(class *Class) bool {
	return class != nil && r.first(OfClass(class)) != nil
}

// HasFromInstigator reports whether an instance of class applied by instigator is active.
func (r *Registry) HasFromInstigator(class *Class, instigator actor.ID) bool {
	return class != nil && r.first(OfClass(class).WithInstigator(instigator)) != nil
}

// HasAny reports whether any instance is active.
func (r *Registry) HasAny() bool { return len(r.effects) > 0 }

// HasAnyFromInstigator reports whether any instance applied by instigator is active.
func (r *Registry) HasAnyFromInstigator(instigator actor.ID) bool {
	return r.first(FromInstigator(instigator)) != nil
}

// HasAnyOfType reports whether any instance of type t is active.
func (r *Registry) HasAnyOfType(t Type) bool { return r.first(OfType(t)) != nil }

// HasAnyOfTypeFromInstigator reports whether any instance of type t applied by instigator is active.
func (r *Registry) HasAnyOfTypeFromInstigator(t Type, instigator actor.ID) bool {
	return r.first(OfType(t).WithInstigator(instigator)) != nil
}

// Get returns the first active instance of class, or nil.
func (r *Registry) Get(class *Class) *Instance {
	if class == nil {
		return nil
	}
	return r.first(OfClass(class))
}

// GetFromInstigator returns the first active instance of class applied by instigator, or nil.
func (r *Registry) GetFromInstigator(class *Class, instigator actor.ID) *Instance {
	if class == nil {
		return nil
	}
	return r.first(OfClass(class).WithInstigator(instigator))
}

// All returns every active instance in insertion order.
func (r *Registry) All() []*Instance { return r.Query(Filter{}) }

// AllOfClass returns every active instance of class.
func (r *Registry) AllOfClass(class *Class) []*Instance {
	if class == nil {
		return nil
	}
	return r.Query(OfClass(class))
}

// AllFromInstigator returns every active instance applied by instigator.
func (r *Registry) AllFromInstigator(instigator actor.ID) []*Instance {
	return r.Query(FromInstigator(instigator))
}

// AllOfClassFromInstigator returns every active instance of class applied by instigator.
func (r *Registry) AllOfClassFromInstigator(class *Class, instigator actor.ID) []*Instance {
	if class == nil {
		return nil
	}
	return r.Query(OfClass(class).WithInstigator(instigator))
}

// AllOfType returns every active instance of type t.
func (r *Registry) AllOfType(t Type) []*Instance { return r.Query(OfType(t)) }

// AllOfTypeFromInstigator returns every active instance of type t applied by instigator.
func (r *Registry) AllOfTypeFromInstigator(t Type, instigator actor.ID) []*Instance {
	return r.Query(OfType(t).WithInstigator(instigator))
}

// Query returns the active instances matching f in insertion order. The
// returned slice is a new allocation.
func (r *Registry) Query(f Filter) []*Instance {
	out := make([]*Instance, 0, len(r.effects))
	for _, inst := range r.effects {
		if f.Match(inst) {
			out = append(out, inst)
		}
	}
	return out
}

func (r *Registry) first(f Filter) *Instance {
	for _, inst := range r.effects {
		if f.Match(inst) {
			return inst
		}
	}
	return nil
}

// TickAll ticks a snapshot of the active instances once for frame.
func (r *Registry) TickAll(frame uint64, dt float64) {
	if len(r.effects) == 0 {
		return
	}
	snapshot := slices.Clone(r.effects)
	for _, inst := range snapshot {
		inst.Tick(frame, dt)
	}
}

// Teardown deactivates every instance with the target as deactivator so each
// cleanup hook runs, then closes the registry. Apply fails from the moment
// teardown starts, so a cleanup hook cannot re-populate it. Idempotent.
//
// Postcondition: Len() == 0, Closed() is true and every listener is released.
func (r *Registry) Teardown() {
	if r.closed || r.closing {
		return
	}
	r.closing = true
	n := r.RemoveAll(r.target)
	r.closed = true
	r.logger.Debug("effect registry torn down", zap.Int("removed", n))
	r.applied.clear()
	r.removed.clear()
	r.refreshed.clear()
}

func (r *Registry) nextSub() Subscription {
	r.lastSub++
	return r.lastSub
}

// OnApplied registers fn to run after a new instance is added.
func (r *Registry) OnApplied(fn func(reg *Registry, inst *Instance, instigator actor.ID)) Subscription {
	sub := r.nextSub()
	r.applied.add(sub, fn)
	return sub
}

// OnRemoved registers fn to run after an instance leaves the registry.
func (r *Registry) OnRemoved(fn func(reg *Registry, inst *Instance, remover actor.ID)) Subscription {
	sub := r.nextSub()
	r.removed.add(sub, fn)
	return sub
}

// OnRefreshed registers fn to run after a member instance refreshes.
func (r *Registry) OnRefreshed(fn func(reg *Registry, inst *Instance)) Subscription {
	sub := r.nextSub()
	r.refreshed.add(sub, fn)
	return sub
}

// Unsubscribe removes a listener registered on this registry.
func (r *Registry) Unsubscribe(sub Subscription) bool {
	return r.applied.remove(sub) || r.removed.remove(sub) || r.refreshed.remove(sub)
}
