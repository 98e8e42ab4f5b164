package effect

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
)

// World is the actor collaborator a Directory needs: liveness queries and a
// destroy notification that fires while the actor is still alive.
type World interface {
	Liveness
	OnDestroy(fn func(id actor.ID))
}

// Directory maps target actors to their registries. An actor has at most one
// registry; destroying the actor tears it down.
//
// Not safe for concurrent use.
type Directory struct {
	world      World
	logger     *zap.Logger
	registries map[actor.ID]*Registry
	order      []actor.ID
	onAttach   []func(*Registry)
}

// NewDirectory creates a Directory bound to world.
//
// Precondition: world must not be nil. A nil logger disables logging.
func NewDirectory(world World, logger *zap.Logger) *Directory {
	if world == nil {
		panic("effect.NewDirectory: world must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{
		world:      world,
		logger:     logger,
		registries: make(map[actor.ID]*Registry),
	}
	world.OnDestroy(func(id actor.ID) { d.Detach(id) })
	return d
}

// Attach returns target's registry, creating it on first use.
//
// Postcondition: Returns ErrInvalidTarget if target is not alive.
func (d *Directory) Attach(target actor.ID) (*Registry, error) {
	if reg, ok := d.registries[target]; ok {
		return reg, nil
	}
	if target.IsZero() || !d.world.Alive(target) {
		return nil, ErrInvalidTarget
	}
	reg := NewRegistry(target, d.world, d.logger)
	d.registries[target] = reg
	d.order = append(d.order, target)
	d.logger.Debug("effect registry attached", zap.Stringer("target", target))
	for _, fn := range slices.Clone(d.onAttach) {
		fn(reg)
	}
	return reg, nil
}

// Lookup returns target's registry. Absent when the actor is dead or has none.
func (d *Directory) Lookup(target actor.ID) (*Registry, bool) {
	reg, ok := d.registries[target]
	if !ok || !d.world.Alive(target) {
		return nil, false
	}
	return reg, true
}

// Detach tears down target's registry and forgets it. Reports whether one existed.
func (d *Directory) Detach(target actor.ID) bool {
	reg, ok := d.registries[target]
	if !ok {
		return false
	}
	reg.Teardown()
	delete(d.registries, target)
	d.order = slices.DeleteFunc(d.order, func(id actor.ID) bool { return id == target })
	d.logger.Debug("effect registry detached", zap.Stringer("target", target))
	return true
}

// OnAttach registers fn to run for every registry created after the call.
func (d *Directory) OnAttach(fn func(reg *Registry)) {
	d.onAttach = append(d.onAttach, fn)
}

// Registries returns every registry in attach order.
func (d *Directory) Registries() []*Registry {
	out := make([]*Registry, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.registries[id])
	}
	return out
}

// Len returns the number of attached registries.
func (d *Directory) Len() int { return len(d.order) }

// TickAll ticks every registry once for frame. Registries attached or
// detached by hooks during the pass are seen on the next frame.
func (d *Directory) TickAll(frame uint64, dt float64) {
	for _, reg := range d.Registries() {
		if reg.Closed() {
			continue
		}
		reg.TickAll(frame, dt)
	}
}
