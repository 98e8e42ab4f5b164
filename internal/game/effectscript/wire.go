package effectscript

import (
	"fmt"
	"maps"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/game/status"
	"github.com/cory-johannsen/statusfx/internal/scripting"
)

// Actors is the part of the actor world scripts may touch.
type Actors interface {
	Alive(id actor.ID) bool
	Get(id actor.ID) (*actor.Actor, bool)
	SetAttribute(id actor.ID, key string, value float64) error
	AddAttribute(id actor.ID, key string, delta float64) (float64, error)
}

// Wire injects the engine.actor and engine.effect callbacks into mgr.
// Actor references in Lua are actor.ID strings; effects are named by
// definition ID. Applying to an actor without a registry attaches one.
//
// Precondition: every argument must be non-nil.
func Wire(mgr *scripting.Manager, world Actors, dir *effect.Directory, catalog *effect.Catalog) {
	parse := func(ref string) actor.ID {
		id, err := actor.ParseID(ref)
		if err != nil {
			return actor.None
		}
		return id
	}

	mgr.GetActor = func(ref string) *scripting.ActorInfo {
		id := parse(ref)
		a, ok := world.Get(id)
		if !ok {
			return nil
		}
		return &scripting.ActorInfo{
			Ref:        ref,
			Name:       a.Name,
			Alive:      world.Alive(id),
			Attributes: maps.Clone(a.Attributes),
		}
	}
	mgr.SetAttribute = func(ref, key string, value float64) error {
		return world.SetAttribute(parse(ref), key, value)
	}
	mgr.AddAttribute = func(ref, key string, delta float64) (float64, error) {
		return world.AddAttribute(parse(ref), key, delta)
	}

	mgr.ApplyEffect = func(target, effectID, instigator string) error {
		class, ok := catalog.Get(effectID)
		if !ok {
			return fmt.Errorf("unknown effect %q", effectID)
		}
		reg, err := dir.Attach(parse(target))
		if err != nil {
			return err
		}
		_, err = reg.Apply(class, parse(instigator))
		return err
	}
	mgr.RemoveEffect = func(target, effectID, remover string) bool {
		class, ok := catalog.Get(effectID)
		return ok && status.Remove(dir, parse(target), class, parse(remover))
	}
	mgr.HasEffect = func(target, effectID string) bool {
		class, ok := catalog.Get(effectID)
		return ok && status.Has(dir, parse(target), class)
	}
	instance := func(target, effectID string) *effect.Instance {
		class, ok := catalog.Get(effectID)
		if !ok {
			return nil
		}
		return status.Get(dir, parse(target), class)
	}
	mgr.EffectStacks = func(target, effectID string) int {
		if inst := instance(target, effectID); inst != nil {
			return inst.CurrentStacks()
		}
		return 0
	}
	mgr.ChangeStacks = func(target, effectID string, delta int) bool {
		inst := instance(target, effectID)
		switch {
		case inst == nil:
			return false
		case delta > 0:
			return inst.IncreaseStacks(delta)
		default:
			return inst.DecreaseStacks(-delta)
		}
	}
}
