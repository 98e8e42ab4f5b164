// Package status is the actor-scoped entry point to status effects: each
// function looks up the target's registry in a Directory and forwards the
// call. A target without a registry yields false, zero or nil.
package status

import (
	"errors"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
)

// ErrNoRegistry is returned by Apply when the target has no live registry.
var ErrNoRegistry = errors.New("status: target has no effect registry")

// Manager returns the target's registry.
func Manager(dir *effect.Directory, target actor.ID) (*effect.Registry, bool) {
	if dir == nil {
		return nil, false
	}
	return dir.Lookup(target)
}

func forward[T any](dir *effect.Directory, target actor.ID, fn func(*effect.Registry) T) T {
	reg, ok := Manager(dir, target)
	if !ok {
		var zero T
		return zero
	}
	return fn(reg)
}

// Apply applies class to target.
func Apply(dir *effect.Directory, target actor.ID, class *effect.Class, instigator actor.ID) (*effect.Instance, error) {
	reg, ok := Manager(dir, target)
	if !ok {
		return nil, ErrNoRegistry
	}
	return reg.Apply(class, instigator)
}

// Remove removes the first instance of class on target.
func Remove(dir *effect.Directory, target actor.ID, class *effect.Class, remover actor.ID) bool {
	return forward(dir, target, func(r *effect.Registry) bool { return r.Remove(class, remover) })
}

// RemoveFromInstigator removes the first instance of class applied by instigator.
func RemoveFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator, remover actor.ID) bool {
	return forward(dir, target, func(r *effect.Registry) bool {
		return r.RemoveFromInstigator(class, instigator, remover)
	})
}

// RefreshAll refreshes every effect on target and returns how many were refreshed.
func RefreshAll(dir *effect.Directory, target actor.ID) int {
	return forward(dir, target, (*effect.Registry).RefreshAll)
}

// RefreshAllOfClass refreshes every instance of class.
func RefreshAllOfClass(dir *effect.Directory, target actor.ID, class *effect.Class) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RefreshAllOfClass(class) })
}

// RefreshAllFromInstigator refreshes every effect applied by instigator.
func RefreshAllFromInstigator(dir *effect.Directory, target actor.ID, instigator actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RefreshAllFromInstigator(instigator) })
}

// RefreshAllOfClassFromInstigator refreshes instances of class applied by instigator.
func RefreshAllOfClassFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int {
		return r.RefreshAllOfClassFromInstigator(class, instigator)
	})
}

// RefreshAllOfType refreshes every effect of type t.
func RefreshAllOfType(dir *effect.Directory, target actor.ID, t effect.Type) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RefreshAllOfType(t) })
}

// RefreshAllOfTypeFromInstigator refreshes effects of type t applied by instigator.
func RefreshAllOfTypeFromInstigator(dir *effect.Directory, target actor.ID, t effect.Type, instigator actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int {
		return r.RefreshAllOfTypeFromInstigator(t, instigator)
	})
}

// RemoveAll removes every effect on target and returns how many were removed.
func RemoveAll(dir *effect.Directory, target actor.ID, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RemoveAll(remover) })
}

// RemoveAllOfClass removes every instance of class.
func RemoveAllOfClass(dir *effect.Directory, target actor.ID, class *effect.Class, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RemoveAllOfClass(class, remover) })
}

// RemoveAllFromInstigator removes every effect applied by instigator.
func RemoveAllFromInstigator(dir *effect.Directory, target actor.ID, instigator, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int {
		return r.RemoveAllFromInstigator(instigator, remover)
	})
}

// RemoveAllOfClassFromInstigator removes instances of class applied by instigator.
func RemoveAllOfClassFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int {
		return r.RemoveAllOfClassFromInstigator(class, instigator, remover)
	})
}

// RemoveAllOfType removes every effect of type t.
func RemoveAllOfType(dir *effect.Directory, target actor.ID, t effect.Type, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int { return r.RemoveAllOfType(t, remover) })
}

// RemoveAllOfTypeFromInstigator removes effects of type t applied by instigator.
func RemoveAllOfTypeFromInstigator(dir *effect.Directory, target actor.ID, t effect.Type, instigator, remover actor.ID) int {
	return forward(dir, target, func(r *effect.Registry) int {
		return r.RemoveAllOfTypeFromInstigator(t, instigator, remover)
	})
}

// Has reports whether target carries class.
func Has(dir *effect.Directory, target actor.ID, class *effect.Class) bool {
	return forward(dir, target, func(r *effect.Registry) bool { return r.Has(class) })
}

// HasFromInstigator reports whether target carries class applied by instigator.
func HasFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator actor.ID) bool {
	return forward(dir, target, func(r *effect.Registry) bool { return r.HasFromInstigator(class, instigator) })
}

// HasAny reports whether target carries any effect.
func HasAny(dir *effect.Directory, target actor.ID) bool {
	return forward(dir, target, (*effect.Registry).HasAny)
}

// HasAnyFromInstigator reports whether instigator applied any effect to target.
func HasAnyFromInstigator(dir *effect.Directory, target actor.ID, instigator actor.ID) bool {
	return forward(dir, target, func(r *effect.Registry) bool { return r.HasAnyFromInstigator(instigator) })
}

// HasAnyOfType reports whether target carries an effect of type t.
func HasAnyOfType(dir *effect.Directory, target actor.ID, t effect.Type) bool {
	return forward(dir, target, func(r *effect.Registry) bool { return r.HasAnyOfType(t) })
}

// HasAnyOfTypeFromInstigator reports whether instigator applied an effect of type t.
func HasAnyOfTypeFromInstigator(dir *effect.Directory, target actor.ID, t effect.Type, instigator actor.ID) bool {
	return forward(dir, target, func(r *effect.Registry) bool {
		return r.HasAnyOfTypeFromInstigator(t, instigator)
	})
}

// Get returns the first instance of class, or nil.
func Get(dir *effect.Directory, target actor.ID, class *effect.Class) *effect.Instance {
	return forward(dir, target, func(r *effect.Registry) *effect.Instance { return r.Get(class) })
}

// GetFromInstigator returns the first instance of class applied by instigator, or nil.
func GetFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator actor.ID) *effect.Instance {
	return forward(dir, target, func(r *effect.Registry) *effect.Instance {
		return r.GetFromInstigator(class, instigator)
	})
}

// GetAll returns every effect on target in application order.
func GetAll(dir *effect.Directory, target actor.ID) []*effect.Instance {
	return forward(dir, target, (*effect.Registry).All)
}

// GetAllOfClass returns every instance of class.
func GetAllOfClass(dir *effect.Directory, target actor.ID, class *effect.Class) []*effect.Instance {
	return forward(dir, target, func(r *effect.Registry) []*effect.Instance { return r.AllOfClass(class) })
}

// GetAllFromInstigator returns every effect applied by instigator.
func GetAllFromInstigator(dir *effect.Directory, target actor.ID, instigator actor.ID) []*effect.Instance {
	return forward(dir, target, func(r *effect.Registry) []*effect.Instance {
		return r.AllFromInstigator(instigator)
	})
}

// GetAllOfClassFromInstigator returns instances of class applied by instigator.
func GetAllOfClassFromInstigator(dir *effect.Directory, target actor.ID, class *effect.Class, instigator actor.ID) []*effect.Instance {
	return forward(dir, target, func(r *effect.Registry) []*effect.Instance {
		return r.AllOfClassFromInstigator(class, instigator)
	})
}

// GetAllOfType returns every effect of type t.
func GetAllOfType(dir *effect.Directory, target actor.ID, t effect.Type) []*effect.Instance {
	return forward(dir, target, func(r *effect.Registry) []*effect.Instance { return r.AllOfType(t) })
}

// GetAllOfTypeFromInstigator returns effects of type t applied by instigator.
func GetAllOfTypeFromInstigator(dir *effect.Directory, target actor.ID, t effect.Type, instigator actor.ID) []*effect.Instance {
	return forward(dir, target, func(r *effect.Registry) []*effect.Instance {
		return r.AllOfTypeFromInstigator(t, instigator)
	})
}
