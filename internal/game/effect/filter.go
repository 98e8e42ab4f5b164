package effect

import "github.com/cory-johannsen/statusfx/internal/game/actor"

// Filter selects instances by class, instigator and type. Zero-valued
// criteria match everything; instigators compare by ID identity, so
// ByInstigator with actor.None selects instances applied without one.
type Filter struct {
	Class        *Class
	ByInstigator bool
	Instigator   actor.ID
	ByType       bool
	Type         Type
}

// OfClass selects instances of class.
func OfClass(class *Class) Filter { return Filter{Class: class} }

// FromInstigator selects instances applied by instigator.
func FromInstigator(instigator actor.ID) Filter {
	return Filter{ByInstigator: true, Instigator: instigator}
}

// OfType selects instances whose class has the given type.
func OfType(t Type) Filter { return Filter{ByType: true, Type: t} }

// WithInstigator narrows f to instances applied by instigator.
func (f Filter) WithInstigator(instigator actor.ID) Filter {
	f.ByInstigator = true
	f.Instigator = instigator
	return f
}

// Match reports whether inst satisfies every criterion of f.
func (f Filter) Match(inst *Instance) bool {
	if f.Class != nil && inst.class != f.Class {
		return false
	}
	if f.ByInstigator && inst.instigator != f.Instigator {
		return false
	}
	if f.ByType && inst.class.Def.Type != f.Type {
		return false
	}
	return true
}
