package actor

import (
	"fmt"
	"sort"
)

// Actor is one entity in the world. Attributes hold free-form numeric state
// that effect hooks read and modify (speed, armor, health, ...).
type Actor struct {
	ID         ID
	Name       string
	Attributes map[string]float64
}

// World owns every actor and answers liveness queries for stale IDs.
// It is not safe for concurrent use; the simulation loop serialises access.
type World struct {
	pool      pool
	actors    map[ID]*Actor
	byName    map[string]ID
	onDestroy []func(ID)
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{
		actors: make(map[ID]*Actor),
		byName: make(map[string]ID),
	}
}

// Spawn creates a new actor.
//
// Precondition: name must be non-empty and not used by a live actor.
// Postcondition: Returns the new actor, or an error if the name is taken.
func (w *World) Spawn(name string) (*Actor, error) {
	if name == "" {
		return nil, fmt.Errorf("actor name must not be empty")
	}
	if _, taken := w.byName[name]; taken {
		return nil, fmt.Errorf("actor %q already exists", name)
	}
	a := &Actor{
		ID:         w.pool.create(),
		Name:       name,
		Attributes: make(map[string]float64),
	}
	w.actors[a.ID] = a
	w.byName[name] = a.ID
	return a, nil
}

// OnDestroy registers fn to run when an actor is destroyed. Listeners run in
// registration order while the actor is still alive.
func (w *World) OnDestroy(fn func(ID)) {
	w.onDestroy = append(w.onDestroy, fn)
}

// Destroy removes the actor. Returns false when id is not alive.
//
// Postcondition: Alive(id) is false.
func (w *World) Destroy(id ID) bool {
	a, ok := w.actors[id]
	if !ok || !w.pool.alive(id) {
		return false
	}
	for _, fn := range w.onDestroy {
		fn(id)
	}
	delete(w.actors, id)
	delete(w.byName, a.Name)
	w.pool.destroy(id)
	return true
}

// Alive reports whether id refers to a live actor.
func (w *World) Alive(id ID) bool {
	return w.pool.alive(id)
}

// Get returns the actor for id, or (nil, false) when it is gone.
func (w *World) Get(id ID) (*Actor, bool) {
	if !w.pool.alive(id) {
		return nil, false
	}
	a, ok := w.actors[id]
	return a, ok
}

// Lookup returns the live actor with the given name.
func (w *World) Lookup(name string) (*Actor, bool) {
	id, ok := w.byName[name]
	if !ok {
		return nil, false
	}
	return w.Get(id)
}

// Name returns the actor's name, or "" when id is not alive.
func (w *World) Name(id ID) string {
	if a, ok := w.Get(id); ok {
		return a.Name
	}
	return ""
}

// All returns the live actors ordered by name.
func (w *World) All() []*Actor {
	out := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of live actors.
func (w *World) Len() int {
	return len(w.actors)
}

// Attribute returns the named attribute of id (0 when unset or dead).
func (w *World) Attribute(id ID, key string) float64 {
	if a, ok := w.Get(id); ok {
		return a.Attributes[key]
	}
	return 0
}

// SetAttribute stores value under key. Returns an error when id is not alive.
func (w *World) SetAttribute(id ID, key string, value float64) error {
	a, ok := w.Get(id)
	if !ok {
		return fmt.Errorf("actor %s is not alive", id)
	}
	a.Attributes[key] = value
	return nil
}

// AddAttribute adds delta to key and returns the new value.
func (w *World) AddAttribute(id ID, key string, delta float64) (float64, error) {
	a, ok := w.Get(id)
	if !ok {
		return 0, fmt.Errorf("actor %s is not alive", id)
	}
	a.Attributes[key] += delta
	return a.Attributes[key], nil
}
