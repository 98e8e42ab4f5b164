// Package actor provides the actor table that status effects attach to.
//
// Actors are referenced by generational IDs. Destroying an actor bumps the
// generation of its slot, so IDs held elsewhere go stale instead of dangling.
package actor

import (
	"fmt"
	"strconv"
	"strings"
)

// ID encodes a 32-bit slot index in the lower bits and a 32-bit generation in
// the upper bits. The zero ID means "no actor".
type ID uint64

// None is the zero ID.
const None ID = 0

func newID(index, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index.
func (id ID) Index() uint32 { return uint32(id) }

// Generation returns the slot generation.
func (id ID) Generation() uint32 { return uint32(id >> 32) }

// IsZero reports whether id is None.
func (id ID) IsZero() bool { return id == None }

// String renders id as "index:generation", or "none".
func (id ID) String() string {
	if id.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// ParseID is the inverse of String. "none" and "" parse to None.
func ParseID(s string) (ID, error) {
	if s == "" || s == "none" {
		return None, nil
	}
	idx, gen, ok := strings.Cut(s, ":")
	if !ok {
		return None, fmt.Errorf("actor: malformed id %q", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return None, fmt.Errorf("actor: malformed id %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return None, fmt.Errorf("actor: malformed id %q: %w", s, err)
	}
	return newID(uint32(i), uint32(g)), nil
}

// pool allocates IDs with a free list. Generations start at 1 so that no live
// actor is ever assigned the zero ID.
type pool struct {
	generations []uint32
	freeList    []uint32
}

func (p *pool) create() ID {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return newID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return newID(idx, 1)
}

func (p *pool) alive(id ID) bool {
	idx := id.Index()
	if id.IsZero() || int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *pool) destroy(id ID) bool {
	if !p.alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	return true
}
