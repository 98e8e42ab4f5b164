package effect

import (
	"fmt"
	"strings"
)

// Type classifies an effect for bulk queries.
type Type int

const (
	Neutral Type = iota
	Buff
	Debuff
)

var typeNames = map[Type]string{Neutral: "neutral", Buff: "buff", Debuff: "debuff"}

func (t Type) String() string { return enumString(typeNames, t) }

// UnmarshalText decodes "neutral", "buff" or "debuff".
func (t *Type) UnmarshalText(b []byte) error { return enumParse(typeNames, b, t, "type") }

// MarshalText encodes the snake_case name.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Scope governs how many instances of one class may coexist on a target.
type Scope int

const (
	// PerInstance creates a new instance on every apply.
	PerInstance Scope = iota
	// PerTarget keeps at most one instance per class, regardless of instigator.
	PerTarget
	// PerInstigator keeps at most one instance per (class, instigator) pair.
	PerInstigator
)

var scopeNames = map[Scope]string{PerInstance: "per_instance", PerTarget: "per_target", PerInstigator: "per_instigator"}

func (s Scope) String() string { return enumString(scopeNames, s) }

// UnmarshalText decodes "per_instance", "per_target" or "per_instigator".
func (s *Scope) UnmarshalText(b []byte) error { return enumParse(scopeNames, b, s, "scope") }

// MarshalText encodes the snake_case name.
func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TimerRefresh selects what a refresh does to the remaining duration.
type TimerRefresh int

const (
	TimerIgnore TimerRefresh = iota
	TimerReset
	TimerExtend
)

var timerNames = map[TimerRefresh]string{TimerIgnore: "ignore", TimerReset: "reset", TimerExtend: "extend"}

func (r TimerRefresh) String() string { return enumString(timerNames, r) }

// UnmarshalText decodes "ignore", "reset" (or "restart") and "extend".
func (r *TimerRefresh) UnmarshalText(b []byte) error {
	if strings.EqualFold(strings.TrimSpace(string(b)), "restart") {
		*r = TimerReset
		return nil
	}
	return enumParse(timerNames, b, r, "timer_refresh")
}

// MarshalText encodes the snake_case name.
func (r TimerRefresh) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// StacksRefresh selects what a refresh does to the stack count.
type StacksRefresh int

const (
	StacksIgnore StacksRefresh = iota
	StacksReset
	StacksIncrease
)

var stacksNames = map[StacksRefresh]string{StacksIgnore: "ignore", StacksReset: "reset", StacksIncrease: "increase"}

func (r StacksRefresh) String() string { return enumString(stacksNames, r) }

// UnmarshalText decodes "ignore", "reset" and "increase".
func (r *StacksRefresh) UnmarshalText(b []byte) error {
	return enumParse(stacksNames, b, r, "stacks_refresh")
}

// MarshalText encodes the snake_case name.
func (r StacksRefresh) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func enumString[E ~int](names map[E]string, v E) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}

func enumParse[E ~int](names map[E]string, b []byte, out *E, field string) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for v, name := range names {
		if name == s {
			*out = v
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q", field, string(b))
}
