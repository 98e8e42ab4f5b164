package effect

import (
	"fmt"
	"strings"
)

// Definition is the static, designer-authored configuration of one status
// effect, loaded from YAML or TOML. Times are in seconds.
type Definition struct {
	ID          string `yaml:"id" toml:"id"`
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description" toml:"description"`
	Type        Type   `yaml:"type" toml:"type"`
	Scope       Scope  `yaml:"scope" toml:"scope"`

	Infinite      bool         `yaml:"infinite" toml:"infinite"`
	Duration      float64      `yaml:"duration" toml:"duration"`
	TimerRefresh  TimerRefresh `yaml:"timer_refresh" toml:"timer_refresh"`
	MaxDuration   float64      `yaml:"max_duration" toml:"max_duration"`     // extend only
	DeltaDuration float64      `yaml:"delta_duration" toml:"delta_duration"` // extend only

	Stackable     bool          `yaml:"stackable" toml:"stackable"`
	InitialStacks int           `yaml:"initial_stacks" toml:"initial_stacks"`
	MaxStacks     int           `yaml:"max_stacks" toml:"max_stacks"`
	StacksRefresh StacksRefresh `yaml:"stacks_refresh" toml:"stacks_refresh"`
	DeltaStacks   int           `yaml:"delta_stacks" toml:"delta_stacks"`

	TickEnabled  bool    `yaml:"tick_enabled" toml:"tick_enabled"`
	TickInterval float64 `yaml:"tick_interval" toml:"tick_interval"` // <= 0 ticks every frame

	LuaCanActivate       string `yaml:"lua_can_activate" toml:"lua_can_activate"`
	LuaOnActivate        string `yaml:"lua_on_activate" toml:"lua_on_activate"`
	LuaOnTick            string `yaml:"lua_on_tick" toml:"lua_on_tick"`
	LuaOnDeactivate      string `yaml:"lua_on_deactivate" toml:"lua_on_deactivate"`
	LuaOnRefresh         string `yaml:"lua_on_refresh" toml:"lua_on_refresh"`
	LuaOnStacksIncreased string `yaml:"lua_on_stacks_increased" toml:"lua_on_stacks_increased"`
	LuaOnStacksDecreased string `yaml:"lua_on_stacks_decreased" toml:"lua_on_stacks_decreased"`
}

// DefaultDefinition returns a Definition holding the default value of every
// field. Files are decoded on top of it, so omitted keys keep these values.
func DefaultDefinition() Definition {
	return Definition{
		Type:          Neutral,
		Scope:         PerTarget,
		Infinite:      true,
		Duration:      5,
		TimerRefresh:  TimerIgnore,
		MaxDuration:   10,
		DeltaDuration: 5,
		InitialStacks: 1,
		MaxStacks:     5,
		StacksRefresh: StacksIgnore,
		DeltaStacks:   1,
	}
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil if the definition is usable, or an error listing every violation.
func (d *Definition) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Duration < 0 {
		errs = append(errs, fmt.Sprintf("duration must be >= 0, got %g", d.Duration))
	}
	if d.TimerRefresh == TimerExtend {
		if d.MaxDuration < 0 {
			errs = append(errs, fmt.Sprintf("max_duration must be >= 0, got %g", d.MaxDuration))
		}
		if d.DeltaDuration < 0 {
			errs = append(errs, fmt.Sprintf("delta_duration must be >= 0, got %g", d.DeltaDuration))
		}
		if !d.Infinite && d.MaxDuration < d.Duration {
			errs = append(errs, fmt.Sprintf("max_duration %g must not be below duration %g", d.MaxDuration, d.Duration))
		}
	}
	if d.Stackable {
		if d.MaxStacks < 1 {
			errs = append(errs, fmt.Sprintf("max_stacks must be >= 1, got %d", d.MaxStacks))
		}
		if d.InitialStacks < 1 || d.InitialStacks > d.MaxStacks {
			errs = append(errs, fmt.Sprintf("initial_stacks must be in [1, max_stacks], got %d", d.InitialStacks))
		}
		if d.StacksRefresh == StacksIncrease && d.DeltaStacks < 1 {
			errs = append(errs, fmt.Sprintf("delta_stacks must be >= 1, got %d", d.DeltaStacks))
		}
	}
	if d.TickInterval < 0 {
		errs = append(errs, fmt.Sprintf("tick_interval must be >= 0, got %g", d.TickInterval))
	}
	if len(errs) > 0 {
		id := d.ID
		if id == "" {
			id = "<unnamed>"
		}
		return fmt.Errorf("effect %s: %s", id, strings.Join(errs, "; "))
	}
	return nil
}

// EffectiveDuration is the span elapsed time is measured against: MaxDuration
// for extending timers, Duration otherwise, and -1 for infinite effects.
func (d *Definition) EffectiveDuration() float64 {
	switch {
	case d.Infinite:
		return -1
	case d.TimerRefresh == TimerExtend:
		return d.MaxDuration
	default:
		return d.Duration
	}
}

// ScriptHooks returns the non-empty Lua hook names keyed by hook kind.
func (d *Definition) ScriptHooks() map[string]string {
	out := make(map[string]string)
	for kind, name := range map[string]string{
		"can_activate":        d.LuaCanActivate,
		"on_activate":         d.LuaOnActivate,
		"on_tick":             d.LuaOnTick,
		"on_deactivate":       d.LuaOnDeactivate,
		"on_refresh":          d.LuaOnRefresh,
		"on_stacks_increased": d.LuaOnStacksIncreased,
		"on_stacks_decreased": d.LuaOnStacksDecreased,
	} {
		if name != "" {
			out[kind] = name
		}
	}
	return out
}
