// Package scenario replays scripted effect timelines against a fresh world and
// checks the outcome. Designers use it to try effect content without a game.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statusfx/internal/game/effect"
)

// Scenario is one scripted timeline. Times are simulated seconds from start;
// wall-clock time keeps running while the loop is paused.
type Scenario struct {
	Name string `yaml:"name"`
	// FrameRate overrides the configured simulation frame rate when > 0.
	FrameRate float64 `yaml:"frame_rate"`
	// Seed seeds the dice handed to scripts; 0 leaves the choice to the caller.
	Seed   uint64        `yaml:"seed"`
	Actors []ActorSpec   `yaml:"actors"`
	Steps  []Step        `yaml:"steps"`
	Until  float64       `yaml:"until"`
	Expect []Expectation `yaml:"expect"`
}

// ActorSpec declares an actor and its starting attributes.
type ActorSpec struct {
	Name       string             `yaml:"name"`
	Attributes map[string]float64 `yaml:"attributes"`
}

// EffectRef names an effect on a target. Instigator is the remover for
// remove steps.
type EffectRef struct {
	Target     string `yaml:"target"`
	Effect     string `yaml:"effect"`
	Instigator string `yaml:"instigator"`
}

// BulkRef selects effects on a target for remove_all and refresh_all. Effect
// and Type are mutually exclusive; both may be combined with Instigator.
type BulkRef struct {
	Target     string       `yaml:"target"`
	Effect     string       `yaml:"effect"`
	Type       *effect.Type `yaml:"type"`
	Instigator string       `yaml:"instigator"`
	Remover    string       `yaml:"remover"`
}

// StackChange adds Delta stacks to an effect, or removes them when negative.
type StackChange struct {
	Target string `yaml:"target"`
	Effect string `yaml:"effect"`
	Delta  int    `yaml:"delta"`
}

// Step is one action at a point in time. Exactly one action must be set.
type Step struct {
	At         float64      `yaml:"at"`
	Apply      *EffectRef   `yaml:"apply"`
	Remove     *EffectRef   `yaml:"remove"`
	RemoveAll  *BulkRef     `yaml:"remove_all"`
	RefreshAll *BulkRef     `yaml:"refresh_all"`
	Stacks     *StackChange `yaml:"stacks"`
	Spawn      *ActorSpec   `yaml:"spawn"`
	Destroy    string       `yaml:"destroy"`
	Pause      bool         `yaml:"pause"`
	Resume     bool         `yaml:"resume"`
}

// Kind names the step's action.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(s.Apply != nil, "apply")
	add(s.Remove != nil, "remove")
	add(s.RemoveAll != nil, "remove_all")
	add(s.RefreshAll != nil, "refresh_all")
	add(s.Stacks != nil, "stacks")
	add(s.Spawn != nil, "spawn")
	add(s.Destroy != "", "destroy")
	add(s.Pause, "pause")
	add(s.Resume, "resume")
	return out
}

// Expectation checks an actor at a point in time. Unset fields are not checked.
type Expectation struct {
	At     float64 `yaml:"at"`
	Actor  string  `yaml:"actor"`
	Effect string  `yaml:"effect"`
	Active *bool   `yaml:"active"`
	Stacks *int    `yaml:"stacks"`
	// Remaining is compared within Tolerance.
	Remaining *float64 `yaml:"remaining"`
	// Instigator is an actor name; "none" expects no live instigator.
	Instigator *string            `yaml:"instigator"`
	Attributes map[string]float64 `yaml:"attributes"`
	Tolerance  float64            `yaml:"tolerance"`
}

// Effects returns the distinct effect IDs the steps and expectations name,
// in first-use order.
func (s *Scenario) Effects() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, st := range s.Steps {
		switch {
		case st.Apply != nil:
			add(st.Apply.Effect)
		case st.Remove != nil:
			add(st.Remove.Effect)
		case st.RemoveAll != nil:
			add(st.RemoveAll.Effect)
		case st.RefreshAll != nil:
			add(st.RefreshAll.Effect)
		case st.Stacks != nil:
			add(st.Stacks.Effect)
		}
	}
	for _, e := range s.Expect {
		add(e.Effect)
	}
	return out
}

// Load reads a scenario file. Unknown keys are rejected.
//
// Postcondition: Returns a validated Scenario or a non-nil error.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario %q: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}
	return &s, nil
}

// Validate checks the timeline's structure: unique actor names, one action
// per step, times within [0, until], and references to declared actors.
// Effect IDs are resolved by the Runner.
func (s *Scenario) Validate() error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if s.Until <= 0 {
		errs = append(errs, fmt.Sprintf("until must be > 0, got %g", s.Until))
	}
	if s.FrameRate < 0 {
		errs = append(errs, fmt.Sprintf("frame_rate must be >= 0, got %g", s.FrameRate))
	}

	known := make(map[string]bool)
	declare := func(where, name string) {
		switch {
		case name == "":
			errs = append(errs, where+": actor name must not be empty")
		case known[name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate actor %q", where, name))
		default:
			known[name] = true
		}
	}
	for i, a := range s.Actors {
		declare(fmt.Sprintf("actors[%d]", i), a.Name)
	}
	for i, st := range s.Steps {
		if st.Spawn != nil {
			declare(fmt.Sprintf("steps[%d]", i), st.Spawn.Name)
		}
	}

	ref := func(where, name string, optional bool) {
		if name == "" && optional {
			return
		}
		if !known[name] {
			errs = append(errs, fmt.Sprintf("%s: unknown actor %q", where, name))
		}
	}
	inRange := func(where string, at float64) {
		if at < 0 || (s.Until > 0 && at > s.Until) {
			errs = append(errs, fmt.Sprintf("%s: at %g outside [0, %g]", where, at, s.Until))
		}
	}

	for i, st := range s.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		inRange(where, st.At)
		if kinds := st.kinds(); len(kinds) != 1 {
			errs = append(errs, fmt.Sprintf("%s: exactly one action required, got %v", where, kinds))
			continue
		}
		switch {
		case st.Apply != nil:
			errs = append(errs, effectRefErrs(where, st.Apply)...)
			ref(where, st.Apply.Target, false)
			ref(where, st.Apply.Instigator, true)
		case st.Remove != nil:
			errs = append(errs, effectRefErrs(where, st.Remove)...)
			ref(where, st.Remove.Target, false)
			ref(where, st.Remove.Instigator, true)
		case st.RemoveAll != nil, st.RefreshAll != nil:
			b := st.RemoveAll
			if b == nil {
				b = st.RefreshAll
			}
			if b.Effect != "" && b.Type != nil {
				errs = append(errs, where+": effect and type are mutually exclusive")
			}
			ref(where, b.Target, false)
			ref(where, b.Instigator, true)
			ref(where, b.Remover, true)
		case st.Stacks != nil:
			if st.Stacks.Effect == "" || st.Stacks.Delta == 0 {
				errs = append(errs, where+": stacks needs an effect and a non-zero delta")
			}
			ref(where, st.Stacks.Target, false)
		case st.Destroy != "":
			ref(where, st.Destroy, false)
		}
	}

	for i, e := range s.Expect {
		where := fmt.Sprintf("expect[%d]", i)
		inRange(where, e.At)
		ref(where, e.Actor, false)
		if e.Effect == "" && (e.Active != nil || e.Stacks != nil || e.Remaining != nil || e.Instigator != nil) {
			errs = append(errs, where+": effect checks need an effect")
		}
		if e.Instigator != nil && *e.Instigator != "none" {
			ref(where, *e.Instigator, false)
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func effectRefErrs(where string, r *EffectRef) []string {
	if r.Effect == "" {
		return []string{where + ": effect must not be empty"}
	}
	return nil
}
