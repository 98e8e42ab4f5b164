// Package effectscript backs effect classes with Lua hooks and binds the
// engine.actor and engine.effect script modules to a live world.
package effectscript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/scripting"
)

// Hooks implements effect.Hooks by calling the Lua functions a definition
// names. Every hook receives an instance snapshot table
// {id, effect, type, target, instigator, stacks, remaining, elapsed}; hooks
// the definition leaves empty keep the default behaviour.
//
// Hook calls resolve in the VM scoped to the definition ID, or in the global
// VM when no such scope is loaded.
type Hooks struct {
	mgr *scripting.Manager
	def *effect.Definition
}

var _ effect.Hooks = (*Hooks)(nil)

// NewHooks creates Hooks for def.
//
// Precondition: mgr and def must be non-nil.
func NewHooks(mgr *scripting.Manager, def *effect.Definition) *Hooks {
	if mgr == nil || def == nil {
		panic("effectscript.NewHooks: mgr and def must not be nil")
	}
	return &Hooks{mgr: mgr, def: def}
}

func (h *Hooks) call(name string, inst *effect.Instance, extra ...lua.LValue) lua.LValue {
	if name == "" {
		return lua.LNil
	}
	fx := h.snapshot(inst)
	if fx == nil {
		return lua.LNil
	}
	ret, _ := h.mgr.CallHook(h.def.ID, name, append([]lua.LValue{fx}, extra...)...)
	return ret
}

func (h *Hooks) snapshot(inst *effect.Instance) *lua.LTable {
	t := h.mgr.NewTable(h.def.ID)
	if t == nil {
		return nil
	}
	t.RawSetString("id", lua.LString(inst.ID().String()))
	t.RawSetString("effect", lua.LString(h.def.ID))
	t.RawSetString("type", lua.LString(h.def.Type.String()))
	t.RawSetString("target", ref(inst.Target()))
	t.RawSetString("instigator", ref(inst.Instigator()))
	t.RawSetString("stacks", lua.LNumber(inst.CurrentStacks()))
	t.RawSetString("remaining", lua.LNumber(inst.RemainingTime()))
	t.RawSetString("elapsed", lua.LNumber(inst.ElapsedTime()))
	return t
}

func ref(id actor.ID) lua.LValue {
	if id.IsZero() {
		return lua.LNil
	}
	return lua.LString(id.String())
}

// CanBeActivated vetoes activation only when the hook returns false.
func (h *Hooks) CanBeActivated(inst *effect.Instance) bool {
	return h.call(h.def.LuaCanActivate, inst) != lua.LFalse
}

func (h *Hooks) ActivateEffect(inst *effect.Instance) {
	h.call(h.def.LuaOnActivate, inst)
}

func (h *Hooks) TickEffect(inst *effect.Instance, dt float64) {
	h.call(h.def.LuaOnTick, inst, lua.LNumber(dt))
}

func (h *Hooks) DeactivateEffect(inst *effect.Instance, deactivator actor.ID) {
	h.call(h.def.LuaOnDeactivate, inst, ref(deactivator))
}

func (h *Hooks) RefreshEffect(inst *effect.Instance) {
	h.call(h.def.LuaOnRefresh, inst)
}

func (h *Hooks) HandleStacksIncreased(inst *effect.Instance, amount int) {
	h.call(h.def.LuaOnStacksIncreased, inst, lua.LNumber(amount))
}

func (h *Hooks) HandleStacksDecreased(inst *effect.Instance, amount int) {
	h.call(h.def.LuaOnStacksDecreased, inst, lua.LNumber(amount))
}

// Bind installs script hooks on every class whose definition names at least
// one Lua hook. Returns the number of classes bound.
func Bind(catalog *effect.Catalog, mgr *scripting.Manager) int {
	n := 0
	for _, class := range catalog.All() {
		if len(class.Def.ScriptHooks()) == 0 {
			continue
		}
		def := class.Def
		class.NewHooks = func() effect.Hooks { return NewHooks(mgr, def) }
		n++
	}
	return n
}

// Check reports every hook a definition names that no loaded VM defines.
func Check(catalog *effect.Catalog, mgr *scripting.Manager) []error {
	var errs []error
	for _, class := range catalog.All() {
		hooks := class.Def.ScriptHooks()
		kinds := make([]string, 0, len(hooks))
		for kind := range hooks {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			if !mgr.HasHook(class.Def.ID, hooks[kind]) {
				errs = append(errs, fmt.Errorf("effect %s: %s hook %q is not defined", class.Def.ID, kind, hooks[kind]))
			}
		}
	}
	return errs
}

// LoadScripts loads dir's *.lua files as the global VM and every
// subdirectory as a VM scoped to the effect ID it is named after.
//
// Precondition: dir must be a readable directory.
func LoadScripts(mgr *scripting.Manager, dir string, instLimit int) error {
	if err := mgr.LoadGlobal(dir, instLimit); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading script dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := mgr.LoadScope(e.Name(), filepath.Join(dir, e.Name()), instLimit); err != nil {
			return err
		}
	}
	return nil
}
