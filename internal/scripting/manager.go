package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/game/dice"
)

// GlobalScope is the key of the VM loaded by LoadGlobal. CallHook falls back
// to it when a scope has no VM of its own.
const GlobalScope = "__global__"

// ActorInfo is a snapshot of an actor handed to Lua.
type ActorInfo struct {
	Ref        string
	Name       string
	Alive      bool
	Attributes map[string]float64
}

type vm struct {
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per scope and dispatches hook calls.
//
// The lock guards the scope map only. Each LState is single-threaded and
// hooks may re-enter the manager through engine.* callbacks, so CallHook must
// be driven from the simulation goroutine.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetActor     func(ref string) *ActorInfo
	SetAttribute func(ref, key string, value float64) error
	AddAttribute func(ref, key string, delta float64) (float64, error)
	ApplyEffect  func(target, effectID, instigator string) error
	RemoveEffect func(target, effectID, remover string) bool
	HasEffect    func(target, effectID string) bool
	EffectStacks func(target, effectID string) int
	ChangeStacks func(target, effectID string, delta int) bool
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a VM for key, registers the engine.* modules and runs
// every *.lua file in scriptDir in lexicographic order. A previous VM for key
// is replaced.
//
// Precondition: key must be non-empty; scriptDir must be a readable directory.
func (m *Manager) LoadScope(key, scriptDir string, instLimit int) error {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.L.Close()
	}
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	m.logger.Debug("scripting: scope loaded", zap.String("scope", key), zap.Int("files", len(files)))
	return nil
}

// LoadGlobal loads the shared VM used as the CallHook fallback.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadScope(GlobalScope, scriptDir, instLimit)
}

func (m *Manager) lookup(key string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[key]; ok {
		return v
	}
	return m.vms[GlobalScope]
}

// HasHook reports whether hook is a function in the VM CallHook would use:
// key's VM, or the global VM only when key has none. A scope with its own VM
// does not see hooks defined only in the global VM.
func (m *Manager) HasHook(key, hook string) bool {
	v := m.lookup(key)
	if v == nil {
		return false
	}
	return v.L.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the named global function in key's VM, or the global VM when
// key has none, with a fresh opcode budget. Returns (LNil, nil) when no VM or
// hook exists. Lua runtime errors are logged at Warn and never propagated.
//
// Postcondition: Returns the hook's first return value, or LNil.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(key)
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", key),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}
	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	release := Budget(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// NewTable returns a table owned by key's VM, or the global VM when key has
// none, for building hook arguments. Returns nil when no VM exists.
func (m *Manager) NewTable(key string) *lua.LTable {
	v := m.lookup(key)
	if v == nil {
		return nil
	}
	return v.L.NewTable()
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.L.Close()
		delete(m.vms, key)
	}
}
