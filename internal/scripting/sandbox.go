// Package scripting runs effect hook scripts in sandboxed GopherLua VMs. It
// has no dependency on the effect core; every interaction with actors and
// effects is injected through Manager callback fields.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script execution when
// no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done has been called limit times.
// GopherLua's mainLoopWithContext calls Done once per opcode.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

// NewSandboxedState creates an LState with only base, table, string and math
// loaded, the file and loader globals removed, and an opcode budget of
// instLimit (0 means DefaultInstructionLimit) shared by the code run next.
//
// The caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	Budget(L, instLimit)
	return L
}

// Budget installs a fresh opcode budget of instLimit on L. The returned
// function releases it and reinstates the previous budget, so a hook that
// re-enters the VM through a Go callback does not drain its caller's budget.
func Budget(L *lua.LState, instLimit int) (restore func()) {
	prev := L.Context()
	ctx, cancel := newCountingContext(instLimit)
	L.SetContext(ctx)
	return func() {
		cancel()
		if prev != nil {
			L.SetContext(prev)
		} else {
			L.RemoveContext()
		}
	}
}
