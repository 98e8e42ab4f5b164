package scripting

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the engine table into L:
//
//	engine.log.{debug,info,warn,error}(msg)
//	engine.dice.roll(expr)                      -> {total, dice, modifier} | nil
//	engine.actor.{name, alive, get, set, add, attributes}
//	engine.effect.{apply, remove, has, stacks, add_stacks, remove_stacks}
//
// Precondition: L must come from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "actor", m.actorModule(L))
	L.SetField(engine, "effect", m.effectModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	write := func(log func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			log(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": write(m.logger.Debug),
		"info":  write(m.logger.Info),
		"warn":  write(m.logger.Warn),
		"error": write(m.logger.Error),
	})
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"roll": func(L *lua.LState) int {
			res, err := m.roller.RollExpr(L.CheckString(1))
			if err != nil {
				m.logger.Warn("scripting: bad dice expression", zap.Error(err))
				L.Push(lua.LNil)
				return 1
			}
			t := L.NewTable()
			t.RawSetString("total", lua.LNumber(res.Total()))
			t.RawSetString("dice", lua.LNumber(res.DiceSum()))
			t.RawSetString("modifier", lua.LNumber(res.Modifier))
			L.Push(t)
			return 1
		},
	})
}

func (m *Manager) actor(ref string) *ActorInfo {
	if m.GetActor == nil {
		return nil
	}
	return m.GetActor(ref)
}

func (m *Manager) actorModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"name": func(L *lua.LState) int {
			if a := m.actor(L.CheckString(1)); a != nil {
				L.Push(lua.LString(a.Name))
			} else {
				L.Push(lua.LNil)
			}
			return 1
		},
		"alive": func(L *lua.LState) int {
			a := m.actor(L.CheckString(1))
			L.Push(lua.LBool(a != nil && a.Alive))
			return 1
		},
		"get": func(L *lua.LState) int {
			a := m.actor(L.CheckString(1))
			key := L.CheckString(2)
			if a == nil || !a.Alive {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(a.Attributes[key]))
			return 1
		},
		"attributes": func(L *lua.LState) int {
			a := m.actor(L.CheckString(1))
			if a == nil || !a.Alive {
				L.Push(lua.LNil)
				return 1
			}
			keys := make([]string, 0, len(a.Attributes))
			for k := range a.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			t := L.NewTable()
			for _, k := range keys {
				t.RawSetString(k, lua.LNumber(a.Attributes[k]))
			}
			L.Push(t)
			return 1
		},
		"set": func(L *lua.LState) int {
			ref, key, value := L.CheckString(1), L.CheckString(2), float64(L.CheckNumber(3))
			if m.SetAttribute == nil {
				L.Push(lua.LFalse)
				return 1
			}
			if err := m.SetAttribute(ref, key, value); err != nil {
				m.logger.Debug("scripting: actor.set failed", zap.String("actor", ref), zap.Error(err))
				L.Push(lua.LFalse)
				return 1
			}
			L.Push(lua.LTrue)
			return 1
		},
		"add": func(L *lua.LState) int {
			ref, key, delta := L.CheckString(1), L.CheckString(2), float64(L.CheckNumber(3))
			if m.AddAttribute == nil {
				L.Push(lua.LNil)
				return 1
			}
			v, err := m.AddAttribute(ref, key, delta)
			if err != nil {
				m.logger.Debug("scripting: actor.add failed", zap.String("actor", ref), zap.Error(err))
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(v))
			return 1
		},
	})
}

func (m *Manager) effectModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"apply": func(L *lua.LState) int {
			target, id, instigator := L.CheckString(1), L.CheckString(2), L.OptString(3, "")
			if m.ApplyEffect == nil {
				L.Push(lua.LFalse)
				return 1
			}
			if err := m.ApplyEffect(target, id, instigator); err != nil {
				m.logger.Debug("scripting: effect.apply failed",
					zap.String("target", target),
					zap.String("effect", id),
					zap.Error(err),
				)
				L.Push(lua.LFalse)
				return 1
			}
			L.Push(lua.LTrue)
			return 1
		},
		"remove": func(L *lua.LState) int {
			target, id, remover := L.CheckString(1), L.CheckString(2), L.OptString(3, "")
			L.Push(lua.LBool(m.RemoveEffect != nil && m.RemoveEffect(target, id, remover)))
			return 1
		},
		"has": func(L *lua.LState) int {
			target, id := L.CheckString(1), L.CheckString(2)
			L.Push(lua.LBool(m.HasEffect != nil && m.HasEffect(target, id)))
			return 1
		},
		"stacks": func(L *lua.LState) int {
			target, id := L.CheckString(1), L.CheckString(2)
			n := 0
			if m.EffectStacks != nil {
				n = m.EffectStacks(target, id)
			}
			L.Push(lua.LNumber(n))
			return 1
		},
		"add_stacks": func(L *lua.LState) int {
			target, id, n := L.CheckString(1), L.CheckString(2), L.OptInt(3, 1)
			L.Push(lua.LBool(m.ChangeStacks != nil && m.ChangeStacks(target, id, n)))
			return 1
		},
		"remove_stacks": func(L *lua.LState) int {
			target, id, n := L.CheckString(1), L.CheckString(2), L.OptInt(3, 1)
			L.Push(lua.LBool(m.ChangeStacks != nil && m.ChangeStacks(target, id, -n)))
			return 1
		},
	})
}
