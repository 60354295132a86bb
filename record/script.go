package record

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
	lua "github.com/yuin/gopher-lua"
)

// Script drives the pads from Lua. The script defines
//
//	function input(frame) ... end
//
// returning player one's mask and optionally player two's. press(...)
// builds a mask from button names: Up, Down, Left, Right and the names
// the system declares.
type Script struct {
	L     *lua.LState
	input lua.LValue
}

// LoadScript runs the Lua file at path.
func LoadScript(path string, buttons []emucore.Button) (*Script, error) {
	return loadScript(buttons, func(L *lua.LState) error { return L.DoFile(path) })
}

// LoadScriptString runs Lua source held in memory.
func LoadScriptString(src string, buttons []emucore.Button) (*Script, error) {
	return loadScript(buttons, func(L *lua.LState) error { return L.DoString(src) })
}

func loadScript(buttons []emucore.Button, run func(*lua.LState) error) (*Script, error) {
	names := map[string]uint32{
		"Up":    1 << emucore.ButtonUp,
		"Down":  1 << emucore.ButtonDown,
		"Left":  1 << emucore.ButtonLeft,
		"Right": 1 << emucore.ButtonRight,
	}
	for _, b := range buttons {
		names[b.Name] = 1 << b.ID
	}

	L := lua.NewState()
	L.SetGlobal("press", L.NewFunction(func(L *lua.LState) int {
		var mask uint32
		for i := 1; i <= L.GetTop(); i++ {
			name := L.CheckString(i)
			bit, ok := names[name]
			if !ok {
				L.ArgError(i, "unknown button "+name)
			}
			mask |= bit
		}
		L.Push(lua.LNumber(mask))
		return 1
	}))

	if err := run(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("record: script: %w", err)
	}
	input := L.GetGlobal("input")
	if input.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("record: script does not define input(frame)")
	}
	return &Script{L: L, input: input}, nil
}

// Input calls input(frame) and returns both pads' masks.
func (s *Script) Input(frame int) ([2]uint32, error) {
	var pads [2]uint32
	err := s.L.CallByParam(lua.P{Fn: s.input, NRet: 2, Protect: true}, lua.LNumber(frame))
	if err != nil {
		return pads, fmt.Errorf("record: script frame %d: %w", frame, err)
	}
	for i := range pads {
		v := s.L.Get(i - 2)
		switch n := v.(type) {
		case lua.LNumber:
			pads[i] = uint32(n)
		case *lua.LNilType:
		default:
			s.L.Pop(2)
			return pads, fmt.Errorf("record: script frame %d: input returned %s", frame, v.Type())
		}
	}
	s.L.Pop(2)
	return pads, nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.L.Close()
}
