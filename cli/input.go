package cli

import (
	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
)

// binding ties one bit of the pad mask to keyboard keys and a gamepad
// button.
type binding struct {
	bit    uint32
	keys   []ebiten.Key
	pad    ebiten.StandardGamepadButton
	hasPad bool
}

var dpad = []binding{
	{bit: 1 << emucore.ButtonUp, keys: []ebiten.Key{ebiten.KeyW, ebiten.KeyArrowUp}, pad: ebiten.StandardGamepadButtonLeftTop, hasPad: true},
	{bit: 1 << emucore.ButtonDown, keys: []ebiten.Key{ebiten.KeyS, ebiten.KeyArrowDown}, pad: ebiten.StandardGamepadButtonLeftBottom, hasPad: true},
	{bit: 1 << emucore.ButtonLeft, keys: []ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft}, pad: ebiten.StandardGamepadButtonLeftLeft, hasPad: true},
	{bit: 1 << emucore.ButtonRight, keys: []ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight}, pad: ebiten.StandardGamepadButtonLeftRight, hasPad: true},
}

// Standard layout names used in emucore.Button.DefaultPad.
var padByName = map[string]ebiten.StandardGamepadButton{
	"A":      ebiten.StandardGamepadButtonRightBottom,
	"B":      ebiten.StandardGamepadButtonRightRight,
	"X":      ebiten.StandardGamepadButtonRightLeft,
	"Y":      ebiten.StandardGamepadButtonRightTop,
	"L1":     ebiten.StandardGamepadButtonFrontTopLeft,
	"R1":     ebiten.StandardGamepadButtonFrontTopRight,
	"Start":  ebiten.StandardGamepadButtonCenterRight,
	"Select": ebiten.StandardGamepadButtonCenterLeft,
}

// keyByName resolves emucore.Button.DefaultKey using Ebiten's key names.
func keyByName(name string) (ebiten.Key, bool) {
	var k ebiten.Key
	if err := k.UnmarshalText([]byte(name)); err != nil {
		return 0, false
	}
	return k, true
}

// bindButtons builds the d-pad plus one binding per system button.
func bindButtons(buttons []emucore.Button) []binding {
	out := append([]binding(nil), dpad...)
	for _, b := range buttons {
		bd := binding{bit: 1 << b.ID}
		if k, ok := keyByName(b.DefaultKey); ok {
			bd.keys = []ebiten.Key{k}
		}
		bd.pad, bd.hasPad = padByName[b.DefaultPad]
		out = append(out, bd)
	}
	return out
}

// pollButtons reads the keyboard and every connected gamepad into player
// one's mask.
func (r *Runner) pollButtons() uint32 {
	var mask uint32
	for _, b := range r.bindings {
		for _, k := range b.keys {
			if ebiten.IsKeyPressed(k) {
				mask |= b.bit
			}
		}
	}

	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		for _, b := range r.bindings {
			if b.hasPad && ebiten.IsStandardGamepadButtonPressed(id, b.pad) {
				mask |= b.bit
			}
		}

		// Left analog stick (with deadzone)
		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if axisX < -deadzone {
			mask |= 1 << emucore.ButtonLeft
		}
		if axisX > deadzone {
			mask |= 1 << emucore.ButtonRight
		}
		if axisY < -deadzone {
			mask |= 1 << emucore.ButtonUp
		}
		if axisY > deadzone {
			mask |= 1 << emucore.ButtonDown
		}
	}
	return mask
}
