package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emsega/adapter"
)

// system picks the core this library serves. Override at link time with
// -ldflags "-X main.system=sms" (or gg).
var system = "genesis"

var genesisPad = []libretro.RetropadMapping{
	{RetroID: libretro.JoypadY, BitID: 4},       // A
	{RetroID: libretro.JoypadB, BitID: 5},       // B
	{RetroID: libretro.JoypadA, BitID: 6},       // C
	{RetroID: libretro.JoypadStart, BitID: 7},   // Start
	{RetroID: libretro.JoypadX, BitID: 8},       // X
	{RetroID: libretro.JoypadL, BitID: 9},       // Y
	{RetroID: libretro.JoypadR, BitID: 10},      // Z
	{RetroID: libretro.JoypadSelect, BitID: 11}, // Mode
}

var masterSystemPad = []libretro.RetropadMapping{
	{RetroID: libretro.JoypadB, BitID: 4},     // 1
	{RetroID: libretro.JoypadA, BitID: 5},     // 2
	{RetroID: libretro.JoypadStart, BitID: 7}, // Pause / Start
}

func init() {
	factory, err := adapter.ForSystem(system, "")
	if err != nil {
		panic(err)
	}
	mapping := genesisPad
	if system != "genesis" {
		mapping = masterSystemPad
	}
	libretro.RegisterFactory(factory, mapping)
}

func main() {}
