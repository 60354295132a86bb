package emu

import (
	"testing"

	"github.com/user-none/go-chip-sn76489"
)

// makeTestROM builds a 1KB cartridge whose reset vector points at code
// placed at $200. SSP is $00FF0000.
func makeTestROM(code ...uint16) []byte {
	rom := make([]byte, 0x400)
	rom[1] = 0xFF // SSP = 0x00FF0000
	rom[6] = 0x02 // PC  = 0x00000200
	for i := 0x100; i < 0x110; i++ {
		rom[i] = ' '
	}
	copy(rom[0x100:], "SEGA GENESIS")
	for i, w := range code {
		rom[0x200+i*2] = byte(w >> 8)
		rom[0x201+i*2] = byte(w)
	}
	return rom
}

// loopROM spins on BRA.S * so the 68K never leaves $200.
func loopROM() []byte {
	return makeTestROM(0x60FE)
}

func mustCart(t *testing.T, rom []byte) *Cartridge {
	t.Helper()
	cart, err := LoadROM(rom)
	if err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	return cart
}

// makeTestBus creates a bus around a loop ROM with the Z80 held in reset.
func makeTestBus(t *testing.T) *GenesisBus {
	t.Helper()
	cart := mustCart(t, loopROM())
	vdp := NewVDP(false)
	psg := sn76489.New(NTSCTiming.Z80ClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	ym := NewYM2612(NTSCTiming.M68KClockHz, sampleRate)
	io := NewIO(ConsoleUSA, false)
	bus := NewGenesisBus(cart, vdp, io, psg, ym, NewArbiter())
	vdp.SetBus(bus)
	return bus
}

func newTestEmulator(t *testing.T, rom []byte) *Emulator {
	t.Helper()
	e, err := NewEmulator(rom, RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	return e
}
