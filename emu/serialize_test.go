package emu

import (
	"errors"
	"slices"
	"testing"

	"github.com/user-none/emsega/savestate"
)

func TestSerialize_Size(t *testing.T) {
	e := newTestEmulator(t, loopROM())
	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(data) != SerializeSize() {
		t.Errorf("expected %d bytes, got %d", SerializeSize(), len(data))
	}
	if got := e.clock.SerializeSize(); got != clockSerializeSize {
		t.Errorf("clock section: expected %d, got %d", clockSerializeSize, got)
	}

	total := 0
	for _, s := range e.sections() {
		total += s.size
	}
	if total != payloadSize {
		t.Errorf("sections sum to %d, payload is %d", total, payloadSize)
	}
}

func TestSerialize_ResumesIdentically(t *testing.T) {
	e := newTestEmulator(t, vIntCounterROM())
	for i := 0; i < 3; i++ {
		e.RunFrame()
	}
	state, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var want [][]int16
	for i := 0; i < 3; i++ {
		e.RunFrame()
		want = append(want, slices.Clone(e.GetAudioSamples()))
	}
	wantRAM := e.ReadRegion(1)
	wantCycle := e.clock.Cycle()

	if err := e.Deserialize(state); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	for i := 0; i < 3; i++ {
		e.RunFrame()
		if !slices.Equal(e.GetAudioSamples(), want[i]) {
			t.Fatalf("frame %d: audio differs after restore", i)
		}
	}
	if !slices.Equal(e.ReadRegion(1), wantRAM) {
		t.Error("RAM differs after restore")
	}
	if e.clock.Cycle() != wantCycle {
		t.Errorf("master cycle: expected %d, got %d", wantCycle, e.clock.Cycle())
	}
}

func TestSerialize_VerifyErrors(t *testing.T) {
	e := newTestEmulator(t, loopROM())
	state, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	other := newTestEmulator(t, makeTestROM(0x4E71, 0x60FC))

	corrupt := slices.Clone(state)
	corrupt[savestate.HeaderSize+100] ^= 0xFF

	tests := []struct {
		name string
		emu  *Emulator
		data []byte
		want error
	}{
		{"short", e, state[:100], savestate.ErrTooShort},
		{"wrong rom", other, state, savestate.ErrWrongROM},
		{"corrupt", e, corrupt, savestate.ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.emu.Deserialize(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSerialize_FailedLoadRollsBack(t *testing.T) {
	e := newTestEmulator(t, loopROM())
	e.bus.ram[0x100] = 0x11
	state, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Break the clock section and reseal so only the load can catch it.
	off := 0
	for _, s := range e.sections()[:5] {
		off += s.size
	}
	state[savestate.HeaderSize+off] = 0xEE
	stateFormat.Seal(state, e.bus.romCRC)

	e.bus.ram[0x100] = 0x22
	if err := e.Deserialize(state); err == nil {
		t.Fatal("expected a load error")
	}
	if e.bus.ram[0x100] != 0x22 {
		t.Errorf("RAM should be rolled back to 0x22, got 0x%02X", e.bus.ram[0x100])
	}
}

func TestSerialize_SRAMRoundTrip(t *testing.T) {
	rom := loopROM()
	copy(rom[0x1B0:], []byte{'R', 'A', 0xF8, 0x20})
	copy(rom[0x1B4:], []byte{0x00, 0x20, 0x00, 0x01, 0x00, 0x20, 0x00, 0xFF})
	e := newTestEmulator(t, rom)
	e.SetSRAM([]byte{9, 8, 7})

	state, err := e.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	e.SetSRAM([]byte{0, 0, 0})
	if err := e.Deserialize(state); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got := e.GetSRAM(); got[0] != 9 || got[2] != 7 {
		t.Errorf("expected 9 8 7, got %v", got[:3])
	}
}
