package sms

import "testing"

// makeTestROM builds a 32KB export cartridge with code at $0000.
func makeTestROM(code ...byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom, code)
	copy(rom[0x7FF0:], "TMR SEGA")
	rom[0x7FFF] = 0x4C // SMS export, 32KB
	return rom
}

// place copies code into rom at addr.
func place(rom []byte, addr int, code ...byte) {
	copy(rom[addr:], code)
}

// loopROM disables interrupts and spins.
func loopROM() []byte {
	return makeTestROM(
		0xF3,       // DI
		0x18, 0xFE, // JR $
	)
}

// frameCounterROM enables the frame interrupt with a PSG tone playing and
// counts interrupts in $C000.
func frameCounterROM() []byte {
	rom := makeTestROM(
		0xF3,             // DI
		0xED, 0x56,       // IM 1
		0x31, 0xF0, 0xDF, // LD SP,$DFF0
		0x3E, 0x90,       // LD A,$90
		0xD3, 0x7F,       // OUT ($7F),A  tone 0 full volume
		0x3E, 0x20,       // LD A,$20
		0xD3, 0xBF,       // OUT ($BF),A
		0x3E, 0x81,       // LD A,$81
		0xD3, 0xBF,       // OUT ($BF),A  reg 1: frame interrupt enable
		0xFB,             // EI
		0x18, 0xFE,       // JR $
	)
	place(rom, 0x38,
		0xF5,             // PUSH AF
		0xDB, 0xBF,       // IN A,($BF)  acknowledge
		0x3A, 0x00, 0xC0, // LD A,($C000)
		0x3C,             // INC A
		0x32, 0x00, 0xC0, // LD ($C000),A
		0xF1,             // POP AF
		0xFB,             // EI
		0xED, 0x4D,       // RETI
	)
	place(rom, 0x66,
		0xF5,             // PUSH AF
		0x3A, 0x01, 0xC0, // LD A,($C001)
		0x3C,             // INC A
		0x32, 0x01, 0xC0, // LD ($C001),A
		0xF1,             // POP AF
		0xED, 0x45,       // RETN
	)
	return rom
}

// bankedROM returns a ROM of the given number of 16KB banks, each filled
// with its own bank number.
func bankedROM(banks int) []byte {
	rom := make([]byte, banks*bankSize)
	for i := range rom {
		rom[i] = byte(i / bankSize)
	}
	return rom
}

func newTestEmulator(t *testing.T, rom []byte, variant Variant) *Emulator {
	t.Helper()
	e, err := NewEmulator(rom, variant, RegionNTSC)
	if err != nil {
		t.Fatalf("NewEmulator: %v", err)
	}
	return e
}

// writeReg writes a VDP register through the control port.
func writeReg(v *VDP, reg, val uint8) {
	v.WriteControl(val)
	v.WriteControl(0x80 | reg)
}

// setAddress points the VDP at addr with the given code.
func setAddress(v *VDP, code uint8, addr uint16) {
	v.WriteControl(uint8(addr))
	v.WriteControl(code<<6 | uint8(addr>>8)&0x3F)
}
