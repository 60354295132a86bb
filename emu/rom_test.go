package emu

import (
	"encoding/binary"
	"errors"
	"testing"
)

// cartROM returns a size byte image with sysType at $100 and a correct
// header checksum.
func cartROM(size int, sysType string) []byte {
	rom := make([]byte, size)
	for i := 0x100; i < 0x110; i++ {
		rom[i] = ' '
	}
	copy(rom[0x100:0x110], sysType)
	for i := 0x200; i < size; i++ {
		rom[i] = byte(i * 7)
	}
	fixChecksum(rom)
	return rom
}

func fixChecksum(rom []byte) {
	var sum uint16
	data := rom[0x200:]
	for i := 0; i+1 < len(data); i += 2 {
		sum += binary.BigEndian.Uint16(data[i:])
	}
	if len(data)%2 != 0 {
		sum += uint16(data[len(data)-1]) << 8
	}
	binary.BigEndian.PutUint16(rom[0x18E:], sum)
}

func TestLoadROM_Errors(t *testing.T) {
	tests := []struct {
		name string
		rom  []byte
		want error
	}{
		{"tiny", make([]byte, 0x100), ErrROMTooSmall},
		{"no header", cartROM(0x400, "NINTENDO"), ErrBadHeader},
		{"SSF mapper", cartROM(0x400, "SEGA SSF"), ErrUnsupportedMapper},
		{"oversized", cartROM(0x400002, "SEGA GENESIS"), ErrUnsupportedMapper},
	}
	for _, tt := range tests {
		cart, err := LoadROM(tt.rom)
		if cart != nil {
			t.Errorf("%s: expected no cartridge", tt.name)
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		var le *LoadError
		if !errors.As(err, &le) {
			t.Errorf("%s: expected a *LoadError, got %T", tt.name, err)
		}
	}
}

func TestLoadROM_Header(t *testing.T) {
	for _, sys := range []string{"SEGA MEGA DRIVE", "SEGA GENESIS"} {
		cart, err := LoadROM(cartROM(0x400, sys))
		if err != nil {
			t.Fatalf("%s: %v", sys, err)
		}
		if !cart.ChecksumOK {
			t.Errorf("%s: expected checksum to validate", sys)
		}
		if cart.HasSRAM() || cart.SRAMSize() != 0 {
			t.Errorf("%s: expected no SRAM", sys)
		}
	}
}

func TestLoadROM_BadChecksumStillLoads(t *testing.T) {
	rom := cartROM(0x400, "SEGA MEGA DRIVE")
	rom[0x200] ^= 0xFF
	cart, err := LoadROM(rom)
	if err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if cart.ChecksumOK {
		t.Error("expected the checksum mismatch to be recorded")
	}
}

func TestValidateChecksum_OddLength(t *testing.T) {
	rom := cartROM(0x203, "SEGA MEGA DRIVE")
	if err := ValidateChecksum(rom); err != nil {
		t.Errorf("expected the trailing byte to count as a high byte, got %v", err)
	}
	rom[0x202]++
	if err := ValidateChecksum(rom); err == nil {
		t.Error("expected a mismatch after changing the trailing byte")
	}
}

func TestLoadROM_SRAMHeader(t *testing.T) {
	tests := []struct {
		name       string
		start, end uint32
		wantSize   int
	}{
		{"odd bytes", 0x200001, 0x203FFF, 0x3FFF},
		{"capped", 0x200000, 0x2FFFFF, maxSRAMSize},
		{"below cartridge space", 0x100000, 0x10FFFF, 0},
		{"reversed", 0x210000, 0x200000, 0},
	}
	for _, tt := range tests {
		rom := cartROM(0x400, "SEGA GENESIS")
		copy(rom[0x1B0:], "RA")
		rom[0x1B2], rom[0x1B3] = 0xF8, 0x20
		binary.BigEndian.PutUint32(rom[0x1B4:], tt.start)
		binary.BigEndian.PutUint32(rom[0x1B8:], tt.end)
		fixChecksum(rom)

		cart, err := LoadROM(rom)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got := cart.SRAMSize(); got != tt.wantSize {
			t.Errorf("%s: expected SRAM size %d, got %d", tt.name, tt.wantSize, got)
		}
	}
}
