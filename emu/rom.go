package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	minROMSize = 0x200    // vectors plus header
	maxROMSize = 0x400000 // 4MB, the largest size mappable without a bank mapper

	// maxSRAMSize bounds the battery RAM window. No released cartridge
	// declares more.
	maxSRAMSize = 0x10000
)

// ROM load errors. A *LoadError wraps one of these.
var (
	ErrROMTooSmall       = errors.New("rom too small")
	ErrBadHeader         = errors.New("bad rom header")
	ErrUnsupportedMapper = errors.New("unsupported cartridge mapper")
)

// LoadError describes why a cartridge image was rejected.
type LoadError struct {
	Err    error
	Detail string
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(err error, format string, args ...any) *LoadError {
	return &LoadError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// Cartridge is a validated Genesis cartridge image plus the configuration
// derived from its header.
type Cartridge struct {
	ROM        []byte
	CRC32      uint32
	Console    ConsoleRegion
	ChecksumOK bool

	// Battery-backed SRAM window from the "RA" header block, if any.
	SRAMStart uint32
	SRAMEnd   uint32
}

// HasSRAM reports whether the header declares battery-backed SRAM.
func (c *Cartridge) HasSRAM() bool {
	return c.SRAMStart != 0
}

// SRAMSize returns the size of the declared SRAM window in bytes.
func (c *Cartridge) SRAMSize() int {
	if !c.HasSRAM() {
		return 0
	}
	return int(c.SRAMEnd - c.SRAMStart + 1)
}

// LoadROM validates a cartridge image. Images that need a bank-switching
// mapper are rejected rather than run with a wrong memory map.
func LoadROM(rom []byte) (*Cartridge, error) {
	if len(rom) < minROMSize {
		return nil, loadErr(ErrROMTooSmall, "%d bytes", len(rom))
	}
	if err := ValidateSystemType(rom); err != nil {
		return nil, err
	}
	if len(rom) > maxROMSize {
		return nil, loadErr(ErrUnsupportedMapper, "%d byte image needs a bank mapper", len(rom))
	}

	cart := &Cartridge{
		ROM:        rom,
		CRC32:      crc32.ChecksumIEEE(rom),
		Console:    DetectConsoleRegion(rom),
		ChecksumOK: ValidateChecksum(rom) == nil,
	}
	cart.SRAMStart, cart.SRAMEnd = parseSRAMHeader(rom)
	return cart, nil
}

// ValidateSystemType checks that the ROM contains a recognized Genesis system
// type string at offset $100-$10F.
func ValidateSystemType(rom []byte) error {
	if len(rom) < 0x110 {
		return loadErr(ErrROMTooSmall, "too short to contain system type header (%d bytes)", len(rom))
	}

	sysType := strings.TrimSpace(string(rom[0x100:0x110]))
	switch {
	case strings.HasPrefix(sysType, "SEGA SSF"):
		return loadErr(ErrUnsupportedMapper, "%q", sysType)
	case strings.HasPrefix(sysType, "SEGA"):
		return nil
	default:
		return loadErr(ErrBadHeader, "unrecognized system type %q", sysType)
	}
}

// ValidateChecksum verifies the ROM header checksum at offset $18E-$18F.
// The checksum is the 16-bit sum of all big-endian words from $200 to end of ROM.
func ValidateChecksum(rom []byte) error {
	if len(rom) < 0x200 {
		return fmt.Errorf("ROM too short to validate checksum (%d bytes)", len(rom))
	}

	expected := binary.BigEndian.Uint16(rom[0x18E:0x190])

	var computed uint16
	data := rom[0x200:]
	for i := 0; i+1 < len(data); i += 2 {
		computed += binary.BigEndian.Uint16(data[i : i+2])
	}
	// Odd trailing byte treated as high byte with low byte = 0
	if len(data)%2 != 0 {
		computed += uint16(data[len(data)-1]) << 8
	}

	if computed != expected {
		return fmt.Errorf("checksum mismatch: header=%04X computed=%04X", expected, computed)
	}
	return nil
}

// parseSRAMHeader reads the header at $1B0-$1BB for SRAM metadata.
// Returns zero values when no valid SRAM block is declared.
func parseSRAMHeader(rom []byte) (start, end uint32) {
	if len(rom) < 0x1BC || rom[0x1B0] != 'R' || rom[0x1B1] != 'A' {
		return 0, 0
	}
	start = binary.BigEndian.Uint32(rom[0x1B4:])
	end = binary.BigEndian.Uint32(rom[0x1B8:])
	if start < 0x200000 || end < start || end > 0x3FFFFF {
		return 0, 0
	}
	return start, min(end, start+maxSRAMSize-1)
}
