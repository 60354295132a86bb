package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so the core and the frontends
// share one type.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// Clock dividers from the master oscillator.
const (
	m68kDivider = 7
	z80Divider  = 15
)

// RegionTiming holds timing constants for a specific region.
// Every chip is clocked from the master oscillator, so the CPU rates are
// derived from MasterClockHz rather than stored independently.
type RegionTiming struct {
	MasterClockHz int // Master crystal frequency
	M68KClockHz   int // Motorola 68000 clock (master / 7)
	Z80ClockHz    int // Z80 sound CPU clock (master / 15)
	Scanlines     int // Total scanlines per frame
	FPS           int // Frames per second
}

func newRegionTiming(masterHz, scanlines, fps int) RegionTiming {
	return RegionTiming{
		MasterClockHz: masterHz,
		M68KClockHz:   masterHz / m68kDivider,
		Z80ClockHz:    masterHz / z80Divider,
		Scanlines:     scanlines,
		FPS:           fps,
	}
}

// NTSC timing: 53.693175 MHz master, 262 scanlines, 60 Hz
var NTSCTiming = newRegionTiming(53693175, 262, 60)

// PAL timing: 53.203424 MHz master, 313 scanlines, 50 Hz
var PALTiming = newRegionTiming(53203424, 313, 50)

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// ConsoleRegion represents the hardware region identity of the console.
// This determines the version register value ($A10001) which games use
// for region lockout checks. It is separate from the display timing
// region (NTSC/PAL).
type ConsoleRegion int

const (
	ConsoleJapan  ConsoleRegion = iota // Domestic, NTSC
	ConsoleUSA                         // Overseas, NTSC
	ConsoleEurope                      // Overseas, PAL
)

// versionBits returns the $A10001 bits for the console identity.
func (c ConsoleRegion) versionBits() byte {
	if c == ConsoleJapan {
		return 0x00
	}
	return 0x80
}

// DetectConsoleRegion inspects the ROM header region field at offset $1F0-$1FF
// and returns the console region. For multi-region ROMs, priority is J > U > E.
// The newer hex-digit form ("4" = USA, "8" = Europe, "1" = Japan) is also
// understood. Returns ConsoleUSA for unknown or missing region data.
func DetectConsoleRegion(rom []byte) ConsoleRegion {
	if len(rom) < 0x200 {
		return ConsoleUSA
	}
	var hasJ, hasU, hasE bool
	field := rom[0x1F0:0x1F3]
	for _, b := range field {
		switch b {
		case 'J':
			hasJ = true
		case 'U':
			hasU = true
		case 'E':
			hasE = true
		}
	}
	if !hasJ && !hasU && !hasE {
		if bits, ok := hexNibble(field[0]); ok && (field[1] == ' ' || field[1] == 0) {
			hasJ = bits&0x01 != 0
			hasU = bits&0x04 != 0
			hasE = bits&0x08 != 0
		}
	}
	switch {
	case hasJ:
		return ConsoleJapan
	case hasU:
		return ConsoleUSA
	case hasE:
		return ConsoleEurope
	}
	return ConsoleUSA
}

func hexNibble(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// DetectRegion inspects the ROM header region field at offset $1F0-$1FF
// and returns the display timing region. ConsoleEurope maps to PAL;
// ConsoleJapan and ConsoleUSA map to NTSC.
func DetectRegion(rom []byte) Region {
	if DetectConsoleRegion(rom) == ConsoleEurope {
		return RegionPAL
	}
	return RegionNTSC
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
