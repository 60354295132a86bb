package sms

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so the core and the frontends
// share one type.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// The Z80 and PSG both run at master/15. The Master System crystal is the
// same part the Genesis uses.
const z80Divider = 15

// RegionTiming holds timing constants for a specific region.
type RegionTiming struct {
	MasterClockHz int
	CPUClockHz    int // Z80 and PSG clock (master / 15)
	Scanlines     int
	FPS           int
}

func newRegionTiming(masterHz, scanlines, fps int) RegionTiming {
	return RegionTiming{
		MasterClockHz: masterHz,
		CPUClockHz:    masterHz / z80Divider,
		Scanlines:     scanlines,
		FPS:           fps,
	}
}

var (
	NTSCTiming = newRegionTiming(53693175, 262, 60)
	PALTiming  = newRegionTiming(53203424, 313, 50)
)

// GetTimingForRegion returns the timing constants for a region.
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// Variant selects between the Master System and the Game Gear.
type Variant int

const (
	VariantSMS Variant = iota
	VariantGG
)

func (v Variant) String() string {
	if v == VariantGG {
		return "gg"
	}
	return "sms"
}
