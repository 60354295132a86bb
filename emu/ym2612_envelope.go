package emu

// SSG-EG mode bits
const (
	ssgEnable    = 0x08
	ssgAttack    = 0x04 // start inverted
	ssgAlternate = 0x02
	ssgHold      = 0x01
	ssgCenter    = 0x200 // boundary on the 10-bit scale
)

// egIncrementTable holds the increment patterns for rates 4-47, selected by
// rate&3 (row 0 is unused). Rates 48 and up use egHighRateTable.
var egIncrementTable = [5][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1},
}

// egHighRateTable holds the per-rate increment patterns for rates 48-63,
// which update on every EG tick.
var egHighRateTable = [16][8]uint8{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 2, 1, 1, 1, 2},
	{1, 2, 1, 2, 1, 2, 1, 2},
	{1, 2, 2, 2, 1, 2, 2, 2},
	{2, 2, 2, 2, 2, 2, 2, 2},
	{2, 2, 2, 4, 2, 2, 2, 4},
	{2, 4, 2, 4, 2, 4, 2, 4},
	{2, 4, 4, 4, 2, 4, 4, 4},
	{4, 4, 4, 4, 4, 4, 4, 4},
	{4, 4, 4, 8, 4, 4, 4, 8},
	{4, 8, 4, 8, 4, 8, 4, 8},
	{4, 8, 8, 8, 4, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
}

// egRate returns the scaled rate of the operator's current phase.
func (op *ymOperator) egRate() uint8 {
	switch op.egState {
	case egAttack:
		return op.scaledRate(op.ar)
	case egDecay:
		return op.scaledRate(op.d1r)
	case egSustain:
		return op.scaledRate(op.d2r)
	}
	return op.scaledRate(2*op.rr + 1)
}

// egIncrement returns the attenuation step for rate at the given global
// counter value. Zero means no update on this tick.
func egIncrement(rate uint8, counter uint16) uint8 {
	if rate >= 48 {
		return egHighRateTable[rate-48][counter&7]
	}
	shift := uint(11 - rate>>2)
	if counter&(1<<shift-1) != 0 {
		return 0
	}
	return egIncrementTable[rate&3+1][(counter>>shift)&7]
}

// stepEnvelope advances the operator's envelope by one EG tick.
func (op *ymOperator) stepEnvelope(counter uint16) {
	// The sustain check comes before the increment so a sustain level of
	// zero is never overshot.
	if op.egState == egDecay && op.egLevel >= sustainLevel(op.d1l) {
		op.egState = egSustain
	}

	rate := op.egRate()
	if rate == 0 {
		return
	}
	incr := egIncrement(rate, counter)
	if incr == 0 {
		return
	}

	ssg := op.ssgEG&ssgEnable != 0
	if ssg && op.egState != egAttack {
		// SSG-EG decays four times faster and stops at the boundary.
		if op.egLevel < ssgCenter {
			incr *= 4
		} else {
			incr = 0
		}
	}

	if op.egState == egAttack {
		if rate >= 62 {
			op.egLevel = 0
		} else {
			// Exponential approach to zero attenuation.
			next := int32(op.egLevel) + (^int32(op.egLevel)*int32(incr))>>4
			op.egLevel = uint16(max(next, 0))
		}
		if op.egLevel == 0 {
			op.egState = egDecay
		}
		return
	}

	op.egLevel += uint16(incr)
	if op.egState == egRelease && ssg && op.egLevel >= ssgCenter {
		op.egLevel = 0x3FF
	}
	op.egLevel = min(op.egLevel, 0x3FF)
}

// sustainLevel converts D1L to a 10-bit attenuation. D1L 15 is 0x3E0.
func sustainLevel(d1l uint8) uint16 {
	if d1l >= 15 {
		return 0x3E0
	}
	return uint16(d1l) << 5
}

// ssgLevel applies the SSG-EG boundary behavior and inversion and returns
// the level used for output. It runs every sample while SSG-EG is on.
func (op *ymOperator) ssgLevel() uint16 {
	if op.egState == egRelease {
		return op.egLevel
	}

	if op.egLevel >= ssgCenter {
		hold := op.ssgEG&ssgHold != 0
		if op.ssgEG&ssgAlternate != 0 {
			if !hold || (op.ssgEG&ssgAttack != 0) == op.ssgInverted {
				op.ssgInverted = !op.ssgInverted
			}
		} else if !hold {
			op.phaseCounter = 0
		}
		if !hold && (op.egState == egDecay || op.egState == egSustain) {
			op.egState = egAttack
		}
	}

	if op.ssgInverted {
		return (ssgCenter - op.egLevel) & 0x3FF
	}
	return op.egLevel
}

// totalLevel combines envelope and TL attenuation, capped at 0x3FF.
func totalLevel(egLevel uint16, tl uint8) uint16 {
	return min(egLevel+uint16(tl)<<3, 0x3FF)
}
