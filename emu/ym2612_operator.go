package emu

import "math"

// sineTable is a quarter-wave log-sine table: -log2(sin((2i+1)/512 * pi/2))
// in 4.8 fixed point.
var sineTable [256]uint16

// pow2Table holds 2^(1-(i+1)/256) scaled to 11 bits, converting log-domain
// attenuation back to linear.
var pow2Table [256]uint16

func init() {
	for i := range sineTable {
		angle := float64(2*i+1) / 512.0 * math.Pi / 2.0
		sineTable[i] = uint16(math.Round(-math.Log2(math.Sin(angle)) * 256.0))
	}
	for i := range pow2Table {
		pow2Table[i] = uint16(math.Round(math.Pow(2.0, 1.0-float64(i+1)/256.0) * 1024.0))
	}
}

// computeOperatorOutput returns the signed 14-bit operator output for a
// 20-bit phase and a 10-bit attenuation.
func computeOperatorOutput(phase uint32, atten uint16) int16 {
	// Top 10 phase bits: sign, mirror and an 8-bit quarter-wave index.
	idx := (phase >> 10) & 0x3FF
	negative := idx&0x200 != 0
	quarter := idx & 0xFF
	if idx&0x100 != 0 {
		quarter = 0xFF - quarter
	}

	total := uint32(sineTable[quarter]) + uint32(atten)<<2

	// Shifts of 13 or more leave nothing of the 13-bit mantissa.
	linear := (uint32(pow2Table[total&0xFF]) << 2) >> (total >> 8)
	if negative {
		return -int16(linear)
	}
	return int16(linear)
}

// algorithm describes one of the eight operator connections. mod[i] is a
// bitmask of the operators whose outputs modulate operator i; carriers is
// the bitmask summed into the channel output. Operator 0 is always fed by
// its own feedback instead.
type algorithm struct {
	mod      [4]uint8
	carriers uint8
}

var algorithms = [8]algorithm{
	{mod: [4]uint8{0, 0x1, 0x2, 0x4}, carriers: 0x8}, // 1 -> 2 -> 3 -> 4
	{mod: [4]uint8{0, 0, 0x3, 0x4}, carriers: 0x8},   // (1 + 2) -> 3 -> 4
	{mod: [4]uint8{0, 0, 0x2, 0x5}, carriers: 0x8},   // (1 + (2 -> 3)) -> 4
	{mod: [4]uint8{0, 0x1, 0, 0x6}, carriers: 0x8},   // ((1 -> 2) + 3) -> 4
	{mod: [4]uint8{0, 0x1, 0, 0x4}, carriers: 0xA},   // (1 -> 2) + (3 -> 4)
	{mod: [4]uint8{0, 0x1, 0x1, 0x1}, carriers: 0xE}, // 1 -> (2 + 3 + 4)
	{mod: [4]uint8{0, 0x1, 0, 0}, carriers: 0xE},     // (1 -> 2) + 3 + 4
	{mod: [4]uint8{0, 0, 0, 0}, carriers: 0xF},       // 1 + 2 + 3 + 4
}

// feedbackInput returns operator 1's self-modulation from its last two
// outputs.
func feedbackInput(op *ymOperator, level uint8) int32 {
	if level == 0 {
		return 0
	}
	return (int32(op.prevOut[0]) + int32(op.prevOut[1])) >> (10 - uint(level))
}

// output computes the operator's sample for a phase modulation given in
// 10-bit phase index units, and records it for feedback.
func (op *ymOperator) output(modulation int32, amAtten uint16) int16 {
	egLevel := op.egLevel
	if op.ssgEG&ssgEnable != 0 {
		egLevel = op.ssgLevel()
	}
	atten := totalLevel(egLevel, op.tl)
	if op.am {
		atten = min(atten+amAtten, 0x3FF)
	}
	out := computeOperatorOutput(op.phaseCounter+uint32(modulation<<10), atten)

	op.prevOut[1] = op.prevOut[0]
	op.prevOut[0] = out
	return out
}

// clampAccum limits the carrier accumulator to the 14-bit range left after
// 9-bit quantization: +0x1FE0 / -0x1FF0.
func clampAccum(v int32) int32 {
	return clampInt32(v, -0x1FF0, 0x1FE0)
}

// applyLadder adds the DAC ladder's zero-crossing gap. A channel with its
// pan disabled still leaks the +/-128 offset.
func applyLadder(sample int16, panEnabled bool) int16 {
	switch {
	case !panEnabled && sample >= 0:
		return 128
	case !panEnabled:
		return -128
	case sample >= 0:
		return sample + 128
	}
	return sample - 96
}

// quantize9 drops the low 5 bits, matching the 9-bit DAC.
func quantize9(v int16) int16 {
	return v &^ 0x1F
}

// pan routes a channel sample to the left and right outputs.
func (y *YM2612) pan(ch *ymChannel, sample int16) (int16, int16) {
	if y.ladder {
		return applyLadder(sample, ch.panL), applyLadder(sample, ch.panR)
	}
	var l, r int16
	if ch.panL {
		l = sample
	}
	if ch.panR {
		r = sample
	}
	return l, r
}

// advancePhase steps every operator of a channel, recomputing the
// increment from an LFO-modulated F-number when PM is active.
func (y *YM2612) advancePhase(chIdx int) {
	ch := &y.ch[chIdx]
	ops := y.channelOps(chIdx)
	if ch.fms == 0 || !y.lfoEnable {
		for i := range ops {
			ops[i].phaseCounter = (ops[i].phaseCounter + ops[i].phaseInc) & 0xFFFFF
		}
		return
	}
	for i := range ops {
		op := &ops[i]
		fNum, block := y.operatorFrequency(chIdx, i)
		fnum12 := uint32(int32(fNum)<<1+y.lfoPMFnumDelta(ch.fms, fNum)) & 0xFFF
		op.phaseCounter = (op.phaseCounter + phaseIncrement(fnum12, block, op.keyCode, op.dt, op.mul)) & 0xFFFFF
	}
}

// channelOutput produces one native sample for a channel, already panned.
func (y *YM2612) channelOutput(chIdx int) (int16, int16) {
	ch := &y.ch[chIdx]

	// Channel 6 plays the DAC sample instead of FM when enabled.
	if chIdx == 5 && y.dacEnable {
		return y.pan(ch, (int16(y.dacSample)-128)<<6)
	}

	y.advancePhase(chIdx)
	return y.pan(ch, y.evaluate(chIdx))
}

// evaluate runs the channel's algorithm over its four operators.
func (y *YM2612) evaluate(chIdx int) int16 {
	ch := &y.ch[chIdx]
	ops := y.channelOps(chIdx)
	algo := &algorithms[ch.algorithm&7]
	amAtten := y.lfoAMAttenuation(ch.ams)

	var outs [4]int16
	var acc int32
	first := true
	for i := range ops {
		var mod int32
		if i == 0 {
			mod = feedbackInput(&ops[0], ch.feedback)
		} else if m := algo.mod[i]; m != 0 {
			for j := 0; j < i; j++ {
				if m&(1<<j) != 0 {
					mod += int32(outs[j])
				}
			}
			mod >>= 1
		}
		outs[i] = ops[i].output(mod, amAtten)

		if algo.carriers&(1<<i) == 0 {
			continue
		}
		s := outs[i]
		if y.ladder {
			s = quantize9(s)
		}
		if first {
			acc = int32(s)
			first = false
		} else {
			acc = clampAccum(acc + int32(s))
		}
	}
	return int16(acc)
}
