package emu

// detuneTable holds phase increment deltas indexed by [keyCode][DT&3].
// DT bit 2 makes the delta negative.
var detuneTable = [32][4]uint32{
	{0, 0, 1, 2}, {0, 0, 1, 2}, {0, 0, 1, 2}, {0, 0, 1, 2},
	{0, 1, 2, 2}, {0, 1, 2, 3}, {0, 1, 2, 3}, {0, 1, 2, 3},
	{0, 1, 2, 4}, {0, 1, 3, 4}, {0, 1, 3, 4}, {0, 1, 3, 5},
	{0, 2, 4, 5}, {0, 2, 4, 6}, {0, 2, 4, 6}, {0, 2, 5, 7},
	{0, 2, 5, 8}, {0, 3, 6, 8}, {0, 3, 6, 9}, {0, 3, 7, 10},
	{0, 4, 8, 11}, {0, 4, 8, 12}, {0, 4, 9, 13}, {0, 5, 10, 14},
	{0, 5, 11, 16}, {0, 6, 12, 17}, {0, 6, 13, 19}, {0, 7, 14, 20},
	{0, 8, 16, 22}, {0, 8, 16, 22}, {0, 8, 16, 22}, {0, 8, 16, 22},
}

// phaseIncrement computes the 20-bit phase increment from a 12-bit
// F-number (the 11-bit register value shifted left once, plus any LFO PM
// offset), block, key code, detune and multiplier.
func phaseIncrement(fnum12 uint32, block, keyCode, dt, mul uint8) uint32 {
	base := (fnum12 << block) >> 2

	// Negative detune may wrap below zero; some sound drivers rely on it.
	delta := detuneTable[keyCode&0x1F][dt&0x03]
	if dt&0x04 != 0 {
		base -= delta
	} else {
		base += delta
	}
	base &= 0x1FFFF

	if mul == 0 {
		return (base >> 1) & 0xFFFFF
	}
	return (base * uint32(mul)) & 0xFFFFF
}

// ch3OpSlot maps an operator of channel 3 to its $A8-$AE frequency slot.
// S4 always uses the channel frequency.
var ch3OpSlot = [4]int{1, 2, 0, -1}

// ch3SlotOp is the inverse of ch3OpSlot.
var ch3SlotOp = [4]int{2, 0, 1, -1}
