package emu

// lfoPeriodTable is the number of samples between LFO steps for each
// frequency setting.
var lfoPeriodTable = [8]uint16{108, 77, 71, 67, 62, 44, 8, 5}

// lfoAMShift scales the 7-bit AM triangle for AMS 0-3. A shift of 8
// silences it.
var lfoAMShift = [4]uint8{8, 3, 1, 0}

// pmBaseTable is the PM offset per [FMS][quarter-wave step] for F-number
// bit 10. Lower F-number bits contribute proportionally less.
var pmBaseTable = [8][8]int32{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 4, 4, 4, 4},
	{0, 0, 0, 4, 4, 4, 8, 8},
	{0, 0, 4, 4, 8, 8, 12, 12},
	{0, 0, 4, 8, 8, 8, 12, 16},
	{0, 0, 8, 12, 16, 16, 20, 24},
	{0, 0, 16, 24, 32, 32, 40, 48},
	{0, 0, 32, 48, 64, 64, 80, 96},
}

// stepLFO advances the LFO by one sample and updates the AM output.
func (y *YM2612) stepLFO() {
	if !y.lfoEnable {
		y.lfoAMOut = 0
		return
	}

	y.lfoCnt++
	if y.lfoCnt >= lfoPeriodTable[y.lfoFreq] {
		y.lfoCnt = 0
		y.lfoStep = (y.lfoStep + 1) & 0x7F
	}

	// Triangle: 126 down to 0 over steps 0-63, back up over 64-127.
	if y.lfoStep < 64 {
		y.lfoAMOut = (63 - y.lfoStep) * 2
	} else {
		y.lfoAMOut = (y.lfoStep - 64) * 2
	}
}

// lfoAMAttenuation returns the AM attenuation for a channel's AMS.
func (y *YM2612) lfoAMAttenuation(ams uint8) uint16 {
	shift := lfoAMShift[ams&3]
	if shift >= 8 {
		return 0
	}
	return uint16(y.lfoAMOut) >> shift
}

// lfoPMFnumDelta returns the signed offset PM adds to (fNum << 1). It
// scales with F-number bits 4-10, so higher notes get more vibrato.
func (y *YM2612) lfoPMFnumDelta(fms uint8, fNum uint16) int32 {
	if fms == 0 || !y.lfoEnable {
		return 0
	}

	pmStep := y.lfoStep >> 2 // 0-31
	quarter := pmStep & 0x07
	if pmStep&0x08 != 0 {
		quarter = 7 - quarter
	}
	base := pmBaseTable[fms&7][quarter]

	var delta int32
	for bit := uint(4); bit <= 10; bit++ {
		if fNum&(1<<bit) != 0 {
			delta += base >> (10 - bit)
		}
	}
	if pmStep&0x10 != 0 {
		return -delta
	}
	return delta
}
