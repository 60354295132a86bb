package emu

// Envelope phases
const (
	egAttack uint8 = iota
	egDecay
	egSustain
	egRelease
)

// Channel 3 mode values (register $27 bits 7-6)
const (
	ch3ModeNormal  = 0 // all operators share the channel frequency
	ch3ModeSpecial = 1 // per-operator frequencies
	ch3ModeCSM     = 2 // per-operator frequencies, Timer A overflow keys on
)

// Status port timing, in native samples
const (
	busyDuration        = 2     // ~32 internal cycles
	statusDecayDuration = 13300 // ~250ms at ~53kHz
)

// fmCyclesPerSample is the number of 68K cycles per native FM sample.
const fmCyclesPerSample = 144

// ymOperator is one FM operator. All 24 live in one table on the chip and
// are stepped by the same phase and envelope code.
type ymOperator struct {
	dt  uint8 // detune, bit 2 is the sign
	mul uint8 // multiplier, 0 means x0.5
	tl  uint8 // total level, 7-bit attenuation
	rs  uint8 // rate scaling
	ar  uint8 // attack rate
	d1r uint8 // decay rate
	d2r uint8 // sustain rate
	d1l uint8 // sustain level
	rr  uint8 // release rate
	am  bool

	ssgEG       uint8
	ssgInverted bool

	phaseCounter uint32 // 20-bit accumulator
	phaseInc     uint32

	egState uint8
	egLevel uint16 // 10-bit attenuation, 0x3FF is silent
	keyOn   bool

	prevOut [2]int16 // last two outputs, used by feedback
	keyCode uint8
}

// ymChannel holds the per-channel registers. Its operators are
// YM2612.op[ch*4 : ch*4+4], in S1, S2, S3, S4 order.
type ymChannel struct {
	fNum  uint16 // 11-bit
	block uint8

	algorithm uint8
	feedback  uint8
	panL      bool
	panR      bool
	ams       uint8
	fms       uint8
}

// YM2612 is the Yamaha OPN2 FM synthesizer.
type YM2612 struct {
	sampleRate int
	clockHz    int
	buffer     []int16

	op [24]ymOperator
	ch [6]ymChannel

	// Address latches for part I (ports 0/1) and part II (ports 2/3)
	addrLatch [2]uint8

	dacEnable bool
	dacSample uint8

	lfoEnable bool
	lfoFreq   uint8

	timerA       timer
	timerB       timer
	timerALoad   bool
	timerBLoad   bool
	timerAEnable bool
	timerBEnable bool
	timerAOver   bool
	timerBOver   bool

	ch3Mode  uint8
	csmKeyOn bool
	ch3Freq  [4]uint16
	ch3Block [4]uint8

	egCounter uint16 // 12-bit, skips 0 on wrap
	egClock   uint8  // the EG runs on every third sample

	lfoCnt   uint16
	lfoStep  uint8 // 0-127
	lfoAMOut uint8

	timerBSubCount uint8

	cycleAccum        int
	resampAccum       int
	nativeClock       int // clockHz / 144
	nativeSampleCount uint64

	busyUntil uint64

	// Ports 1/3 return the last status read from ports 0/2 until it decays.
	lastStatus       uint8
	lastStatusSample uint64

	// ladder enables the 9-bit DAC quantization and its zero-crossing gap.
	ladder bool
}

// NewYM2612 creates a new YM2612 clocked at the 68K rate.
func NewYM2612(clockHz, sampleRate int) *YM2612 {
	y := &YM2612{
		sampleRate:  sampleRate,
		clockHz:     clockHz,
		nativeClock: clockHz / fmCyclesPerSample,
		buffer:      make([]int16, 0, 2048),
		dacSample:   0x80, // centered: no DC offset
		ladder:      true,
	}
	for i := range y.ch {
		y.ch[i].panL = true
		y.ch[i].panR = true
	}
	for i := range y.op {
		y.op[i].egState = egRelease
		y.op[i].egLevel = 0x3FF
	}
	return y
}

// SetClock retunes the output resampler for a new 68K clock. Chip state
// is untouched.
func (y *YM2612) SetClock(clockHz int) {
	y.clockHz = clockHz
	y.nativeClock = clockHz / fmCyclesPerSample
}

// SetLadder enables or disables the DAC ladder distortion.
func (y *YM2612) SetLadder(enabled bool) {
	y.ladder = enabled
}

// channelOps returns the four operators of channel ch.
func (y *YM2612) channelOps(ch int) []ymOperator {
	return y.op[ch*4 : ch*4+4]
}

// ReadPort reads from a YM2612 port (0-3).
func (y *YM2612) ReadPort(port uint8) uint8 {
	if port&1 != 0 {
		if y.nativeSampleCount-y.lastStatusSample < statusDecayDuration {
			return y.lastStatus
		}
		return 0
	}

	var status uint8
	if y.timerAOver {
		status |= 0x01
	}
	if y.timerBOver {
		status |= 0x02
	}
	if y.nativeSampleCount < y.busyUntil {
		status |= 0x80
	}
	y.lastStatus = status
	y.lastStatusSample = y.nativeSampleCount
	return status
}

// WritePort writes to a YM2612 port (0-3). Even ports latch an address,
// odd ports write data to the latched register of their part.
func (y *YM2612) WritePort(port uint8, val uint8) {
	part := int(port>>1) & 1
	if port&1 == 0 {
		y.addrLatch[part] = val
		return
	}
	y.writeRegister(part, y.addrLatch[part], val)
	y.busyUntil = y.nativeSampleCount + busyDuration
}

// writeRegister dispatches a register write. Part 0 covers channels 0-2,
// part 1 channels 3-5.
func (y *YM2612) writeRegister(part int, addr, val uint8) {
	switch {
	case addr < 0x20:
	case addr < 0x30:
		if part == 0 {
			y.writeGlobalRegister(addr, val)
		}
	case addr < 0xA0:
		y.writeOperatorRegister(part, addr, val)
	default:
		y.writeChannelRegister(part, addr, val)
	}
}

func (y *YM2612) writeGlobalRegister(addr, val uint8) {
	switch addr {
	case 0x22:
		y.lfoEnable = val&0x08 != 0
		y.lfoFreq = val & 0x07
		if !y.lfoEnable {
			y.lfoStep = 0
			y.lfoCnt = 0
		}
	case 0x24:
		y.timerA.period = (y.timerA.period & 0x003) | uint16(val)<<2
	case 0x25:
		y.timerA.period = (y.timerA.period & 0x3FC) | uint16(val&0x03)
	case 0x26:
		y.timerB.period = uint16(val)
	case 0x27:
		y.ch3Mode = (val >> 6) & 0x03
		y.timerALoad = val&0x01 != 0
		y.timerBLoad = val&0x02 != 0
		y.timerAEnable = val&0x04 != 0
		y.timerBEnable = val&0x08 != 0
		if val&0x10 != 0 {
			y.timerAOver = false
		}
		if val&0x20 != 0 {
			y.timerBOver = false
		}
	case 0x28:
		y.writeKeyOnOff(val)
	case 0x2A:
		y.dacSample = val
	case 0x2B:
		y.dacEnable = val&0x80 != 0
	}
}

// operatorOrder maps the register slot (S1, S3, S2, S4) to operator index.
var operatorOrder = [4]int{0, 2, 1, 3}

func (y *YM2612) writeOperatorRegister(part int, addr, val uint8) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	chIdx := chSlot + part*3
	opIdx := operatorOrder[(addr>>2)&0x03]
	op := &y.op[chIdx*4+opIdx]

	switch addr & 0xF0 {
	case 0x30:
		op.dt = (val >> 4) & 0x07
		op.mul = val & 0x0F
		y.updatePhaseIncrement(chIdx, opIdx)
	case 0x40:
		op.tl = val & 0x7F
	case 0x50:
		op.rs = (val >> 6) & 0x03
		op.ar = val & 0x1F
	case 0x60:
		op.am = val&0x80 != 0
		op.d1r = val & 0x1F
	case 0x70:
		op.d2r = val & 0x1F
	case 0x80:
		op.d1l = (val >> 4) & 0x0F
		op.rr = val & 0x0F
	case 0x90:
		mode := val & 0x0F
		if mode&ssgEnable == 0 {
			mode = 0
		}
		if (mode^op.ssgEG)&ssgAttack != 0 {
			op.ssgInverted = !op.ssgInverted
		}
		op.ssgEG = mode
	}
}

func (y *YM2612) writeChannelRegister(part int, addr, val uint8) {
	chSlot := int(addr & 0x03)
	if chSlot == 3 {
		return
	}
	chIdx := chSlot + part*3
	ch := &y.ch[chIdx]

	switch addr & 0xFC {
	case 0xA0:
		// The MSB written through $A4 is latched until the LSB arrives.
		ch.fNum = (ch.fNum & 0x700) | uint16(val)
		y.updateChannelFrequency(chIdx)
	case 0xA4:
		ch.block = (val >> 3) & 0x07
		ch.fNum = (ch.fNum & 0x0FF) | uint16(val&0x07)<<8
	case 0xA8:
		if part != 0 {
			return
		}
		y.ch3Freq[chSlot] = (y.ch3Freq[chSlot] & 0x700) | uint16(val)
		if op := ch3SlotOp[chSlot]; y.ch3Mode != ch3ModeNormal && op >= 0 {
			y.updatePhaseIncrement(2, op)
		}
	case 0xAC:
		if part != 0 {
			return
		}
		y.ch3Block[chSlot] = (val >> 3) & 0x07
		y.ch3Freq[chSlot] = (y.ch3Freq[chSlot] & 0x0FF) | uint16(val&0x07)<<8
	case 0xB0:
		ch.algorithm = val & 0x07
		ch.feedback = (val >> 3) & 0x07
	case 0xB4:
		ch.panL = val&0x80 != 0
		ch.panR = val&0x40 != 0
		ch.ams = (val >> 4) & 0x03
		ch.fms = val & 0x07
	}
}

// writeKeyOnOff handles register $28. Bits 0-2 select the channel
// (4-6 are part II), bits 4-7 the operators S1, S2, S3, S4.
func (y *YM2612) writeKeyOnOff(val uint8) {
	chIdx := int(val & 0x03)
	if chIdx == 3 {
		return
	}
	if val&0x04 != 0 {
		chIdx += 3
	}

	ops := y.channelOps(chIdx)
	for i := range ops {
		op := &ops[i]
		on := val&(0x10<<uint(i)) != 0
		switch {
		case on && !op.keyOn:
			op.keyOn = true
			y.startAttack(op)
		case !on && op.keyOn:
			op.keyOn = false
			op.release()
		}
	}
}

// startAttack restarts an operator's phase and envelope.
func (y *YM2612) startAttack(op *ymOperator) {
	op.phaseCounter = 0
	op.egState = egAttack
	op.ssgInverted = op.ssgEG&ssgAttack != 0
	if op.scaledRate(op.ar) >= 62 {
		op.egLevel = 0
		op.egState = egDecay
	}
}

// release moves an operator into its release phase, resolving any SSG-EG
// inversion into the stored level first.
func (op *ymOperator) release() {
	if op.ssgEG&ssgEnable != 0 && op.ssgInverted {
		op.egLevel = (ssgCenter - op.egLevel) & 0x3FF
		op.ssgInverted = false
	}
	op.egState = egRelease
}

// scaledRate returns 2*rate plus the key scale, clamped to 63. A rate of
// zero stays frozen.
func (op *ymOperator) scaledRate(rate uint8) uint8 {
	if rate == 0 {
		return 0
	}
	return uint8(min(int(2*rate)+int(op.keyCode>>(3-op.rs)), 63))
}

// operatorFrequency returns the F-number and block an operator runs at,
// honoring the channel 3 per-operator frequencies.
func (y *YM2612) operatorFrequency(chIdx, opIdx int) (uint16, uint8) {
	ch := &y.ch[chIdx]
	if chIdx == 2 && y.ch3Mode != ch3ModeNormal {
		if slot := ch3OpSlot[opIdx]; slot >= 0 {
			return y.ch3Freq[slot], y.ch3Block[slot]
		}
	}
	return ch.fNum, ch.block
}

func (y *YM2612) updatePhaseIncrement(chIdx, opIdx int) {
	op := &y.op[chIdx*4+opIdx]
	fNum, block := y.operatorFrequency(chIdx, opIdx)
	if chIdx == 2 && y.ch3Mode != ch3ModeNormal && ch3OpSlot[opIdx] >= 0 {
		op.keyCode = computeKeyCode(fNum, block)
	}
	op.phaseInc = phaseIncrement(uint32(fNum)<<1, block, op.keyCode, op.dt, op.mul)
}

func (y *YM2612) updateChannelFrequency(chIdx int) {
	ch := &y.ch[chIdx]
	kc := computeKeyCode(ch.fNum, ch.block)
	ops := y.channelOps(chIdx)
	for i := range ops {
		ops[i].keyCode = kc
		y.updatePhaseIncrement(chIdx, i)
	}
}

// computeKeyCode derives the 5-bit key code from F-number and block:
// block in bits 4-2, F11 in bit 1, and bit 0 from F11..F8.
func computeKeyCode(fNum uint16, block uint8) uint8 {
	f11 := (fNum >> 10) & 1
	f10 := (fNum >> 9) & 1
	f9 := (fNum >> 8) & 1
	f8 := (fNum >> 7) & 1
	bit0 := (f11 & (f10 | f9 | f8)) | ((1 ^ f11) & f10 & f9 & f8)
	return block<<2 | uint8(f11<<1) | uint8(bit0)
}

// Run advances the chip by the given number of 68K cycles. It lets the
// YM2612 hang directly off the master clock.
func (y *YM2612) Run(cycles int) {
	y.GenerateSamples(cycles)
}

// GenerateSamples produces audio for the given number of 68K cycles. One
// native sample is produced every 144 cycles and resampled to the output
// rate.
func (y *YM2612) GenerateSamples(cycles int) {
	y.cycleAccum += cycles

	for y.cycleAccum >= fmCyclesPerSample {
		y.cycleAccum -= fmCyclesPerSample
		y.nativeSampleCount++

		y.stepTimers()
		y.stepLFO()

		y.egClock++
		if y.egClock == 3 {
			y.egClock = 0
			y.egCounter++
			if y.egCounter >= 4096 {
				y.egCounter = 1
			}
			for i := range y.op {
				y.op[i].stepEnvelope(y.egCounter)
			}
		}

		var left, right int32
		for ch := range y.ch {
			l, r := y.channelOutput(ch)
			left += int32(l)
			right += int32(r)
		}

		// Six laddered channels reach +/-49,728; halving leaves headroom
		// for the PSG.
		left = clampInt32(left>>1, -32768, 32767)
		right = clampInt32(right>>1, -32768, 32767)

		y.resampAccum += y.sampleRate
		if y.resampAccum >= y.nativeClock {
			y.resampAccum -= y.nativeClock
			y.buffer = append(y.buffer, int16(left), int16(right))
		}
	}
}

// GetBuffer returns accumulated samples and resets the buffer.
func (y *YM2612) GetBuffer() []int16 {
	out := y.buffer
	y.buffer = y.buffer[:0]
	return out
}
