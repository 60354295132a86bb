package emu

import (
	"errors"

	"github.com/user-none/emsega/savestate"
)

const (
	ym2612SerializeVersion = 2

	// ymOperatorSerializeSize: ten register fields(10) + ssgEG(1) +
	// ssgInverted(1) + phaseCounter(4) + phaseInc(4) + egState(1) +
	// egLevel(2) + keyOn(1) + prevOut(4) + keyCode(1)
	ymOperatorSerializeSize = 29

	// ymChannelSerializeSize: fNum(2) + block, algorithm, feedback,
	// panL, panR, ams, fms(7)
	ymChannelSerializeSize = 9

	// ymGlobalSerializeSize: latches(2) + dac(2) + lfo(2) + timers(8) +
	// timer flags(6) + ch3Mode(1) + csmKeyOn(1) + ch3 freq(8) +
	// ch3 block(4) + egCounter(2) + egClock(1) + lfoCnt(2) + lfoStep(1) +
	// lfoAMOut(1) + timerBSubCount(1) + accumulators(8) +
	// nativeSampleCount(8) + busyUntil(8) + lastStatus(1) +
	// lastStatusSample(8)
	ymGlobalSerializeSize = 75

	// YM2612SerializeSize is the total bytes needed for YM2612 serialization.
	YM2612SerializeSize = 1 + 24*ymOperatorSerializeSize + 6*ymChannelSerializeSize + ymGlobalSerializeSize
)

func (op *ymOperator) serialize(w *savestate.Writer) {
	w.Bytes([]byte{op.dt, op.mul, op.tl, op.rs, op.ar, op.d1r, op.d2r, op.d1l, op.rr})
	w.Bool(op.am)
	w.U8(op.ssgEG)
	w.Bool(op.ssgInverted)
	w.U32(op.phaseCounter)
	w.U32(op.phaseInc)
	w.U8(op.egState)
	w.U16(op.egLevel)
	w.Bool(op.keyOn)
	w.U16(uint16(op.prevOut[0]))
	w.U16(uint16(op.prevOut[1]))
	w.U8(op.keyCode)
}

func (op *ymOperator) deserialize(r *savestate.Reader) {
	for _, f := range []*uint8{&op.dt, &op.mul, &op.tl, &op.rs, &op.ar, &op.d1r, &op.d2r, &op.d1l, &op.rr} {
		*f = r.U8()
	}
	op.am = r.Bool()
	op.ssgEG = r.U8()
	op.ssgInverted = r.Bool()
	op.phaseCounter = r.U32() & 0xFFFFF
	op.phaseInc = r.U32() & 0xFFFFF
	op.egState = r.U8() & 0x03
	op.egLevel = r.U16() & 0x3FF
	op.keyOn = r.Bool()
	op.prevOut[0] = int16(r.U16())
	op.prevOut[1] = int16(r.U16())
	op.keyCode = r.U8() & 0x1F
}

func (ch *ymChannel) serialize(w *savestate.Writer) {
	w.U16(ch.fNum)
	w.U8(ch.block)
	w.U8(ch.algorithm)
	w.U8(ch.feedback)
	w.Bool(ch.panL)
	w.Bool(ch.panR)
	w.U8(ch.ams)
	w.U8(ch.fms)
}

func (ch *ymChannel) deserialize(r *savestate.Reader) {
	ch.fNum = r.U16() & 0x7FF
	ch.block = r.U8() & 0x07
	ch.algorithm = r.U8() & 0x07
	ch.feedback = r.U8() & 0x07
	ch.panL = r.Bool()
	ch.panR = r.Bool()
	ch.ams = r.U8() & 0x03
	ch.fms = r.U8() & 0x07
}

// Serialize writes YM2612 state to buf. buf must be at least YM2612SerializeSize bytes.
func (y *YM2612) Serialize(buf []byte) error {
	if len(buf) < YM2612SerializeSize {
		return errors.New("YM2612 serialize buffer too small")
	}

	w := savestate.Writer{Buf: buf}
	w.U8(ym2612SerializeVersion)
	for i := range y.op {
		y.op[i].serialize(&w)
	}
	for i := range y.ch {
		y.ch[i].serialize(&w)
	}

	w.Bytes(y.addrLatch[:])
	w.Bool(y.dacEnable)
	w.U8(y.dacSample)
	w.Bool(y.lfoEnable)
	w.U8(y.lfoFreq)

	w.U16(y.timerA.period)
	w.U16(y.timerA.counter)
	w.U16(y.timerB.period)
	w.U16(y.timerB.counter)
	for _, f := range []bool{y.timerALoad, y.timerBLoad, y.timerAEnable, y.timerBEnable, y.timerAOver, y.timerBOver} {
		w.Bool(f)
	}

	w.U8(y.ch3Mode)
	w.Bool(y.csmKeyOn)
	for _, f := range y.ch3Freq {
		w.U16(f)
	}
	w.Bytes(y.ch3Block[:])

	w.U16(y.egCounter)
	w.U8(y.egClock)
	w.U16(y.lfoCnt)
	w.U8(y.lfoStep)
	w.U8(y.lfoAMOut)
	w.U8(y.timerBSubCount)

	w.I32(y.cycleAccum)
	w.I32(y.resampAccum)
	w.U64(y.nativeSampleCount)
	w.U64(y.busyUntil)
	w.U8(y.lastStatus)
	w.U64(y.lastStatusSample)
	return nil
}

// Deserialize reads YM2612 state from buf. buf must be at least YM2612SerializeSize bytes.
func (y *YM2612) Deserialize(buf []byte) error {
	if len(buf) < YM2612SerializeSize {
		return errors.New("YM2612 deserialize buffer too small")
	}

	r := savestate.Reader{Buf: buf}
	if r.U8() != ym2612SerializeVersion {
		return errors.New("unsupported YM2612 state version")
	}
	for i := range y.op {
		y.op[i].deserialize(&r)
	}
	for i := range y.ch {
		y.ch[i].deserialize(&r)
	}

	r.Bytes(y.addrLatch[:])
	y.dacEnable = r.Bool()
	y.dacSample = r.U8()
	y.lfoEnable = r.Bool()
	y.lfoFreq = r.U8() & 0x07

	y.timerA.period = r.U16() & 0x3FF
	y.timerA.counter = r.U16()
	y.timerB.period = r.U16() & 0xFF
	y.timerB.counter = r.U16()
	for _, f := range []*bool{&y.timerALoad, &y.timerBLoad, &y.timerAEnable, &y.timerBEnable, &y.timerAOver, &y.timerBOver} {
		*f = r.Bool()
	}

	y.ch3Mode = r.U8() & 0x03
	y.csmKeyOn = r.Bool()
	for i := range y.ch3Freq {
		y.ch3Freq[i] = r.U16() & 0x7FF
	}
	r.Bytes(y.ch3Block[:])

	y.egCounter = r.U16()
	y.egClock = r.U8() % 3
	y.lfoCnt = r.U16()
	y.lfoStep = r.U8() & 0x7F
	y.lfoAMOut = r.U8()
	y.timerBSubCount = r.U8()

	y.cycleAccum = r.I32()
	y.resampAccum = r.I32()
	y.nativeSampleCount = r.U64()
	y.busyUntil = r.U64()
	y.lastStatus = r.U8()
	y.lastStatusSample = r.U64()
	return nil
}
