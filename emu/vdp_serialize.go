package emu

import (
	"errors"

	"github.com/user-none/emsega/savestate"
)

const (
	vdpSerializeVersion = 2

	// VDPSerializeSize is the total bytes needed for VDP serialization:
	// version(1) + vram(65536) + cram(128) + vsram(80) + regs(24) +
	// port state(6) + status flags(6) + dma(21) + dmaStallCycles(4) +
	// assertedIntLevel(1) + counters(10) + hIntCounter(4) +
	// dmaFillPending(1) + oddField(1) + isPAL(1)
	VDPSerializeSize = 65824
)

// Serialize writes VDP state to buf. buf must be at least VDPSerializeSize bytes.
func (v *VDP) Serialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP serialize buffer too small")
	}

	w := savestate.Writer{Buf: buf}
	w.U8(vdpSerializeVersion)
	w.Bytes(v.vram[:])
	w.Bytes(v.cram[:])
	w.Bytes(v.vsram[:])
	w.Bytes(v.regs[:])

	w.Bool(v.writePending)
	w.U8(v.code)
	w.U16(v.address)
	w.U16(v.readBuffer)

	w.Bool(v.vIntPending)
	w.Bool(v.hIntPending)
	w.Bool(v.spriteOverflow)
	w.Bool(v.spriteCollision)
	w.Bool(v.vBlank)
	w.Bool(v.hBlank)

	w.U8(uint8(v.dma.kind))
	w.U32(v.dma.length)
	w.U64(v.dma.start)
	w.U64(v.dma.end)
	w.I32(v.dmaStallCycles)
	w.U8(v.assertedIntLevel)

	w.U16(v.vCounter)
	w.U8(v.hCounter)
	w.I32(v.currentLine)
	w.Bool(v.hvLatched)
	w.U16(v.hvLatchValue)

	w.I32(v.hIntCounter)
	w.Bool(v.dmaFillPending)
	w.Bool(v.oddField)
	w.Bool(v.isPAL)
	return nil
}

// Deserialize reads VDP state from buf. buf must be at least VDPSerializeSize bytes.
func (v *VDP) Deserialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP deserialize buffer too small")
	}

	r := savestate.Reader{Buf: buf}
	if r.U8() != vdpSerializeVersion {
		return errors.New("unsupported VDP state version")
	}
	r.Bytes(v.vram[:])
	r.Bytes(v.cram[:])
	r.Bytes(v.vsram[:])
	r.Bytes(v.regs[:])

	v.writePending = r.Bool()
	v.code = r.U8()
	v.address = r.U16()
	v.readBuffer = r.U16()

	v.vIntPending = r.Bool()
	v.hIntPending = r.Bool()
	v.spriteOverflow = r.Bool()
	v.spriteCollision = r.Bool()
	v.vBlank = r.Bool()
	v.hBlank = r.Bool()

	v.dma.kind = dmaKind(r.U8() % 3)
	v.dma.length = r.U32()
	v.dma.start = r.U64()
	v.dma.end = r.U64()
	v.dmaStallCycles = r.I32()
	v.assertedIntLevel = r.U8()

	v.vCounter = r.U16()
	v.hCounter = r.U8()
	v.currentLine = r.I32()
	v.hvLatched = r.Bool()
	v.hvLatchValue = r.U16()

	v.hIntCounter = r.I32()
	v.dmaFillPending = r.Bool()
	v.oddField = r.Bool()
	v.isPAL = r.Bool()
	return nil
}
