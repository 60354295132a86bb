package sms

import (
	"errors"
	"image"
	"image/color"

	"github.com/user-none/emsega/savestate"
)

const (
	ScreenWidth     = 256
	MaxScreenHeight = 224

	// Game Gear LCD window inside the 256x192 picture.
	GGScreenWidth  = 160
	GGScreenHeight = 144
)

// Mid-scanline events, in CPU cycles from the start of the line.
const (
	VBlankInterruptCycle = 4
	LineInterruptCycle   = 8
	// CRAM and the per-line registers latch after a line interrupt
	// handler has had a few cycles to change them.
	CRAMLatchCycle = 14
)

// cpuCyclesPerLine is the length of a scanline in Z80 cycles
// (684 master clocks of the VDP, 3 per CPU cycle).
const cpuCyclesPerLine = 228

// hCounterTable maps the CPU cycle within a scanline to the value read
// from port $7F. The 9-bit counter exposes its upper 8 bits and jumps from
// $93 to $E9 at the start of H-blank.
var hCounterTable = func() [cpuCyclesPerLine]uint8 {
	var table [cpuCyclesPerLine]uint8
	for cycle := range table {
		master := cycle * 3
		var h int
		switch {
		case master < 256:
			h = master / 2
		case master < 512:
			h = min(0x80+(master-256)*20/256, 0x93)
		default:
			h = (0xE9 + (master-512)*32/172) & 0xFF
		}
		table[cycle] = uint8(h)
	}
	return table
}()

// HCounterForCycle returns the H counter for a cycle offset within a line.
func HCounterForCycle(cycle int) uint8 {
	switch {
	case cycle < 0:
		return 0
	case cycle >= cpuCyclesPerLine:
		return hCounterTable[cpuCyclesPerLine-1]
	}
	return hCounterTable[cycle]
}

// VDP is the Mode 4 video processor of the Master System, with the Game
// Gear's 12-bit palette when gg is set.
type VDP struct {
	gg bool

	vram       [0x4000]uint8
	cram       [0x40]uint8 // 32 bytes used on SMS, 64 on GG
	cramLatch  [0x40]uint8 // copy taken at CRAMLatchCycle
	palette    [32]color.RGBA
	ggCRAMByte uint8 // even byte of a GG palette write
	register   [16]uint8

	addr       uint16
	addrLatch  uint8
	writeLatch bool
	codeReg    uint8
	readBuffer uint8

	status         uint8
	vCounter       uint16
	hCounter       uint8
	lineCounter    int16
	lineIntPending bool

	// Latched once per line after the line interrupt.
	hScrollLatch uint8
	reg2Latch    uint8
	reg7Latch    uint8
	// Latched once per frame.
	vScrollLatch uint8

	totalScanlines   int
	unlimitedSprites bool

	bgPriority   [ScreenWidth]bool
	spritePixels [ScreenWidth]bool
	lineSprites  [64]spriteInfo

	framebuffer *image.RGBA
}

// NewVDP creates a VDP. gg selects the Game Gear palette format.
func NewVDP(gg bool) *VDP {
	v := &VDP{
		gg:             gg,
		framebuffer:    image.NewRGBA(image.Rect(0, 0, ScreenWidth, MaxScreenHeight)),
		totalScanlines: NTSCTiming.Scanlines,
		lineCounter:    255, // no spurious interrupt on the first line
	}
	v.rebuildPalette()
	return v
}

// SetTotalScanlines configures the V counter for the region's line count.
func (v *VDP) SetTotalScanlines(scanlines int) {
	v.totalScanlines = scanlines
}

// SetSpriteLimit enables or removes the 8 sprites per line cap. The
// overflow flag is set either way.
func (v *VDP) SetSpriteLimit(enabled bool) {
	v.unlimitedSprites = !enabled
}

// ActiveHeight returns 224 when M1 and M2 are both set, otherwise 192.
// The 240 line mode of the later consoles is not supported.
func (v *VDP) ActiveHeight() int {
	if v.register[0]&0x02 != 0 && v.register[1]&0x10 != 0 {
		return 224
	}
	return 192
}

// ReadVCounter returns the 8-bit V counter with the jump that fits 262 or
// 313 lines into 256 values.
func (v *VDP) ReadVCounter() uint8 {
	line := int(v.vCounter)
	active := v.ActiveHeight()

	var jumpAt, back int
	switch {
	case v.totalScanlines == PALTiming.Scanlines && active == 192:
		jumpAt, back = 242, 57
	case v.totalScanlines == PALTiming.Scanlines:
		jumpAt, back = 258, 57
	case active == 192:
		jumpAt, back = 218, 6
	default:
		jumpAt, back = 234, 6
	}
	if line <= jumpAt {
		return uint8(line)
	}
	return uint8(line - back)
}

// ReadHCounter returns the H counter.
func (v *VDP) ReadHCounter() uint8 {
	return v.hCounter
}

// SetHCounter places the H counter; the emulator updates it before every
// instruction.
func (v *VDP) SetHCounter(h uint8) {
	v.hCounter = h
}

// ReadControl returns the status register and clears the flags and the
// pending line interrupt.
func (v *VDP) ReadControl() uint8 {
	status := v.status
	v.status &^= 0xE0
	v.lineIntPending = false
	v.writeLatch = false
	return status
}

// WriteControl handles the two-write control port sequence.
func (v *VDP) WriteControl(value uint8) {
	if !v.writeLatch {
		v.addrLatch = value
		v.writeLatch = true
		return
	}
	v.writeLatch = false
	v.addr = uint16(v.addrLatch) | uint16(value&0x3F)<<8
	v.codeReg = value >> 6

	switch v.codeReg {
	case 0: // VRAM read: prefetch
		v.readBuffer = v.vram[v.addr&0x3FFF]
		v.addr = (v.addr + 1) & 0x3FFF
	case 2:
		v.register[value&0x0F] = v.addrLatch
	}
}

// ReadData returns the read buffer and refills it from VRAM.
func (v *VDP) ReadData() uint8 {
	v.writeLatch = false
	data := v.readBuffer
	v.readBuffer = v.vram[v.addr&0x3FFF]
	v.addr = (v.addr + 1) & 0x3FFF
	return data
}

// WriteData writes to VRAM or CRAM depending on the code register.
func (v *VDP) WriteData(value uint8) {
	v.writeLatch = false
	v.readBuffer = value
	if v.codeReg == 3 {
		v.writeCRAM(value)
	} else {
		v.vram[v.addr&0x3FFF] = value
	}
	v.addr = (v.addr + 1) & 0x3FFF
}

// writeCRAM stores a palette byte. Game Gear entries are two bytes wide
// and only land when the odd byte is written.
func (v *VDP) writeCRAM(value uint8) {
	if !v.gg {
		v.cram[v.addr&0x1F] = value
		return
	}
	if v.addr&1 == 0 {
		v.ggCRAMByte = value
		return
	}
	a := v.addr & 0x3E
	v.cram[a] = v.ggCRAMByte
	v.cram[a+1] = value & 0x0F
}

// SetVBlank sets the frame interrupt flag.
func (v *VDP) SetVBlank() {
	v.status |= 0x80
}

// InterruptPending reports the level of the Z80 INT line: the frame flag
// gated by reg 1 bit 5, or a pending line interrupt gated by reg 0 bit 4.
func (v *VDP) InterruptPending() bool {
	frameInt := v.status&0x80 != 0 && v.register[1]&0x20 != 0
	lineInt := v.lineIntPending && v.register[0]&0x10 != 0
	return frameInt || lineInt
}

// SetVCounter selects the current scanline.
func (v *VDP) SetVCounter(line uint16) {
	v.vCounter = line
}

// LatchVScrollForFrame latches register 9. Writes during the frame take
// effect on the next one.
func (v *VDP) LatchVScrollForFrame() {
	v.vScrollLatch = v.register[9]
}

// LatchCRAM copies the palette used to draw the current line.
func (v *VDP) LatchCRAM() {
	if v.cramLatch == v.cram {
		return
	}
	v.cramLatch = v.cram
	v.rebuildPalette()
}

func (v *VDP) rebuildPalette() {
	for i := range v.palette {
		v.palette[i] = v.cramColor(uint8(i))
	}
}

func (v *VDP) cramColor(index uint8) color.RGBA {
	if v.gg {
		lo := v.cramLatch[index*2]
		hi := v.cramLatch[index*2+1]
		return color.RGBA{
			R: (lo & 0x0F) * 17,
			G: (lo >> 4) * 17,
			B: (hi & 0x0F) * 17,
			A: 255,
		}
	}
	c := v.cramLatch[index]
	return color.RGBA{
		R: (c & 0x03) * 85,
		G: (c >> 2 & 0x03) * 85,
		B: (c >> 4 & 0x03) * 85,
		A: 255,
	}
}

// LatchPerLineRegisters latches the H scroll, name table and backdrop
// registers for the current line.
func (v *VDP) LatchPerLineRegisters() {
	v.hScrollLatch = v.register[8]
	v.reg2Latch = v.register[2]
	v.reg7Latch = v.register[7]
}

// UpdateLineCounter runs the line interrupt counter once per line. It
// decrements on lines 0 through the active height and reloads from
// register 10 for the rest of the frame.
func (v *VDP) UpdateLineCounter() {
	if int(v.vCounter) > v.ActiveHeight() {
		v.lineCounter = int16(v.register[10])
		return
	}
	v.lineCounter--
	if v.lineCounter < 0 {
		v.lineCounter = int16(v.register[10])
		v.lineIntPending = true
	}
}

// Framebuffer returns the full 256x224 picture.
func (v *VDP) Framebuffer() *image.RGBA {
	return v.framebuffer
}

// Viewport returns the visible part of the picture: the whole active area
// on a Master System, the centered 160x144 LCD window on a Game Gear.
func (v *VDP) Viewport() *image.RGBA {
	active := v.ActiveHeight()
	if !v.gg {
		return v.framebuffer.SubImage(image.Rect(0, 0, ScreenWidth, active)).(*image.RGBA)
	}
	x := (ScreenWidth - GGScreenWidth) / 2
	y := (active - GGScreenHeight) / 2
	return v.framebuffer.SubImage(image.Rect(x, y, x+GGScreenWidth, y+GGScreenHeight)).(*image.RGBA)
}

// Register returns VDP register n (0-15).
func (v *VDP) Register(n int) uint8 {
	if n < 0 || n >= len(v.register) {
		return 0
	}
	return v.register[n]
}

// LeftColumnBlankEnabled reports whether reg 0 bit 5 masks the leftmost
// 8 pixels with the backdrop.
func (v *VDP) LeftColumnBlankEnabled() bool {
	return v.register[0]&0x20 != 0
}

const vdpSerializeVersion = 1

// vdpSerializeSize is version(1) + vram + cram + cramLatch + regs(16) +
// addr(2) + addrLatch, writeLatch, codeReg, readBuffer, ggCRAMByte(5) +
// status(1) + vCounter(2) + hCounter(1) + lineCounter(2) +
// lineIntPending(1) + four latches(4).
const vdpSerializeSize = 1 + 0x4000 + 0x40 + 0x40 + 16 + 2 + 5 + 1 + 2 + 1 + 2 + 1 + 4

// Serialize writes the VDP state into buf.
func (v *VDP) Serialize(buf []byte) error {
	if len(buf) < vdpSerializeSize {
		return errors.New("vdp: serialize buffer too small")
	}
	w := savestate.NewWriter(buf)
	w.U8(vdpSerializeVersion)
	w.Bytes(v.vram[:])
	w.Bytes(v.cram[:])
	w.Bytes(v.cramLatch[:])
	w.Bytes(v.register[:])
	w.U16(v.addr)
	w.U8(v.addrLatch)
	w.Bool(v.writeLatch)
	w.U8(v.codeReg)
	w.U8(v.readBuffer)
	w.U8(v.ggCRAMByte)
	w.U8(v.status)
	w.U16(v.vCounter)
	w.U8(v.hCounter)
	w.U16(uint16(v.lineCounter))
	w.Bool(v.lineIntPending)
	w.U8(v.hScrollLatch)
	w.U8(v.reg2Latch)
	w.U8(v.reg7Latch)
	w.U8(v.vScrollLatch)
	return nil
}

// Deserialize restores state written by Serialize.
func (v *VDP) Deserialize(buf []byte) error {
	if len(buf) < vdpSerializeSize {
		return errors.New("vdp: deserialize buffer too small")
	}
	r := savestate.NewReader(buf)
	if r.U8() != vdpSerializeVersion {
		return errors.New("vdp: unsupported serialize version")
	}
	r.Bytes(v.vram[:])
	r.Bytes(v.cram[:])
	r.Bytes(v.cramLatch[:])
	r.Bytes(v.register[:])
	v.addr = r.U16() & 0x3FFF
	v.addrLatch = r.U8()
	v.writeLatch = r.Bool()
	v.codeReg = r.U8() & 0x03
	v.readBuffer = r.U8()
	v.ggCRAMByte = r.U8()
	v.status = r.U8()
	v.vCounter = r.U16()
	v.hCounter = r.U8()
	v.lineCounter = int16(r.U16())
	v.lineIntPending = r.Bool()
	v.hScrollLatch = r.U8()
	v.reg2Latch = r.U8()
	v.reg7Latch = r.U8()
	v.vScrollLatch = r.U8()
	v.rebuildPalette()
	return nil
}
