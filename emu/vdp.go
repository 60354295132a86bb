package emu

import "image"

const (
	ScreenWidth         = 320
	DefaultScreenHeight = 224
	MaxScreenHeight     = 480
)

// BusReader provides word-level read access to the 68K bus for DMA transfers.
type BusReader interface {
	ReadWord(addr uint32) uint16
}

// cramChange records a CRAM write that occurred during active display.
type cramChange struct {
	pixelX int   // pixel position (0-319)
	addr   uint8 // CRAM byte address (always even, 0-126)
	hi     uint8
	lo     uint8
}

// vsramChange records a VSRAM write that occurred during active display.
type vsramChange struct {
	pixelX int // pixel position when write occurred
	addr   int // VSRAM byte address (even, 0-78)
	hi     uint8
	lo     uint8
}

// Status register bits.
const (
	statusFIFOEmpty  = 1 << 9
	statusVInt       = 1 << 7
	statusOverflow   = 1 << 6
	statusCollision  = 1 << 5
	statusOddField   = 1 << 4
	statusVBlank     = 1 << 3
	statusHBlank     = 1 << 2
	statusDMABusy    = 1 << 1
	statusPAL        = 1 << 0
	statusFixedUpper = 0x3400 // bits 15:10 read back as 001101
)

// activeFraction is the share of a scanline, in percent, spent drawing
// pixels. The rest is horizontal blanking.
const activeFraction = 73

// VDP is the Genesis Video Display Processor.
type VDP struct {
	vram  [0x10000]uint8 // 64KB VRAM
	cram  [128]uint8     // 64 color entries x 2 bytes (9-bit color)
	vsram [80]uint8      // 40 scroll entries x 2 bytes

	regs [24]uint8

	// Control port state machine
	writePending bool
	code         uint8  // CD5-CD0
	address      uint16 // VRAM/CRAM/VSRAM address
	readBuffer   uint16 // pre-fetch buffer for data reads

	// Status
	vIntPending      bool
	hIntPending      bool
	spriteOverflow   bool
	spriteCollision  bool
	vBlank           bool
	hBlank           bool
	dma              dmaTransfer
	dmaStallCycles   int   // 68K cycles owed to a 68K->VDP DMA, collected by the emulator
	assertedIntLevel uint8 // interrupt level asserted by a register write (0 = none)

	// Counters
	vCounter     uint16
	hCounter     uint8
	currentLine  int
	hvLatched    bool
	hvLatchValue uint16

	hIntCounter    int  // reloaded from reg 10
	dmaFillPending bool // waiting for a data port write to start a fill

	oddField bool // toggles each frame for interlace modes
	isPAL    bool

	unlimitedSprites bool

	bus BusReader

	framebuffer *image.RGBA

	// Scanline layer buffers, reused each line
	lineBufB   [320]layerPixel
	lineBufA   [320]layerPixel
	lineBufSpr [320]layerPixel

	// Mid-scanline CRAM/VSRAM tracking: the state when the line began and
	// every write made while the 68K ran through it.
	cramSnapshot        [128]uint8
	cramChanges         []cramChange
	vsramSnapshot       [80]uint8
	vsramChanges        []vsramChange
	scanlineStartCycle  uint64
	scanlineTotalCycles int
}

// NewVDP creates a new VDP.
func NewVDP(isPAL bool) *VDP {
	return &VDP{
		isPAL:       isPAL,
		framebuffer: image.NewRGBA(image.Rect(0, 0, ScreenWidth, MaxScreenHeight)),
	}
}

// SetBus sets the bus reader for DMA transfers.
// Called after GenesisBus is created due to circular construction dependency.
func (v *VDP) SetBus(bus BusReader) {
	v.bus = bus
}

// SetPAL selects PAL or NTSC frame geometry.
func (v *VDP) SetPAL(pal bool) {
	v.isPAL = pal
}

// SetSpriteLimit enables (the default) or removes the per-line sprite caps.
func (v *VDP) SetSpriteLimit(enabled bool) {
	v.unlimitedSprites = !enabled
}

// DMAStallCycles returns and clears the 68K stall cycles from a
// 68K->VDP DMA. The emulator hands them to the bus arbiter.
func (v *VDP) DMAStallCycles() int {
	n := v.dmaStallCycles
	v.dmaStallCycles = 0
	return n
}

// TakeAssertedInterrupt returns and clears any interrupt level asserted
// by a VDP register write (e.g., enabling V-int while V-int is pending).
// Taking the interrupt acknowledges it, as the 68K IACK cycle would.
func (v *VDP) TakeAssertedInterrupt() uint8 {
	level := v.assertedIntLevel
	v.assertedIntLevel = 0
	switch level {
	case 6:
		v.vIntPending = false
	case 4:
		v.hIntPending = false
	}
	return level
}

// AcknowledgeVInt clears vIntPending, matching the interrupt acknowledge
// cycle, so re-enabling V-int inside the handler does not re-trigger.
func (v *VDP) AcknowledgeVInt() {
	v.vIntPending = false
}

// --- Register helpers ---

func (v *VDP) displayEnabled() bool        { return v.regs[1]&0x40 != 0 }
func (v *VDP) vIntEnabled() bool           { return v.regs[1]&0x20 != 0 }
func (v *VDP) dmaEnabled() bool            { return v.regs[1]&0x10 != 0 }
func (v *VDP) v30Mode() bool               { return v.regs[1]&0x08 != 0 }
func (v *VDP) hIntEnabled() bool           { return v.regs[0]&0x10 != 0 }
func (v *VDP) leftColumnBlank() bool       { return v.regs[0]&0x20 != 0 }
func (v *VDP) hvCounterLatchEnabled() bool { return v.regs[0]&0x02 != 0 }
func (v *VDP) h40Mode() bool               { return v.regs[12]&0x01 != 0 }
func (v *VDP) shadowHighlightMode() bool   { return v.regs[12]&0x08 != 0 }
func (v *VDP) autoIncrement() uint16       { return uint16(v.regs[15]) }

func (v *VDP) backdropColor() (palette uint8, index uint8) {
	return (v.regs[7] >> 4) & 0x03, v.regs[7] & 0x0F
}

// ActiveHeight returns the active display height: 240 lines in V30 mode,
// otherwise 224.
func (v *VDP) ActiveHeight() int {
	if v.v30Mode() {
		return 240
	}
	return 224
}

// ActiveWidth returns the current active display width based on H40/H32 mode.
func (v *VDP) ActiveWidth() int {
	return v.activeWidth()
}

func (v *VDP) activeWidth() int {
	if v.h40Mode() {
		return 320
	}
	return 256
}

// interlaceMode returns the interlace mode from reg 12 bits 2:1.
// 0 = no interlace, 1 = interlace normal, 2 = invalid, 3 = interlace double-res.
func (v *VDP) interlaceMode() int {
	return int((v.regs[12] >> 1) & 0x03)
}

func (v *VDP) interlaceDoubleRes() bool {
	return v.interlaceMode() == 3
}

// tileSize returns the tile size in bytes (64 in interlace double-res).
func (v *VDP) tileSize() uint16 {
	if v.interlaceDoubleRes() {
		return 64
	}
	return 32
}

// tileRows returns the number of pixel rows per tile (16 in interlace double-res).
func (v *VDP) tileRows() int {
	if v.interlaceDoubleRes() {
		return 16
	}
	return 8
}

// RenderHeight returns the framebuffer render height. Double in interlace mode 2.
func (v *VDP) RenderHeight() int {
	if v.interlaceDoubleRes() {
		return v.ActiveHeight() * 2
	}
	return v.ActiveHeight()
}

// BeginScanline snapshots CRAM/VSRAM and resets change tracking for mid-scanline writes.
// Called at the start of each scanline before M68K runs.
func (v *VDP) BeginScanline(startCycle uint64, totalCycles int) {
	v.cramSnapshot = v.cram
	v.cramChanges = v.cramChanges[:0]
	v.vsramSnapshot = v.vsram
	v.vsramChanges = v.vsramChanges[:0]
	v.scanlineStartCycle = startCycle
	v.scanlineTotalCycles = totalCycles
}

// lineOffset returns how far into the current scanline cycle is, and the
// cycle at which HBlank starts.
func (v *VDP) lineOffset(cycle uint64) (relative, activeEnd int) {
	if cycle <= v.scanlineStartCycle {
		relative = 0
	} else {
		relative = int(cycle - v.scanlineStartCycle)
	}
	return relative, (v.scanlineTotalCycles * activeFraction) / 100
}

// cycleToPixel maps a CPU cycle to a pixel position within the current scanline.
func (v *VDP) cycleToPixel(cycle uint64) int {
	relative, activeEnd := v.lineOffset(cycle)
	width := v.activeWidth()
	if relative >= activeEnd {
		return width - 1
	}
	return (relative * width) / activeEnd
}

// isHBlankAtCycle reports whether cycle falls in the HBlank portion of the
// current scanline.
func (v *VDP) isHBlankAtCycle(cycle uint64) bool {
	if v.scanlineTotalCycles == 0 {
		return v.hBlank
	}
	if cycle < v.scanlineStartCycle {
		return false
	}
	relative, activeEnd := v.lineOffset(cycle)
	return relative >= activeEnd
}

// --- Control port ---

// WriteControl writes to the VDP control port.
func (v *VDP) WriteControl(cycle uint64, val uint16) {
	// A register write is recognised even in the middle of a two-word
	// command, and cancels it.
	if val&0xC000 == 0x8000 {
		v.writeRegister(uint8(val>>8)&0x1F, uint8(val))
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.writePending = false
		return
	}

	if !v.writePending {
		v.writePending = true
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.address = (v.address & 0xC000) | (val & 0x3FFF)
		return
	}

	v.writePending = false
	v.code = (v.code & 0x03) | (uint8(val>>2) & 0x3C)
	v.address = (v.address & 0x3FFF) | ((val & 0x03) << 14)

	// CD5 set with DMA enabled starts a transfer
	if v.code&0x20 != 0 && v.dmaEnabled() {
		v.executeDMA(cycle)
		return
	}

	if v.code&0x01 == 0 {
		v.prefetch()
	}
}

// ReadControl returns the VDP status register.
// Reading the status register clears writePending, the V-int flag and the
// sprite flags.
func (v *VDP) ReadControl(cycle uint64) uint16 {
	status := uint16(statusFixedUpper | statusFIFOEmpty)
	flags := []struct {
		set bool
		bit uint16
	}{
		{v.vIntPending, statusVInt},
		{v.spriteOverflow, statusOverflow},
		{v.spriteCollision, statusCollision},
		{v.oddField && v.interlaceMode() != 0, statusOddField},
		{v.vBlank, statusVBlank},
		{v.hBlank || v.isHBlankAtCycle(cycle), statusHBlank},
		{v.DMABusy(cycle), statusDMABusy},
		{v.isPAL, statusPAL},
	}
	for _, f := range flags {
		if f.set {
			status |= f.bit
		}
	}

	v.writePending = false
	v.vIntPending = false
	v.spriteOverflow = false
	v.spriteCollision = false
	return status
}

// writeRegister writes a value to a VDP register with bounds checking.
func (v *VDP) writeRegister(reg uint8, data uint8) {
	if reg >= 24 {
		return
	}
	old := v.regs[reg]

	// Clearing reg 0 bit 1 releases the HV latch
	if reg == 0 && old&0x02 != 0 && data&0x02 == 0 {
		v.hvLatched = false
	}
	v.regs[reg] = data

	// The interrupt lines are the AND of pending and enabled, so enabling
	// an interrupt that is already pending asserts it at once.
	switch {
	case reg == 1 && old&0x20 == 0 && data&0x20 != 0 && v.vIntPending:
		v.assertedIntLevel = 6
	case reg == 0 && old&0x10 == 0 && data&0x10 != 0 && v.hIntPending:
		if v.assertedIntLevel < 4 {
			v.assertedIntLevel = 4
		}
	}
}

// --- Data port ---

// WriteData writes to the VDP data port.
func (v *VDP) WriteData(cycle uint64, val uint16) {
	v.writePending = false

	// A pending fill lets this write through normally, then fills.
	startFill := v.dmaFillPending

	v.writeTarget(cycle, val)
	v.address += v.autoIncrement()

	if startFill {
		v.executeDMAFill(cycle, val)
	}
}

// ReadData reads from the VDP data port.
// Returns the pre-fetched value, then fetches the next value.
func (v *VDP) ReadData() uint16 {
	v.writePending = false
	result := v.readBuffer
	v.prefetch()
	return result
}

// prefetch reads the next value into readBuffer based on current code and address.
func (v *VDP) prefetch() {
	switch v.code & 0x0F {
	case 0x00: // VRAM
		v.readBuffer = v.vramWord(v.address)
	case 0x04: // VSRAM
		if addr := int(v.address & 0x7E); addr < len(v.vsram) {
			v.readBuffer = uint16(v.vsram[addr])<<8 | uint16(v.vsram[addr+1])
		} else {
			v.readBuffer = 0
		}
	case 0x08: // CRAM
		addr := v.address & 0x7E
		v.readBuffer = uint16(v.cram[addr])<<8 | uint16(v.cram[addr+1])
	case 0x0C: // VRAM 8-bit
		v.readBuffer = uint16(v.vram[v.address^1])
	default:
		v.readBuffer = 0
	}
	v.address += v.autoIncrement()
}

// --- HV Counter ---

// formatHVCounter formats the V and H counter values into the 16-bit HV counter
// readout, applying interlace mode bit rearrangement.
//
// Non-interlace:    V[7:0] | H[7:0]
// Interlace normal: V[7:1]:V[8] | H[7:0]  (9-bit V = vCounter | oddField<<8)
// Interlace double: V[7:1]:V[8] | H[7:0]  (9-bit V = vCounter*2 + oddField)
func (v *VDP) formatHVCounter(h uint8) uint16 {
	vc := v.vCounter & 0xFF
	switch v.interlaceMode() {
	case 1:
		if v.oddField {
			vc |= 0x100
		}
		vc = (vc & 0xFE) | ((vc >> 8) & 1)
	case 3:
		vc = vc*2 | uint16(boolToInt(v.oddField))
		vc = (vc & 0xFE) | ((vc >> 8) & 1)
	}
	return vc<<8 | uint16(h)
}

// ReadHVCounter returns the HV counter value.
func (v *VDP) ReadHVCounter() uint16 {
	if v.hvLatched {
		return v.hvLatchValue
	}
	return v.formatHVCounter(v.hCounter)
}

// ReadHVCounterAtCycle returns the HV counter with H computed from the given CPU cycle.
func (v *VDP) ReadHVCounterAtCycle(cycle uint64) uint16 {
	if v.hvLatched {
		return v.hvLatchValue
	}
	return v.formatHVCounter(v.hCounterFromCycle(cycle))
}

// hCounterRanges returns the last active and the first HBlank H counter
// values for the current display mode.
//
//	H32: active $00-$93, HBlank $E9-$FF
//	H40: active $00-$B6, HBlank $E4-$FF
func (v *VDP) hCounterRanges() (activeEnd, hblankStart int) {
	if v.h40Mode() {
		return 0xB6, 0xE4
	}
	return 0x93, 0xE9
}

// hPosition maps a cycle offset within a scanline of totalCycles to the H
// counter. The counter runs linearly through the active range, then jumps
// to the HBlank range.
func (v *VDP) hPosition(relative, totalCycles int) uint8 {
	activeEnd, hblankStart := v.hCounterRanges()
	boundary := (totalCycles * activeFraction) / 100
	if relative < boundary {
		return uint8((relative * activeEnd) / boundary)
	}
	hblankTotal := totalCycles - boundary
	if hblankTotal <= 0 {
		return uint8(hblankStart)
	}
	return uint8(hblankStart) + uint8(((relative-boundary)*(0xFF-hblankStart))/hblankTotal)
}

// hCounterFromCycle computes the H counter value from the CPU cycle position
// within the current scanline.
func (v *VDP) hCounterFromCycle(cycle uint64) uint8 {
	if v.scanlineTotalCycles == 0 {
		return v.hCounter
	}
	if cycle < v.scanlineStartCycle {
		return 0
	}
	return v.hPosition(int(cycle-v.scanlineStartCycle), v.scanlineTotalCycles)
}

// UpdateHCounter sets the stored H counter from the cycles elapsed in the
// current scanline.
func (v *VDP) UpdateHCounter(cycleInScanline, totalCycles int) {
	if totalCycles <= 0 {
		return
	}
	v.hCounter = v.hPosition(cycleInScanline, totalCycles)
}

// LatchHVCounter captures the current HV counter value if latch mode is enabled.
func (v *VDP) LatchHVCounter() {
	if v.hvCounterLatchEnabled() {
		v.hvLatchValue = v.formatHVCounter(v.hCounter)
		v.hvLatched = true
	}
}

// vCounterValue maps a scanline number to the V counter value, including
// the jump back that keeps the counter within 8 bits.
//
//	NTSC V28: 0-234, then $E5-$FF
//	PAL  V28: 0-258 (wrapping at 256), then $CA-$FF
//	PAL  V30: 0-266 (wrapping at 256), then $D2-$FF
func (v *VDP) vCounterValue(line int) uint16 {
	jumpAt, jumpTo := 235, 0xE5
	if v.isPAL {
		jumpAt, jumpTo = 259, 0xCA
		if v.v30Mode() {
			jumpAt, jumpTo = 267, 0xD2
		}
	}
	if line < jumpAt {
		return uint16(line & 0xFF)
	}
	return uint16(jumpTo + (line - jumpAt))
}

// --- Scanline hooks ---

// StartScanline updates VDP state for the start of a scanline.
// Returns vInt and hInt flags indicating if those interrupts should fire.
func (v *VDP) StartScanline(line int) (vInt, hInt bool) {
	v.currentLine = line
	v.vCounter = v.vCounterValue(line)

	activeHeight := v.ActiveHeight()

	if line == 0 {
		v.vBlank = false
	}

	if line == activeHeight {
		v.vBlank = true
		v.vIntPending = true
		v.oddField = !v.oddField
		vInt = v.vIntEnabled()
	}

	// The H-int counter is loaded from reg 10 at line 0 and on every
	// blanking line. It only counts down on active lines; when it
	// underflows H-int fires and the counter reloads.
	if line == 0 || line >= activeHeight {
		v.hIntCounter = int(v.regs[10])
	}
	if line < activeHeight {
		v.hIntCounter--
		if v.hIntCounter < 0 {
			v.hIntCounter = int(v.regs[10])
			if v.hIntEnabled() {
				hInt = true
			} else {
				v.hIntPending = true
			}
		}
	}

	return vInt, hInt
}

// SetHBlank sets the HBlank flag.
func (v *VDP) SetHBlank(active bool) {
	v.hBlank = active
}

// GetFramebuffer returns the raw RGBA pixel data.
func (v *VDP) GetFramebuffer() []byte {
	return v.framebuffer.Pix
}

// GetStride returns the stride (bytes per row) of the framebuffer.
func (v *VDP) GetStride() int {
	return v.framebuffer.Stride
}
