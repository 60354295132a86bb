package emu

// dmaKind selects the DMA operation from reg 23 bits 7:6.
type dmaKind uint8

const (
	dmaFrom68K dmaKind = iota // 68K bus -> VRAM/CRAM/VSRAM
	dmaFill                   // VRAM fill from the next data port write
	dmaCopy                   // VRAM -> VRAM
)

// dmaRates is the DMA throughput in bytes per scanline, indexed by
// [kind][h40][blank]. Blank covers both vertical blanking and a disabled
// display.
var dmaRates = [3][2][2]int{
	dmaFrom68K: {{16, 167}, {18, 205}},
	dmaFill:    {{15, 166}, {17, 204}},
	dmaCopy:    {{8, 83}, {9, 102}},
}

// dmaTransfer describes the DMA most recently started. end is the 68K cycle
// at which the busy flag drops.
type dmaTransfer struct {
	kind   dmaKind
	length uint32 // units moved: words for 68K transfers, bytes otherwise
	start  uint64
	end    uint64
}

// dmaBytesPerLine returns DMA throughput in bytes per scanline.
func (v *VDP) dmaBytesPerLine(kind dmaKind, blank bool) int {
	return dmaRates[kind][boolToInt(v.h40Mode())][boolToInt(blank)]
}

// dmaLength returns the transfer length from regs 19-20 (0 means 0x10000).
func (v *VDP) dmaLength() uint32 {
	length := uint32(v.regs[20])<<8 | uint32(v.regs[19])
	if length == 0 {
		length = 0x10000
	}
	return length
}

func (v *VDP) clearDMALength() {
	v.regs[19] = 0
	v.regs[20] = 0
}

// totalScanlines returns the total scanlines per frame for the current region.
func (v *VDP) totalScanlines() int {
	if v.isPAL {
		return 313
	}
	return 262
}

// linesToCycles converts a byte count at a per-line rate into 68K cycles.
func (v *VDP) linesToCycles(bytes, rate int) int {
	cycles := (bytes / rate) * v.scanlineTotalCycles
	if rem := bytes % rate; rem > 0 {
		cycles += (rem * v.scanlineTotalCycles) / rate
	}
	return cycles
}

// dmaDuration returns how many 68K cycles a DMA of totalBytes takes when
// started on the current line. A transfer that crosses from active display
// into VBlank (or back) is charged at each region's own rate.
func (v *VDP) dmaDuration(totalBytes int, kind dmaKind) int {
	blank := v.vBlank || !v.displayEnabled()
	rate := v.dmaBytesPerLine(kind, blank)
	if v.scanlineTotalCycles <= 0 {
		return 0
	}

	// Lines left before the rate changes. With the display off the rate
	// never changes, but the boundary still splits the same way.
	var linesAtRate int
	otherBlank := true
	if v.vBlank {
		linesAtRate = v.totalScanlines() - v.currentLine
		otherBlank = !v.displayEnabled()
	} else {
		linesAtRate = v.ActiveHeight() - v.currentLine
	}

	bytesAtRate := linesAtRate * rate
	if totalBytes <= bytesAtRate {
		return v.linesToCycles(totalBytes, rate)
	}
	return linesAtRate*v.scanlineTotalCycles +
		v.linesToCycles(totalBytes-bytesAtRate, v.dmaBytesPerLine(kind, otherBlank))
}

func (v *VDP) beginDMA(cycle uint64, kind dmaKind, length uint32, bytes int) {
	v.dma = dmaTransfer{
		kind:   kind,
		length: length,
		start:  cycle,
		end:    cycle + uint64(v.dmaDuration(bytes, kind)),
	}
}

// DMABusy reports whether the DMA started last is still running at cycle.
// Cycle 0 comes from untimed accesses and never reports busy.
func (v *VDP) DMABusy(cycle uint64) bool {
	return cycle > 0 && cycle < v.dma.end
}

// executeDMA dispatches DMA based on reg 23 bits 7:6.
func (v *VDP) executeDMA(cycle uint64) {
	if !v.dmaEnabled() {
		return
	}

	switch v.regs[23] >> 6 {
	case 0, 1:
		v.executeDMA68K(cycle)
	case 2:
		// The fill starts on the next data port write.
		v.dmaFillPending = true
	case 3:
		v.executeDMACopy(cycle)
	}
}

// writeTarget stores one word at the current address in the memory selected
// by the access code. Used by both the data port and 68K DMA.
func (v *VDP) writeTarget(cycle uint64, val uint16) {
	switch v.code & 0x0F {
	case 0x01: // VRAM
		addr := v.address
		if addr&1 != 0 {
			// Odd address: byte-swapped into the word-aligned address
			addr &^= 1
			val = val<<8 | val>>8
		}
		v.vram[addr] = uint8(val >> 8)
		v.vram[addr+1] = uint8(val)
	case 0x03: // CRAM, 128 bytes
		addr := uint8(v.address) & 0x7E
		hi := uint8(val>>8) & 0x0E
		lo := uint8(val) & 0xEE
		v.cram[addr] = hi
		v.cram[addr+1] = lo
		v.cramChanges = append(v.cramChanges, cramChange{
			pixelX: v.cycleToPixel(cycle),
			addr:   addr,
			hi:     hi,
			lo:     lo,
		})
	case 0x05: // VSRAM, 80 bytes
		addr := int(v.address & 0x7E)
		if addr >= len(v.vsram) {
			return
		}
		hi := uint8(val>>8) & 0x07
		lo := uint8(val)
		v.vsram[addr] = hi
		v.vsram[addr+1] = lo
		v.vsramChanges = append(v.vsramChanges, vsramChange{
			pixelX: v.cycleToPixel(cycle),
			addr:   addr,
			hi:     hi,
			lo:     lo,
		})
	}
}

// executeDMA68K transfers data from the 68K bus to VDP memory. The copy
// happens at once; the 68K is then held off its bus for the transfer time,
// which the emulator collects through DMAStallCycles.
func (v *VDP) executeDMA68K(cycle uint64) {
	if v.bus == nil {
		return
	}

	length := v.dmaLength()
	v.beginDMA(cycle, dmaFrom68K, length, int(length)*2)
	v.dmaStallCycles += int(v.dma.end - v.dma.start)

	// Source address from regs 21-23 (22-bit word address, shifted left 1)
	source := (uint32(v.regs[23]&0x7F) << 17) | (uint32(v.regs[22]) << 9) | (uint32(v.regs[21]) << 1)

	// Spread the words across the transfer time so mid-line CRAM and
	// VSRAM writes land on the right pixels.
	var cyclesPerWord uint64
	if words := uint64(v.dmaBytesPerLine(dmaFrom68K, v.vBlank || !v.displayEnabled()) / 2); words > 0 {
		cyclesPerWord = uint64(v.scanlineTotalCycles) / words
	}

	inc := v.autoIncrement()
	at := cycle
	for i := uint32(0); i < length; i++ {
		v.writeTarget(at, v.bus.ReadWord(source&0xFFFFFF))
		v.address += inc
		// The source wraps within a 128KB block.
		source = (source & 0xFE0000) | ((source + 2) & 0x01FFFF)
		at += cyclesPerWord
	}

	source >>= 1
	v.regs[21] = uint8(source)
	v.regs[22] = uint8(source >> 8)
	v.regs[23] = (v.regs[23] & 0x80) | uint8(source>>16)&0x7F
	v.clearDMALength()
}

// executeDMAFill fills VRAM with the high byte of the written value.
// Called after the initial word has been written through normal WriteData routing.
func (v *VDP) executeDMAFill(cycle uint64, val uint16) {
	v.dmaFillPending = false

	length := v.dmaLength()
	v.beginDMA(cycle, dmaFill, length, int(length))

	fill := uint8(val >> 8)
	inc := v.autoIncrement()
	for i := uint32(0); i < length; i++ {
		v.vram[v.address^1] = fill
		v.address += inc
	}
	v.clearDMALength()
}

// executeDMACopy copies bytes within VRAM. The source advances by one,
// the destination by the auto-increment.
func (v *VDP) executeDMACopy(cycle uint64) {
	length := v.dmaLength()
	v.beginDMA(cycle, dmaCopy, length, int(length))

	source := uint16(v.regs[22])<<8 | uint16(v.regs[21])
	inc := v.autoIncrement()
	for i := uint32(0); i < length; i++ {
		v.vram[v.address] = v.vram[source]
		source++
		v.address += inc
	}

	v.regs[21] = uint8(source)
	v.regs[22] = uint8(source >> 8)
	v.clearDMALength()
}
