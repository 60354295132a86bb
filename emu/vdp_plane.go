package emu

// Nametable and sprite attribute word layout:
//
//	bit 15     priority
//	bits 14-13 palette line
//	bit 12     vertical flip
//	bit 11     horizontal flip
//	bits 10-0  tile index
const (
	entryPriority = 0x8000
	entryPalShift = 13
	entryPalMask  = 0x03
	entryVFlip    = 0x1000
	entryHFlip    = 0x0800
	entryTileMask = 0x07FF
)

// decodeTilePixel returns the color index (0-15) for a pixel within a tile.
// tileAddr is the VRAM base address of the tile (tileIndex * tileSize).
// px, py are pixel coordinates within the tile (px: 0-7, py: 0-7 normal or 0-15 interlace).
// hFlip and vFlip apply horizontal/vertical mirroring.
func (v *VDP) decodeTilePixel(tileAddr uint16, px, py int, hFlip, vFlip bool) uint8 {
	if vFlip {
		py = v.tileRows() - 1 - py
	}
	if hFlip {
		px = 7 - px
	}

	// Each row is 4 bytes. Each byte holds 2 pixels (high nibble = left, low nibble = right).
	rowAddr := (tileAddr + uint16(py*4)) & 0xFFFF
	b := v.vram[(rowAddr+uint16(px>>1))&0xFFFF]

	if px&1 == 0 {
		return (b >> 4) & 0x0F
	}
	return b & 0x0F
}

// entryPixel resolves one pixel of the tile named by a nametable entry.
func (v *VDP) entryPixel(entry uint16, px, py int) layerPixel {
	tileAddr := (entry & entryTileMask) * v.tileSize()
	return layerPixel{
		colorIndex: v.decodeTilePixel(tileAddr, px, py, entry&entryHFlip != 0, entry&entryVFlip != 0),
		palette:    uint8(entry>>entryPalShift) & entryPalMask,
		priority:   entry&entryPriority != 0,
	}
}

func (v *VDP) vramWord(addr uint16) uint16 {
	return uint16(v.vram[addr])<<8 | uint16(v.vram[addr+1])
}

// nametableSize returns the nametable dimensions in cells from register 16.
// The reserved setting 2 behaves as 32 cells.
func (v *VDP) nametableSize() (hCells, vCells int) {
	cells := [4]int{32, 64, 32, 128}
	return cells[v.regs[16]&0x03], cells[(v.regs[16]>>4)&0x03]
}

// planeANametable returns the base VRAM address for Plane A's nametable.
func (v *VDP) planeANametable() uint16 {
	return uint16(v.regs[2]&0x38) << 10
}

// planeBNametable returns the base VRAM address for Plane B's nametable.
func (v *VDP) planeBNametable() uint16 {
	return uint16(v.regs[4]&0x07) << 13
}

// hScrollTableBase returns the VRAM base address of the H-scroll table.
func (v *VDP) hScrollTableBase() uint16 {
	return uint16(v.regs[13]&0x3F) << 10
}

// hScrollValues returns the H-scroll values for Plane A and Plane B for the given line.
func (v *VDP) hScrollValues(line int) (hScrollA, hScrollB int) {
	base := v.hScrollTableBase()

	var offset uint16
	switch v.regs[11] & 0x03 {
	case 0x00: // full screen
	case 0x01: // per line, first 8 entries repeated
		offset = uint16(line&7) * 4
	case 0x02: // per cell (every 8 lines)
		offset = uint16(line&^7) * 4
	case 0x03: // per line
		offset = uint16(line) * 4
	}

	addr := (base + offset) & 0xFFFF
	hScrollA = int(v.vramWord(addr))
	hScrollB = int(v.vramWord((addr + 2) & 0xFFFF))

	// Only the low 10 bits are significant (sign-extended from 10-bit)
	hScrollA = (hScrollA&0x3FF ^ 0x200) - 0x200
	hScrollB = (hScrollB&0x3FF ^ 0x200) - 0x200
	return
}

// vScrollValue returns the V-scroll value for the given plane and screen X column.
// planeB: false = Plane A, true = Plane B.
// Uses snapshot + change replay for mid-scanline accuracy when BeginScanline has been called.
func (v *VDP) vScrollValue(screenX int, planeB bool) int {
	perColumn := v.regs[11]&0x04 != 0

	addr := 0
	if perColumn {
		addr = (screenX / 16) * 4
	}
	if planeB {
		addr += 2
	}
	if addr+1 >= len(v.vsram) {
		return 0
	}

	if len(v.vsramChanges) == 0 {
		return int(uint16(v.vsram[addr])<<8 | uint16(v.vsram[addr+1]))
	}

	// Full-screen mode: VDP latches at scanline start
	if !perColumn {
		return int(uint16(v.vsramSnapshot[addr])<<8 | uint16(v.vsramSnapshot[addr+1]))
	}

	// Per-2-cell: replay changes up to column start pixel
	columnPixelX := (screenX / 16) * 16
	hi := v.vsramSnapshot[addr]
	lo := v.vsramSnapshot[addr+1]
	for _, c := range v.vsramChanges {
		if c.pixelX > columnPixelX {
			break
		}
		if c.addr == addr {
			hi = c.hi
			lo = c.lo
		}
	}
	return int(uint16(hi)<<8 | uint16(lo))
}

// planePixel fetches the pixel of a scrolling plane shown at screenX on the
// given (field-adjusted) line.
func (v *VDP) planePixel(ntBase uint16, screenX, line, hScroll int, planeB bool) layerPixel {
	hCells, vCells := v.nametableSize()
	tileRows := v.tileRows()

	// Plane dimensions are powers of two, so masking wraps the plane.
	px := (screenX - hScroll) & (hCells*8 - 1)
	py := (line + v.vScrollValue(screenX, planeB)) & (vCells*tileRows - 1)

	cellX := px >> 3
	cellY := py / tileRows
	ntAddr := (ntBase + uint16((cellY*hCells+cellX)*2)) & 0xFFFF
	return v.entryPixel(v.vramWord(ntAddr&0xFFFE), px&7, py%tileRows)
}

// renderPlaneB fills lineBufB for one scanline. line is the field-adjusted
// line used for tile fetches; screenLine selects the H-scroll entry.
func (v *VDP) renderPlaneB(screenLine, line int) {
	_, hScroll := v.hScrollValues(screenLine)
	base := v.planeBNametable()
	for x := 0; x < v.activeWidth(); x++ {
		v.lineBufB[x] = v.planePixel(base, x, line, hScroll, true)
	}
}

// renderPlaneAAndWindow fills lineBufA. Pixels inside the window region come
// from the window nametable, which does not scroll; the rest from Plane A.
func (v *VDP) renderPlaneAAndWindow(screenLine, line int) {
	hScroll, _ := v.hScrollValues(screenLine)
	base := v.planeANametable()
	for x := 0; x < v.activeWidth(); x++ {
		if v.isWindowPixel(x, screenLine) {
			v.lineBufA[x] = v.getWindowPixel(x, line)
			continue
		}
		v.lineBufA[x] = v.planePixel(base, x, line, hScroll, false)
	}
}
