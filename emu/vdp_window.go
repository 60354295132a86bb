package emu

// isWindowPixel returns whether the given screen position falls within the window region.
// reg 17: H boundary (bit 7 = right side, bits 4:0 = boundary in 16px units)
// reg 18: V boundary (bit 7 = bottom side, bits 4:0 = boundary in 8px units)
func (v *VDP) isWindowPixel(screenX, line int) bool {
	hReg := v.regs[17]
	hBoundary := int(hReg&0x1F) * 16
	vReg := v.regs[18]
	vBoundary := int(vReg&0x1F) * 8

	if hBoundary == 0 && vBoundary == 0 {
		return false
	}

	// A boundary of 0 on one axis leaves the other axis alone in control.
	// With both set the window covers the union.
	inH := hBoundary != 0 && (screenX >= hBoundary) == (hReg&0x80 != 0)
	inV := vBoundary != 0 && (line >= vBoundary) == (vReg&0x80 != 0)
	return inH || inV
}

// windowNametableBase returns the VRAM base address for the Window nametable.
func (v *VDP) windowNametableBase() uint16 {
	if v.h40Mode() {
		// H40: bit 1 is masked out (must be 0 for valid addresses)
		return uint16(v.regs[3]&0x3C) << 10
	}
	return uint16(v.regs[3]&0x3E) << 10
}

// windowNametableWidth returns the width of the window nametable in cells.
func (v *VDP) windowNametableWidth() int {
	if v.h40Mode() {
		return 64
	}
	return 32
}

// getWindowPixel returns the pixel from the Window nametable at the given screen position.
// The window has no scrolling - screen position maps directly to nametable cells.
func (v *VDP) getWindowPixel(screenX, line int) layerPixel {
	tileRows := v.tileRows()
	cellX := screenX >> 3
	cellY := line / tileRows

	ntAddr := (v.windowNametableBase() + uint16(cellY*v.windowNametableWidth()+cellX)*2) & 0xFFFF
	return v.entryPixel(v.vramWord(ntAddr), screenX&7, line%tileRows)
}
