package emu

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// layerPixel holds one layer's result for one pixel position.
type layerPixel struct {
	colorIndex uint8 // 0 = transparent
	palette    uint8 // palette line 0-3
	priority   bool  // tile/sprite priority bit
}

func (p layerPixel) opaque() bool { return p.colorIndex != 0 }

func (p layerPixel) cramIndex() uint8 { return p.palette*16 + p.colorIndex }

// brightness levels for shadow/highlight mode
const (
	brightnessShadow = iota
	brightnessNormal
	brightnessHighlight
)

// expand3 widens a 3-bit color component to 8 bits.
func expand3(c uint8) uint8 {
	return (c << 5) | (c << 2) | (c >> 1)
}

// cramColor converts a CRAM color index (0-63) to R, G, B values.
// CRAM stores big-endian words. Format: 0000BBB0 GGG0RRR0
func (v *VDP) cramColor(index uint8) (r, g, b uint8) {
	idx := int(index&0x3F) * 2
	hi := v.cram[idx]
	lo := v.cram[idx+1]
	return expand3((lo >> 1) & 0x07), expand3((lo >> 5) & 0x07), expand3((hi >> 1) & 0x07)
}

// cramColorLevel applies a shadow/highlight brightness to a CRAM color.
// Shadow halves each component; highlight adds half of full scale.
func (v *VDP) cramColorLevel(index uint8, level int) (r, g, b uint8) {
	r, g, b = v.cramColor(index)
	switch level {
	case brightnessShadow:
		return r >> 1, g >> 1, b >> 1
	case brightnessHighlight:
		return highlight(r), highlight(g), highlight(b)
	}
	return r, g, b
}

func highlight(c uint8) uint8 {
	if c >= 127 {
		return 255
	}
	return c + 128
}

func (v *VDP) putPixel(line, x int, r, g, b uint8) {
	p := line*v.framebuffer.Stride + x*4
	pix := v.framebuffer.Pix
	pix[p] = r
	pix[p+1] = g
	pix[p+2] = b
	pix[p+3] = 0xFF
}

func (v *VDP) backdropIndex() uint8 {
	pal, idx := v.backdropColor()
	return pal*16 + idx
}

// fillBackdrop fills a framebuffer row from x to the right edge with the
// backdrop color at the given brightness.
func (v *VDP) fillBackdrop(line, x, level int) {
	r, g, b := v.cramColorLevel(v.backdropIndex(), level)
	for ; x < ScreenWidth; x++ {
		v.putPixel(line, x, r, g, b)
	}
}

// resolvePixel picks the visible layer for one pixel:
//
//  1. High-priority sprite
//  2. High-priority Plane A/Window
//  3. High-priority Plane B
//  4. Low-priority sprite
//  5. Low-priority Plane A/Window
//  6. Low-priority Plane B
//  7. Backdrop
//
// The returned level is only meaningful with shadow/highlight enabled.
func (v *VDP) resolvePixel(spr, a, b layerPixel) (uint8, int) {
	switch {
	case spr.priority && spr.opaque():
		return spr.cramIndex(), brightnessNormal
	case a.priority && a.opaque():
		return a.cramIndex(), brightnessNormal
	case b.priority && b.opaque():
		return b.cramIndex(), brightnessNormal
	case spr.opaque():
		// Palette 3 colors 14 and 15 are operators in shadow/highlight
		// mode: they are not drawn but highlight (14) or shadow (15) the
		// pixel beneath.
		if spr.palette == 3 && spr.colorIndex >= 14 {
			under := v.backdropIndex()
			switch {
			case a.opaque():
				under = a.cramIndex()
			case b.opaque():
				under = b.cramIndex()
			}
			if spr.colorIndex == 14 {
				return under, brightnessHighlight
			}
			return under, brightnessShadow
		}
		if spr.palette == 3 {
			return spr.cramIndex(), brightnessNormal
		}
		return spr.cramIndex(), brightnessShadow
	case a.opaque():
		return a.cramIndex(), brightnessShadow
	case b.opaque():
		return b.cramIndex(), brightnessShadow
	}
	return v.backdropIndex(), brightnessShadow
}

// compositeRange composites pixels from startX to endX (exclusive) using current CRAM.
func (v *VDP) compositeRange(line, startX, endX int) {
	sh := v.shadowHighlightMode()
	for x := startX; x < endX; x++ {
		var idx uint8
		var level int
		switch {
		case x < 8 && v.leftColumnBlank():
			idx, level = v.backdropIndex(), brightnessNormal
			if sh {
				level = brightnessShadow
			}
		case sh:
			idx, level = v.resolvePixel(v.lineBufSpr[x], v.lineBufA[x], v.lineBufB[x])
		default:
			idx, level = v.resolvePlain(v.lineBufSpr[x], v.lineBufA[x], v.lineBufB[x])
		}
		r, g, b := v.cramColorLevel(idx, level)
		v.putPixel(line, x, r, g, b)
	}
}

// resolvePlain is resolvePixel without shadow/highlight operators.
func (v *VDP) resolvePlain(spr, a, b layerPixel) (uint8, int) {
	for _, p := range [...]layerPixel{spr, a, b} {
		if p.priority && p.opaque() {
			return p.cramIndex(), brightnessNormal
		}
	}
	for _, p := range [...]layerPixel{spr, a, b} {
		if p.opaque() {
			return p.cramIndex(), brightnessNormal
		}
	}
	return v.backdropIndex(), brightnessNormal
}

// compositeScanline composites all layer buffers into the framebuffer for one scanline.
// When CRAM changes occurred mid-scanline, it renders in segments with the correct
// CRAM state for each pixel range.
func (v *VDP) compositeScanline(line int) {
	width := v.activeWidth()
	if len(v.cramChanges) == 0 {
		v.compositeRange(line, 0, width)
		v.fillBorder(line)
		return
	}

	// Rewind CRAM to the state before the 68K ran on this line, then
	// replay each write at the pixel it landed on.
	savedCRAM := v.cram
	v.cram = v.cramSnapshot

	startX := 0
	for _, c := range v.cramChanges {
		if c.pixelX > startX && startX < width {
			endX := min(c.pixelX, width)
			v.compositeRange(line, startX, endX)
			startX = endX
		}
		v.cram[c.addr] = c.hi
		v.cram[c.addr+1] = c.lo
	}
	if startX < width {
		v.compositeRange(line, startX, width)
	}

	v.fillBorder(line)
	v.cram = savedCRAM
}

// fillBorder fills pixels beyond the active width with the backdrop color.
func (v *VDP) fillBorder(line int) {
	if width := v.activeWidth(); width < ScreenWidth {
		level := brightnessNormal
		if v.shadowHighlightMode() {
			level = brightnessShadow
		}
		v.fillBackdrop(line, width, level)
	}
}

// stretchScanline stretches srcWidth pixels to fill ScreenWidth in the framebuffer.
// Works right-to-left so source pixels are not overwritten before being read.
func (v *VDP) stretchScanline(line, srcWidth int) {
	pix := v.framebuffer.Pix
	offset := line * v.framebuffer.Stride

	for dx := ScreenWidth - 1; dx >= 0; dx-- {
		sp := offset + (dx*srcWidth/ScreenWidth)*4
		dp := offset + dx*4
		copy(pix[dp:dp+4], pix[sp:sp+4])
	}
}

// RenderScanline renders a single scanline into the framebuffer.
func (v *VDP) RenderScanline(line int) {
	// In interlace mode 2 each field draws every other framebuffer row and
	// tiles are 16 rows tall, so fetches use the field-doubled line.
	fetchLine := line
	fbLine := line
	if v.interlaceDoubleRes() {
		fetchLine = line*2 + boolToInt(v.oddField)
		fbLine = fetchLine
	}

	if fbLine < 0 || fbLine >= MaxScreenHeight {
		return
	}

	if !v.displayEnabled() {
		v.fillBackdrop(fbLine, 0, brightnessNormal)
		return
	}

	width := v.activeWidth()
	clear(v.lineBufSpr[:width])

	v.renderPlaneB(line, fetchLine)
	v.renderPlaneAAndWindow(line, fetchLine)
	v.renderSprites(fetchLine)

	v.compositeScanline(fbLine)

	// H32's slower pixel clock makes each pixel physically wider, filling
	// the same CRT width as H40's 320 pixels.
	if width < ScreenWidth {
		v.stretchScanline(fbLine, width)
	}
}
