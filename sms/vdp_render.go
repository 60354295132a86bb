package sms

type spriteInfo struct {
	x       int
	pattern uint8
	line    int // row within the sprite, after zoom
}

// RenderScanline draws the current line into the framebuffer.
func (v *VDP) RenderScanline() {
	line := int(v.vCounter)
	if line >= v.ActiveHeight() {
		return
	}

	backdrop := v.palette[16+v.reg7Latch&0x0F]
	if v.register[1]&0x40 == 0 {
		for x := 0; x < ScreenWidth; x++ {
			v.framebuffer.SetRGBA(x, line, backdrop)
		}
		return
	}

	v.bgPriority = [ScreenWidth]bool{}
	v.renderBackground(line)
	v.renderSprites(line)

	if v.LeftColumnBlankEnabled() {
		for x := 0; x < 8; x++ {
			v.framebuffer.SetRGBA(x, line, backdrop)
		}
	}
}

// tilePixel decodes one 4bpp pixel from the pattern row at addr.
func (v *VDP) tilePixel(addr uint16, px int) uint8 {
	shift := uint(7 - px)
	bp0 := v.vram[addr&0x3FFF]
	bp1 := v.vram[(addr+1)&0x3FFF]
	bp2 := v.vram[(addr+2)&0x3FFF]
	bp3 := v.vram[(addr+3)&0x3FFF]
	return (bp0>>shift)&1 |
		(bp1>>shift)&1<<1 |
		(bp2>>shift)&1<<2 |
		(bp3>>shift)&1<<3
}

func (v *VDP) renderBackground(line int) {
	active := v.ActiveHeight()

	// The name table base loses bit 1 and moves up by $700 in the tall
	// modes.
	var nameTable uint16
	if active == 192 {
		nameTable = uint16(v.reg2Latch&0x0E) << 10
	} else {
		nameTable = uint16(v.reg2Latch&0x0C)<<10 | 0x0700
	}

	topRowLock := v.register[0]&0x40 != 0
	rightColLock := v.register[0]&0x80 != 0

	for x := 0; x < ScreenWidth; x++ {
		hScroll := v.hScrollLatch
		vScroll := v.vScrollLatch
		if topRowLock && line < 16 {
			hScroll = 0
		}
		if rightColLock && x >= 192 {
			vScroll = 0
		}

		// 28 rows in the 192 line mode, 32 in the tall modes.
		y := line + int(vScroll)
		if active == 192 {
			y %= 224
		} else {
			y &= 0xFF
		}
		sx := (x - int(hScroll)) & 0xFF

		entryAddr := nameTable + uint16((y/8)*32+sx/8)*2
		lo := v.vram[entryAddr&0x3FFF]
		hi := v.vram[(entryAddr+1)&0x3FFF]

		pattern := uint16(lo) | uint16(hi&0x01)<<8
		row := y % 8
		if hi&0x04 != 0 {
			row = 7 - row
		}
		px := sx % 8
		if hi&0x02 != 0 {
			px = 7 - px
		}
		palette := (hi & 0x08) << 1
		priority := hi&0x10 != 0

		c := v.tilePixel(pattern*32+uint16(row)*4, px)
		v.framebuffer.SetRGBA(x, line, v.palette[palette+c])
		if priority && c != 0 {
			v.bgPriority[x] = true
		}
	}
}

func (v *VDP) renderSprites(line int) {
	satBase := uint16(v.register[5]&0x7E) << 7
	patternBase := uint16(v.register[6]&0x04) << 11

	height := 8
	if v.register[1]&0x02 != 0 {
		height = 16
	}
	zoomShift := 0
	if v.register[1]&0x01 != 0 {
		zoomShift = 1
	}
	shift := 0
	if v.register[0]&0x08 != 0 {
		shift = 8
	}
	active := v.ActiveHeight()

	count := 0
	for i := 0; i < 64; i++ {
		y := int(v.vram[(satBase+uint16(i))&0x3FFF])
		// $D0 ends the list only in the 192 line mode.
		if active == 192 && y == 0xD0 {
			break
		}
		// Y wraps so sprites can enter from the top.
		top := y + 1
		if top > 0xF0 {
			top -= 0x100
		}
		if line < top || line >= top+height<<zoomShift {
			continue
		}
		if count == 8 {
			v.status |= 0x40
			if !v.unlimitedSprites {
				break
			}
		}

		attr := satBase + 0x80 + uint16(i)*2
		pattern := v.vram[(attr+1)&0x3FFF]
		if height == 16 {
			pattern &= 0xFE
		}
		v.lineSprites[count] = spriteInfo{
			x:       int(v.vram[attr&0x3FFF]) - shift,
			pattern: pattern,
			line:    (line - top) >> zoomShift,
		}
		count++
	}

	v.spritePixels = [ScreenWidth]bool{}
	// Lower numbered sprites win, so draw them last.
	for i := count - 1; i >= 0; i-- {
		spr := v.lineSprites[i]
		pattern := uint16(spr.pattern)
		row := spr.line
		if row >= 8 {
			pattern++
			row -= 8
		}
		addr := patternBase + pattern*32 + uint16(row)*4

		for px := 0; px < 8<<zoomShift; px++ {
			sx := spr.x + px
			if sx < 0 || sx >= ScreenWidth {
				continue
			}
			c := v.tilePixel(addr, px>>zoomShift)
			if c == 0 {
				continue
			}
			if v.spritePixels[sx] {
				v.status |= 0x20
			}
			v.spritePixels[sx] = true
			if v.bgPriority[sx] {
				continue
			}
			v.framebuffer.SetRGBA(sx, line, v.palette[16+c])
		}
	}
}
