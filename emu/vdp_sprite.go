package emu

// spriteLimits holds the per-line hardware caps for one horizontal mode.
type spriteLimits struct {
	perLine int // sprites per line
	pixels  int // sprite pixels per line
	total   int // sprites in the attribute table
}

var (
	spriteLimitsH40 = spriteLimits{perLine: 20, pixels: 320, total: 80}
	spriteLimitsH32 = spriteLimits{perLine: 16, pixels: 256, total: 64}
)

// satEntry is one decoded Sprite Attribute Table entry.
type satEntry struct {
	y      int // raw 10-bit Y
	hCells int
	vCells int
	link   uint8
	attr   uint16
	x      int // raw 9-bit X
}

func (v *VDP) readSATEntry(satBase uint16, index int) satEntry {
	addr := (satBase + uint16(index)*8) & 0xFFFF
	sizeLink := v.vram[(addr+2)&0xFFFF]
	return satEntry{
		y:      int(v.vramWord(addr)) & 0x03FF,
		hCells: int((sizeLink>>2)&0x03) + 1,
		vCells: int(sizeLink&0x03) + 1,
		link:   v.vram[(addr+3)&0xFFFF] & 0x7F,
		attr:   v.vramWord((addr + 4) & 0xFFFF),
		x:      int(v.vramWord((addr+6)&0xFFFF)) & 0x01FF,
	}
}

// renderSprites renders all sprites that intersect the given scanline into lineBufSpr.
// Sprites are traversed in link-list order from the SAT (Sprite Attribute Table).
// line is field-adjusted in interlace mode 2.
//
// When the sprite limit is disabled the overflow flag is still raised as the
// hardware would, but every sprite on the line is drawn.
func (v *VDP) renderSprites(line int) {
	satMask := uint8(0x7F)
	if v.h40Mode() {
		satMask = 0x7E // H40: $400 aligned, bit 0 ignored
	}
	satBase := uint16(v.regs[5]&satMask) << 9

	limits := spriteLimitsH32
	if v.h40Mode() {
		limits = spriteLimitsH40
	}

	width := v.activeWidth()
	tileRows := v.tileRows()
	tileSz := v.tileSize()
	tileRowMask := tileRows - 1
	tileRowShift := uint(3)
	yOffset := 128
	if tileRows == 16 {
		tileRowShift = 4
		yOffset = 256 // Y coordinates are in field-doubled units
	}

	spritesOnLine := 0
	pixelsOnLine := 0
	firstSpriteFound := false
	spriteIndex := 0

	for i := 0; i < limits.total; i++ {
		s := v.readSATEntry(satBase, spriteIndex)
		yPos := s.y - yOffset
		spriteHeight := s.vCells * tileRows

		if line >= yPos && line < yPos+spriteHeight {
			spritesOnLine++
			if spritesOnLine > limits.perLine {
				v.spriteOverflow = true
				if !v.unlimitedSprites {
					break
				}
			}

			// X=0 masks all lower priority sprites once another sprite has
			// been found on this line.
			if s.x == 0 && firstSpriteFound {
				break
			}
			if s.x != 0 {
				firstSpriteFound = true
			}

			if v.drawSprite(s, line-yPos, spriteHeight, &pixelsOnLine, limits.pixels, width, tileRowShift, tileRowMask, tileSz) {
				break
			}
		}

		if s.link == 0 {
			break
		}
		spriteIndex = int(s.link)
	}
}

// drawSprite draws one row of a sprite. It reports true when the line's
// sprite pixel budget ran out.
func (v *VDP) drawSprite(s satEntry, spriteRow, spriteHeight int, pixelsOnLine *int, maxPixels, width int, tileRowShift uint, tileRowMask int, tileSz uint16) bool {
	priority := s.attr&entryPriority != 0
	pal := uint8(s.attr>>entryPalShift) & entryPalMask
	hFlip := s.attr&entryHFlip != 0
	baseTile := s.attr & entryTileMask
	if s.attr&entryVFlip != 0 {
		spriteRow = spriteHeight - 1 - spriteRow
	}

	xPos := s.x - 128
	spriteWidth := s.hCells * 8

	for sx := 0; sx < spriteWidth; sx++ {
		*pixelsOnLine++
		if *pixelsOnLine > maxPixels {
			v.spriteOverflow = true
			if !v.unlimitedSprites {
				return true
			}
		}

		screenX := xPos + sx
		if screenX < 0 || screenX >= width {
			continue
		}

		spriteCol := sx
		if hFlip {
			spriteCol = spriteWidth - 1 - spriteCol
		}

		// Multi-cell sprites use column-major tile order.
		cellCol := spriteCol >> 3
		cellRow := spriteRow >> tileRowShift
		tileIndex := baseTile + uint16(cellCol*s.vCells+cellRow)

		tileAddr := (tileIndex * tileSz) & 0xFFFF
		colorIdx := v.decodeTilePixel(tileAddr, spriteCol&7, spriteRow&tileRowMask, false, false)
		if colorIdx == 0 {
			continue
		}

		// Collision: two non-transparent sprite pixels at the same position
		if v.lineBufSpr[screenX].colorIndex != 0 {
			v.spriteCollision = true
			continue
		}

		v.lineBufSpr[screenX] = layerPixel{
			colorIndex: colorIdx,
			palette:    pal,
			priority:   priority,
		}
	}
	return false
}
