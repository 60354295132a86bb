package emu

import "testing"

func TestVDP_CRAMColor(t *testing.T) {
	tests := []struct {
		name    string
		index   uint8
		hi, lo  uint8
		r, g, b uint8
	}{
		{"black", 1, 0x00, 0x00, 0, 0, 0},
		{"white", 1, 0x0E, 0xEE, 255, 255, 255},
		{"red", 1, 0x00, 0x0E, 255, 0, 0},
		{"green", 1, 0x00, 0xE0, 0, 255, 0},
		{"blue", 1, 0x0E, 0x00, 0, 0, 255},
		{"mid grey", 1, 0x08, 0x88, 146, 146, 146},
		{"index wraps at 64", 0x41, 0x00, 0x06, 109, 0, 0},
	}
	for _, tt := range tests {
		v := NewVDP(false)
		v.cram[2] = tt.hi
		v.cram[3] = tt.lo
		r, g, b := v.cramColor(tt.index)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%s: expected %d,%d,%d, got %d,%d,%d", tt.name, tt.r, tt.g, tt.b, r, g, b)
		}
	}
}

func TestVDP_CRAMColorLevel(t *testing.T) {
	v := NewVDP(false)
	v.cram[2], v.cram[3] = 0x00, 0x86 // r=3 (109), g=4 (146), b=0

	tests := []struct {
		name    string
		level   int
		r, g, b uint8
	}{
		{"normal", brightnessNormal, 109, 146, 0},
		{"shadow", brightnessShadow, 54, 73, 0},
		{"highlight", brightnessHighlight, 237, 255, 128},
	}
	for _, tt := range tests {
		r, g, b := v.cramColorLevel(1, tt.level)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%s: expected %d,%d,%d, got %d,%d,%d", tt.name, tt.r, tt.g, tt.b, r, g, b)
		}
	}
}

func TestVDP_ResolvePixel(t *testing.T) {
	none := layerPixel{}
	lo := func(pal, idx uint8) layerPixel { return layerPixel{colorIndex: idx, palette: pal} }
	hi := func(pal, idx uint8) layerPixel { return layerPixel{colorIndex: idx, palette: pal, priority: true} }

	tests := []struct {
		name      string
		spr, a, b layerPixel
		sh        bool
		idx       uint8
		level     int
	}{
		{"high sprite over high A", hi(0, 1), hi(1, 2), none, false, 1, brightnessNormal},
		{"high B over low sprite", lo(0, 1), none, hi(2, 3), false, 35, brightnessNormal},
		{"high A over high B", none, hi(1, 2), hi(2, 3), false, 18, brightnessNormal},
		{"low sprite over low A", lo(0, 4), lo(1, 2), none, false, 4, brightnessNormal},
		{"backdrop", none, none, none, false, 37, brightnessNormal},
		{"s/h low layers are shadowed", none, lo(1, 2), none, true, 18, brightnessShadow},
		{"s/h high layers are normal", none, hi(1, 2), none, true, 18, brightnessNormal},
		{"s/h backdrop is shadowed", none, none, none, true, 37, brightnessShadow},
		{"s/h palette 3 sprite is normal", lo(3, 13), lo(1, 2), none, true, 61, brightnessNormal},
		{"s/h highlight operator", lo(3, 14), lo(1, 2), none, true, 18, brightnessHighlight},
		{"s/h shadow operator", lo(3, 15), none, lo(2, 3), true, 35, brightnessShadow},
		{"s/h operator over backdrop", lo(3, 14), none, none, true, 37, brightnessHighlight},
	}
	for _, tt := range tests {
		v := NewVDP(false)
		setReg(v, 7, 0x25) // backdrop palette 2 color 5
		var idx uint8
		var level int
		if tt.sh {
			idx, level = v.resolvePixel(tt.spr, tt.a, tt.b)
		} else {
			idx, level = v.resolvePlain(tt.spr, tt.a, tt.b)
		}
		if idx != tt.idx || level != tt.level {
			t.Errorf("%s: expected index %d level %d, got %d level %d", tt.name, tt.idx, tt.level, idx, level)
		}
	}
}

func TestVDP_LeftColumnBlank(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 0, 0x20)
	setReg(v, 7, 0x01)
	v.cram[2], v.cram[3] = 0x00, 0x0E // backdrop red
	v.cram[4], v.cram[5] = 0x0E, 0x00 // blue
	for x := range v.lineBufA {
		v.lineBufA[x] = layerPixel{colorIndex: 2}
	}

	v.compositeRange(0, 0, 16)
	pix := v.GetFramebuffer()
	if pix[7*4] != 255 || pix[7*4+2] != 0 {
		t.Errorf("x=7: expected the red backdrop, got %v", pix[7*4:7*4+3])
	}
	if pix[8*4] != 0 || pix[8*4+2] != 255 {
		t.Errorf("x=8: expected blue, got %v", pix[8*4:8*4+3])
	}
}
