package emu

import "testing"

// wordBus serves DMA reads with the low 16 bits of the address.
type wordBus struct{}

func (wordBus) ReadWord(addr uint32) uint16 { return uint16(addr) }

func setReg(v *VDP, reg, val uint8) {
	v.WriteControl(0, 0x8000|uint16(reg)<<8|uint16(val))
}

// setAddress issues a two-word command. code is CD5-CD0.
func setAddress(v *VDP, cycle uint64, code uint8, addr uint16) {
	v.WriteControl(cycle, uint16(code&0x03)<<14|addr&0x3FFF)
	v.WriteControl(cycle, uint16(code&0x3C)<<2|addr>>14)
}

func TestVDP_RegisterWrite(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x64)
	if v.regs[1] != 0x64 {
		t.Errorf("expected reg 1 = 0x64, got 0x%02X", v.regs[1])
	}
	setReg(v, 30, 0xFF) // out of range, ignored
}

func TestVDP_RegisterWriteCancelsCommand(t *testing.T) {
	v := NewVDP(false)
	v.WriteControl(0, 0x4000)
	setReg(v, 15, 0x02)
	if v.writePending {
		t.Error("register write should clear the pending command")
	}
}

func TestVDP_VRAMWriteRead(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 15, 2)

	setAddress(v, 0, 0x01, 0x1000)
	v.WriteData(0, 0x1234)
	v.WriteData(0, 0x5678)

	if got := v.vramWord(0x1000); got != 0x1234 {
		t.Errorf("vram[0x1000]: expected 0x1234, got 0x%04X", got)
	}
	if got := v.vramWord(0x1002); got != 0x5678 {
		t.Errorf("vram[0x1002]: expected 0x5678, got 0x%04X", got)
	}

	setAddress(v, 0, 0x00, 0x1000)
	if got := v.ReadData(); got != 0x1234 {
		t.Errorf("first read: expected 0x1234, got 0x%04X", got)
	}
	if got := v.ReadData(); got != 0x5678 {
		t.Errorf("second read: expected 0x5678, got 0x%04X", got)
	}
}

func TestVDP_OddVRAMAddressSwapsBytes(t *testing.T) {
	v := NewVDP(false)
	setAddress(v, 0, 0x01, 0x0201)
	v.WriteData(0, 0xAABB)
	if v.vram[0x200] != 0xBB || v.vram[0x201] != 0xAA {
		t.Errorf("expected BB AA, got %02X %02X", v.vram[0x200], v.vram[0x201])
	}
}

func TestVDP_CRAMWriteMasksColor(t *testing.T) {
	v := NewVDP(false)
	setAddress(v, 0, 0x03, 0x0002)
	v.WriteData(0, 0xFFFF)
	if v.cram[2] != 0x0E || v.cram[3] != 0xEE {
		t.Errorf("expected 0E EE, got %02X %02X", v.cram[2], v.cram[3])
	}
}

func TestVDP_VSRAMIgnoresOutOfRange(t *testing.T) {
	v := NewVDP(false)
	setAddress(v, 0, 0x05, 0x0050)
	v.WriteData(0, 0x1234)
	setAddress(v, 0, 0x05, 0x0000)
	v.WriteData(0, 0xFFFF)
	if v.vsram[0] != 0x07 || v.vsram[1] != 0xFF {
		t.Errorf("expected 07 FF, got %02X %02X", v.vsram[0], v.vsram[1])
	}
}

func TestVDP_StatusFixedBits(t *testing.T) {
	tests := []struct {
		name string
		pal  bool
		want uint16
	}{
		{"ntsc", false, 0x3600},
		{"pal", true, 0x3601},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVDP(tt.pal)
			if got := v.ReadControl(0); got != tt.want {
				t.Errorf("expected 0x%04X, got 0x%04X", tt.want, got)
			}
		})
	}
}

func TestVDP_VIntAtActiveHeight(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x20)

	for line := 0; line < 224; line++ {
		if vInt, _ := v.StartScanline(line); vInt {
			t.Fatalf("unexpected V-int on line %d", line)
		}
	}
	if vInt, _ := v.StartScanline(224); !vInt {
		t.Fatal("expected V-int on line 224")
	}

	status := v.ReadControl(0)
	if status&statusVInt == 0 || status&statusVBlank == 0 {
		t.Errorf("expected V-int and V-blank status, got 0x%04X", status)
	}
	if v.ReadControl(0)&statusVInt != 0 {
		t.Error("status read should clear the V-int flag")
	}
}

func TestVDP_V30ActiveHeight(t *testing.T) {
	v := NewVDP(true)
	setReg(v, 1, 0x28)
	if got := v.ActiveHeight(); got != 240 {
		t.Errorf("expected 240, got %d", got)
	}
	if vInt, _ := v.StartScanline(240); !vInt {
		t.Error("expected V-int on line 240")
	}
}

func TestVDP_EnablingPendingVIntAsserts(t *testing.T) {
	v := NewVDP(false)
	v.StartScanline(224)
	if got := v.TakeAssertedInterrupt(); got != 0 {
		t.Fatalf("expected no assertion while disabled, got %d", got)
	}

	setReg(v, 1, 0x20)
	if got := v.TakeAssertedInterrupt(); got != 6 {
		t.Errorf("expected level 6, got %d", got)
	}
	if v.vIntPending {
		t.Error("taking the interrupt should acknowledge it")
	}
}

func TestVDP_HIntCounter(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 0, 0x10)
	setReg(v, 10, 2)

	var fired []int
	for line := 0; line < 262; line++ {
		if _, hInt := v.StartScanline(line); hInt {
			fired = append(fired, line)
		}
	}

	// Every third active line, and never in blanking.
	if len(fired) != 74 {
		t.Fatalf("expected 74 H-ints, got %d", len(fired))
	}
	if fired[0] != 2 || fired[1] != 5 {
		t.Errorf("expected first H-ints on lines 2 and 5, got %d and %d", fired[0], fired[1])
	}
	if last := fired[len(fired)-1]; last >= 224 {
		t.Errorf("H-int fired in blanking on line %d", last)
	}
}

func TestVDP_VCounterJump(t *testing.T) {
	tests := []struct {
		name string
		pal  bool
		v30  bool
		line int
		want uint16
	}{
		{"ntsc before jump", false, false, 234, 234},
		{"ntsc jump", false, false, 235, 0xE5},
		{"ntsc last", false, false, 261, 0xFF},
		{"pal wrap", true, false, 256, 0},
		{"pal jump", true, false, 259, 0xCA},
		{"pal last", true, false, 312, 0xFF},
		{"pal v30 jump", true, true, 267, 0xD2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVDP(tt.pal)
			if tt.v30 {
				setReg(v, 1, 0x08)
			}
			if got := v.vCounterValue(tt.line); got != tt.want {
				t.Errorf("expected 0x%02X, got 0x%02X", tt.want, got)
			}
		})
	}
}

func TestVDP_HVCounterLatch(t *testing.T) {
	v := NewVDP(false)
	v.StartScanline(100)
	v.UpdateHCounter(50, 488)
	setReg(v, 0, 0x02)
	v.LatchHVCounter()
	latched := v.ReadHVCounter()

	v.StartScanline(101)
	if got := v.ReadHVCounter(); got != latched {
		t.Errorf("latched: expected 0x%04X, got 0x%04X", latched, got)
	}
	if latched>>8 != 100 {
		t.Errorf("V part: expected 100, got %d", latched>>8)
	}

	setReg(v, 0, 0x00)
	if got := v.ReadHVCounter() >> 8; got != 101 {
		t.Errorf("after release: expected V 101, got %d", got)
	}
}

func TestVDP_HCounterRanges(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 12, 0x81)
	if got := v.hPosition(0, 488); got != 0 {
		t.Errorf("line start: expected 0, got 0x%02X", got)
	}
	boundary := 488 * activeFraction / 100
	if got := v.hPosition(boundary, 488); got != 0xE4 {
		t.Errorf("hblank start: expected 0xE4, got 0x%02X", got)
	}
}

func TestVDP_DMAFill(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x14)
	setReg(v, 15, 1)
	setReg(v, 19, 4)
	setReg(v, 20, 0)
	setReg(v, 23, 0x80)

	setAddress(v, 0, 0x21, 0x0100)
	if !v.dmaFillPending {
		t.Fatal("expected fill to wait for a data write")
	}
	v.WriteData(0, 0xAB00)

	for _, addr := range []int{0x100, 0x102, 0x103, 0x105} {
		if v.vram[addr] != 0xAB {
			t.Errorf("vram[0x%X]: expected 0xAB, got 0x%02X", addr, v.vram[addr])
		}
	}
	if v.regs[19] != 0 || v.regs[20] != 0 {
		t.Errorf("length registers should be cleared, got %02X %02X", v.regs[19], v.regs[20])
	}
}

func TestVDP_DMACopy(t *testing.T) {
	v := NewVDP(false)
	v.vram[0x10] = 0x11
	v.vram[0x11] = 0x22
	setReg(v, 1, 0x14)
	setReg(v, 15, 1)
	setReg(v, 19, 2)
	setReg(v, 21, 0x10)
	setReg(v, 22, 0x00)
	setReg(v, 23, 0xC0)

	setAddress(v, 0, 0x30, 0x0800)
	if v.vram[0x800] != 0x11 || v.vram[0x801] != 0x22 {
		t.Errorf("expected 11 22, got %02X %02X", v.vram[0x800], v.vram[0x801])
	}
	if v.regs[21] != 0x12 {
		t.Errorf("source should advance to 0x12, got 0x%02X", v.regs[21])
	}
}

func TestVDP_DMAFrom68K(t *testing.T) {
	v := NewVDP(false)
	v.SetBus(wordBus{})
	v.BeginScanline(0, 488)
	setReg(v, 1, 0x14)
	setReg(v, 15, 2)
	setReg(v, 19, 3)
	setReg(v, 20, 0)
	setReg(v, 21, 0x00) // source $002000
	setReg(v, 22, 0x10)
	setReg(v, 23, 0x00)

	setAddress(v, 100, 0x21, 0x0000)

	for i, want := range []uint16{0x2000, 0x2002, 0x2004} {
		if got := v.vramWord(uint16(i * 2)); got != want {
			t.Errorf("word %d: expected 0x%04X, got 0x%04X", i, want, got)
		}
	}

	stall := v.DMAStallCycles()
	if stall <= 0 {
		t.Fatalf("expected a 68K stall, got %d", stall)
	}
	if v.DMAStallCycles() != 0 {
		t.Error("stall cycles should be taken once")
	}
	if v.ReadControl(101)&statusDMABusy == 0 {
		t.Error("expected DMA busy right after the transfer starts")
	}
	if v.ReadControl(100+uint64(stall))&statusDMABusy != 0 {
		t.Error("expected DMA busy to clear when the stall ends")
	}
	if v.regs[21] != 0x03 || v.regs[22] != 0x10 {
		t.Errorf("source registers: expected 03 10, got %02X %02X", v.regs[21], v.regs[22])
	}
}

// startDMA68K programs a 68K->VRAM transfer of the given length from
// $002000 and starts it at cycle.
func startDMA68K(v *VDP, cycle uint64, words int) {
	setReg(v, 15, 2)
	setReg(v, 19, uint8(words))
	setReg(v, 20, uint8(words>>8))
	setReg(v, 21, 0x00)
	setReg(v, 22, 0x10)
	setReg(v, 23, 0x00)
	setAddress(v, cycle, 0x21, 0x0000)
}

func TestVDP_DMAStallRates(t *testing.T) {
	const lineCycles = 488
	tests := []struct {
		name    string
		h40     bool
		display bool
		line    int
		words   int
		want    int
	}{
		// 6 bytes at 16, 167, 18 and 205 bytes per line.
		{"H32 active", false, true, 10, 3, 6 * lineCycles / 16},
		{"H32 vblank", false, true, 224, 3, 6 * lineCycles / 167},
		{"H32 display off", false, false, 10, 3, 6 * lineCycles / 167},
		{"H40 active", true, true, 10, 3, 6 * lineCycles / 18},
		{"H40 vblank", true, true, 224, 3, 6 * lineCycles / 205},
		{"H40 display off", true, false, 10, 3, 6 * lineCycles / 205},
		// 40 bytes: two full lines then 4 bytes into the third.
		{"H40 active, three lines", true, true, 10, 20, 2*lineCycles + 4*lineCycles/18},
		{"H32 active, three lines", false, true, 10, 20, 2*lineCycles + 8*lineCycles/16},
		// The last active line carries 18 bytes, VBlank the other 182.
		{"H40 into vblank", true, true, 223, 100, lineCycles + 182*lineCycles/205},
		// The last blank line carries 205 bytes, line 0 onwards the other 95.
		{"H40 out of vblank", true, true, 261, 150, lineCycles + 5*lineCycles + 5*lineCycles/18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVDP(false)
			v.SetBus(wordBus{})
			if tt.h40 {
				setReg(v, 12, 0x81)
			}
			reg1 := uint8(0x14)
			if tt.display {
				reg1 |= 0x40
			}
			setReg(v, 1, reg1)
			if tt.line >= v.ActiveHeight() {
				v.StartScanline(v.ActiveHeight())
			}
			v.StartScanline(tt.line)
			v.BeginScanline(1000, lineCycles)

			startDMA68K(v, 1000, tt.words)

			if got := v.DMAStallCycles(); got != tt.want {
				t.Errorf("expected a stall of %d cycles, got %d", tt.want, got)
			}
			end := 1000 + uint64(tt.want)
			if !v.DMABusy(end - 1) {
				t.Error("expected DMA busy on the last stalled cycle")
			}
			if v.DMABusy(end) {
				t.Error("expected DMA idle once the stall ends")
			}
		})
	}
}

func TestVDP_DMADisabledWritesNormally(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 15, 2)
	setReg(v, 19, 4)
	setAddress(v, 0, 0x21, 0x0000)
	if v.dmaFillPending || v.dma.end != 0 {
		t.Error("DMA should not start with reg 1 bit 4 clear")
	}
}

func pixelAt(v *VDP, x, y int) (r, g, b uint8) {
	p := y*v.GetStride() + x*4
	pix := v.GetFramebuffer()
	return pix[p], pix[p+1], pix[p+2]
}

func TestVDP_RenderBackdrop(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x44)
	setReg(v, 12, 0x81)
	setReg(v, 7, 0x01)
	setAddress(v, 0, 0x03, 0x0002)
	v.WriteData(0, 0x000E)

	v.BeginScanline(0, 488)
	v.RenderScanline(0)
	if r, g, b := pixelAt(v, 10, 0); r != 0xFF || g != 0 || b != 0 {
		t.Errorf("expected red backdrop, got %d,%d,%d", r, g, b)
	}
}

func TestVDP_RenderPlaneATile(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x44)
	setReg(v, 12, 0x81)
	setReg(v, 2, 0x30) // plane A at $C000
	setReg(v, 4, 0x07) // plane B at $E000
	setReg(v, 5, 0x7C) // sprites at $F800
	setReg(v, 13, 0x3E)

	v.vram[0x20] = 0x10    // tile 1, row 0: pixel 0 = color 1
	v.vram[0xC000+1] = 0x01 // plane A cell (0,0) = tile 1
	v.cram[2], v.cram[3] = 0x00, 0xE0

	v.BeginScanline(0, 488)
	v.RenderScanline(0)
	if _, g, _ := pixelAt(v, 0, 0); g != 0xFF {
		t.Errorf("pixel 0: expected green, got g=%d", g)
	}
	if r, g, b := pixelAt(v, 1, 0); r|g|b != 0 {
		t.Errorf("pixel 1: expected black backdrop, got %d,%d,%d", r, g, b)
	}
}

func TestVDP_DisplayDisabledShowsBackdrop(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 7, 0x01)
	v.cram[2], v.cram[3] = 0x0E, 0x00
	v.vram[0x20] = 0x11

	v.RenderScanline(5)
	if _, _, b := pixelAt(v, 100, 5); b != 0xFF {
		t.Errorf("expected blue backdrop, got b=%d", b)
	}
}

func TestVDP_SerializeRoundTrip(t *testing.T) {
	v := NewVDP(false)
	setReg(v, 1, 0x64)
	setReg(v, 10, 0x20)
	v.vram[0x1234] = 0x56
	v.cram[10] = 0x0E
	v.vsram[4] = 0x03
	v.StartScanline(224)

	buf := make([]byte, VDPSerializeSize)
	if err := v.Serialize(buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	r := NewVDP(false)
	if err := r.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if r.vram != v.vram || r.cram != v.cram || r.vsram != v.vsram || r.regs != v.regs {
		t.Error("memories or registers differ after round trip")
	}
	if r.vIntPending != v.vIntPending || r.vBlank != v.vBlank || r.vCounter != v.vCounter {
		t.Errorf("status differs: pending %v/%v vblank %v/%v vcounter %d/%d",
			v.vIntPending, r.vIntPending, v.vBlank, r.vBlank, v.vCounter, r.vCounter)
	}

	buf[0]++
	if err := r.Deserialize(buf); err == nil {
		t.Error("expected error for unknown state version")
	}
}

// putSprite writes a 1x1 sprite using tile 1 at screen (x, y) into the
// table at $F800.
func putSprite(v *VDP, index, x, y int, link uint8) {
	addr := 0xF800 + index*8
	v.vram[addr], v.vram[addr+1] = byte((y+128)>>8), byte(y+128)
	v.vram[addr+2] = 0x00
	v.vram[addr+3] = link
	v.vram[addr+4], v.vram[addr+5] = 0x00, 0x01
	v.vram[addr+6], v.vram[addr+7] = byte((x+128)>>8), byte(x+128)
}

func newSpriteTestVDP() *VDP {
	v := NewVDP(false)
	setReg(v, 1, 0x44)
	setReg(v, 12, 0x81) // H40
	setReg(v, 2, 0x30)
	setReg(v, 4, 0x07)
	setReg(v, 5, 0x7C) // sprites at $F800
	v.vram[0x20] = 0x10 // tile 1, row 0: pixel 0 = color 1
	v.cram[2], v.cram[3] = 0x00, 0xE0
	return v
}

func TestVDP_SpriteDrawn(t *testing.T) {
	v := newSpriteTestVDP()
	putSprite(v, 0, 10, 0, 0)

	v.BeginScanline(0, 488)
	v.RenderScanline(0)
	if _, g, _ := pixelAt(v, 10, 0); g != 0xFF {
		t.Errorf("expected sprite pixel at x=10, got g=%d", g)
	}
	if _, g, _ := pixelAt(v, 11, 0); g != 0 {
		t.Errorf("expected transparent sprite pixel at x=11, got g=%d", g)
	}
}

func TestVDP_SpriteLineLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   bool
		lastSet bool
	}{
		{"limited", true, false},
		{"unlimited", false, true},
	}
	for _, tt := range tests {
		v := newSpriteTestVDP()
		v.SetSpriteLimit(tt.limit)
		// 21 sprites on line 0, one more than H40 allows.
		for i := 0; i < 21; i++ {
			link := uint8(i + 1)
			if i == 20 {
				link = 0
			}
			putSprite(v, i, i*8, 0, link)
		}

		v.BeginScanline(0, 488)
		v.RenderScanline(0)
		if !v.spriteOverflow {
			t.Errorf("%s: expected the overflow flag", tt.name)
		}
		_, g, _ := pixelAt(v, 160, 0)
		if got := g == 0xFF; got != tt.lastSet {
			t.Errorf("%s: expected 21st sprite drawn=%v, got %v", tt.name, tt.lastSet, got)
		}
		if _, g, _ := pixelAt(v, 152, 0); g != 0xFF {
			t.Errorf("%s: expected 20th sprite drawn", tt.name)
		}
	}
}

func TestVDP_SpriteCollision(t *testing.T) {
	v := newSpriteTestVDP()
	putSprite(v, 0, 40, 0, 1)
	putSprite(v, 1, 40, 0, 0)

	v.BeginScanline(0, 488)
	v.RenderScanline(0)
	if !v.spriteCollision {
		t.Error("expected the collision flag")
	}
}
