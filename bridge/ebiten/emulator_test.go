package ebiten

import "testing"

func TestPack(t *testing.T) {
	const (
		width  = 2
		stride = 4 * 4
		height = 3
	)
	pixels := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		for x := 0; x < 4; x++ {
			pixels[y*stride+x*4] = byte(y*10 + x)
			pixels[y*stride+x*4+3] = 0xFF
		}
	}

	e := NewEmulator(nil, width)
	img := e.Pack(pixels, stride, height)
	if img == nil {
		t.Fatal("Pack returned nil")
	}
	if img.Stride != width*4 {
		t.Errorf("expected stride %d, got %d", width*4, img.Stride)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if got := img.Pix[y*img.Stride+x*4]; got != byte(y*10+x) {
				t.Errorf("(%d,%d): expected %d, got %d", x, y, y*10+x, got)
			}
		}
	}
}

func TestPack_ShortBuffer(t *testing.T) {
	e := NewEmulator(nil, 160)
	if e.Pack(make([]byte, 100), 1024, 144) != nil {
		t.Error("expected nil for a truncated frame")
	}
	if e.Pack(make([]byte, 4096), 100, 4) != nil {
		t.Error("expected nil for a stride narrower than the picture")
	}
}
