// Package ebiten provides an Ebiten-specific wrapper for the emulator.
package ebiten

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
	xdraw "golang.org/x/image/draw"
)

// Emulator wraps any core with Ebiten rendering. The core's framebuffer
// rows may be wider than the visible picture (the Game Gear window sits
// inside the Master System frame), so width is the visible width.
type Emulator struct {
	emucore.Emulator

	width int

	packed    *image.RGBA             // visible picture with rows width*4 apart
	offscreen *ebiten.Image           // Offscreen buffer for native resolution rendering
	drawOpts  ebiten.DrawImageOptions // Pre-allocated draw options to avoid per-frame allocation
}

// NewEmulator wraps core for drawing a picture width pixels wide.
func NewEmulator(core emucore.Emulator, width int) *Emulator {
	return &Emulator{
		Emulator: core,
		width:    width,
	}
}

// Width returns the visible picture width.
func (e *Emulator) Width() int {
	return e.width
}

// Layout implements ebiten.Game.
func (e *Emulator) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Pack copies the visible width*activeHeight picture out of a frame whose
// rows are stride bytes apart. The returned image is reused across calls.
func (e *Emulator) Pack(pixels []byte, stride, activeHeight int) *image.RGBA {
	if stride < e.width*4 || len(pixels) < (activeHeight-1)*stride+e.width*4 {
		return nil
	}
	src := &image.RGBA{
		Pix:    pixels,
		Stride: stride,
		Rect:   image.Rect(0, 0, e.width, activeHeight),
	}
	if e.packed == nil || e.packed.Bounds().Dy() != activeHeight {
		e.packed = image.NewRGBA(image.Rect(0, 0, e.width, activeHeight))
	}
	xdraw.Draw(e.packed, e.packed.Bounds(), src, image.Point{}, xdraw.Src)
	return e.packed
}

// DrawCachedFramebuffer renders pre-cached pixel data to the screen.
// Used by the ADT architecture where the emulation goroutine writes pixels
// to a shared framebuffer, and the Ebiten Draw() thread renders them.
func (e *Emulator) DrawCachedFramebuffer(screen *ebiten.Image, pixels []byte, stride, activeHeight int) {
	if activeHeight == 0 || stride == 0 {
		return
	}
	frame := e.Pack(pixels, stride, activeHeight)
	if frame == nil {
		return
	}

	if e.offscreen == nil || e.offscreen.Bounds().Dy() != activeHeight {
		e.offscreen = ebiten.NewImage(e.width, activeHeight)
	}
	e.offscreen.WritePixels(frame.Pix)

	// Fit the window, preserving the aspect ratio.
	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	nativeW := float64(e.width)
	nativeH := float64(activeHeight)
	scale := min(float64(screenW)/nativeW, float64(screenH)/nativeH)

	offsetX := (float64(screenW) - nativeW*scale) / 2
	offsetY := (float64(screenH) - nativeH*scale) / 2

	e.drawOpts = ebiten.DrawImageOptions{}
	e.drawOpts.GeoM.Scale(scale, scale)
	e.drawOpts.GeoM.Translate(offsetX, offsetY)
	e.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(e.offscreen, &e.drawOpts)
}
