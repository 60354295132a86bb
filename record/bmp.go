package record

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// writeBMP saves pic to path, enlarged by an integer scale with nearest
// neighbour sampling. Scales below 2 write the picture as is.
func writeBMP(path string, pic *image.RGBA, scale int) error {
	var out image.Image = pic
	if scale > 1 {
		b := pic.Bounds()
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), pic, b, xdraw.Src, nil)
		out = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := bmp.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("record: %s: %w", path, err)
	}
	return f.Close()
}
