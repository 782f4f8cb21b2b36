package meshbvh

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"golang.org/x/image/bmp"
)

// WriteImage projects every node box along axis onto a size x size bitmap
// and encodes it as BMP. Node boxes are drawn in red, triangle bounds in
// green.
func (t *Tree) WriteImage(w io.Writer, axis Axis, size int) error {
	if size <= 0 {
		return fmt.Errorf("meshbvh: invalid image size %d", size)
	}
	u := axis.Next()
	v := u.Next()

	root := t.Box()
	extent := root.Size()
	scale := float64(size-1) / math.Max(extent[u], extent[v])
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}

	frame := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	col := color.RGBA{255, 0, 0, 255}

	hline := func(x1, y, x2 int) {
		for ; x1 <= x2; x1++ {
			frame.Set(x1, y, col)
		}
	}
	vline := func(x, y1, y2 int) {
		for ; y1 <= y2; y1++ {
			frame.Set(x, y1, col)
		}
	}
	rect := func(b BoundingBox) {
		x1 := int((b.Min[u] - root.Min[u]) * scale)
		x2 := int((b.Max[u] - root.Min[u]) * scale)
		// Flip so that v grows upwards.
		y1 := size - 1 - int((b.Max[v]-root.Min[v])*scale)
		y2 := size - 1 - int((b.Min[v]-root.Min[v])*scale)
		hline(x1, y1, x2)
		hline(x1, y2, x2)
		vline(x1, y1, y2)
		vline(x2, y1, y2)
	}

	faces := t.Traverse(func(b BoundingBox) bool {
		rect(b)
		return true
	})

	col = color.RGBA{0, 255, 0, 255}
	for _, face := range faces {
		rect(t.FaceTriangle(face).Box())
	}

	return bmp.Encode(w, frame)
}
