package runtime

import (
	"image"
	"math"

	"github.com/funvibe/jiffle/internal/config"
)

// CoordinateTransform maps world coordinates to image pixel coordinates.
type CoordinateTransform interface {
	WorldToImage(x, y float64) (int, int)
}

// IdentityTransform maps world position (x, y) to pixel (floor x, floor y).
type IdentityTransform struct{}

func (IdentityTransform) WorldToImage(x, y float64) (int, int) {
	return pixel(x), pixel(y)
}

func pixel(v float64) int {
	return int(math.Floor(v + config.ScanEpsilon))
}

// AffineTransform is the matrix
//
//	| M00 M01 M02 |
//	| M10 M11 M12 |
//
// applied to (x, y, 1); results are floored to pixel indices.
type AffineTransform struct {
	M00, M01, M02 float64
	M10, M11, M12 float64
}

func (t *AffineTransform) WorldToImage(x, y float64) (int, int) {
	return pixel(t.M00*x + t.M01*y + t.M02), pixel(t.M10*x + t.M11*y + t.M12)
}

// WorldToGrid stretches world onto the pixel grid: (MinX, MinY) maps to
// grid.Min and each axis is scaled independently.
func WorldToGrid(world Rect, grid image.Rectangle) *AffineTransform {
	sx := float64(grid.Dx()) / world.Width
	sy := float64(grid.Dy()) / world.Height
	return &AffineTransform{
		M00: sx,
		M02: float64(grid.Min.X) - sx*world.MinX,
		M11: sy,
		M12: float64(grid.Min.Y) - sy*world.MinY,
	}
}

func isIdentity(tr CoordinateTransform) bool {
	switch tr.(type) {
	case nil, IdentityTransform, *IdentityTransform:
		return true
	}
	return false
}
