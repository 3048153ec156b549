// Package raster is an in-memory multi-band float64 image with TIFF and
// PNG conversion. Pixels outside the raster bounds are never stored;
// callers check Bounds before access.
package raster

import (
	"fmt"
	"image"
	"math"
)

type Raster struct {
	rect  image.Rectangle
	bands int
	pix   []float64 // row-major, bands interleaved
}

// New allocates a zero-filled raster covering rect.
func New(rect image.Rectangle, bands int) *Raster {
	if bands < 1 {
		bands = 1
	}
	return &Raster{
		rect:  rect,
		bands: bands,
		pix:   make([]float64, rect.Dx()*rect.Dy()*bands),
	}
}

// NewFilled allocates a raster with every sample set to v.
func NewFilled(rect image.Rectangle, bands int, v float64) *Raster {
	r := New(rect, bands)
	r.Fill(v)
	return r
}

func (r *Raster) Bounds() image.Rectangle { return r.rect }
func (r *Raster) NumBands() int           { return r.bands }

func (r *Raster) offset(x, y, band int) int {
	return ((y-r.rect.Min.Y)*r.rect.Dx()+(x-r.rect.Min.X))*r.bands + band
}

// Sample returns the value at pixel (x, y) in band. It panics when the
// position is outside the raster, like slice indexing.
func (r *Raster) Sample(x, y, band int) float64 {
	return r.pix[r.offset(x, y, band)]
}

func (r *Raster) SetSample(x, y, band int, v float64) {
	r.pix[r.offset(x, y, band)] = v
}

func (r *Raster) Fill(v float64) {
	for i := range r.pix {
		r.pix[i] = v
	}
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{rect: r.rect, bands: r.bands, pix: make([]float64, len(r.pix))}
	copy(out.pix, r.pix)
	return out
}

// Range returns the smallest and largest non-NaN sample of band. Both
// are NaN when the band holds no values.
func (r *Raster) Range(band int) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for i := band; i < len(r.pix); i += r.bands {
		v := r.pix[i]
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster %v x%d", r.rect, r.bands)
}
