package raster

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// ErrUnknownFormat is returned for file names without a .tif, .tiff or .png
// extension.
var ErrUnknownFormat = errors.New("unknown raster format")

type Format int

const (
	TIFF Format = iota
	PNG
)

// FormatOf picks the codec from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return TIFF, nil
	case ".png":
		return PNG, nil
	}
	return 0, errors.Wrap(ErrUnknownFormat, path)
}

// FromImage converts a decoded image. Gray images give one band; anything
// else gives four bands (R, G, B, A) in the 0..255 range.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		r := New(b, 1)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r.SetSample(x, y, 0, float64(src.GrayAt(x, y).Y))
			}
		}
		return r
	case *image.Gray16:
		r := New(b, 1)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r.SetSample(x, y, 0, float64(src.Gray16At(x, y).Y))
			}
		}
		return r
	}
	r := New(b, 4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			r.SetSample(x, y, 0, float64(c.R))
			r.SetSample(x, y, 1, float64(c.G))
			r.SetSample(x, y, 2, float64(c.B))
			r.SetSample(x, y, 3, float64(c.A))
		}
	}
	return r
}

// ToGray16 renders band as 16-bit gray. Values are rounded and clamped to
// 0..65535; NaN becomes 0.
func (r *Raster) ToGray16(band int) *image.Gray16 {
	out := image.NewGray16(r.rect)
	for y := r.rect.Min.Y; y < r.rect.Max.Y; y++ {
		for x := r.rect.Min.X; x < r.rect.Max.X; x++ {
			out.SetGray16(x, y, color.Gray16{Y: clamp16(r.Sample(x, y, band))})
		}
	}
	return out
}

func clamp16(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}

// Decode reads a TIFF or PNG image.
func Decode(rd io.Reader, format Format) (*Raster, error) {
	var (
		img image.Image
		err error
	)
	switch format {
	case TIFF:
		img, err = tiff.Decode(rd)
	case PNG:
		img, err = png.Decode(rd)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, errors.Wrap(err, "decoding raster")
	}
	return FromImage(img), nil
}

// Encode writes band of r as a 16-bit gray image.
func Encode(w io.Writer, r *Raster, band int, format Format) error {
	img := r.ToGray16(band)
	var err error
	switch format {
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case PNG:
		err = png.Encode(w, img)
	default:
		return ErrUnknownFormat
	}
	return errors.Wrap(err, "encoding raster")
}

// Load reads a raster file, choosing the codec from its extension.
func Load(path string) (*Raster, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := Decode(f, format)
	return r, errors.Wrap(err, path)
}

// Save writes band 0 of r to path.
func Save(path string, r *Raster) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, r, 0, format); err != nil {
		f.Close()
		return errors.Wrap(err, path)
	}
	return f.Close()
}
