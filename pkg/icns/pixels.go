package icns

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ErrUnsupportedColorModel is returned for sources whose color model cannot be
// converted to 8-bit RGBA without guessing.
var ErrUnsupportedColorModel = errors.New("unsupported color model")

// ErrPalettedRejected is returned for paletted sources when conversion is
// disabled.
var ErrPalettedRejected = errors.New("paletted images are not accepted")

// toNRGBA converts src to 8-bit non-premultiplied RGBA, the pixel format of
// every representation.
func toNRGBA(src image.Image, rejectPaletted bool) (*image.NRGBA, error) {
	switch src.(type) {
	case *image.Paletted:
		if rejectPaletted {
			return nil, ErrPalettedRejected
		}
	case *image.YCbCr, *image.NYCbCrA:
	case *image.CMYK:
		return nil, fmt.Errorf("%w: cmyk", ErrUnsupportedColorModel)
	default:
		switch src.ColorModel() {
		case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model,
			color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		case color.CMYKModel:
			return nil, fmt.Errorf("%w: cmyk", ErrUnsupportedColorModel)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedColorModel, src)
		}
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// Filter is a resampling filter used to downscale fallback sources.
type Filter string

const (
	// CatmullRom is bicubic Catmull-Rom resampling from golang.org/x/image.
	CatmullRom Filter = "catmullrom"
	// BiLinear is bilinear resampling from golang.org/x/image.
	BiLinear Filter = "bilinear"
	// Lanczos3 is Lanczos (a=3) resampling from github.com/nfnt/resize.
	Lanczos3 Filter = "lanczos3"
	// Mitchell is Mitchell-Netravali resampling from github.com/nfnt/resize.
	Mitchell Filter = "mitchell"
)

// DefaultFilter is used when no filter is configured.
const DefaultFilter = CatmullRom

// Filters lists the supported filters.
var Filters = []Filter{CatmullRom, BiLinear, Lanczos3, Mitchell}

// ParseFilter validates a filter name. An empty name selects DefaultFilter.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return DefaultFilter, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown resample filter %q", s)
}

// Resample scales src to px×px. src is expected in NRGBA; a source that is
// already px×px is returned unchanged.
func (f Filter) Resample(src *image.NRGBA, px int) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() == px && b.Dy() == px {
		return src, nil
	}
	if px > b.Dx() || px > b.Dy() {
		return nil, fmt.Errorf("refusing to upscale %dx%d to %dx%d", b.Dx(), b.Dy(), px, px)
	}

	switch f {
	case CatmullRom, BiLinear, "":
		scaler := draw.CatmullRom
		if f == BiLinear {
			scaler = draw.BiLinear
		}
		dst := image.NewNRGBA(image.Rect(0, 0, px, px))
		scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		return dst, nil
	case Lanczos3, Mitchell:
		interp := resize.Lanczos3
		if f == Mitchell {
			interp = resize.MitchellNetravali
		}
		// resize returns premultiplied RGBA for NRGBA input.
		return toNRGBA(resize.Resize(uint(px), uint(px), src, interp), false)
	default:
		return nil, fmt.Errorf("unknown resample filter %q", f)
	}
}
