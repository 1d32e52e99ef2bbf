// Package sample reduces decoded images to ordered colour stops.
package sample

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"resemble/common"
)

var ErrEmptyImage = errors.New("image has no pixels")

// ColourStop is a single gradient stop. Colour is 6 lowercase hex digits
// without leading '#', Position is percentage of image width.
type ColourStop struct {
	Colour   string
	Position float64
}

func newStop(c color.NRGBA, position float64) ColourStop {
	hex := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
	return ColourStop{Colour: hex[1:], Position: position}
}

// Sampler reduces image to colour stops. Step is width of a sampling strip
// in pixels, samplers which derive stops from image colours ignore it.
// Returned stops are ordered by position.
type Sampler interface {
	Sample(ctx context.Context, img image.Image, step float64) ([]ColourStop, error)
}

// New returns sampler implementing requested algorithm.
func New(alg common.Algorithm) (Sampler, error) {
	switch alg {
	case common.AlgorithmChunk:
		return &Chunk{}, nil
	case common.AlgorithmPalette:
		return &Palette{Width: paletteStripWidth, Colours: paletteSize, Groups: paletteGroups}, nil
	case common.AlgorithmRaster:
		return &Raster{}, nil
	default:
		return nil, fmt.Errorf("unknown sampling algorithm: %s (valid algorithms: %v)", alg, common.AlgorithmNames())
	}
}

// strip is a vertical band of the image, Start and End are fractional
// x coordinates relative to image origin.
type strip struct {
	Start, End float64
}

// MaxStrips limits number of bands (and so gradient stops) a single image
// may be sampled into.
const MaxStrips = 10000

// strips partitions image width into bands of given step, the last one may
// be narrower. Number of bands is ceil(width/step).
func strips(width int, step float64) ([]strip, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: sampling step %g", ErrInvalidFidelity, step)
	}
	w := float64(width)
	if n := math.Ceil(w / step); n > MaxStrips {
		return nil, fmt.Errorf("%w: sampling step %g gives %g stops for width %d, at most %d allowed", ErrInvalidFidelity, step, n, width, MaxStrips)
	}
	var out []strip
	for i := 0; ; i++ {
		x := float64(i) * step
		if x >= w {
			break
		}
		out = append(out, strip{Start: x, End: min(x+step, w)})
	}
	return out, nil
}

func (s strip) position(width int) float64 {
	return 100 * s.Start / float64(width)
}

func checkBounds(img image.Image) (image.Rectangle, error) {
	b := img.Bounds()
	if b.Empty() {
		return b, ErrEmptyImage
	}
	return b, nil
}
