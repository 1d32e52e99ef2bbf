package sample

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Chunk averages full height vertical strips by downsampling each of them
// to a single pixel with bicubic filter.
type Chunk struct{}

func (Chunk) Sample(ctx context.Context, img image.Image, step float64) ([]ColourStop, error) {
	b, err := checkBounds(img)
	if err != nil {
		return nil, err
	}
	bands, err := strips(b.Dx(), step)
	if err != nil {
		return nil, err
	}

	stops := make([]ColourStop, 0, len(bands))
	for _, s := range bands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x0, x1 := pixelSpan(s, b.Dx())
		crop := imaging.Crop(img, image.Rect(b.Min.X+x0, b.Min.Y, b.Min.X+x1, b.Max.Y))
		dot := imaging.Resize(crop, 1, 1, imaging.CatmullRom)
		stops = append(stops, newStop(dot.NRGBAAt(0, 0), s.position(b.Dx())))
	}
	return stops, nil
}

// pixelSpan returns whole pixel columns touched by the strip, never empty.
func pixelSpan(s strip, width int) (int, int) {
	x0 := int(math.Floor(s.Start))
	x1 := min(int(math.Ceil(s.End)), width)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	return x0, x1
}
