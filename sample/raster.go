package sample

import (
	"context"
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// Raster averages the same strips as Chunk, but coverage of every pixel is
// computed by vector rasterizer, so fractional strip edges contribute
// partially. Colours are averaged premultiplied and weighted by coverage.
type Raster struct{}

func (Raster) Sample(ctx context.Context, img image.Image, step float64) ([]ColourStop, error) {
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
		stops = append(stops, newStop(averageStrip(img, b, s), s.position(b.Dx())))
	}
	return stops, nil
}

func averageStrip(img image.Image, b image.Rectangle, s strip) color.NRGBA {
	x0, x1 := pixelSpan(s, b.Dx())
	w, h := x1-x0, b.Dy()

	left, right := s.Start-float64(x0), s.End-float64(x0)
	if right-left <= 0 {
		right = left + 1
	}
	z := vector.NewRasterizer(w, h)
	z.MoveTo(float32(left), 0)
	z.LineTo(float32(right), 0)
	z.LineTo(float32(right), float32(h))
	z.LineTo(float32(left), float32(h))
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	var r, g, bl, a, total float64
	for y := range h {
		for x := range w {
			cov := float64(mask.AlphaAt(x, y).A) / 0xff
			if cov == 0 {
				continue
			}
			pr, pg, pb, pa := img.At(b.Min.X+x0+x, b.Min.Y+y).RGBA()
			r += cov * float64(pr)
			g += cov * float64(pg)
			bl += cov * float64(pb)
			a += cov * float64(pa)
			total += cov
		}
	}
	if total == 0 || a == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: unpremultiply(r, a),
		G: unpremultiply(g, a),
		B: unpremultiply(bl, a),
		A: uint8(a/total/0xffff*0xff + 0.5),
	}
}

func unpremultiply(c, a float64) uint8 {
	v := c / a * 0xff
	if v > 0xff {
		v = 0xff
	}
	return uint8(v + 0.5)
}
