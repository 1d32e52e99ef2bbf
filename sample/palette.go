package sample

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/soniakeys/quant/median"
)

const (
	paletteStripWidth = 256
	paletteSize       = 16
	paletteGroups     = 4
)

// Palette reduces image to a single row strip, quantizes it with median cut
// and emits centers of the heaviest runs of pixels mapped to the same palette
// entry, coloured with the run average. Sampling step is
// ignored, number of stops depends on the image and is limited by Groups.
type Palette struct {
	Width   int // maximum strip width
	Colours int // maximum palette size
	Groups  int // maximum number of emitted stops
}

// run is a sequence of neighbouring strip pixels mapped to the same palette
// entry.
type run struct {
	index  int
	start  int
	weight int
	sum    [3]int
}

func (r *run) add(c color.NRGBA) {
	r.weight++
	r.sum[0] += int(c.R)
	r.sum[1] += int(c.G)
	r.sum[2] += int(c.B)
}

// average is the mean colour of run pixels.
func (r run) average() color.NRGBA {
	avg := func(sum int) uint8 {
		return uint8((sum + r.weight/2) / r.weight)
	}
	return color.NRGBA{R: avg(r.sum[0]), G: avg(r.sum[1]), B: avg(r.sum[2]), A: 0xff}
}

func (r run) center(width int) float64 {
	mid := float64(2*r.start+r.weight-1) / 2
	return math.Round(100*mid/float64(width)*100) / 100
}

func (p *Palette) Sample(ctx context.Context, img image.Image, _ float64) ([]ColourStop, error) {
	b, err := checkBounds(img)
	if err != nil {
		return nil, err
	}

	width := min(b.Dx(), p.Width)
	line := imaging.Resize(img, width, 1, imaging.Box)

	pixels := make([]color.NRGBA, width)
	for x := range width {
		px := line.NRGBAAt(x, 0)
		px.A = 0xff
		line.SetNRGBA(x, 0, px)
		pixels[x] = px
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	palette := quantize(line, p.Colours)
	if len(palette) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrEmptyImage)
	}
	runs := encodeRuns(pixels, palette)

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].weight > runs[j].weight
	})
	if len(runs) > p.Groups {
		runs = runs[:p.Groups]
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].start < runs[j].start
	})

	stops := make([]ColourStop, 0, len(runs))
	for _, r := range runs {
		stops = append(stops, newStop(r.average(), r.center(width)))
	}
	return stops, nil
}

// encodeRuns maps pixels to their nearest palette entries and collapses
// neighbours with equal entries.
func encodeRuns(pixels []color.NRGBA, palette []color.NRGBA) []run {
	entries := make([]colorful.Color, len(palette))
	for i, c := range palette {
		entries[i] = toColorful(c)
	}

	var runs []run
	for x, px := range pixels {
		idx := nearest(entries, toColorful(px))
		if n := len(runs); n == 0 || runs[n-1].index != idx {
			runs = append(runs, run{index: idx, start: x})
		}
		runs[len(runs)-1].add(px)
	}
	return runs
}

func nearest(entries []colorful.Color, c colorful.Color) int {
	best, dist := 0, math.Inf(1)
	for i, e := range entries {
		if d := c.DistanceRgb(e); d < dist {
			best, dist = i, d
		}
	}
	return best
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// quantize builds palette of at most size opaque colours from the strip.
func quantize(line *image.NRGBA, size int) []color.NRGBA {
	q := median.Quantizer(size).Quantize(make(color.Palette, 0, size), line)
	if len(q) > size {
		q = q[:size]
	}
	palette := make([]color.NRGBA, 0, len(q))
	for _, c := range q {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		n.A = 0xff
		palette = append(palette, n)
	}
	return palette
}
