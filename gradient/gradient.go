// Package gradient renders colour stops as CSS linear-gradient.
package gradient

import (
	"fmt"
	"strconv"
	"strings"

	"resemble/common"
	"resemble/sample"
)

const direction = "90deg"

// Renderer turns ordered colour stops into CSS gradient text.
type Renderer interface {
	Render(stops []sample.ColourStop) string
}

// New returns renderer for requested gradient style.
func New(g common.Generator) (Renderer, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("unknown gradient generator: %s (valid generators: %v)", g, common.GeneratorNames())
	}
	if g.HardEdges() {
		return Complex{}, nil
	}
	return Simple{}, nil
}

// Simple emits one gradient stop per colour stop, browser interpolates
// between them.
type Simple struct{}

func (Simple) Render(stops []sample.ColourStop) string {
	parts := make([]string, 0, len(stops))
	for _, s := range stops {
		parts = append(parts, stop(s.Colour, s.Position))
	}
	return wrap(parts)
}

// Complex emits hard edges: every stop after the first is preceded by
// previous colour at the same position.
type Complex struct{}

func (Complex) Render(stops []sample.ColourStop) string {
	parts := make([]string, 0, 2*len(stops))
	for i, s := range stops {
		if i > 0 {
			parts = append(parts, stop(stops[i-1].Colour, s.Position))
		}
		parts = append(parts, stop(s.Colour, s.Position))
	}
	return wrap(parts)
}

func stop(colour string, position float64) string {
	return "#" + colour + " " + strconv.FormatFloat(position, 'f', -1, 64) + "%"
}

func wrap(parts []string) string {
	return "linear-gradient(" + direction + ", " + strings.Join(parts, ", ") + ")"
}
