package sample

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var (
	ErrMissingFidelity = errors.New("expected a <number> or <percentage> value for fidelity")
	ErrZeroFidelity    = errors.New("expected a fidelity greater than 0")
	ErrInvalidFidelity = errors.New("invalid fidelity")
)

// Fidelity is requested sampling granularity: percentage of image width when
// Unit is "%", pixels otherwise.
type Fidelity struct {
	Number float64
	Unit   string
}

// Step returns width of the sampling strip in pixels for an image of given
// width.
func (f Fidelity) Step(width int) float64 {
	if f.IsPercentage() {
		return float64(width) * f.Number / 100
	}
	return f.Number
}

// IsPercentage reports whether fidelity is relative to image width.
func (f Fidelity) IsPercentage() bool {
	return f.Unit == "%"
}

func (f Fidelity) String() string {
	return strconv.FormatFloat(f.Number, 'f', -1, 64) + f.Unit
}

// ParseFidelity parses single CSS number, percentage or dimension. Any unit
// other than "%" is treated as pixels.
func ParseFidelity(raw string) (Fidelity, error) {
	if strings.TrimSpace(raw) == "" {
		return Fidelity{}, ErrMissingFidelity
	}

	var (
		tt   css.TokenType
		text string
		seen int
	)
	l := css.NewLexer(parse.NewInputString(raw))
	for {
		t, data := l.Next()
		if t == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return Fidelity{}, fmt.Errorf("%w %q: %w", ErrInvalidFidelity, raw, err)
			}
			break
		}
		if t == css.WhitespaceToken {
			continue
		}
		tt, text = t, string(data)
		seen++
	}
	if seen != 1 {
		return Fidelity{}, fmt.Errorf("%w %q: single number expected", ErrInvalidFidelity, raw)
	}

	var f Fidelity
	switch tt {
	case css.NumberToken:
		f.Unit = ""
	case css.PercentageToken:
		text, f.Unit = strings.TrimSuffix(text, "%"), "%"
	case css.DimensionToken:
		text, f.Unit = splitDimension(text)
	default:
		return Fidelity{}, fmt.Errorf("%w %q: not a number", ErrInvalidFidelity, raw)
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Fidelity{}, fmt.Errorf("%w %q: %w", ErrInvalidFidelity, raw, err)
	}
	switch {
	case n == 0:
		return Fidelity{}, ErrZeroFidelity
	case n < 0:
		return Fidelity{}, fmt.Errorf("%w %q: must be positive", ErrInvalidFidelity, raw)
	}
	f.Number = n
	return f, nil
}

// ResolveFidelity returns per-call fidelity when present, configured default
// otherwise. Both are validated the same way.
func ResolveFidelity(call, fallback string) (Fidelity, error) {
	if strings.TrimSpace(call) != "" {
		return ParseFidelity(call)
	}
	return ParseFidelity(fallback)
}

// splitDimension splits "100px" into number and unit. Longest prefix which
// parses as a number wins, so "1e3px" and "100em" are both handled.
func splitDimension(text string) (string, string) {
	for i := len(text); i > 0; i-- {
		if _, err := strconv.ParseFloat(text[:i], 64); err == nil {
			return text[:i], text[i:]
		}
	}
	return text, ""
}
