package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resemble/css"
	"resemble/utils/debug"
)

// FunctionName is the custom function recognized in declaration values.
const FunctionName = "resemble-image"

var ErrMalformedCall = errors.New("malformed " + FunctionName + "() call")

// occurrence is a top level value node to be replaced.
type occurrence struct {
	index    int    // node index in value
	url      string // url() text as written
	ref      string // reference extracted from url()
	fidelity string // raw second argument, if any
}

// Rewriter rewrites values of single declarations.
type Rewriter struct {
	pipeline  *Pipeline
	selectors []string
	log       *zap.Logger
}

func NewRewriter(p *Pipeline, selectors []string, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{pipeline: p, selectors: selectors, log: log.Named("rewriter")}
}

// Rewrite returns new declaration value and true if anything was replaced.
// Declarations without resemble-image() calls (or plain url() in one of the
// configured selectors) are returned unchanged. All occurrences are sampled
// concurrently, on any failure value is left as is and error is returned.
func (r *Rewriter) Rewrite(ctx context.Context, decl css.Declaration) (string, bool, error) {
	var wrapped bool
	switch {
	case strings.Contains(strings.ToLower(decl.Value), FunctionName):
		wrapped = true
	case strings.Contains(strings.ToLower(decl.Value), "url") && decl.HasSelector(r.selectors):
	default:
		return decl.Value, false, nil
	}

	value := css.ParseValue(decl.Value)
	found, err := r.scan(value, wrapped)
	if err != nil {
		return decl.Value, false, r.annotate(decl, err)
	}
	if len(found) == 0 {
		return decl.Value, false, nil
	}
	if ce := r.log.Check(zap.DebugLevel, "Value tree"); ce != nil {
		ce.Write(zap.String("property", decl.Property), zap.Int("line", decl.Line), zap.String("tree", debug.ValueTree(value)))
	}

	gradients := make([]string, len(found))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range found {
		g.Go(func() error {
			text, err := r.pipeline.Gradient(gctx, o.ref, o.fidelity)
			if err != nil {
				return err
			}
			gradients[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decl.Value, false, r.annotate(decl, err)
	}

	for i, o := range found {
		value = value.Replace(o.index, css.Word(o.url+", "+gradients[i]))
	}
	out := value.String()
	r.log.Debug("Declaration rewritten",
		zap.String("property", decl.Property),
		zap.Int("line", decl.Line),
		zap.Int("images", len(found)))
	return out, true, nil
}

// scan finds top level nodes to replace: resemble-image() calls in wrapped
// mode, url() tokens otherwise.
func (r *Rewriter) scan(value css.Value, wrapped bool) ([]occurrence, error) {
	var found []occurrence
	for i, n := range value {
		if !wrapped {
			if n.IsURL() {
				text := n.String()
				found = append(found, occurrence{index: i, url: text, ref: css.URLOf(text)})
			}
			continue
		}
		if !n.IsFunction(FunctionName) {
			continue
		}
		o, err := parseCall(n)
		if err != nil {
			return nil, err
		}
		o.index = i
		found = append(found, o)
	}
	return found, nil
}

// parseCall extracts arguments of resemble-image(url(...)[, fidelity]).
func parseCall(n css.Node) (occurrence, error) {
	args := n.Args()
	if len(args) == 0 || len(args) > 2 {
		return occurrence{}, fmt.Errorf("%w: %s: expected url() and optional fidelity", ErrMalformedCall, n)
	}

	var o occurrence
	for _, a := range args[0] {
		switch {
		case a.Kind == css.KindSpace:
		case a.IsURL() && o.url == "":
			o.url = a.String()
			o.ref = css.URLOf(o.url)
		default:
			return occurrence{}, fmt.Errorf("%w: %s: unexpected %q in first argument", ErrMalformedCall, n, a.String())
		}
	}
	if o.url == "" {
		return occurrence{}, fmt.Errorf("%w: %s: url() is missing", ErrMalformedCall, n)
	}
	if len(args) == 2 {
		o.fidelity = css.Value(args[1]).String()
		if strings.TrimSpace(o.fidelity) == "" {
			return occurrence{}, fmt.Errorf("%w: %s: empty fidelity", ErrMalformedCall, n)
		}
	}
	return o, nil
}

func (r *Rewriter) annotate(decl css.Declaration, err error) error {
	return fmt.Errorf("%s (line %d): %w", decl.Property, decl.Line, err)
}
