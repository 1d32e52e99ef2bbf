package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resemble/css"
)

// backgroundProperty selects declarations to look at, prefix match.
var backgroundProperty = regexp.MustCompile(`^background(?:-image)?`)

// Walker applies Rewriter to every background declaration of a stylesheet.
type Walker struct {
	rewriter *Rewriter
	parser   *css.Parser
	workers  int
	log      *zap.Logger
}

func NewWalker(rw *Rewriter, workers int, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Walker{
		rewriter: rw,
		parser:   css.NewParser(log),
		workers:  workers,
		log:      log.Named("walker"),
	}
}

type result struct {
	value   string
	changed bool
}

// Process rewrites declarations of the sheet. Either all declarations are
// rewritten or, if any of them fails, sheet is left untouched and the first
// error is returned. Returns number of changed declarations.
func (w *Walker) Process(ctx context.Context, sheet *css.Sheet) (int, error) {
	var candidates []int
	for i, d := range sheet.Declarations {
		if backgroundProperty.MatchString(d.Property) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	results := make([]result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, idx := range candidates {
		g.Go(func() error {
			value, changed, err := w.rewriter.Rewrite(gctx, sheet.Declarations[idx])
			if err != nil {
				return err
			}
			results[i] = result{value: value, changed: changed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var changed int
	for i, idx := range candidates {
		if results[i].changed {
			sheet.SetValue(idx, results[i].value)
			changed++
		}
	}
	w.log.Debug("Stylesheet processed",
		zap.Int("declarations", len(sheet.Declarations)),
		zap.Int("candidates", len(candidates)),
		zap.Int("changed", changed))
	return changed, nil
}

// ProcessBytes parses stylesheet text, rewrites it and returns new text.
// Text without changes is returned byte for byte.
func (w *Walker) ProcessBytes(ctx context.Context, data []byte, source ...string) ([]byte, error) {
	sheet, err := w.parser.Parse(data, source...)
	if err != nil {
		return nil, err
	}
	n, err := w.Process(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to process stylesheet: %w", err)
	}
	if n == 0 {
		return data, nil
	}
	return sheet.Bytes(), nil
}
