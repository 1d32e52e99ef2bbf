package rewrite

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"resemble/gradient"
	"resemble/sample"
)

// ImageLoader returns decoded image for reference as written in url().
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Pipeline turns image reference into gradient text.
type Pipeline struct {
	loader   ImageLoader
	sampler  sample.Sampler
	renderer gradient.Renderer
	fidelity string
	log      *zap.Logger
}

// NewPipeline creates pipeline using sampling algorithm and gradient style
// from options.
func NewPipeline(loader ImageLoader, opts Options, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s, err := sample.New(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	r, err := gradient.New(opts.Generator)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		loader:   loader,
		sampler:  s,
		renderer: r,
		fidelity: opts.Fidelity,
		log:      log.Named("pipeline"),
	}, nil
}

// Gradient loads the image and renders gradient for it. Fidelity given in
// the call takes precedence over default one and is validated before image
// is touched.
func (p *Pipeline) Gradient(ctx context.Context, ref, fidelity string) (string, error) {
	f, err := sample.ResolveFidelity(fidelity, p.fidelity)
	if err != nil {
		return "", fmt.Errorf("image %q: %w", ref, err)
	}

	img, err := p.loader.Load(ctx, ref)
	if err != nil {
		return "", err
	}

	width := img.Bounds().Dx()
	step := f.Step(width)
	stops, err := p.sampler.Sample(ctx, img, step)
	if err != nil {
		return "", fmt.Errorf("image %q: %w", ref, err)
	}

	text := p.renderer.Render(stops)
	p.log.Debug("Gradient ready",
		zap.String("ref", ref),
		zap.Stringer("fidelity", f),
		zap.Int("width", width),
		zap.Float64("step", step),
		zap.Int("stops", len(stops)))
	return text, nil
}
