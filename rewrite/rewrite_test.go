package rewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"resemble/common"
	"resemble/config"
	"resemble/css"
	"resemble/sample"
	"resemble/source"
	"resemble/utils/images"
)

var (
	red  = color.NRGBA{R: 0xff, A: 0xff}
	blue = color.NRGBA{B: 0xff, A: 0xff}
)

// twoTone is 2 pixels wide image, left half red, right half blue.
func twoTone(height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, height))
	for y := range height {
		img.SetNRGBA(0, y, red)
		img.SetNRGBA(1, y, blue)
	}
	return img
}

// fakeLoader serves images from memory and counts requests.
type fakeLoader struct {
	images map[string]image.Image
	calls  atomic.Int32
}

func (f *fakeLoader) Load(_ context.Context, ref string) (image.Image, error) {
	f.calls.Add(1)
	img, ok := f.images[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrImageUnreachable, ref)
	}
	return img, nil
}

func defaultOptions() Options {
	return Options{
		Fidelity:  "25%",
		Generator: common.GeneratorSimple,
		Algorithm: common.AlgorithmChunk,
	}
}

func newWalker(t *testing.T, loader ImageLoader, opts Options) *Walker {
	t.Helper()
	log := zaptest.NewLogger(t)
	p, err := NewPipeline(loader, opts, log)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return NewWalker(NewRewriter(p, opts.Selectors, log), opts.Workers, log)
}

// diskWalker uses real loader over a temporary directory with two tone
// images stored as x.jpg, a.jpg and b.jpg. Content is PNG, type is always
// detected from data.
func diskWalker(t *testing.T, opts Options) (*Walker, string) {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, twoTone(2)); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"x.jpg", "a.jpg", "b.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not really"), 0644); err != nil {
		t.Fatal(err)
	}
	loader := source.New(&config.ImagesConfig{Timeout: time.Second}, zaptest.NewLogger(t)).WithBase(dir)
	return newWalker(t, loader, opts), dir
}

func TestProcessBytes(t *testing.T) {
	complexOpts := defaultOptions()
	complexOpts.Generator = common.GeneratorComplex
	halfOpts := defaultOptions()
	halfOpts.Fidelity = "50%"
	paletteOpts := defaultOptions()
	paletteOpts.Algorithm = common.AlgorithmPalette
	rasterOpts := defaultOptions()
	rasterOpts.Algorithm = common.AlgorithmRaster
	pixelOpts := defaultOptions()
	pixelOpts.Fidelity = "1"
	selectorOpts := halfOpts
	selectorOpts.Selectors = []string{".hero"}

	tests := []struct {
		name string
		opts Options
		in   string
		want string
	}{
		{
			name: "two tone",
			opts: defaultOptions(),
			in:   `header{background:resemble-image(url("x.jpg"), 50%)}`,
			want: `header{background:url("x.jpg"), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "two tone complex",
			opts: complexOpts,
			in:   `header{background:resemble-image(url("x.jpg"), 50%)}`,
			want: `header{background:url("x.jpg"), linear-gradient(90deg, #ff0000 0%, #ff0000 50%, #0000ff 50%)}`,
		},
		{
			name: "unquoted url and pixel fidelity",
			opts: defaultOptions(),
			in:   `header{background:resemble-image(url(x.jpg), 1px)}`,
			want: `header{background:url(x.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "fidelity from options",
			opts: pixelOpts,
			in:   `header{background:resemble-image(url('x.jpg'))}`,
			want: `header{background:url('x.jpg'), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "multiple backgrounds",
			opts: halfOpts,
			in:   `header{background:url("a.jpg"), resemble-image(url("b.jpg"))}`,
			want: `header{background:url("a.jpg"), url("b.jpg"), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "two calls in one value",
			opts: halfOpts,
			in:   `header{background:resemble-image(url(a.jpg)), resemble-image(url(b.jpg), 1px)}`,
			want: `header{background:url(a.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%), url(b.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "palette",
			opts: paletteOpts,
			in:   `header{background:resemble-image(url("x.jpg"))}`,
			want: `header{background:url("x.jpg"), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "raster",
			opts: rasterOpts,
			in:   `header{background:resemble-image(url("x.jpg"), 50%)}`,
			want: `header{background:url("x.jpg"), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)}`,
		},
		{
			name: "background-image inside media",
			opts: halfOpts,
			in:   "@media screen {\n  .a { background-image: resemble-image(url(x.jpg)) ; color: red }\n}\n",
			want: "@media screen {\n  .a { background-image: url(x.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%) ; color: red }\n}\n",
		},
		{
			name: "selector qualified url",
			opts: selectorOpts,
			in:   `h1, .hero{background:url(x.jpg) no-repeat}`,
			want: `h1, .hero{background:url(x.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%) no-repeat}`,
		},
		{
			name: "url outside selectors",
			opts: selectorOpts,
			in:   `.other{background:url(x.jpg) no-repeat}`,
			want: `.other{background:url(x.jpg) no-repeat}`,
		},
		{
			name: "pass through",
			opts: defaultOptions(),
			in:   "/* keep */\nheader{background:url(\"alchemy.jpg\")}\n@import url(more.css);\n",
			want: "/* keep */\nheader{background:url(\"alchemy.jpg\")}\n@import url(more.css);\n",
		},
		{
			name: "other properties ignored",
			opts: defaultOptions(),
			in:   `header{content:"resemble-image(url(x.jpg))"; mask:resemble-image(url(missing.jpg))}`,
			want: `header{content:"resemble-image(url(x.jpg))"; mask:resemble-image(url(missing.jpg))}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := diskWalker(t, tt.opts)
			got, err := w.ProcessBytes(context.Background(), []byte(tt.in), tt.name)
			if err != nil {
				t.Fatalf("ProcessBytes() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ProcessBytes()\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestProcessBytes_Failures(t *testing.T) {
	zeroOpts := defaultOptions()
	zeroOpts.Fidelity = "0"

	tests := []struct {
		name string
		opts Options
		in   string
		want error
	}{
		{"zero in call", defaultOptions(), `header{background:resemble-image(url("x.jpg"), 0)}`, sample.ErrZeroFidelity},
		{"zero percentage in call", defaultOptions(), `header{background:resemble-image(url("x.jpg"), 0%)}`, sample.ErrZeroFidelity},
		{"zero in options", zeroOpts, `header{background:resemble-image(url("x.jpg"))}`, sample.ErrZeroFidelity},
		{"invalid fidelity", defaultOptions(), `header{background:resemble-image(url("x.jpg"), twenty-five)}`, sample.ErrInvalidFidelity},
		{"missing url", defaultOptions(), `header{background:resemble-image("x.jpg")}`, ErrMalformedCall},
		{"no arguments", defaultOptions(), `header{background:resemble-image()}`, ErrMalformedCall},
		{"fidelity without comma", defaultOptions(), `header{background:resemble-image(url(x.jpg) 50%)}`, ErrMalformedCall},
		{"junk after url", defaultOptions(), `header{background:resemble-image(url(x.jpg) bogus junk, 50%)}`, ErrMalformedCall},
		{"two urls", defaultOptions(), `header{background:resemble-image(url(x.jpg) url(a.jpg))}`, ErrMalformedCall},
		{"too many stops", defaultOptions(), `header{background:resemble-image(url(x.jpg), 0.0001)}`, sample.ErrInvalidFidelity},
		{"unreachable", defaultOptions(), `header{background:resemble-image(url(nope.jpg))}`, source.ErrImageUnreachable},
		{"undecodable", defaultOptions(), `header{background:resemble-image(url(broken.jpg))}`, images.ErrImageUndecodable},
		{
			"one bad declaration rejects all",
			defaultOptions(),
			"a{background:resemble-image(url(x.jpg))}\nb{background:resemble-image(url(nope.jpg))}\n",
			source.ErrImageUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := diskWalker(t, tt.opts)
			got, err := w.ProcessBytes(context.Background(), []byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("ProcessBytes() error = %v, want %v", err, tt.want)
			}
			if got != nil {
				t.Errorf("no output expected on failure, got %q", got)
			}
		})
	}
}

func TestProcess_SheetUntouchedOnFailure(t *testing.T) {
	loader := &fakeLoader{images: map[string]image.Image{"x.jpg": twoTone(1)}}
	w := newWalker(t, loader, defaultOptions())

	in := "a{background:resemble-image(url(x.jpg))}\nb{background:resemble-image(url(y.jpg))}\n"
	sheet, err := css.ParseSheet([]byte(in))
	if err != nil {
		t.Fatalf("ParseSheet() error = %v", err)
	}
	if _, err := w.Process(context.Background(), sheet); !errors.Is(err, source.ErrImageUnreachable) {
		t.Fatalf("Process() error = %v", err)
	}
	if got := sheet.String(); got != in {
		t.Errorf("sheet changed after failure: %q", got)
	}
}

func TestProcess_Concurrent(t *testing.T) {
	loader := &fakeLoader{images: map[string]image.Image{"x.jpg": twoTone(4)}}
	opts := defaultOptions()
	opts.Fidelity = "50%"
	opts.Workers = 3
	w := newWalker(t, loader, opts)

	var in, want bytes.Buffer
	for i := range 40 {
		fmt.Fprintf(&in, ".c%d{background:resemble-image(url(x.jpg))}\n", i)
		fmt.Fprintf(&want, ".c%d{background:url(x.jpg), linear-gradient(90deg, #ff0000 0%%, #0000ff 50%%)}\n", i)
	}
	got, err := w.ProcessBytes(context.Background(), in.Bytes())
	if err != nil {
		t.Fatalf("ProcessBytes() error = %v", err)
	}
	if string(got) != want.String() {
		t.Errorf("unexpected output:\n%s", got)
	}
	if n := loader.calls.Load(); n != 40 {
		t.Errorf("loader called %d times, want 40", n)
	}
}

func TestRewriter_Rewrite(t *testing.T) {
	loader := &fakeLoader{images: map[string]image.Image{"x.jpg": twoTone(1)}}
	p, err := NewPipeline(loader, defaultOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	rw := NewRewriter(p, []string{"header"}, zaptest.NewLogger(t))

	t.Run("case insensitive function name", func(t *testing.T) {
		got, changed, err := rw.Rewrite(context.Background(), css.Declaration{
			Property: "background",
			Value:    "RESEMBLE-IMAGE(url(x.jpg), 50%)",
		})
		if err != nil || !changed {
			t.Fatalf("Rewrite() = %q, %v, %v", got, changed, err)
		}
		if want := "url(x.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)"; got != want {
			t.Errorf("Rewrite() = %q, want %q", got, want)
		}
	})

	t.Run("wrapped mode leaves plain urls alone", func(t *testing.T) {
		got, _, err := rw.Rewrite(context.Background(), css.Declaration{
			Property:  "background",
			Value:     "url(x.jpg), resemble-image(url(x.jpg), 50%)",
			Selectors: []string{"header"},
		})
		if err != nil {
			t.Fatalf("Rewrite() error = %v", err)
		}
		if want := "url(x.jpg), url(x.jpg), linear-gradient(90deg, #ff0000 0%, #0000ff 50%)"; got != want {
			t.Errorf("Rewrite() = %q, want %q", got, want)
		}
	})

	t.Run("pass through keeps text", func(t *testing.T) {
		value := "red  /* c */  url(x.jpg)"
		got, changed, err := rw.Rewrite(context.Background(), css.Declaration{Property: "background", Value: value})
		if err != nil || changed || got != value {
			t.Errorf("Rewrite() = %q, %v, %v", got, changed, err)
		}
	})

	t.Run("error names declaration", func(t *testing.T) {
		_, _, err := rw.Rewrite(context.Background(), css.Declaration{
			Property: "background-image",
			Value:    "resemble-image(url(x.jpg), 0)",
			Line:     7,
		})
		if !errors.Is(err, sample.ErrZeroFidelity) {
			t.Fatalf("Rewrite() error = %v", err)
		}
		if want := "background-image (line 7)"; !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	})
}

func TestPipeline_FidelityCheckedBeforeLoading(t *testing.T) {
	loader := &fakeLoader{images: map[string]image.Image{"x.jpg": twoTone(1)}}
	p, err := NewPipeline(loader, defaultOptions(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	for _, raw := range []string{"0", "0%", "twenty-five"} {
		if _, err := p.Gradient(context.Background(), "x.jpg", raw); err == nil {
			t.Errorf("Gradient(%q) expected error", raw)
		}
	}
	if n := loader.calls.Load(); n != 0 {
		t.Errorf("loader called %d times, want 0", n)
	}

	got, err := p.Gradient(context.Background(), "x.jpg", "")
	if err != nil {
		t.Fatalf("Gradient() error = %v", err)
	}
	// default 25% of 2px is half a pixel, 4 strips
	if want := "linear-gradient(90deg, #ff0000 0%, #ff0000 25%, #0000ff 50%, #0000ff 75%)"; got != want {
		t.Errorf("Gradient() = %q, want %q", got, want)
	}
}

func TestNewPipeline_BadOptions(t *testing.T) {
	opts := defaultOptions()
	opts.Algorithm = common.Algorithm(99)
	if _, err := NewPipeline(&fakeLoader{}, opts, nil); err == nil {
		t.Error("expected error for unknown algorithm")
	}
	opts = defaultOptions()
	opts.Generator = common.Generator(99)
	if _, err := NewPipeline(&fakeLoader{}, opts, nil); err == nil {
		t.Error("expected error for unknown generator")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	opts := OptionsFromConfig(cfg)
	if opts.Fidelity != "25%" || opts.Generator != common.GeneratorSimple || opts.Algorithm != common.AlgorithmChunk {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestRewriter_LogsValueTree(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	loader := &fakeLoader{images: map[string]image.Image{"x.jpg": twoTone(1)}}
	p, err := NewPipeline(loader, defaultOptions(), zap.New(core))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	rw := NewRewriter(p, nil, zap.New(core))

	if _, _, err := rw.Rewrite(context.Background(), css.Declaration{
		Property: "background",
		Value:    "resemble-image(url(x.jpg))",
		Line:     3,
	}); err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	entries := logs.FilterMessage("Value tree").All()
	if len(entries) != 1 {
		t.Fatalf("expected single value tree entry, got %d", len(entries))
	}
	tree, _ := entries[0].ContextMap()["tree"].(string)
	if !strings.HasPrefix(tree, "function resemble-image() closed\n") {
		t.Errorf("unexpected tree %q", tree)
	}
}
