// Package process implements process command: rewriting of stylesheet files,
// directory trees and standard input.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"resemble/common"
	"resemble/config"
	"resemble/rewrite"
	"resemble/sample"
	"resemble/source"
	"resemble/state"
)

// StdStream is the source name for reading standard input.
const StdStream = "-"

// replaced in tests
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	dst := cmd.Args().Get(1)
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := applyFlags(cmd, env.Cfg); err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")
	if !env.Cfg.Gradient.Algorithm.UsesStep() {
		log.Debug("Fidelity is validated but not used for sampling", zap.Stringer("algorithm", env.Cfg.Gradient.Algorithm))
	}

	// stylesheets without BOM or @charset are UTF-8 unless told otherwise
	if cp := cmd.String("charset"); len(cp) > 0 {
		env.CodePage, err = codePage(cp)
		if err != nil {
			log.Warn("Unknown character set. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Reading stylesheets without charset declaration as", zap.String("charset", n))
		}
	}

	log.Info("Processing starting",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.Stringer("fidelity", env.Cfg.Gradient.Fidelity),
		zap.Stringer("algorithm", env.Cfg.Gradient.Algorithm),
		zap.Stringer("generator", env.Cfg.Gradient.Generator))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// applyFlags overrides configuration with values from command line.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("fidelity") {
		f := cmd.String("fidelity")
		if _, err := sample.ParseFidelity(f); err != nil {
			return fmt.Errorf("bad fidelity %q: %w", f, err)
		}
		cfg.Gradient.Fidelity = config.Fidelity(f)
	}
	if cmd.IsSet("generator") {
		g, err := common.ParseGenerator(cmd.String("generator"))
		if err != nil {
			return fmt.Errorf("bad generator: %w", err)
		}
		cfg.Gradient.Generator = g
	}
	if cmd.IsSet("algorithm") {
		a, err := common.ParseAlgorithm(cmd.String("algorithm"))
		if err != nil {
			return fmt.Errorf("bad algorithm: %w", err)
		}
		cfg.Gradient.Algorithm = a
	}
	if cmd.IsSet("selector") {
		for _, s := range cmd.StringSlice("selector") {
			if s = strings.Join(strings.Fields(s), " "); s != "" && !slices.Contains(cfg.Gradient.Selectors, s) {
				cfg.Gradient.Selectors = append(cfg.Gradient.Selectors, s)
			}
		}
	}
	if cmd.IsSet("ext") {
		var exts []string
		for _, e := range cmd.StringSlice("ext") {
			if e = strings.TrimSpace(e); e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		if len(exts) == 0 {
			return errors.New("no stylesheet extensions specified")
		}
		cfg.Processing.Extensions = exts
	}
	if cmd.IsSet("workers") {
		if n := cmd.Int("workers"); n >= 0 {
			cfg.Processing.Workers = n
		}
	}
	return nil
}

// runner keeps what is shared by all stylesheets of a single run. Loader
// cache is shared too, so every image is loaded and decoded once.
type runner struct {
	env    *state.LocalEnv
	opts   rewrite.Options
	loader *source.Loader
	log    *zap.Logger
}

func newRunner(env *state.LocalEnv, log *zap.Logger) *runner {
	return &runner{
		env:    env,
		opts:   rewrite.OptionsFromConfig(env.Cfg),
		loader: source.New(&env.Cfg.Images, log),
		log:    log,
	}
}

// process determines input type (standard input, directory or single file)
// and handles it accordingly. "dst" may be empty: files are rewritten in
// place and standard input goes to standard output.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	r := newRunner(state.EnvFromContext(ctx), log)

	if src == StdStream {
		return r.processStream(ctx, dst)
	}

	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	switch {
	case fi.IsDir():
		if len(dst) == 0 {
			dst = src
		}
		return r.processDir(ctx, src, dst)
	case fi.Mode().IsRegular():
		out := src
		if len(dst) > 0 {
			out = dst
			if di, err := os.Stat(dst); err == nil && di.IsDir() {
				out = filepath.Join(dst, filepath.Base(src))
			}
		}
		return r.processFile(ctx, src, out, filepath.Base(src))
	default:
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
}

// processDir walks directory tree and processes every stylesheet, keeping
// directory structure under "dst". Failure of a single stylesheet does not
// stop processing, all failures are reported together.
func (r *runner) processDir(ctx context.Context, dir, dst string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !r.isStylesheet(path) {
			r.log.Debug("Skipping file, not a stylesheet", zap.String("file", path))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}

	var (
		errs   error
		failed int
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if err := r.processFile(ctx, path, filepath.Join(dst, rel), rel); err != nil {
			r.log.Error("Unable to process stylesheet", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", rel, err))
			failed++
		}
	}
	if errs != nil {
		return fmt.Errorf("unable to process %d of %d stylesheets: %w", failed, len(files), errs)
	}
	return nil
}

func (r *runner) isStylesheet(path string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(r.env.Cfg.Processing.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// processFile rewrites single stylesheet. "name" is the stylesheet path
// relative to the processed source, used for logging and reporting.
// Nothing is written unless stylesheet was processed successfully.
func (r *runner) processFile(ctx context.Context, path, out, name string) (rerr error) {
	r.log.Info("Stylesheet processing starting", zap.String("from", path))
	defer func(start time.Time) {
		// image decoders are not always mature enough, one bad image should
		// not bring everything down
		if p := recover(); p != nil {
			r.log.Error("Stylesheet processing ended with panic",
				zap.Any("panic", p), zap.Duration("elapsed", time.Since(start)), zap.String("to", out), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("processing panic: %v", p)
		} else if rerr == nil {
			r.log.Info("Stylesheet processing completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", out))
		}
	}(time.Now())

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}
	result, err := r.rewrite(ctx, data, filepath.Dir(path), name)
	if err != nil {
		return err
	}
	return r.write(out, result)
}

// processStream reads stylesheet from standard input, references are
// resolved relative to working directory.
func (r *runner) processStream(ctx context.Context, dst string) error {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("unable to read standard input: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("unable to get working directory: %w", err)
	}
	result, err := r.rewrite(ctx, data, wd, "stdin.css")
	if err != nil {
		return err
	}
	if len(dst) > 0 && dst != StdStream {
		return r.write(dst, result)
	}
	if _, err := stdout.Write(result); err != nil {
		return fmt.Errorf("unable to write standard output: %w", err)
	}
	return nil
}

// rewrite runs stylesheet text through the rewriter converting it to UTF-8
// and back when necessary. Unchanged stylesheets are returned as is.
func (r *runner) rewrite(ctx context.Context, data []byte, dir, name string) ([]byte, error) {
	r.env.Rpt.StoreData("input/"+config.FlatName(name), data)

	sheet, err := decodeStylesheet(data, r.env.CodePage)
	if err != nil {
		return nil, err
	}

	log := r.log.With(zap.String("stylesheet", name))
	p, err := rewrite.NewPipeline(r.loader.WithBase(dir), r.opts, log)
	if err != nil {
		return nil, err
	}
	w := rewrite.NewWalker(rewrite.NewRewriter(p, r.opts.Selectors, log), r.opts.Workers, log)

	text, err := w.ProcessBytes(ctx, sheet.text, name)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(text, sheet.text) {
		log.Debug("Nothing to rewrite")
		return data, nil
	}
	out, err := sheet.encode(text)
	if err != nil {
		return nil, err
	}

	r.env.Rpt.StoreData("output/"+config.FlatName(name), out)
	return out, nil
}

// write stores result, existing files are only replaced when overwriting
// was requested.
func (r *runner) write(out string, data []byte) error {
	if _, err := os.Stat(out); err == nil {
		if !r.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", out)
		}
		r.log.Debug("Overwriting existing file", zap.String("file", out))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	return nil
}
