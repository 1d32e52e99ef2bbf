// Package source retrieves and decodes images referenced from stylesheets.
package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"resemble/config"
	"resemble/utils/images"
)

var ErrImageUnreachable = errors.New("image unreachable")

// Loader resolves image references, downloads or reads them and decodes
// result. Decoded images are cached, concurrent requests for the same image
// are served by a single fetch. Loaders derived with WithBase share cache.
type Loader struct {
	base string
	*shared
}

type shared struct {
	cfg    *config.ImagesConfig
	client *http.Client
	log    *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]image.Image
}

// New creates loader resolving relative references against current
// directory.
func New(cfg *config.ImagesConfig, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		shared: &shared{
			cfg:    cfg,
			client: &http.Client{Timeout: cfg.Timeout},
			log:    log.Named("source"),
			cache:  make(map[string]image.Image),
		},
	}
}

// WithBase returns loader resolving relative references against dir,
// normally directory of the stylesheet being processed.
func (l *Loader) WithBase(dir string) *Loader {
	return &Loader{base: dir, shared: l.shared}
}

// Load returns decoded image for reference as written in url().
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	loc, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	img, ok := l.cache[loc.key]
	l.mu.RUnlock()
	if ok {
		l.log.Debug("Image cache hit", zap.String("ref", ref))
		return img, nil
	}

	v, err, dup := l.group.Do(loc.key, func() (any, error) {
		data, err := l.fetch(ctx, loc)
		if err != nil {
			return nil, err
		}
		img, format, err := images.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", ref, err)
		}
		l.log.Debug("Image decoded",
			zap.String("ref", ref),
			zap.String("format", format),
			zap.Int("width", img.Bounds().Dx()),
			zap.Int("height", img.Bounds().Dy()))

		l.mu.Lock()
		l.cache[loc.key] = img
		l.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	if dup {
		l.log.Debug("Image load shared", zap.String("ref", ref))
	}
	return v.(image.Image), nil
}

type kind int

const (
	kindFile kind = iota
	kindRemote
	kindData
)

type location struct {
	kind kind
	key  string // file path, absolute URL or data URI itself
}

func (l *Loader) resolve(ref string) (location, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return location{}, fmt.Errorf("%w: empty reference", ErrImageUnreachable)
	}

	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return location{kind: kindData, key: ref}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return location{kind: kindRemote, key: ref}, nil
	case strings.HasPrefix(ref, "//"):
		return location{kind: kindRemote, key: "https:" + ref}, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return location{}, fmt.Errorf("%w: %q: %w", ErrImageUnreachable, ref, err)
	}
	if u.Scheme != "" && len(u.Scheme) > 1 {
		// single letter scheme is a windows drive
		return location{}, fmt.Errorf("%w: %q: unsupported scheme %s", ErrImageUnreachable, ref, u.Scheme)
	}

	// query and fragment make no sense for local files
	path := filepath.FromSlash(u.Path)
	if u.Scheme != "" {
		path = filepath.FromSlash(u.Scheme + ":" + u.Opaque + u.Path)
	}
	switch {
	case strings.HasPrefix(u.Path, "/") && l.cfg.Root != "":
		path = filepath.Join(l.cfg.Root, path)
	case filepath.IsAbs(path):
	default:
		path = filepath.Join(l.base, path)
	}
	return location{kind: kindFile, key: filepath.Clean(path)}, nil
}

func (l *Loader) fetch(ctx context.Context, loc location) ([]byte, error) {
	switch loc.kind {
	case kindData:
		return decodeDataURI(loc.key)
	case kindRemote:
		return l.download(ctx, loc.key)
	default:
		return l.read(loc.key)
	}
}

func (l *Loader) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageUnreachable, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a file", ErrImageUnreachable, path)
	}
	if l.cfg.MaxSize > 0 && info.Size() > l.cfg.MaxSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrImageUnreachable, path, l.cfg.MaxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageUnreachable, err)
	}
	l.log.Debug("Image read", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

func (l *Loader) download(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageUnreachable, err)
	}
	if l.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", l.cfg.UserAgent)
	}
	if token := l.cfg.AuthToken.Reveal(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrImageUnreachable, link, resp.Status)
	}

	var body io.Reader = resp.Body
	if l.cfg.MaxSize > 0 {
		body = io.LimitReader(resp.Body, l.cfg.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImageUnreachable, link, err)
	}
	if l.cfg.MaxSize > 0 && int64(len(data)) > l.cfg.MaxSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrImageUnreachable, link, l.cfg.MaxSize)
	}
	l.log.Debug("Image downloaded",
		zap.String("url", link),
		zap.String("content-type", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(data)))
	return data, nil
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrImageUnreachable)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		if unescaped, err := url.PathUnescape(payload); err == nil {
			payload = unescaped
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: data URI: %w", ErrImageUnreachable, err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URI: %w", ErrImageUnreachable, err)
	}
	return []byte(data), nil
}
