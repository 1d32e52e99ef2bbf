// Package images decodes image data referenced from stylesheets.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrImageUndecodable = errors.New("unable to decode image")

// supported lists image types which could be decoded by registered decoders.
var supported = map[string]bool{
	"jpg":  true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"tif":  true,
	"webp": true,
}

// Decode returns decoded image and its format name. Data type is detected by
// content, never by name. SVG is rasterized at its intrinsic size.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: no data", ErrImageUndecodable)
	}

	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		if isSVG(data) {
			img, err := RasterizeSVG(data, 0)
			if err != nil {
				return nil, "", fmt.Errorf("%w: svg: %w", ErrImageUndecodable, err)
			}
			return img, "svg", nil
		}
		return nil, "", fmt.Errorf("%w: unknown image type", ErrImageUndecodable)
	}
	if !supported[kind.Extension] {
		return nil, "", fmt.Errorf("%w: unsupported image type %s", ErrImageUndecodable, kind.MIME.Value)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrImageUndecodable, kind.Extension, err)
	}
	return img, format, nil
}
