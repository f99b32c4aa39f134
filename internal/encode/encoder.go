// Package encode renders grid samples to images and encodes them.
package encode

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// Encoder encodes an image into file bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	// Format returns the format name, e.g. "png".
	Format() string
	FileExtension() string
}

// NewEncoder creates an encoder for the given format. quality applies to
// the lossy formats and defaults to 85.
func NewEncoder(format string, quality int) (Encoder, error) {
	if quality <= 0 {
		quality = 85
	}
	switch format {
	case "jpeg", "jpg":
		return JPEGEncoder{Quality: quality}, nil
	case "png":
		return PNGEncoder{}, nil
	case "webp":
		return WebPEncoder{Quality: quality}, nil
	case "terrarium":
		return TerrariumEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported image format: %q (supported: jpeg, png, webp, terrarium)", format)
	}
}

// ForPath picks the encoder matching the extension of path.
func ForPath(path string, quality int) (Encoder, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, fmt.Errorf("cannot tell the image format of %q", path)
	}
	return NewEncoder(ext, quality)
}
