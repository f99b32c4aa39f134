package encode

import (
	"bytes"
	"image"

	"github.com/gen2brain/webp"
)

// WebPEncoder writes lossy WebP. gen2brain/webp uses a system libwebp
// through purego when present and its WASM build otherwise.
type WebPEncoder struct {
	Quality int
}

func (e WebPEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: e.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (WebPEncoder) Format() string        { return "webp" }
func (WebPEncoder) FileExtension() string { return ".webp" }
