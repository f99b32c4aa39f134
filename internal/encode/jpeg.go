package encode

import (
	"bytes"
	"image"
	"image/jpeg"
)

// JPEGEncoder writes JPEG at the given quality (1-100).
type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JPEGEncoder) Format() string        { return "jpeg" }
func (JPEGEncoder) FileExtension() string { return ".jpg" }
