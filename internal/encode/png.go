package encode

import (
	"bytes"
	"image"
	"image/png"
)

// PNGEncoder writes lossless PNG.
type PNGEncoder struct{}

func (PNGEncoder) Encode(img image.Image) ([]byte, error) {
	return encodePNG(img)
}

func (PNGEncoder) Format() string        { return "png" }
func (PNGEncoder) FileExtension() string { return ".png" }

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
