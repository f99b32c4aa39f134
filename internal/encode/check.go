package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gen2brain/webp"
)

// Decode reads back an image written by enc.
func Decode(data []byte, enc Encoder) (image.Image, error) {
	r := bytes.NewReader(data)
	switch enc.Format() {
	case "png", "terrarium":
		return png.Decode(r)
	case "jpeg":
		return jpeg.Decode(r)
	case "webp":
		return webp.Decode(r)
	}
	return nil, fmt.Errorf("cannot decode %s images", enc.Format())
}

// DecodeTerrarium returns the values of a Terrarium PNG, north row first.
// Transparent pixels are NaN.
func DecodeTerrarium(data []byte) (vals []float64, width, height int, err error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	vals = make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			vals = append(vals, FromTerrarium(color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}))
		}
	}
	return vals, b.Dx(), b.Dy(), nil
}

// CheckPreview decodes an encoded preview of one sample of g and checks its
// size. For Terrarium previews it also compares the stored values with
// scale times the sample and returns the largest difference.
func CheckPreview(data []byte, enc Encoder, g Sampler, sample int, scale float64) (float64, error) {
	if enc.Format() != "terrarium" {
		img, err := Decode(data, enc)
		if err != nil {
			return 0, err
		}
		if b := img.Bounds(); b.Dx() != g.Width() || b.Dy() != g.Height() {
			return 0, fmt.Errorf("preview is %dx%d, grid is %dx%d", b.Dx(), b.Dy(), g.Width(), g.Height())
		}
		return 0, nil
	}

	got, w, h, err := DecodeTerrarium(data)
	if err != nil {
		return 0, err
	}
	if w != g.Width() || h != g.Height() {
		return 0, fmt.Errorf("preview is %dx%d, grid is %dx%d", w, h, g.Width(), g.Height())
	}
	want, _, err := readSample(g, sample)
	if err != nil {
		return 0, err
	}
	maxDiff := 0.0
	for i, v := range want {
		v *= scale
		switch {
		case math.IsNaN(v) && math.IsNaN(got[i]):
		case math.IsNaN(v) || math.IsNaN(got[i]):
			return 0, fmt.Errorf("nodata mismatch at pixel (%d,%d)", i%w, i/w)
		default:
			maxDiff = math.Max(maxDiff, math.Abs(got[i]-v))
		}
	}
	return maxDiff, nil
}
