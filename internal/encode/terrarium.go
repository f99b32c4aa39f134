package encode

import (
	"image"
	"image/color"
	"math"
)

// TerrariumEncoder writes PNG whose pixels hold values in the Terrarium
// encoding, value = R*256 + G + B/256 - 32768. The image handed to it must
// already be Terrarium encoded, see RenderTerrarium.
type TerrariumEncoder struct{}

func (TerrariumEncoder) Encode(img image.Image) ([]byte, error) {
	return encodePNG(img)
}

func (TerrariumEncoder) Format() string        { return "terrarium" }
func (TerrariumEncoder) FileExtension() string { return ".png" }

// ToTerrarium encodes v. NaN and infinities become a transparent pixel and
// values outside the representable range are clamped.
func ToTerrarium(v float64) color.RGBA {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return color.RGBA{}
	}
	u := math.Max(0, math.Min(v+32768, 65535+255.0/256))
	r := math.Floor(u / 256)
	g := math.Floor(u - r*256)
	b := math.Floor((u - r*256 - g) * 256)
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

// FromTerrarium decodes a pixel written by ToTerrarium. Transparent pixels
// decode to NaN.
func FromTerrarium(c color.RGBA) float64 {
	if c.A == 0 {
		return math.NaN()
	}
	return float64(c.R)*256 + float64(c.G) + float64(c.B)/256 - 32768
}
