package encode

import (
	"image"
	"image/color"
	"math"
)

// Sampler is the cell access a preview needs. *grid.Grid implements it.
type Sampler interface {
	Width() int
	Height() int
	ValueAt(sample, x, y int) (float32, error)
	IsNodata(v float32, multiplier float64) bool
}

// Range is the span of valid values found in a sample.
type Range struct {
	Min, Max float64
	// Nodata counts the cells left out.
	Nodata int
}

// readSample returns the sample values north row first, with nodata as NaN.
func readSample(g Sampler, sample int) ([]float64, Range, error) {
	w, h := g.Width(), g.Height()
	vals := make([]float64, 0, w*h)
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			v, err := g.ValueAt(sample, x, y)
			if err != nil {
				return nil, r, err
			}
			if g.IsNodata(v, 1) || math.IsNaN(float64(v)) {
				vals = append(vals, math.NaN())
				r.Nodata++
				continue
			}
			f := float64(v)
			r.Min, r.Max = math.Min(r.Min, f), math.Max(r.Max, f)
			vals = append(vals, f)
		}
	}
	return vals, r, nil
}

// Render draws one sample in grey levels stretched between its smallest
// and largest valid value, north up. Nodata cells are transparent.
func Render(g Sampler, sample int) (*image.NRGBA, Range, error) {
	vals, r, err := readSample(g, sample)
	if err != nil {
		return nil, r, err
	}
	w := g.Width()
	img := image.NewNRGBA(image.Rect(0, 0, w, g.Height()))
	span := r.Max - r.Min
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		level := uint8(128)
		if span > 0 {
			level = uint8(math.Round((v - r.Min) / span * 255))
		}
		img.SetNRGBA(i%w, i/w, color.NRGBA{R: level, G: level, B: level, A: 255})
	}
	return img, r, nil
}

// RenderTerrarium stores scale times each value of a sample in Terrarium
// encoding, north up.
func RenderTerrarium(g Sampler, sample int, scale float64) (*image.RGBA, error) {
	vals, _, err := readSample(g, sample)
	if err != nil {
		return nil, err
	}
	w := g.Width()
	img := image.NewRGBA(image.Rect(0, 0, w, g.Height()))
	for i, v := range vals {
		img.SetRGBA(i%w, i/w, ToTerrarium(v*scale))
	}
	return img, nil
}
