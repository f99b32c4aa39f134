package encode

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func gradient(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		wantFmt string
		wantExt string
		wantErr bool
	}{
		{"jpeg", "jpeg", ".jpg", false},
		{"jpg", "jpeg", ".jpg", false},
		{"png", "png", ".png", false},
		{"webp", "webp", ".webp", false},
		{"terrarium", "terrarium", ".png", false},
		{"bmp", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format, 0)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if enc.Format() != tt.wantFmt || enc.FileExtension() != tt.wantExt {
				t.Errorf("got %s/%s, want %s/%s", enc.Format(), enc.FileExtension(), tt.wantFmt, tt.wantExt)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	for path, want := range map[string]string{
		"out/preview.PNG": "png",
		"a.jpeg":          "jpeg",
		"b.webp":          "webp",
	} {
		enc, err := ForPath(path, 90)
		if err != nil {
			t.Fatalf("ForPath(%q): %v", path, err)
		}
		if enc.Format() != want {
			t.Errorf("ForPath(%q) = %s, want %s", path, enc.Format(), want)
		}
	}
	if _, err := ForPath("noext", 90); err == nil {
		t.Error("ForPath without extension succeeded")
	}
	if _, err := ForPath("x.tif", 90); err == nil {
		t.Error("ForPath(x.tif) succeeded")
	}
}

func TestPNGRoundTrip(t *testing.T) {
	src := gradient(32)
	data, err := PNGEncoder{}.Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(data, PNGEncoder{})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{0, 0}, {31, 0}, {7, 19}} {
		r1, g1, b1, a1 := src.At(p.X, p.Y).RGBA()
		r2, g2, b2, a2 := img.At(p.X, p.Y).RGBA()
		if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
			t.Errorf("pixel %v changed", p)
		}
	}
}

func TestLossyRoundTrip(t *testing.T) {
	for _, format := range []string{"jpeg", "webp"} {
		t.Run(format, func(t *testing.T) {
			enc, err := NewEncoder(format, 95)
			if err != nil {
				t.Fatal(err)
			}
			data, err := enc.Encode(gradient(32))
			if err != nil {
				t.Fatal(err)
			}
			img, err := Decode(data, enc)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestTerrarium(t *testing.T) {
	for _, v := range []float64{0, -32768, 1234.5, -10.25, 8848.86328125} {
		if got := FromTerrarium(ToTerrarium(v)); math.Abs(got-v) > 1.0/256 {
			t.Errorf("round trip of %v gave %v", v, got)
		}
	}
	if c := ToTerrarium(math.NaN()); c.A != 0 {
		t.Errorf("NaN encoded as %v", c)
	}
	if !math.IsNaN(FromTerrarium(color.RGBA{})) {
		t.Error("transparent pixel did not decode to NaN")
	}
	if got := FromTerrarium(ToTerrarium(1e9)); got < 32767 {
		t.Errorf("large values not clamped: %v", got)
	}
	if got := FromTerrarium(ToTerrarium(-1e9)); got != -32768 {
		t.Errorf("small values not clamped: %v", got)
	}
}
