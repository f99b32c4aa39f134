package coord

import (
	"math"
	"testing"
)

// Reference points published by swisstopo, LV95 and WGS84.
var swissRefPoints = []struct {
	name              string
	easting, northing float64
	lon, lat          float64
	tolDeg            float64
}{
	{"Bern", 2_600_000, 1_200_000, 7.438632, 46.951083, 0.001},
	{"Zurich", 2_683_474, 1_247_862, 8.5417, 47.3769, 0.005},
	{"Geneva", 2_500_560, 1_118_017, 6.1432, 46.2075, 0.01},
}

func TestSwissLV95ToGeographic(t *testing.T) {
	var s SwissLV95
	for _, ref := range swissRefPoints {
		t.Run(ref.name, func(t *testing.T) {
			lon, lat := s.ToGeographic(ref.easting, ref.northing)
			if d := math.Abs(lon - ref.lon); d > ref.tolDeg {
				t.Errorf("lon = %.6f, want %.6f (delta %.6f)", lon, ref.lon, d)
			}
			if d := math.Abs(lat - ref.lat); d > ref.tolDeg {
				t.Errorf("lat = %.6f, want %.6f (delta %.6f)", lat, ref.lat, d)
			}
		})
	}
}

func TestSwissLV95RoundTrip(t *testing.T) {
	var s SwissLV95
	for _, ref := range swissRefPoints {
		lon, lat := s.ToGeographic(ref.easting, ref.northing)
		e, n := s.FromGeographic(lon, lat)
		if math.Abs(e-ref.easting) > 2 || math.Abs(n-ref.northing) > 2 {
			t.Errorf("%s: round trip gave (%.2f, %.2f), want (%.0f, %.0f)",
				ref.name, e, n, ref.easting, ref.northing)
		}
	}
}

func TestSwissLV03MatchesLV95(t *testing.T) {
	var lv95 SwissLV95
	var lv03 SwissLV03
	for _, ref := range swissRefPoints {
		lon95, lat95 := lv95.ToGeographic(ref.easting, ref.northing)
		lon03, lat03 := lv03.ToGeographic(ref.easting-2_000_000, ref.northing-1_000_000)
		if lon95 != lon03 || lat95 != lat03 {
			t.Errorf("%s: LV03 (%v, %v) differs from LV95 (%v, %v)", ref.name, lon03, lat03, lon95, lat95)
		}
		y, x := lv03.FromGeographic(lon95, lat95)
		e, n := lv95.FromGeographic(lon95, lat95)
		if math.Abs(e-2_000_000-y) > 1e-6 || math.Abs(n-1_000_000-x) > 1e-6 {
			t.Errorf("%s: LV03 (%v, %v) not offset from LV95 (%v, %v)", ref.name, y, x, e, n)
		}
	}
}
