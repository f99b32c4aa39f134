package coord

import "math"

const (
	// DegToRad converts degrees to radians.
	DegToRad = math.Pi / 180
	// RadToDeg converts radians to degrees.
	RadToDeg = 180 / math.Pi
)

// AdjLon wraps a longitude in radians into [-π, π]. Values already within
// the range, give or take 1e-12, are returned unchanged.
func AdjLon(lon float64) float64 {
	if math.Abs(lon) < math.Pi+1e-12 {
		return lon
	}
	lon += math.Pi
	lon -= 2 * math.Pi * math.Floor(lon/(2*math.Pi))
	return lon - math.Pi
}
