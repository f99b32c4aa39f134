package coord

import "math"

// sphereRadius is the radius of the Web Mercator sphere.
const sphereRadius = 6378137.0

// WebMercator is the spherical Mercator projection of EPSG:3857.
type WebMercator struct{}

func (WebMercator) EPSG() int { return 3857 }

func (WebMercator) ToGeographic(x, y float64) (lon, lat float64) {
	lon = x / sphereRadius * RadToDeg
	lat = (2*math.Atan(math.Exp(y/sphereRadius)) - math.Pi/2) * RadToDeg
	return lon, lat
}

func (WebMercator) FromGeographic(lon, lat float64) (x, y float64) {
	x = lon * DegToRad * sphereRadius
	y = math.Log(math.Tan(math.Pi/4+lat*DegToRad/2)) * sphereRadius
	return x, y
}

// ProjectedBound walks the outline of a projected rectangle with n points
// per side and returns the geographic bounding box of the result in
// degrees.
func ProjectedBound(p Projection, minX, minY, maxX, maxY float64, n int) (minLon, minLat, maxLon, maxLat float64) {
	if n < 2 {
		n = 2
	}
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		lon, lat := p.ToGeographic(x, y)
		minLon, maxLon = math.Min(minLon, lon), math.Max(maxLon, lon)
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
	}
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n-1)
		x := minX + f*(maxX-minX)
		y := minY + f*(maxY-minY)
		add(x, minY)
		add(x, maxY)
		add(minX, y)
		add(maxX, y)
	}
	return minLon, minLat, maxLon, maxLat
}
