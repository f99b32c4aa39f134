package coord

// SwissLV95 is CH1903+ / LV95 (EPSG:2056), converted with swisstopo's
// approximate formulas. The error stays around a metre, plenty for
// locating grid extents.
type SwissLV95 struct{}

func (SwissLV95) EPSG() int { return 2056 }

func (SwissLV95) ToGeographic(e, n float64) (lon, lat float64) {
	return swissToGeographic((e-2_600_000)/1e6, (n-1_200_000)/1e6)
}

func (SwissLV95) FromGeographic(lon, lat float64) (e, n float64) {
	y, x := swissFromGeographic(lon, lat)
	return 2_000_000 + y, 1_000_000 + x
}

// SwissLV03 is the older CH1903 / LV03 (EPSG:21781), offset from LV95 by
// 2000 km east and 1000 km north.
type SwissLV03 struct{}

func (SwissLV03) EPSG() int { return 21781 }

func (SwissLV03) ToGeographic(y, x float64) (lon, lat float64) {
	return swissToGeographic((y-600_000)/1e6, (x-200_000)/1e6)
}

func (SwissLV03) FromGeographic(lon, lat float64) (y, x float64) {
	return swissFromGeographic(lon, lat)
}

// swissToGeographic takes the offsets from Bern in units of 1000 km.
func swissToGeographic(y, x float64) (lon, lat float64) {
	// Both results come out in units of 10000 arc-seconds.
	l := 2.6779094 + 4.728982*y + 0.791484*y*x + 0.1306*y*x*x - 0.0436*y*y*y
	p := 16.9023892 + 3.238272*x - 0.270978*y*y - 0.002528*x*x -
		0.0447*y*y*x - 0.0140*x*x*x
	return l * 100 / 36, p * 100 / 36
}

// swissFromGeographic returns LV03 easting and northing.
func swissFromGeographic(lon, lat float64) (y, x float64) {
	p := (lat*3600 - 169028.66) / 10000
	l := (lon*3600 - 26782.5) / 10000
	y = 600_072.37 + 211_455.93*l - 10_938.51*l*p - 0.36*l*p*p - 44.54*l*l*l
	x = 200_147.07 + 308_807.95*p + 3_745.25*l*l + 76.63*p*p -
		194.56*l*l*p + 119.79*p*p*p
	return y, x
}
