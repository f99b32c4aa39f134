package coord

// Projection maps between the projected coordinates of a grid CRS and
// geographic longitude/latitude in degrees.
type Projection interface {
	// ToGeographic converts projected x/y to longitude/latitude.
	ToGeographic(x, y float64) (lon, lat float64)
	// FromGeographic converts longitude/latitude to projected x/y.
	FromGeographic(lon, lat float64) (x, y float64)
	// EPSG returns the EPSG code of the CRS.
	EPSG() int
}

// ForEPSG returns the projection of a CRS, or nil when the code is not
// supported. Geographic CRS map to an identity projection.
func ForEPSG(epsg int) Projection {
	switch epsg {
	case 2056:
		return SwissLV95{}
	case 21781:
		return SwissLV03{}
	case 3857:
		return WebMercator{}
	case 4326, 4258, 4269, 4267, 4230, 4979, 4937:
		return Geographic{Code: epsg}
	}
	return nil
}

// Geographic is the identity projection of a geographic CRS.
type Geographic struct {
	Code int
}

func (g Geographic) ToGeographic(x, y float64) (float64, float64) { return x, y }
func (g Geographic) FromGeographic(lon, lat float64) (float64, float64) { return lon, lat }
func (g Geographic) EPSG() int { return g.Code }
