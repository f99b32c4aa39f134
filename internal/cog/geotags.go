package cog

import (
	"errors"
	"fmt"
)

// GeoTIFF GeoKey IDs.
const (
	gkModelTypeGeoKey       = 1024
	gkRasterTypeGeoKey      = 1025
	gkGeographicTypeGeoKey  = 2048
	gkProjectedCSTypeGeoKey = 3072
)

const (
	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
)

// Georef holds the parsed georeferencing of one IFD.
type Georef struct {
	EPSG        int  // EPSG code (e.g. 4326), 0 when absent
	Geographic  bool // model coordinates are degrees
	PixelIsArea bool
	// West and North locate the centre of pixel (0,0) in model units.
	West  float64
	North float64
	// ResX and ResY are the pixel steps. ResY is negative for images stored
	// south to north.
	ResX float64
	ResY float64
}

// Georef parses GeoKeys together with the transform, scale and tie point tags.
func (ifd *IFD) Georef() (Georef, error) {
	var g Georef
	g.Geographic = true

	keys := ifd.GeoKeys
	if len(keys) > 0 {
		if len(keys) < 4 || len(keys)%4 != 0 {
			return g, errors.New("wrong number of values in GeoKeys tag")
		}
		if keys[0] != 1 {
			return g, fmt.Errorf("unsupported GeoTIFF key directory version %d", keys[0])
		}
		numKeys := int(keys[3])
		for i := 0; i < numKeys; i++ {
			base := 4 + i*4
			if base+3 >= len(keys) {
				break
			}
			keyID := keys[base]
			// tiffTagLocation := keys[base+1]
			// count := keys[base+2]
			value := keys[base+3]

			switch keyID {
			case gkModelTypeGeoKey:
				switch value {
				case modelTypeProjected:
					g.Geographic = false
				case modelTypeGeographic:
					g.Geographic = true
				default:
					return g, fmt.Errorf("only GTModelTypeGeoKey = ModelTypeGeographic or ModelTypeProjected are supported, got %d", value)
				}
			case gkRasterTypeGeoKey:
				g.PixelIsArea = value == rasterPixelIsArea
			case gkProjectedCSTypeGeoKey, gkGeographicTypeGeoKey:
				if value > 0 && g.EPSG == 0 {
					g.EPSG = int(value)
				}
			}
		}
	}

	switch {
	case len(ifd.ModelTransform) == 16:
		m := ifd.ModelTransform
		if m[1] != 0 || m[4] != 0 {
			return g, errors.New("rotational terms not supported in GeoTransformationMatrix tag")
		}
		g.West = m[3]
		g.ResX = m[0]
		g.North = m[7]
		g.ResY = -m[5]
	default:
		if len(ifd.ModelPixelScale) != 3 {
			return g, errors.New("missing GeoPixelScale tag or wrong number of values")
		}
		if len(ifd.ModelTiepoint) != 6 {
			return g, errors.New("missing GeoTiePoints tag or wrong number of values")
		}
		// The tiepoint maps pixel (I,J) to world coordinate (X,Y).
		g.ResX = ifd.ModelPixelScale[0]
		g.ResY = ifd.ModelPixelScale[1]
		g.West = ifd.ModelTiepoint[3] - ifd.ModelTiepoint[0]*g.ResX
		g.North = ifd.ModelTiepoint[4] + ifd.ModelTiepoint[1]*g.ResY
	}

	if g.PixelIsArea {
		g.West += 0.5 * g.ResX
		g.North -= 0.5 * g.ResY
	}
	return g, nil
}
