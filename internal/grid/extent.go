package grid

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// ExtentAndRes is the bounding box of a grid together with its cell size.
// Geographic extents are in radians, projected ones in native units. West,
// South, East and North locate the centres of the corner cells.
type ExtentAndRes struct {
	Geographic bool
	West       float64
	South      float64
	East       float64
	North      float64
	ResX       float64
	ResY       float64
}

var errInconsistentExtent = errors.New("inconsistent georeferencing")

// globalExtent covers the whole earth with a 3x3 lattice.
func globalExtent() ExtentAndRes {
	return ExtentAndRes{
		Geographic: true,
		West:       -math.Pi,
		South:      -math.Pi / 2,
		East:       math.Pi,
		North:      math.Pi / 2,
		ResX:       math.Pi,
		ResY:       math.Pi / 2,
	}
}

// FullWorldLongitude reports whether a geographic grid wraps around the
// globe in longitude.
func (e ExtentAndRes) FullWorldLongitude() bool {
	return e.Geographic && e.East-e.West+e.ResX >= 2*math.Pi-1e-10
}

// Contains reports whether o lies entirely within e.
func (e ExtentAndRes) Contains(o ExtentAndRes) bool {
	return o.West >= e.West && o.East <= e.East &&
		o.South >= e.South && o.North <= e.North
}

// Intersects reports whether the south-west corner of o falls inside e.
func (e ExtentAndRes) Intersects(o ExtentAndRes) bool {
	return o.West < e.East && e.West <= o.West &&
		o.South < e.North && e.South <= o.North
}

// ContainsPoint reports whether (x, y) lies within the extent widened by
// eps. Geographic longitudes are tried one turn east or west when they fall
// outside, and full-world grids accept every longitude.
func (e ExtentAndRes) ContainsPoint(x, y, eps float64) bool {
	if !(y+eps >= e.South && y-eps <= e.North) {
		return false
	}
	if e.FullWorldLongitude() {
		return true
	}
	if e.Geographic {
		if x+eps < e.West {
			x += 2 * math.Pi
		} else if x-eps > e.East {
			x -= 2 * math.Pi
		}
	}
	return x+eps >= e.West && x-eps <= e.East
}

// Bound returns the extent as an orb.Bound, in degrees for geographic grids.
func (e ExtentAndRes) Bound() orb.Bound {
	f := 1.0
	if e.Geographic {
		f = 180 / math.Pi
	}
	return orb.Bound{
		Min: orb.Point{e.West * f, e.South * f},
		Max: orb.Point{e.East * f, e.North * f},
	}
}

// validGeodetic applies the sanity checks shared by the legacy formats.
func (e ExtentAndRes) validGeodetic() bool {
	return math.Abs(e.West) <= 4*math.Pi && math.Abs(e.East) <= 4*math.Pi &&
		math.Abs(e.North) <= math.Pi+1e-5 && math.Abs(e.South) <= math.Pi+1e-5 &&
		e.West < e.East && e.South < e.North &&
		e.ResX > 1e-10 && e.ResY > 1e-10
}

// cellCount derives the number of cells along an axis from its span.
func cellCount(span, res float64) int {
	return int(math.Abs(span/res+0.5) + 1)
}

const (
	degToRad = math.Pi / 180
	arcSec   = degToRad / 3600
)
