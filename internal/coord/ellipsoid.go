package coord

import (
	"fmt"
	"math"
	"sort"
)

// Ellipsoid is a reference ellipsoid given by its semi-major axis in metres
// and its inverse flattening.
type Ellipsoid struct {
	Name string
	A    float64
	Rf   float64
}

var ellipsoids = map[string]Ellipsoid{
	"GRS80":  {"GRS80", 6378137, 298.257222101},
	"WGS84":  {"WGS84", 6378137, 298.257223563},
	"WGS72":  {"WGS72", 6378135, 298.26},
	"intl":   {"intl", 6378388, 297},
	"clrk66": {"clrk66", 6378206.4, 294.9786982},
	"clrk80": {"clrk80", 6378249.145, 293.4663},
	"bessel": {"bessel", 6377397.155, 299.1528128},
	"airy":   {"airy", 6377563.396, 299.3249646},
	"krass":  {"krass", 6378245, 298.3},
}

// GRS80 is the default ellipsoid of the geocentric operators.
var GRS80 = ellipsoids["GRS80"]

// EllipsoidByName looks up one of the built-in ellipsoids by its PROJ
// +ellps name.
func EllipsoidByName(name string) (Ellipsoid, error) {
	e, ok := ellipsoids[name]
	if !ok {
		return Ellipsoid{}, fmt.Errorf("unknown ellipsoid %q", name)
	}
	return e, nil
}

// EllipsoidNames lists the built-in ellipsoids in sorted order.
func EllipsoidNames() []string {
	names := make([]string, 0, len(ellipsoids))
	for name := range ellipsoids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// F returns the flattening.
func (e Ellipsoid) F() float64 { return 1 / e.Rf }

// B returns the semi-minor axis.
func (e Ellipsoid) B() float64 { return e.A * (1 - e.F()) }

// Es returns the squared first eccentricity.
func (e Ellipsoid) Es() float64 {
	f := e.F()
	return f * (2 - f)
}

// normalRadius is the radius of curvature in the prime vertical at phi.
func (e Ellipsoid) normalRadius(phi float64) float64 {
	s := math.Sin(phi)
	return e.A / math.Sqrt(1-e.Es()*s*s)
}

// Geocentric converts longitude and latitude in radians and the ellipsoidal
// height in metres to earth-centred cartesian coordinates.
func (e Ellipsoid) Geocentric(lam, phi, h float64) (x, y, z float64) {
	n := e.normalRadius(phi)
	sp, cp := math.Sincos(phi)
	sl, cl := math.Sincos(lam)
	x = (n + h) * cp * cl
	y = (n + h) * cp * sl
	z = (n*(1-e.Es()) + h) * sp
	return x, y, z
}

// Geodetic is the inverse of Geocentric, using Bowring's formula.
func (e Ellipsoid) Geodetic(x, y, z float64) (lam, phi, h float64) {
	a, b, es := e.A, e.B(), e.Es()
	// Second eccentricity squared.
	ep2 := (a*a - b*b) / (b * b)

	p := math.Hypot(x, y)
	theta := math.Atan2(z*a, p*b)
	st, ct := math.Sincos(theta)
	phi = math.Atan2(z+ep2*b*st*st*st, p-es*a*ct*ct*ct)
	lam = math.Atan2(y, x)

	c := math.Cos(phi)
	if math.Abs(c) < 1e-6 {
		// Close to a pole the height is measured along the polar axis.
		h = math.Abs(z) - b
	} else {
		h = p/c - e.normalRadius(phi)
	}
	return lam, phi, h
}
