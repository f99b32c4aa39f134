package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/transform"
)

// parseLine reads "lon lat [h [t]]" in degrees. Fields after the last
// number, at most the fourth, are passed through.
func parseLine(line string) (transform.Coord, string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return transform.Coord{}, "", fmt.Errorf("expected at least 2 values, got %d", len(fields))
	}
	var v [4]float64
	n := 0
	for ; n < min(len(fields), 4); n++ {
		f, err := strconv.ParseFloat(fields[n], 64)
		if err != nil {
			if n < 2 {
				return transform.Coord{}, "", fmt.Errorf("invalid value %q", fields[n])
			}
			break
		}
		v[n] = f
	}
	rest := strings.Join(fields[n:], " ")
	return transform.Coord{X: v[0] * coord.DegToRad, Y: v[1] * coord.DegToRad, Z: v[2], T: v[3]}, rest, nil
}

// formatResult prints lon lat h in degrees and metres, or "*" fields when
// the coordinate could not be transformed.
func formatResult(c transform.Coord, err error, rest string) string {
	var s string
	if err != nil || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
		s = "*\t*\t*"
	} else {
		s = fmt.Sprintf("%.9f\t%.9f\t%.4f", c.X*coord.RadToDeg, c.Y*coord.RadToDeg, c.Z)
	}
	if rest != "" {
		s += "\t" + rest
	}
	return s
}

// converter applies an operator to geographic input. xyzgridshift works on
// geocentric coordinates, so its input is converted on the way in and out.
type converter struct {
	geocentric bool
	inverse    bool
	ellps      coord.Ellipsoid
}

func newConverter(opDef, ellps string, inverse bool) (converter, error) {
	p, err := transform.ParseParams(opDef)
	if err != nil {
		return converter{}, err
	}
	c := converter{inverse: inverse, geocentric: p["proj"] == "xyzgridshift"}
	if c.geocentric {
		if p.Has("ellps") {
			ellps = p["ellps"]
		}
		if c.ellps, err = coord.EllipsoidByName(ellps); err != nil {
			return converter{}, err
		}
	}
	return c, nil
}

func (c converter) apply(op transform.Operator, in transform.Coord) (transform.Coord, error) {
	if c.geocentric {
		x, y, z := c.ellps.Geocentric(in.X, in.Y, in.Z)
		in = transform.Coord{X: x, Y: y, Z: z, T: in.T}
	}
	var (
		out transform.Coord
		err error
	)
	if c.inverse {
		out, err = op.Inverse(in)
	} else {
		out, err = op.Forward(in)
	}
	if err != nil || !c.geocentric {
		return out, err
	}
	lam, phi, h := c.ellps.Geodetic(out.X, out.Y, out.Z)
	return transform.Coord{X: lam, Y: phi, Z: h, T: out.T}, nil
}
