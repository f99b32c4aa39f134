package transform

import (
	"fmt"

	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
	"github.com/pspoerri/gridshift/internal/shift"
)

const (
	xyzMaxIterations = 10
	xyzTolerance     = 1e-10
)

// XYZGridShift applies geocentric translations read from generic grids.
// The grids are indexed by the geodetic position of either the input or
// the output coordinate.
type XYZGridShift struct {
	gridOp
	ellps          coord.Ellipsoid
	gridRefIsInput bool
	multiplier     float64
}

func newXYZGridShift(p Params, ctx *registry.Context) (*XYZGridShift, error) {
	x := &XYZGridShift{ellps: coord.GRS80, gridRefIsInput: true}
	switch ref := p["grid_ref"]; ref {
	case "", "input_crs":
	case "output_crs":
		x.gridRefIsInput = false
	default:
		return nil, fmt.Errorf("%w: unsupported value for grid_ref: %q", grid.ErrInvalidParameter, ref)
	}
	if name, ok := p["ellps"]; ok {
		e, err := coord.EllipsoidByName(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", grid.ErrInvalidParameter, err)
		}
		x.ellps = e
	}
	var err error
	if x.multiplier, err = p.Float("multiplier", 1); err != nil {
		return nil, err
	}
	if x.gridOp, err = newGridOp("xyzgridshift", grid.Generic, p, ctx); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *XYZGridShift) Forward(c Coord) (Coord, error) {
	if x.gridRefIsInput {
		return x.direct(c, 1)
	}
	return x.iterate(c, -1)
}

func (x *XYZGridShift) Inverse(c Coord) (Coord, error) {
	if x.gridRefIsInput {
		return x.iterate(c, 1)
	}
	return x.direct(c, -1)
}

// direct adds factor times the translation found at c.
func (x *XYZGridShift) direct(c Coord, factor float64) (Coord, error) {
	d, err := x.translation(c)
	if err != nil {
		return errorCoord, err
	}
	c.X += factor * d[0]
	c.Y += factor * d[1]
	c.Z += factor * d[2]
	return c, nil
}

// iterate solves p + factor*translation(p) = c for p.
func (x *XYZGridShift) iterate(c Coord, factor float64) (Coord, error) {
	p := c
	for i := 0; i < xyzMaxIterations; i++ {
		d, err := x.translation(p)
		if err != nil {
			return errorCoord, err
		}
		ex := p.X + factor*d[0] - c.X
		ey := p.Y + factor*d[1] - c.Y
		ez := p.Z + factor*d[2] - c.Z
		p.X -= ex
		p.Y -= ey
		p.Z -= ez
		if ex*ex+ey*ey+ez*ez < xyzTolerance*xyzTolerance {
			break
		}
	}
	return p, nil
}

// translation interpolates the x/y/z translation at the geodetic position
// of the geocentric coordinate c, scaled by the multiplier.
func (x *XYZGridShift) translation(c Coord) ([3]float64, error) {
	var d [3]float64
	l, err := x.list()
	if err != nil {
		return d, err
	}
	lam, phi, _ := x.ellps.Geodetic(c.X, c.Y, c.Z)
	lp := shift.LP{Lam: lam, Phi: phi}
	for {
		g, set := l.Find(lp)
		if g == nil {
			return d, grid.ErrOutsideGrid
		}
		if g.IsNull() {
			return d, nil
		}
		idx, err := x.samples(g)
		if err != nil {
			return d, err
		}
		vals, retry, err := shift.BilinearThreeSamples(x.logger, g, lp, idx)
		if retry {
			if set.Reopen() {
				continue
			}
			return d, fmt.Errorf("%w: %s could not be reloaded", grid.ErrOutsideGrid, set.Name())
		}
		if err != nil {
			return d, err
		}
		for i, v := range vals {
			d[i] = v * x.multiplier
		}
		return d, nil
	}
}

// samples locates the translation samples of g by their descriptions,
// defaulting to the first three.
func (x *XYZGridShift) samples(g *grid.Grid) ([3]int, error) {
	idx := [3]int{0, 1, 2}
	n := g.SamplesPerPixel()
	if n < 3 {
		x.logger.Error("Grid has not enough samples", "grid", g.Name(), "samples", n)
		return idx, fmt.Errorf("%w: %s has %d samples", grid.ErrFileNotFoundOrInvalid, g.Name(), n)
	}
	for i := 0; i < n; i++ {
		switch g.Description(i) {
		case "x_translation":
			idx[0] = i
		case "y_translation":
			idx[1] = i
		case "z_translation":
			idx[2] = i
		}
	}
	if unit := g.Unit(idx[0]); unit != "" && unit != "metre" {
		x.logger.Error("Only unit=metre currently handled", "grid", g.Name(), "unit", unit)
		return idx, fmt.Errorf("%w: unit %q", grid.ErrFileNotFoundOrInvalid, unit)
	}
	return idx, nil
}
