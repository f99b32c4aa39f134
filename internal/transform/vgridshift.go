package transform

import (
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
	"github.com/pspoerri/gridshift/internal/shift"
)

// VGridShift adds a vertical offset interpolated from vertical grids to the
// height.
type VGridShift struct {
	gridOp
	window     timeWindow
	multiplier float64
}

// vertconGrids store millimetres.
var vertconGrids = map[string]bool{
	"vertconw.gtx": true,
	"vertconc.gtx": true,
	"vertcone.gtx": true,
}

func newVGridShift(p Params, ctx *registry.Context) (*VGridShift, error) {
	window, err := parseTimeWindow(p)
	if err != nil {
		return nil, err
	}
	// Forward subtracts the geoid undulation unless told otherwise.
	multiplier, err := p.Float("multiplier", -1)
	if err != nil {
		return nil, err
	}
	if vertconGrids[p["grids"]] && (multiplier == 1 || multiplier == -1) {
		multiplier *= 0.001
	}
	op, err := newGridOp("vgridshift", grid.Vertical, p, ctx)
	if err != nil {
		return nil, err
	}
	return &VGridShift{gridOp: op, window: window, multiplier: multiplier}, nil
}

// Multiplier returns the factor applied to grid values in the forward
// direction.
func (v *VGridShift) Multiplier() float64 { return v.multiplier }

func (v *VGridShift) Forward(c Coord) (Coord, error) { return v.apply(c, 1) }

func (v *VGridShift) Inverse(c Coord) (Coord, error) { return v.apply(c, -1) }

func (v *VGridShift) apply(c Coord, sign float64) (Coord, error) {
	l, err := v.list()
	if err != nil {
		return errorCoord, err
	}
	if !v.window.applies(c.T) || len(l.Sets) == 0 {
		return c, nil
	}
	dz, err := l.VerticalValue(shift.LP{Lam: c.X, Phi: c.Y}, v.multiplier)
	if err != nil {
		return errorCoord, err
	}
	c.Z += sign * dz
	return c, nil
}
