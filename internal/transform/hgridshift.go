package transform

import (
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
	"github.com/pspoerri/gridshift/internal/shift"
)

// HGridShift shifts longitude and latitude by horizontal grids.
type HGridShift struct {
	gridOp
	window timeWindow
}

func newHGridShift(p Params, ctx *registry.Context) (*HGridShift, error) {
	window, err := parseTimeWindow(p)
	if err != nil {
		return nil, err
	}
	op, err := newGridOp("hgridshift", grid.Horizontal, p, ctx)
	if err != nil {
		return nil, err
	}
	return &HGridShift{gridOp: op, window: window}, nil
}

func (h *HGridShift) Forward(c Coord) (Coord, error) { return h.apply(c, shift.Forward) }

func (h *HGridShift) Inverse(c Coord) (Coord, error) { return h.apply(c, shift.Inverse) }

func (h *HGridShift) apply(c Coord, dir shift.Direction) (Coord, error) {
	l, err := h.list()
	if err != nil {
		return errorCoord, err
	}
	if !h.window.applies(c.T) || len(l.Sets) == 0 {
		return c, nil
	}
	lp, err := l.Apply(shift.LP{Lam: c.X, Phi: c.Y}, dir)
	if err != nil {
		return errorCoord, err
	}
	c.X, c.Y = lp.Lam, lp.Phi
	return c, nil
}
