// Package transform implements the grid based coordinate operations:
// hgridshift, vgridshift and xyzgridshift.
package transform

import (
	"fmt"
	"log/slog"

	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
	"github.com/pspoerri/gridshift/internal/shift"
)

// Coord is a 4D coordinate. For geographic operators X and Y are longitude
// and latitude in radians; xyzgridshift works on geocentric metres. Z is a
// height in metres and T a decimal year.
type Coord struct {
	X, Y, Z, T float64
}

// errorCoord is returned alongside failures.
var errorCoord = Coord{shift.HugeVal, shift.HugeVal, shift.HugeVal, shift.HugeVal}

// Operator transforms coordinates in both directions.
type Operator interface {
	Forward(Coord) (Coord, error)
	Inverse(Coord) (Coord, error)
	// Close releases the grid files.
	Close() error
}

// New builds the operator described by def, for example
// "+proj=vgridshift +grids=egm96_15.gtx +multiplier=1".
func New(def string, ctx *registry.Context) (Operator, error) {
	p, err := ParseParams(def)
	if err != nil {
		return nil, err
	}
	switch name := p["proj"]; name {
	case "hgridshift":
		return newHGridShift(p, ctx)
	case "vgridshift":
		return newVGridShift(p, ctx)
	case "xyzgridshift":
		return newXYZGridShift(p, ctx)
	case "":
		return nil, fmt.Errorf("%w: +proj", grid.ErrMissingArg)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", grid.ErrInvalidParameter, name)
	}
}

// gridOp is the part shared by the operators: a grid list that is opened
// at construction or on first use.
type gridOp struct {
	name   string
	loader *registry.Loader
	logger *slog.Logger
}

func newGridOp(name string, kind grid.Kind, p Params, ctx *registry.Context) (gridOp, error) {
	list, ok := p["grids"]
	if !ok || list == "" {
		return gridOp{}, fmt.Errorf("%w: %s: +grids", grid.ErrMissingArg, name)
	}
	logger := ctx.Log().With("op", name)
	loader, err := ctx.Load(kind, list)
	if err != nil {
		logger.Error("Cannot open grids", "grids", list, "error", err)
		return gridOp{}, err
	}
	return gridOp{name: name, loader: loader, logger: logger}, nil
}

// sets returns the opened grid sets, opening them on first use.
func (o gridOp) sets() ([]*grid.GridSet, error) {
	sets, err := o.loader.Sets()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.name, err)
	}
	return sets, nil
}

func (o gridOp) list() (shift.List, error) {
	sets, err := o.sets()
	return shift.List{Sets: sets, Logger: o.logger}, err
}

func (o gridOp) Close() error { return o.loader.Close() }
