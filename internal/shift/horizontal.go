// Package shift interpolates corrections from grid sets and applies them to
// coordinates.
package shift

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
)

// HugeVal is stored in coordinates that could not be shifted.
var HugeVal = math.Inf(1)

const (
	// relTolerance scales grid resolutions into lookup tolerances.
	relTolerance  = 1e-5
	maxIterations = 10
	tol           = 1e-12
)

// Direction selects whether a shift is applied or undone.
type Direction int

const (
	Forward Direction = iota
	Inverse
)

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

// LP is a geographic position: longitude and latitude in radians.
type LP struct {
	Lam, Phi float64
}

// huge is the LP returned alongside errors.
var huge = LP{HugeVal, HugeVal}

// errGridChanged asks the caller to look the grid up again after its set
// was reloaded.
var errGridChanged = errors.New("grid changed on disk")

// errOutsideCell reports an interpolation outside the lattice of a grid.
var errOutsideCell = errors.New("outside of grid cells")

// List is an ordered list of grid sets. Lookups use the first set holding
// a grid that covers the position.
type List struct {
	Sets   []*grid.GridSet
	Logger *slog.Logger
}

func (l List) logger() *slog.Logger { return logging.OrDiscard(l.Logger) }

// Find returns the most specific grid covering lp and the set holding it.
func (l List) Find(lp LP) (*grid.Grid, *grid.GridSet) {
	for _, set := range l.Sets {
		if g := set.GridAt(lp.Lam, lp.Phi); g != nil {
			return g, set
		}
	}
	return nil, nil
}

// Apply shifts lp forward or undoes the shift when dir is Inverse. The null
// grid leaves lp unchanged. Failures return HugeVal coordinates together
// with an error wrapping grid.ErrOutsideGrid.
func (l List) Apply(lp LP, dir Direction) (LP, error) {
	for {
		g, set := l.Find(lp)
		if g == nil {
			return huge, grid.ErrOutsideGrid
		}
		if g.IsNull() {
			return lp, nil
		}
		out, err := l.apply(lp, dir, g, set)
		if errors.Is(err, errGridChanged) {
			continue
		}
		return out, err
	}
}

// localWindow expresses lp relative to the south-west corner of ext,
// wrapping the longitude by one turn when that brings it into the grid.
// Positions just outside a neighbouring grid stay unwrapped.
func localWindow(lp LP, ext grid.ExtentAndRes) LP {
	eps := (ext.ResX + ext.ResY) * relTolerance
	span := ext.East - ext.West
	t := LP{lp.Lam - ext.West, lp.Phi - ext.South}
	if t.Lam+eps < 0 && t.Lam+2*math.Pi-eps <= span {
		t.Lam += 2 * math.Pi
	} else if t.Lam-eps > span && t.Lam-2*math.Pi+eps >= 0 {
		t.Lam -= 2 * math.Pi
	}
	return t
}

// reopened reloads set after g reported a change. It returns errGridChanged
// when the set could be reloaded.
func reopened(set *grid.GridSet) error {
	if set.Reopen() {
		return errGridChanged
	}
	return fmt.Errorf("%w: %s could not be reloaded", grid.ErrOutsideGrid, set.Name())
}

func (l List) apply(in LP, dir Direction, g *grid.Grid, set *grid.GridSet) (LP, error) {
	if in.Lam == HugeVal {
		return in, grid.ErrOutsideGrid
	}
	ext := g.Extent()
	tb := localWindow(in, ext)

	t, err := interpolate(tb, g, true)
	if g.HasChanged() {
		return huge, reopened(set)
	}
	if err != nil {
		return huge, outside(err)
	}
	if dir == Forward {
		return LP{in.Lam + t.Lam, in.Phi + t.Phi}, nil
	}

	logger := l.logger()
	t = LP{tb.Lam - t.Lam, tb.Phi - t.Phi}
	converged, atEdge := false, false
	for i := 0; i < maxIterations; i++ {
		del, err := interpolate(t, g, true)
		if g.HasChanged() {
			return huge, reopened(set)
		}
		if err != nil {
			if !errors.Is(err, errOutsideCell) {
				return huge, err
			}
			// The estimate left the grid: continue in the grid covering it.
			lp := LP{t.Lam + ext.West, t.Phi + ext.South}
			next, nextSet := l.Find(lp)
			if next == nil || next == g || next.IsNull() {
				atEdge = true
				break
			}
			logging.Trace(logger, "Switching grid", "from", g.Name(), "to", next.Name())
			g, set = next, nextSet
			ext = g.Extent()
			t = LP{lp.Lam - ext.West, lp.Phi - ext.South}
			tb = localWindow(in, ext)
			continue
		}

		dif := LP{t.Lam + del.Lam - tb.Lam, t.Phi + del.Phi - tb.Phi}
		t.Lam -= dif.Lam
		t.Phi -= dif.Phi
		if dif.Lam*dif.Lam+dif.Phi*dif.Phi <= tol*tol {
			converged = true
			break
		}
	}

	switch {
	case atEdge:
		logger.Debug("Inverse grid shift iteration failed, presumably at grid edge. Using first approximation",
			"grid", g.Name())
	case !converged:
		logger.Debug("Inverse grid shift iterator failed to converge", "grid", g.Name())
		return huge, errors.Join(grid.ErrOutsideGrid, grid.ErrNoConvergence)
	}
	return LP{coord.AdjLon(t.Lam + ext.West), t.Phi + ext.South}, nil
}

// Value returns the interpolated shift at lp without the NT sign
// compensation. Only geographic grids are supported.
func (l List) Value(lp LP) (LP, error) {
	for {
		g, set := l.Find(lp)
		if g == nil {
			return huge, grid.ErrOutsideGrid
		}
		ext := g.Extent()
		if !ext.Geographic {
			l.logger().Error("Can only handle grids referenced in a geographic CRS", "grid", g.Name())
			return huge, fmt.Errorf("%w: %s is not geographic", grid.ErrFileNotFoundOrInvalid, g.Name())
		}

		out, err := interpolate(localWindow(lp, ext), g, false)
		if g.HasChanged() {
			err := reopened(set)
			if errors.Is(err, errGridChanged) {
				continue
			}
			return huge, err
		}
		if err != nil {
			return huge, outside(err)
		}
		return out, nil
	}
}

func outside(err error) error {
	if errors.Is(err, errOutsideCell) {
		return grid.ErrOutsideGrid
	}
	return err
}

// cellIndex splits a raster coordinate into the index of the cell below it
// and the fraction into that cell. NaN maps to cell 0.
func cellIndex(v float64) (int, float64, bool) {
	if math.IsNaN(v) {
		return 0, v, true
	}
	f := math.Floor(v)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, 0, false
	}
	return int(f), v - f, true
}

// snapEdge moves an index lying within 10 tolerances outside [0, n-1] back
// onto the edge cell.
func snapEdge(i int, frac float64, n int) (int, float64, bool) {
	switch {
	case i < 0:
		if i == -1 && frac > 1-10*relTolerance {
			return 0, 0, true
		}
		return i, frac, false
	case i+1 >= n:
		if i+1 == n && frac < 10*relTolerance {
			return i - 1, 1, true
		}
		return i, frac, false
	}
	return i, frac, true
}

// interpolate returns the bilinear shift at t, a position relative to the
// south-west corner of g.
func interpolate(t LP, g *grid.Grid, compensate bool) (LP, error) {
	ext := g.Extent()
	ix, fx, okx := cellIndex(t.Lam / ext.ResX)
	iy, fy, oky := cellIndex(t.Phi / ext.ResY)
	if !okx || !oky {
		return huge, errOutsideCell
	}
	if ix, fx, okx = snapEdge(ix, fx, g.Width()); !okx {
		return huge, errOutsideCell
	}
	if iy, fy, oky = snapEdge(iy, fy, g.Height()); !oky {
		return huge, errOutsideCell
	}

	var lon, lat [4]float32
	corners := [4][2]int{{ix, iy}, {ix + 1, iy}, {ix, iy + 1}, {ix + 1, iy + 1}}
	for i, c := range corners {
		var err error
		lon[i], lat[i], err = g.ShiftAt(c[0], c[1], compensate)
		if err != nil {
			return huge, err
		}
	}

	w := weights(fx, fy)
	var out LP
	for i := range w {
		out.Lam += w[i] * float64(lon[i])
		out.Phi += w[i] * float64(lat[i])
	}
	return out, nil
}

// weights returns the bilinear weights of the corners (0,0), (1,0), (0,1)
// and (1,1).
func weights(fx, fy float64) [4]float64 {
	return [4]float64{
		(1 - fx) * (1 - fy),
		fx * (1 - fy),
		(1 - fx) * fy,
		fx * fy,
	}
}
