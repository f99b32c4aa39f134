package shift

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
)

// BilinearThreeSamples interpolates three samples of a generic grid at lp.
// The cell is chosen by truncation and the +1 neighbours are clamped to the
// last row and column. mustRetry is set when the grid changed on disk; the
// caller should reopen its set and look the grid up again.
func BilinearThreeSamples(logger *slog.Logger, g *grid.Grid, lp LP, idx [3]int) (vals [3]float64, mustRetry bool, err error) {
	if g.IsNull() {
		return vals, false, nil
	}
	ext := g.Extent()
	if !ext.Geographic {
		logging.OrDiscard(logger).Error("Can only handle grids referenced in a geographic CRS", "grid", g.Name())
		return vals, false, fmt.Errorf("%w: %s is not geographic", grid.ErrFileNotFoundOrInvalid, g.Name())
	}

	gx := (lp.Lam - ext.West) / ext.ResX
	if lp.Lam < ext.West {
		gx = (lp.Lam + 2*math.Pi - ext.West) / ext.ResX
	} else if lp.Lam > ext.East {
		gx = (lp.Lam - 2*math.Pi - ext.West) / ext.ResX
	}
	gy := (lp.Phi - ext.South) / ext.ResY
	if math.IsNaN(gx) || math.IsNaN(gy) || math.Abs(gx) > math.MaxInt32 || math.Abs(gy) > math.MaxInt32 {
		return vals, false, grid.ErrOutsideGrid
	}
	ix, iy := int(gx), int(gy)
	ix2 := min(ix+1, g.Width()-1)
	iy2 := min(iy+1, g.Height()-1)

	var corners [4][3]float32
	var readErr error
read:
	for i, c := range [4][2]int{{ix, iy}, {ix2, iy}, {ix, iy2}, {ix2, iy2}} {
		for s, sample := range idx {
			if corners[i][s], readErr = g.ValueAt(sample, c[0], c[1]); readErr != nil {
				break read
			}
		}
	}
	if g.HasChanged() {
		return vals, true, nil
	}
	if readErr != nil {
		return vals, false, readErr
	}

	w := weights(gx-float64(ix), gy-float64(iy))
	for s := range vals {
		for i := range w {
			vals[s] += w[i] * float64(corners[i][s])
		}
	}
	return vals, false, nil
}
