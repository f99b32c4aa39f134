package shift

import (
	"errors"
	"fmt"
	"math"

	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
)

// VerticalValue interpolates the vertical offset at lp and scales it by
// multiplier. Corners holding nodata are left out and the remaining weights
// renormalised; when all four are nodata the result is
// grid.ErrGridAtNodata. The null grid yields 0.
func (l List) VerticalValue(lp LP, multiplier float64) (float64, error) {
	v, err := l.verticalValue(lp, multiplier)
	logging.Trace(l.logger(), "Vertical grid value",
		"lon", lp.Lam*180/math.Pi, "lat", lp.Phi*180/math.Pi, "value", v)
	return v, err
}

func (l List) verticalValue(lp LP, multiplier float64) (float64, error) {
	if math.IsNaN(lp.Lam) || math.IsNaN(lp.Phi) {
		return HugeVal, grid.ErrOutsideGrid
	}
	for {
		g, set := l.Find(lp)
		if g == nil {
			return HugeVal, grid.ErrOutsideGrid
		}
		if g.IsNull() {
			return 0, nil
		}
		ext := g.Extent()
		if !ext.Geographic {
			l.logger().Error("Can only handle grids referenced in a geographic CRS", "grid", g.Name())
			return HugeVal, fmt.Errorf("%w: %s is not geographic", grid.ErrFileNotFoundOrInvalid, g.Name())
		}

		gx := (lp.Lam - ext.West) / ext.ResX
		switch {
		case lp.Lam < ext.West:
			if ext.FullWorldLongitude() {
				gx = wrapColumn(gx, g.Width())
			} else {
				gx = (lp.Lam + 2*math.Pi - ext.West) / ext.ResX
			}
		case lp.Lam > ext.East:
			if ext.FullWorldLongitude() {
				gx = wrapColumn(gx, g.Width())
			} else {
				gx = (lp.Lam - 2*math.Pi - ext.West) / ext.ResX
			}
		}
		gy := (lp.Phi - ext.South) / ext.ResY

		ix, fx, okx := cellIndex(gx)
		iy, fy, oky := cellIndex(gy)
		if !okx || ix < 0 || ix >= g.Width() {
			l.logger().Error("Grid column out of range", "grid", g.Name(), "column", gx)
			return HugeVal, grid.ErrOutsideGrid
		}
		if !oky || iy < 0 || iy >= g.Height() {
			return HugeVal, grid.ErrOutsideGrid
		}

		ix2 := ix + 1
		if ix2 >= g.Width() {
			if ext.FullWorldLongitude() {
				ix2 = 0
			} else {
				ix2 = g.Width() - 1
			}
		}
		iy2 := min(iy+1, g.Height()-1)

		var vals [4]float32
		var readErr error
		for i, c := range [4][2]int{{ix, iy}, {ix2, iy}, {ix, iy2}, {ix2, iy2}} {
			if vals[i], readErr = g.HeightAt(c[0], c[1]); readErr != nil {
				break
			}
		}
		if g.HasChanged() {
			err := reopened(set)
			if errors.Is(err, errGridChanged) {
				continue
			}
			return HugeVal, err
		}
		if readErr != nil {
			return HugeVal, readErr
		}

		w := weights(fx, fy)
		value, total, n := 0.0, 0.0, 0
		for i, v := range vals {
			if g.IsNodata(v, multiplier) {
				continue
			}
			value += float64(v) * w[i]
			total += w[i]
			n++
		}
		switch {
		case n == 0:
			return HugeVal, grid.ErrGridAtNodata
		case n != 4:
			value /= total
		}
		return value * multiplier, nil
	}
}

// wrapColumn folds a raster column of a full-world grid into [0, width).
func wrapColumn(x float64, width int) float64 {
	w := float64(width)
	return math.Mod(math.Mod(x+w, w)+w, w)
}
