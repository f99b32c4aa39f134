package transform

import (
	"testing"

	"github.com/pspoerri/gridshift/internal/cog/cogtest"
	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// translations covers 0E..20E, 40N..60N at one degree. Samples are stored
// in z, x, y order and described accordingly.
func translations(unit string, value func(sample, x, row int) float64) cogtest.Image {
	return cogtest.Image{
		Width: 21, Height: 21, Samples: 3,
		Format:     cogtest.Float32,
		Value:      value,
		PixelScale: []float64{1, 1, 0},
		TiePoint:   []float64{0, 0, 0, 0, 60, 0},
		GeoKeys:    cogtest.GeoKeys(2, 2),
		Metadata: cogtest.Metadata(
			cogtest.Item{Name: "DESCRIPTION", Sample: 0, Value: "z_translation"},
			cogtest.Item{Name: "DESCRIPTION", Sample: 1, Value: "x_translation"},
			cogtest.Item{Name: "DESCRIPTION", Sample: 2, Value: "y_translation"},
			cogtest.Item{Name: "UNITTYPE", Sample: 1, Value: unit},
		),
	}
}

func uniform(sample, _, _ int) float64 {
	return [3]float64{3, 1.5, -2}[sample]
}

func geocentric(lon, lat, h float64) Coord {
	x, y, z := coord.GRS80.Geocentric(lon*deg, lat*deg, h)
	return Coord{X: x, Y: y, Z: z, T: 2020}
}

func assertCoord(t *testing.T, want, got Coord, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
	assert.Equal(t, want.T, got.T, "t")
}

func TestXYZGridShiftUniform(t *testing.T) {
	dir := t.TempDir()
	writeTIFF(t, dir, "xyz.tif", translations("metre", uniform))
	ctx := testContext(dir)
	in := geocentric(10.3, 50.7, 200)
	plus := Coord{X: in.X + 1.5, Y: in.Y - 2, Z: in.Z + 3, T: in.T}
	minus := Coord{X: in.X - 1.5, Y: in.Y + 2, Z: in.Z - 3, T: in.T}

	for _, def := range []string{
		"+proj=xyzgridshift +grids=xyz.tif",
		"+proj=xyzgridshift +grids=xyz.tif +grid_ref=output_crs",
	} {
		t.Run(def, func(t *testing.T) {
			op := newOp(t, def, ctx)
			out, err := op.Forward(in)
			require.NoError(t, err)
			assertCoord(t, plus, out, 1e-6)

			out, err = op.Inverse(in)
			require.NoError(t, err)
			assertCoord(t, minus, out, 1e-6)
		})
	}

	op := newOp(t, "+proj=xyzgridshift +grids=xyz.tif +multiplier=2 +ellps=WGS84", ctx)
	out, err := op.Forward(in)
	require.NoError(t, err)
	assertCoord(t, Coord{X: in.X + 3, Y: in.Y - 4, Z: in.Z + 6, T: in.T}, out, 1e-6)
}

func TestXYZGridShiftRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTIFF(t, dir, "slope.tif", translations("", func(s, x, row int) float64 {
		return float64(s+1) + 0.5*float64(x) - 0.25*float64(row)
	}))
	ctx := testContext(dir)

	for _, ref := range []string{"input_crs", "output_crs"} {
		t.Run(ref, func(t *testing.T) {
			op := newOp(t, "+proj=xyzgridshift +grids=slope.tif +grid_ref="+ref, ctx)
			for _, p := range []Coord{
				geocentric(10.3, 50.7, 200),
				geocentric(0.5, 40.5, -20),
				geocentric(19.2, 59.9, 3000),
			} {
				fwd, err := op.Forward(p)
				require.NoError(t, err)
				assert.Greater(t, (fwd.X-p.X)*(fwd.X-p.X), 1.0)
				back, err := op.Inverse(fwd)
				require.NoError(t, err)
				assertCoord(t, p, back, 1e-6)
			}
		})
	}
}

func TestXYZGridShiftErrors(t *testing.T) {
	dir := t.TempDir()
	writeTIFF(t, dir, "feet.tif", translations("foot", uniform))
	writeTIFF(t, dir, "two.tif", cogtest.Image{
		Width: 3, Height: 3, Samples: 2,
		PixelScale: []float64{1, 1, 0},
		TiePoint:   []float64{0, 0, 0, 0, 60, 0},
		GeoKeys:    cogtest.GeoKeys(2, 2),
	})
	writeTIFF(t, dir, "xyz.tif", translations("metre", uniform))
	ctx := testContext(dir)
	in := geocentric(1.5, 58.5, 0)

	for _, name := range []string{"feet.tif", "two.tif"} {
		op := newOp(t, "+proj=xyzgridshift +grids="+name, ctx)
		out, err := op.Forward(in)
		assert.ErrorIs(t, err, grid.ErrFileNotFoundOrInvalid, name)
		assert.Equal(t, errorCoord, out)
	}

	op := newOp(t, "+proj=xyzgridshift +grids=xyz.tif", ctx)
	_, err := op.Forward(geocentric(-30, 10, 0))
	assert.ErrorIs(t, err, grid.ErrOutsideGrid)
	_, err = op.Inverse(geocentric(-30, 10, 0))
	assert.ErrorIs(t, err, grid.ErrOutsideGrid)

	op = newOp(t, "+proj=xyzgridshift +grids=xyz.tif,null", ctx)
	out, err := op.Forward(geocentric(-30, 10, 0))
	require.NoError(t, err)
	assertCoord(t, geocentric(-30, 10, 0), out, 0)
}
