package grid

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/gridshift/internal/cog/cogtest"
	"github.com/pspoerri/gridshift/internal/logging"
	"github.com/stretchr/testify/require"
)

var discard = logging.OrDiscard(nil)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeTIFF(t *testing.T, dir, name string, images ...cogtest.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, cogtest.WriteFile(path, binary.LittleEndian, images...))
	return path
}

func openSet(t *testing.T, kind Kind, path string) *GridSet {
	t.Helper()
	set, err := Open(kind, path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { set.Close() })
	return set
}

// geoImage is a north-up geographic image whose first cell centre sits at
// (west, north) in degrees.
func geoImage(width, height, samples int, west, north, res float64, value func(sample, x, row int) float64) cogtest.Image {
	return cogtest.Image{
		Width:      width,
		Height:     height,
		Samples:    samples,
		Value:      value,
		PixelScale: []float64{res, res, 0},
		TiePoint:   []float64{0, 0, 0, west, north, 0},
		GeoKeys:    cogtest.GeoKeys(2, 2),
	}
}
