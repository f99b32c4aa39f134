package transform

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/gridshift/internal/cog/cogtest"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
	"github.com/stretchr/testify/require"
)

const (
	deg    = math.Pi / 180
	arcSec = deg / 3600
)

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

// testContext searches dir and keeps its known grids to itself.
func testContext(dir string) *registry.Context {
	return &registry.Context{
		Opener: grid.FileOpener{SearchPaths: []string{dir}},
		Known:  &registry.KnownGrids{},
	}
}

func newOp(t *testing.T, def string, ctx *registry.Context) Operator {
	t.Helper()
	op, err := New(def, ctx)
	require.NoError(t, err)
	t.Cleanup(func() { op.Close() })
	return op
}
