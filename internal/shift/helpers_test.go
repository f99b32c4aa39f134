package shift

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pspoerri/gridshift/internal/cog/cogtest"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
	"github.com/stretchr/testify/require"
)

const (
	deg    = math.Pi / 180
	arcSec = deg / 3600
)

func nan() float64 { return math.NaN() }

var discard = logging.OrDiscard(nil)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeTIFF(t *testing.T, name string, images ...cogtest.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, cogtest.WriteFile(path, binary.LittleEndian, images...))
	return path
}

// rewrite replaces the file contents and moves its modification time so
// that open grids notice the change.
func rewrite(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
}

// countingOpener counts how often grid files are opened.
type countingOpener struct {
	grid.FileOpener
	opens int
}

func (o *countingOpener) Open(name string) (grid.Resource, error) {
	o.opens++
	return o.FileOpener.Open(name)
}

func openList(t *testing.T, kind grid.Kind, opener grid.Opener, names ...string) List {
	t.Helper()
	var l List
	for _, name := range names {
		set, err := grid.Open(kind, name, grid.Options{Opener: opener})
		require.NoError(t, err)
		t.Cleanup(func() { set.Close() })
		l.Sets = append(l.Sets, set)
	}
	return l
}
