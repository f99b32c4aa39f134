// Package grid loads correction grids (NTv1, NTv2, CTable2, GTX and
// GeoTIFF) and organises them into hierarchies of sub-grids.
package grid

import (
	"errors"
	"fmt"
)

// Kind selects what a grid set is opened for.
type Kind uint8

const (
	Horizontal Kind = iota
	Vertical
	Generic
)

func (k Kind) String() string {
	switch k {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case Generic:
		return "generic"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Format identifies the file format a grid set was read from.
type Format string

const (
	FormatNull    Format = "null"
	FormatGTX     Format = "gtx"
	FormatNTv1    Format = "ntv1"
	FormatCTable2 Format = "ctable2"
	FormatNTv2    Format = "ntv2"
	FormatGTiff   Format = "gtiff"
)

// source is the per-format cell access behind a Grid.
type source interface {
	samples() int
	value(sample, x, y int) (float32, error)
	nodata(v float32, multiplier float64) bool
	metadata(key string, sample int) string
	changed() bool
}

// shifter is implemented by sources holding horizontal shifts. lon is
// positive east when compensate is set and in the native file convention
// otherwise.
type shifter interface {
	shift(x, y int, compensate bool) (lon, lat float32, err error)
}

var errNotHorizontal = errors.New("grid does not hold horizontal shifts")

// Grid is one raster of corrections, possibly refined by child grids
// covering parts of its extent at a higher resolution.
type Grid struct {
	name     string
	kind     Kind
	format   Format
	width    int
	height   int
	extent   ExtentAndRes
	children []*Grid
	src      source
	null     bool

	// epsg is the CRS code declared by GeoTIFF grids, 0 when unknown.
	epsg int

	// heightSample is the sample read by vertical consumers.
	heightSample int
}

// Name returns the grid name, the file name optionally followed by a
// sub-grid qualifier.
func (g *Grid) Name() string { return g.name }

// Kind returns the kind of grid set the grid was loaded for.
func (g *Grid) Kind() Kind { return g.kind }

// Format returns the file format of the grid.
func (g *Grid) Format() Format { return g.format }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Extent returns the grid extent and resolution.
func (g *Grid) Extent() ExtentAndRes { return g.extent }

// EPSG returns the EPSG code of the grid CRS, or 0 when the file does not
// declare one.
func (g *Grid) EPSG() int { return g.epsg }

// Children returns the sub-grids directly below g.
func (g *Grid) Children() []*Grid { return g.children }

// IsNull reports whether g is the identity grid.
func (g *Grid) IsNull() bool { return g.null }

// HasChanged reports whether the file backing the grid changed since it was
// opened.
func (g *Grid) HasChanged() bool { return g.src.changed() }

// SamplesPerPixel returns the number of values stored per cell.
func (g *Grid) SamplesPerPixel() int { return g.src.samples() }

// MetadataItem returns a metadata value of a sample, or of the whole grid
// when sample is negative. Only GeoTIFF grids carry metadata.
func (g *Grid) MetadataItem(key string, sample int) string {
	return g.src.metadata(key, sample)
}

// Description returns the DESCRIPTION metadata of a sample.
func (g *Grid) Description(sample int) string {
	return g.src.metadata("DESCRIPTION", sample)
}

// Unit returns the UNITTYPE metadata of a sample.
func (g *Grid) Unit(sample int) string {
	return g.src.metadata("UNITTYPE", sample)
}

func (g *Grid) checkCell(x, y int) error {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return fmt.Errorf("%s: cell (%d,%d) outside %dx%d grid", g.name, x, y, g.width, g.height)
	}
	return nil
}

// ValueAt returns one sample of the cell at column x (0 is western-most)
// and row y (0 is southern-most).
func (g *Grid) ValueAt(sample, x, y int) (float32, error) {
	if err := g.checkCell(x, y); err != nil {
		return 0, err
	}
	if sample < 0 || sample >= g.src.samples() {
		return 0, fmt.Errorf("%s: sample %d out of range", g.name, sample)
	}
	return g.src.value(sample, x, y)
}

// HeightAt returns the vertical offset stored in the cell at (x, y).
func (g *Grid) HeightAt(x, y int) (float32, error) {
	return g.ValueAt(g.heightSample, x, y)
}

// ShiftAt returns the longitude and latitude shifts of a cell in radians.
// With compensate set the longitude shift of formats storing it positive
// west is negated so that it is positive east.
func (g *Grid) ShiftAt(x, y int, compensate bool) (lon, lat float32, err error) {
	if err := g.checkCell(x, y); err != nil {
		return 0, 0, err
	}
	s, ok := g.src.(shifter)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", g.name, errNotHorizontal)
	}
	return s.shift(x, y, compensate)
}

// IsNodata reports whether v, scaled by multiplier where the format cares,
// marks a missing value.
func (g *Grid) IsNodata(v float32, multiplier float64) bool {
	return g.src.nodata(v, multiplier)
}

// gridAt descends to the most specific child containing (x, y).
func (g *Grid) gridAt(x, y float64) *Grid {
	for _, child := range g.children {
		ext := child.extent
		eps := 0.0
		if g.kind == Horizontal {
			eps = (ext.ResX + ext.ResY) * 1e-5
		}
		if ext.ContainsPoint(x, y, eps) {
			return child.gridAt(x, y)
		}
	}
	return g
}

// nullSource is the identity grid: zero everywhere.
type nullSource struct{}

func (nullSource) samples() int { return 3 }
func (nullSource) value(int, int, int) (float32, error) { return 0, nil }
func (nullSource) nodata(float32, float64) bool { return false }
func (nullSource) metadata(string, int) string { return "" }
func (nullSource) changed() bool { return false }
func (nullSource) shift(int, int, bool) (float32, float32, error) { return 0, 0, nil }

func newNullGrid(kind Kind) *Grid {
	return &Grid{
		name:   string(FormatNull),
		kind:   kind,
		format: FormatNull,
		width:  3,
		height: 3,
		extent: globalExtent(),
		src:    nullSource{},
		null:   true,
	}
}
