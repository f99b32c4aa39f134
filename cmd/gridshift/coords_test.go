package main

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/transform"
)

func TestParseLine(t *testing.T) {
	c, rest, err := parseLine("  7.5  46.25 ")
	require.NoError(t, err)
	assert.InDelta(t, 7.5*coord.DegToRad, c.X, 1e-15)
	assert.InDelta(t, 46.25*coord.DegToRad, c.Y, 1e-15)
	assert.Zero(t, c.Z)
	assert.Empty(t, rest)

	c, rest, err = parseLine("-79 43 120.5 2020.5 station A")
	require.NoError(t, err)
	assert.Equal(t, 120.5, c.Z)
	assert.Equal(t, 2020.5, c.T)
	assert.Equal(t, "station A", rest)

	c, rest, err = parseLine("10 45 100 site B")
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.Z)
	assert.Zero(t, c.T)
	assert.Equal(t, "site B", rest)

	_, _, err = parseLine("12")
	assert.Error(t, err)
	_, _, err = parseLine("12 abc")
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	c := transform.Coord{X: 10 * coord.DegToRad, Y: -45 * coord.DegToRad, Z: 3.25}
	assert.Equal(t, "10.000000000\t-45.000000000\t3.2500", formatResult(c, nil, ""))
	assert.Equal(t, "*\t*\t*\tA", formatResult(c, errors.New("boom"), "A"))
	assert.Equal(t, "*\t*\t*", formatResult(transform.Coord{X: math.Inf(1), Y: math.Inf(1)}, nil, ""))
}

type identity struct{}

func (identity) Forward(c transform.Coord) (transform.Coord, error) { return c, nil }
func (identity) Inverse(c transform.Coord) (transform.Coord, error) { return c, nil }
func (identity) Close() error { return nil }

func TestConverterRoundTripsGeocentric(t *testing.T) {
	conv, err := newConverter("+proj=xyzgridshift +grids=x.tif +ellps=WGS84", "GRS80", false)
	require.NoError(t, err)
	assert.True(t, conv.geocentric)
	assert.Equal(t, "WGS84", conv.ellps.Name)

	in := transform.Coord{X: 2 * coord.DegToRad, Y: 48 * coord.DegToRad, Z: 100}
	out, err := conv.apply(identity{}, in)
	require.NoError(t, err)
	assert.InDelta(t, in.X, out.X, 1e-10)
	assert.InDelta(t, in.Y, out.Y, 1e-10)
	assert.InDelta(t, in.Z, out.Z, 5e-3)

	conv, err = newConverter("+proj=hgridshift +grids=x.gsb", "GRS80", true)
	require.NoError(t, err)
	assert.False(t, conv.geocentric)

	_, err = newConverter("+proj=xyzgridshift +grids=x.tif", "nope", false)
	assert.Error(t, err)
}
