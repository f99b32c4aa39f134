package grid

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func deg(e ExtentAndRes) ExtentAndRes {
	e.Geographic = true
	e.West *= degToRad
	e.South *= degToRad
	e.East *= degToRad
	e.North *= degToRad
	e.ResX *= degToRad
	e.ResY *= degToRad
	return e
}

func TestContainsPoint(t *testing.T) {
	europe := deg(ExtentAndRes{West: -10, South: 35, East: 30, North: 70, ResX: 0.5, ResY: 0.5})
	pacific := deg(ExtentAndRes{West: 170, South: -10, East: 190, North: 10, ResX: 1, ResY: 1})
	projected := ExtentAndRes{West: 2_480_000, South: 1_070_000, East: 2_840_000, North: 1_300_000, ResX: 1000, ResY: 1000}

	tests := []struct {
		name string
		ext  ExtentAndRes
		x, y float64
		eps  float64
		want bool
	}{
		{"inside", europe, 8 * degToRad, 47 * degToRad, 0, true},
		{"west edge", europe, -10 * degToRad, 47 * degToRad, 0, true},
		{"beyond north", europe, 8 * degToRad, 71 * degToRad, 0, false},
		{"eps widens", europe, -10.0001 * degToRad, 47 * degToRad, 0.001 * degToRad, true},
		{"wrapped east", pacific, -175 * degToRad, 0, 0, true},
		{"wrapped miss", pacific, -160 * degToRad, 0, 0, false},
		{"shifted back", europe, (8 + 360) * degToRad, 47 * degToRad, 0, true},
		{"projected", projected, 2_600_000, 1_200_000, 0, true},
		{"projected outside", projected, 2_900_000, 1_200_000, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ext.ContainsPoint(tt.x, tt.y, tt.eps))
		})
	}
}

func TestFullWorldLongitude(t *testing.T) {
	world := deg(ExtentAndRes{West: -180, South: -90, East: 179.75, North: 90, ResX: 0.25, ResY: 0.25})
	assert.True(t, world.FullWorldLongitude())
	assert.True(t, world.ContainsPoint(3*math.Pi, 0, 0))

	partial := deg(ExtentAndRes{West: -180, South: -90, East: 179, North: 90, ResX: 0.25, ResY: 0.25})
	assert.False(t, partial.FullWorldLongitude())

	projected := ExtentAndRes{West: -10, South: -10, East: 10, North: 10, ResX: 10, ResY: 10}
	assert.False(t, projected.FullWorldLongitude())

	assert.True(t, globalExtent().FullWorldLongitude())
}

func TestContainsAndIntersects(t *testing.T) {
	parent := ExtentAndRes{West: 0, South: 0, East: 10, North: 10, ResX: 1, ResY: 1}
	inner := ExtentAndRes{West: 2, South: 2, East: 4, North: 4, ResX: 0.5, ResY: 0.5}
	straddling := ExtentAndRes{West: 8, South: 8, East: 12, North: 12, ResX: 0.5, ResY: 0.5}
	outside := ExtentAndRes{West: 20, South: 20, East: 22, North: 22, ResX: 0.5, ResY: 0.5}

	assert.True(t, parent.Contains(inner))
	assert.True(t, parent.Contains(parent))
	assert.False(t, parent.Contains(straddling))
	assert.True(t, parent.Intersects(straddling))
	assert.False(t, parent.Intersects(outside))
	assert.False(t, inner.Contains(parent))
}

func TestCellCount(t *testing.T) {
	assert.Equal(t, 5, cellCount(4, 1))
	assert.Equal(t, 5, cellCount(4*degToRad, degToRad))
	assert.Equal(t, 3, cellCount(math.Pi, math.Pi/2))
}

func TestBound(t *testing.T) {
	e := deg(ExtentAndRes{West: -10, South: 35, East: 30, North: 70, ResX: 0.5, ResY: 0.5})
	b := e.Bound()
	assert.InDelta(t, -10, b.Min[0], 1e-9)
	assert.InDelta(t, 35, b.Min[1], 1e-9)
	assert.InDelta(t, 30, b.Max[0], 1e-9)
	assert.InDelta(t, 70, b.Max[1], 1e-9)
	assert.True(t, b.Contains(orb.Point{8, 47}))

	p := ExtentAndRes{West: 1, South: 2, East: 3, North: 4, ResX: 1, ResY: 1}
	assert.Equal(t, orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 4}}, p.Bound())
}
