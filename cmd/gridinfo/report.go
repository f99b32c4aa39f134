package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pspoerri/gridshift/internal/coord"
	"github.com/pspoerri/gridshift/internal/grid"
)

// describe prints the set and its grid hierarchy.
func describe(w io.Writer, set *grid.GridSet) {
	fmt.Fprintf(w, "File: %s\n", set.Name())
	fmt.Fprintf(w, "Kind: %s\n", set.Kind())
	fmt.Fprintf(w, "Format: %s\n", set.Format())
	grids := set.Grids()
	fmt.Fprintf(w, "Top-level grids: %d\n", len(grids))
	for _, g := range grids {
		describeGrid(w, g, 0)
	}
}

func describeGrid(w io.Writer, g *grid.Grid, depth int) {
	indent := strings.Repeat("  ", depth+1)
	ext := g.Extent()
	b := ext.Bound()
	unit, resUnit, f := "", "", 1.0
	if ext.Geographic {
		unit, resUnit, f = "°", "\"", coord.RadToDeg*3600
	}
	fmt.Fprintf(w, "\n%s%s: %dx%d, %d sample(s)\n", indent, g.Name(), g.Width(), g.Height(), g.SamplesPerPixel())
	fmt.Fprintf(w, "%sX=[%.6f%s, %.6f%s], Y=[%.6f%s, %.6f%s]\n", indent,
		b.Min[0], unit, b.Max[0], unit, b.Min[1], unit, b.Max[1], unit)
	fmt.Fprintf(w, "%sResolution: %.6f%s x %.6f%s\n", indent, ext.ResX*f, resUnit, ext.ResY*f, resUnit)
	if epsg := g.EPSG(); epsg != 0 {
		fmt.Fprintf(w, "%sEPSG: %d\n", indent, epsg)
	}
	if ext.FullWorldLongitude() {
		fmt.Fprintf(w, "%sCovers all longitudes\n", indent)
	}
	for i := 0; i < g.SamplesPerPixel(); i++ {
		desc, unit := g.Description(i), g.Unit(i)
		if desc == "" && unit == "" {
			continue
		}
		fmt.Fprintf(w, "%sSample %d: %s", indent, i, desc)
		if unit != "" {
			fmt.Fprintf(w, " [%s]", unit)
		}
		fmt.Fprintln(w)
	}
	for _, c := range g.Children() {
		describeGrid(w, c, depth+1)
	}
}

// geographicBound returns the extent of g in degrees. Projected grids are
// reprojected when internal/coord knows their CRS.
func geographicBound(g *grid.Grid) (orb.Bound, error) {
	ext := g.Extent()
	if ext.Geographic {
		return ext.Bound(), nil
	}
	p := coord.ForEPSG(g.EPSG())
	if p == nil {
		return orb.Bound{}, fmt.Errorf("%s: cannot reproject CRS EPSG:%d", g.Name(), g.EPSG())
	}
	minLon, minLat, maxLon, maxLat := coord.ProjectedBound(p, ext.West, ext.South, ext.East, ext.North, 16)
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}, nil
}

// extentFeatures returns one polygon per grid of the hierarchy. Grids that
// cannot be expressed in degrees are reported through skipped.
func extentFeatures(set *grid.GridSet, skipped func(error)) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var walk func(g *grid.Grid, parent string, depth int)
	walk = func(g *grid.Grid, parent string, depth int) {
		b, err := geographicBound(g)
		if err != nil {
			skipped(err)
		} else {
			f := geojson.NewFeature(b.ToPolygon())
			f.Properties["name"] = g.Name()
			f.Properties["depth"] = depth
			f.Properties["width"] = g.Width()
			f.Properties["height"] = g.Height()
			if parent != "" {
				f.Properties["parent"] = parent
			}
			if ext := g.Extent(); ext.Geographic {
				f.Properties["res_arcsec"] = roundTo(ext.ResX*coord.RadToDeg*3600, 1e-6)
			}
			fc.Append(f)
		}
		for _, c := range g.Children() {
			walk(c, g.Name(), depth+1)
		}
	}
	for _, g := range set.Grids() {
		walk(g, "", 0)
	}
	return fc
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
