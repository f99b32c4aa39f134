package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/pspoerri/gridshift/internal/cog"
	"github.com/pspoerri/gridshift/internal/config"
	"github.com/pspoerri/gridshift/internal/encode"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// options are the parsed command-line flags.
type options struct {
	kind        grid.Kind
	path        string
	configPath  string
	geojsonPath string
	previewPath string
	sample      int
	quality     int
	terrarium   bool
	verbose     bool
}

func main() {
	var (
		o           options
		kindName    string
		showVersion bool
	)

	flag.StringVar(&kindName, "kind", "h", "Grid kind: h (horizontal), v (vertical), g (generic)")
	flag.StringVar(&o.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&o.geojsonPath, "geojson", "", "Write the grid extents to a GeoJSON file")
	flag.StringVar(&o.previewPath, "preview", "", "Render a sample of the first grid to an image (.png, .jpg, .webp)")
	flag.IntVar(&o.sample, "sample", 0, "Sample rendered by -preview")
	flag.IntVar(&o.quality, "quality", 85, "JPEG/WebP quality 1-100")
	flag.BoolVar(&o.terrarium, "terrarium", false, "Store raw values in Terrarium encoding instead of grey levels")
	flag.BoolVar(&o.verbose, "verbose", false, "Debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gridinfo [flags] <grid>\n\n")
		fmt.Fprintf(os.Stderr, "Describe a correction grid file (NTv1, NTv2, CTable2, GTX, GeoTIFF).\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("gridinfo %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	o.path = flag.Arg(0)

	kind, err := parseKind(kindName)
	if err == nil {
		o.kind = kind
		err = gridinfo(o, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func gridinfo(o options, stdout io.Writer) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	logger, closeLog, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()

	cache := cog.NewBlockCache(cfg.BlockCacheBlocks)
	defer cache.Stop()
	set, err := grid.Open(o.kind, o.path, grid.Options{
		Opener: cfg.Opener(),
		Cache:  cache,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer set.Close()

	describe(stdout, set)

	if o.geojsonPath != "" {
		fc := extentFeatures(set, func(err error) {
			logger.Warn("Skipping grid in GeoJSON output", "error", err)
		})
		data, err := fc.MarshalJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.geojsonPath, data, 0o644); err != nil {
			return err
		}
		logger.Info("Wrote grid extents", "path", o.geojsonPath, "features", len(fc.Features))
	}

	if o.previewPath != "" {
		return writePreview(logger, set.Grids()[0], o)
	}
	return nil
}

func parseKind(s string) (grid.Kind, error) {
	switch s {
	case "h", "horizontal":
		return grid.Horizontal, nil
	case "v", "vertical":
		return grid.Vertical, nil
	case "g", "generic":
		return grid.Generic, nil
	}
	return 0, fmt.Errorf("unknown grid kind %q", s)
}

// writePreview renders one sample of g, writes it and reads the file back
// to check it.
func writePreview(logger *slog.Logger, g *grid.Grid, o options) error {
	if o.sample < 0 || o.sample >= g.SamplesPerPixel() {
		return fmt.Errorf("sample %d out of range, %s has %d", o.sample, g.Name(), g.SamplesPerPixel())
	}
	var (
		enc encode.Encoder
		img image.Image
		err error
	)
	if o.terrarium {
		enc = encode.TerrariumEncoder{}
		img, err = encode.RenderTerrarium(g, o.sample, 1)
	} else {
		if enc, err = encode.ForPath(o.previewPath, o.quality); err != nil {
			return err
		}
		var r encode.Range
		img, r, err = encode.Render(g, o.sample)
		if err == nil {
			logger.Info("Rendered preview", "min", r.Min, "max", r.Max, "nodata", r.Nodata)
		}
	}
	if err != nil {
		return err
	}
	data, err := enc.Encode(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.previewPath, data, 0o644); err != nil {
		return err
	}

	written, err := os.ReadFile(o.previewPath)
	if err != nil {
		return err
	}
	diff, err := encode.CheckPreview(written, enc, g, o.sample, 1)
	if err != nil {
		return fmt.Errorf("checking %s: %w", o.previewPath, err)
	}
	logger.Info("Wrote preview", "path", o.previewPath, "format", enc.Format(), "max_error", diff)
	return nil
}
