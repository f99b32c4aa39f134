package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/pspoerri/gridshift/internal/config"
	"github.com/pspoerri/gridshift/internal/logging"
	"github.com/pspoerri/gridshift/internal/transform"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// options are the parsed command-line flags.
type options struct {
	opDef      string
	inverse    bool
	configPath string
	ellps      string
	verbose    bool
	cpuProfile string
	inputs     []string
}

func main() {
	var (
		o           options
		showVersion bool
	)

	flag.StringVar(&o.opDef, "op", "", "Operation, e.g. \"+proj=hgridshift +grids=ntv1_can.dat\"")
	flag.BoolVar(&o.inverse, "inv", false, "Apply the inverse operation")
	flag.StringVar(&o.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&o.ellps, "ellps", "GRS80", "Ellipsoid used to convert to and from geocentric coordinates for xyzgridshift")
	flag.BoolVar(&o.verbose, "verbose", false, "Debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&o.cpuProfile, "cpuprofile", "", "Write CPU profile to file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gridshift -op <operation> [flags] [input...]\n\n")
		fmt.Fprintf(os.Stderr, "Reads \"lon lat [h [t]]\" lines in degrees, metres and decimal years\n")
		fmt.Fprintf(os.Stderr, "from the input files or stdin and writes the transformed coordinates.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("gridshift %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}
	if o.opDef == "" {
		flag.Usage()
		os.Exit(1)
	}
	o.inputs = flag.Args()
	if len(o.inputs) == 0 {
		o.inputs = []string{"-"}
	}

	// Exit only here so the deferred cleanup in gridshift always runs.
	if err := gridshift(o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func gridshift(o options, stdout io.Writer) error {
	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

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

	ctx := cfg.Context(logger)
	defer ctx.Cache.Stop()

	op, err := transform.New(o.opDef, ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	conv, err := newConverter(o.opDef, o.ellps, o.inverse)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	var failed int
	for _, in := range o.inputs {
		n, err := process(logger, in, op, conv, out)
		failed += n
		if err != nil {
			return err
		}
	}
	if failed > 0 {
		logger.Warn("Some coordinates could not be transformed", "count", failed)
	}
	return nil
}

// process transforms every line of the input file name, "-" being stdin,
// and returns the number of coordinates that failed.
func process(logger *slog.Logger, name string, op transform.Operator, conv converter, out *bufio.Writer) (int, error) {
	f := os.Stdin
	if name != "-" {
		var err error
		if f, err = os.Open(name); err != nil {
			return 0, err
		}
		defer f.Close()
	}

	failed := 0
	sc := bufio.NewScanner(f)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			fmt.Fprintln(out, line)
			continue
		}
		in, rest, err := parseLine(line)
		if err != nil {
			return failed, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		res, err := conv.apply(op, in)
		if err != nil {
			logger.Debug("Transformation failed", "input", name, "line", lineNo, "error", err)
			failed++
		}
		fmt.Fprintln(out, formatResult(res, err, rest))
	}
	return failed, sc.Err()
}
