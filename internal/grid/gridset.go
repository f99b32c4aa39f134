package grid

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/pspoerri/gridshift/internal/cog"
	"github.com/pspoerri/gridshift/internal/logging"
)

const probeSize = 160

// Options configure how a GridSet locates and reads its file.
type Options struct {
	// Opener resolves grid names. Defaults to a FileOpener without search
	// paths.
	Opener Opener
	// Cache holds decoded GeoTIFF blocks and may be shared between sets.
	Cache  *cog.BlockCache
	Logger *slog.Logger
}

// GridSet is the set of grids read from one file. The top-level grids are
// searched in file order; each may refine into child grids.
type GridSet struct {
	kind   Kind
	name   string
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	format Format
	grids  []*Grid
	res    Resource
	ds     *cog.Dataset
}

type loaded struct {
	name   string
	format Format
	grids  []*Grid
	res    Resource
	ds     *cog.Dataset
}

// Open reads the grid file name for the given kind. The name "null" yields
// the identity grid covering the whole world. The set and its grids are
// named after the resolved path.
func Open(kind Kind, name string, opts Options) (*GridSet, error) {
	if opts.Opener == nil {
		opts.Opener = FileOpener{}
	}
	logger := logging.OrDiscard(opts.Logger)
	l, err := load(kind, name, opts.Opener, opts.Cache, logger)
	if err != nil {
		return nil, err
	}
	return &GridSet{
		kind:   kind,
		name:   l.name,
		opts:   opts,
		logger: logger,
		format: l.format,
		grids:  l.grids,
		res:    l.res,
		ds:     l.ds,
	}, nil
}

func load(kind Kind, name string, opener Opener, cache *cog.BlockCache, logger *slog.Logger) (loaded, error) {
	if name == "null" {
		return loaded{name: name, format: FormatNull, grids: []*Grid{newNullGrid(kind)}}, nil
	}

	res, err := opener.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Cannot find grid", "grid", name)
		}
		return loaded{}, fmt.Errorf("%w: %s: %w", ErrFileNotFoundOrInvalid, name, err)
	}
	if resolved := res.Name(); resolved != "" {
		name = resolved
	}

	header := make([]byte, probeSize)
	n, _ := res.ReadAt(header, 0)
	if n < probeSize {
		logger.Debug("Short header read", "grid", name, "bytes", n)
	}
	header = header[:n]

	l := loaded{name: name, res: res}
	var g *Grid
	switch kind {
	case Horizontal:
		switch {
		case isNTv1(header):
			l.format = FormatNTv1
			g, err = openNTv1(res, name)
		case isCTable2(header):
			l.format = FormatCTable2
			g, err = openCTable2(res, name)
		case isNTv2(header):
			l.format = FormatNTv2
			l.grids, err = openNTv2(res, name, logger)
		case cog.IsTIFF(header):
			l.format = FormatGTiff
			l.grids, l.ds, err = openGTiff(kind, res, name, cache, logger)
		default:
			err = errors.New("unrecognized horizontal grid format")
		}
	case Vertical:
		switch {
		case strings.HasSuffix(name, "gtx") || strings.HasSuffix(name, "GTX"):
			l.format = FormatGTX
			g, err = openGTX(res, name, logger)
		case cog.IsTIFF(header):
			l.format = FormatGTiff
			l.grids, l.ds, err = openGTiff(kind, res, name, cache, logger)
		default:
			err = errors.New("unrecognized vertical grid format")
		}
	default:
		if cog.IsTIFF(header) {
			l.format = FormatGTiff
			l.grids, l.ds, err = openGTiff(kind, res, name, cache, logger)
		} else {
			err = errors.New("unrecognized generic grid format")
		}
	}
	if err == nil && g != nil {
		l.grids = []*Grid{g}
	}
	if err == nil && len(l.grids) == 0 {
		err = errors.New("no usable grid")
	}
	if err != nil {
		res.Close()
		logger.Error("Cannot open grid", "grid", name, "error", err)
		return loaded{}, fmt.Errorf("%w: %s: %w", ErrFileNotFoundOrInvalid, name, err)
	}
	return l, nil
}

// Name returns the resolved location of the set's file.
func (s *GridSet) Name() string { return s.name }

// Kind returns the kind the set was opened for.
func (s *GridSet) Kind() Kind { return s.kind }

// Format returns the file format of the set.
func (s *GridSet) Format() Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}

// Grids returns the top-level grids.
func (s *GridSet) Grids() []*Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Grid(nil), s.grids...)
}

// GridAt returns the most specific grid containing (x, y), or nil. For
// geographic grids x and y are longitude and latitude in radians.
func (s *GridSet) GridAt(x, y float64) *Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grids {
		if g.null {
			return g
		}
		ext := g.extent
		eps := 0.0
		if s.kind == Horizontal {
			eps = (ext.ResX + ext.ResY) * 1e-5
		}
		if ext.ContainsPoint(x, y, eps) {
			return g.gridAt(x, y)
		}
	}
	return nil
}

// Reopen reloads the file after it changed on disk. Grids obtained before
// the call must not be used afterwards. It reports whether the reloaded set
// holds any grid.
func (s *GridSet) Reopen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("Grid has changed. Re-loading it", "grid", s.name)
	s.closeLocked()
	l, err := load(s.kind, s.name, s.opts.Opener, s.opts.Cache, s.logger)
	if err != nil {
		return false
	}
	s.format, s.grids, s.res, s.ds = l.format, l.grids, l.res, l.ds
	return len(s.grids) > 0
}

// Close releases the file and any cached blocks.
func (s *GridSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *GridSet) closeLocked() error {
	var errs []error
	if s.ds != nil {
		errs = append(errs, s.ds.Close())
	}
	if s.res != nil {
		errs = append(errs, s.res.Close())
	}
	s.grids, s.res, s.ds = nil, nil, nil
	return errors.Join(errs...)
}
