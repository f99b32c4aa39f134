// Package registry opens lists of grid sets on behalf of the shift
// operators. It carries the resources every operator shares: the file
// opener, the GeoTIFF block cache, the logger and the set of grid lists
// already known to open.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pspoerri/gridshift/internal/cog"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/logging"
)

// Entry is one grid of a grid list.
type Entry struct {
	Name string
	// Optional grids, written with a leading '@', are skipped when they
	// cannot be opened.
	Optional bool
}

// ParseList splits a comma separated grid list. Empty items are dropped.
func ParseList(list string) []Entry {
	var entries []Entry
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		optional := strings.HasPrefix(item, "@")
		item = strings.TrimPrefix(item, "@")
		if item == "" {
			continue
		}
		entries = append(entries, Entry{Name: item, Optional: optional})
	}
	return entries
}

// KnownGrids remembers grid lists that opened successfully once.
type KnownGrids struct {
	mu    sync.Mutex
	lists map[string]struct{}
}

var processKnown KnownGrids

// ProcessKnownGrids returns the set shared by every Context that does not
// bring its own.
func ProcessKnownGrids() *KnownGrids { return &processKnown }

// Contains reports whether list was added before.
func (k *KnownGrids) Contains(list string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.lists[list]
	return ok
}

// Add records list as known.
func (k *KnownGrids) Add(list string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.lists == nil {
		k.lists = make(map[string]struct{})
	}
	k.lists[list] = struct{}{}
}

// Clear forgets every list, forcing the next operators to open their grids
// eagerly again.
func (k *KnownGrids) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lists = nil
}

// Len returns the number of known lists.
func (k *KnownGrids) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.lists)
}

// Context is handed to the operators. The zero value opens files from the
// working directory without caching blocks and discards log output.
type Context struct {
	Opener grid.Opener
	Cache  *cog.BlockCache
	Logger *slog.Logger
	// Known defaults to ProcessKnownGrids.
	Known *KnownGrids
	// Deferred postpones opening grids until first use for every operator
	// built from the context.
	Deferred bool
}

// KnownGrids returns the known-grids set in use.
func (c *Context) KnownGrids() *KnownGrids {
	if c == nil || c.Known == nil {
		return &processKnown
	}
	return c.Known
}

// Log returns the context logger, discarding output when none is set.
func (c *Context) Log() *slog.Logger {
	if c == nil {
		return logging.OrDiscard(nil)
	}
	return logging.OrDiscard(c.Logger)
}

func (c *Context) gridOptions() grid.Options {
	if c == nil {
		return grid.Options{}
	}
	return grid.Options{Opener: c.Opener, Cache: c.Cache, Logger: c.Logger}
}

// OpenList opens every grid of list. Optional grids that fail are skipped;
// a required grid that fails closes what was opened and fails the list with
// grid.ErrFileNotFoundOrInvalid.
func (c *Context) OpenList(kind grid.Kind, list string) ([]*grid.GridSet, error) {
	var sets []*grid.GridSet
	for _, e := range ParseList(list) {
		set, err := grid.Open(kind, e.Name, c.gridOptions())
		if err != nil {
			if e.Optional {
				c.Log().Debug("Skipping optional grid", "grid", e.Name, "error", err)
				continue
			}
			CloseAll(sets)
			if !errors.Is(err, grid.ErrFileNotFoundOrInvalid) {
				err = fmt.Errorf("%w: %w", grid.ErrFileNotFoundOrInvalid, err)
			}
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// CloseAll closes every set and joins the errors.
func CloseAll(sets []*grid.GridSet) error {
	var errs []error
	for _, s := range sets {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
