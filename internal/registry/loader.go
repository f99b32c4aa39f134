package registry

import (
	"fmt"
	"sync"

	"github.com/pspoerri/gridshift/internal/grid"
	"golang.org/x/sync/singleflight"
)

// State tracks a Loader through its first use.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Loader holds the grid sets of one grid list, opening them on first use
// when loading was deferred. A failed load is not retried.
type Loader struct {
	ctx  *Context
	kind grid.Kind
	list string

	group singleflight.Group
	mu    sync.Mutex
	state State
	sets  []*grid.GridSet
	err   error
}

// Load prepares the grids of list. Unless the context defers loading or the
// list is already known, the grids are opened immediately and a failure is
// returned here; a list that opens is added to the known-grids set.
func (c *Context) Load(kind grid.Kind, list string) (*Loader, error) {
	l := &Loader{ctx: c, kind: kind, list: list}
	if (c != nil && c.Deferred) || c.KnownGrids().Contains(list) {
		c.Log().Debug("Deferring grid opening", "grids", list)
		return l, nil
	}
	if _, err := l.Sets(); err != nil {
		return nil, err
	}
	c.KnownGrids().Add(list)
	return l, nil
}

// List returns the grid list the loader was created for.
func (l *Loader) List() string { return l.list }

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Sets returns the opened grid sets, opening them first if needed.
// Concurrent first calls share one load.
func (l *Loader) Sets() ([]*grid.GridSet, error) {
	l.mu.Lock()
	if l.state == Unloaded {
		l.state = Loading
	}
	l.mu.Unlock()

	l.group.Do(l.list, func() (any, error) {
		l.mu.Lock()
		done := l.state == Loaded || l.state == Failed
		l.mu.Unlock()
		if done {
			return nil, nil
		}

		sets, err := l.ctx.OpenList(l.kind, l.list)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.ctx.Log().Debug("Cannot open grid list", "grids", l.list, "error", err)
			l.state, l.err = Failed, err
			return nil, err
		}
		l.state, l.sets = Loaded, sets
		return nil, nil
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Failed {
		return nil, l.err
	}
	return l.sets, nil
}

// Close closes any opened sets. A later call to Sets opens them again.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := CloseAll(l.sets)
	l.sets, l.err, l.state = nil, nil, Unloaded
	return err
}
