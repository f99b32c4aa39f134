package grid

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Resource is an open grid file.
type Resource interface {
	io.ReaderAt
	io.Closer
	// Name is the resolved location of the resource.
	Name() string
	Size() int64
	// HasChanged reports whether the backing file was modified or replaced
	// since it was opened.
	HasChanged() bool
}

// Opener resolves a grid name and opens it.
type Opener interface {
	Open(name string) (Resource, error)
}

// FileOpener opens grids from the local file system.
type FileOpener struct {
	// SearchPaths are tried in order for names that are neither absolute
	// nor explicitly relative.
	SearchPaths []string
	// DetectChanges enables modification checks in Resource.HasChanged.
	DetectChanges bool
	// CheckInterval is the minimum time between two file system checks of
	// one resource; answers in between repeat the last one. Zero stats the
	// file on every call, which costs a syscall per interpolated cell.
	CheckInterval time.Duration
}

// Resolve maps a grid name to an existing file path.
func (o FileOpener) Resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty grid name")
	}
	if rest, ok := strings.CutPrefix(name, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", name, err)
		}
		name = filepath.Join(home, rest)
	}

	explicit := filepath.IsAbs(name) ||
		strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../")
	if !explicit {
		for _, dir := range o.SearchPaths {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	fi, err := os.Stat(name)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", name)
	}
	return name, nil
}

// Open resolves name and opens the file read-only.
func (o FileOpener) Open(name string) (Resource, error) {
	path, err := o.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &fileResource{
		File:     f,
		path:     path,
		info:     fi,
		detect:   o.DetectChanges,
		interval: o.CheckInterval,
		now:      time.Now,
	}, nil
}

type fileResource struct {
	*os.File
	path     string
	info     os.FileInfo
	detect   bool
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	checkedAt time.Time
	changed   bool
}

func (r *fileResource) Name() string { return r.path }

func (r *fileResource) Size() int64 { return r.info.Size() }

// HasChanged stats the file at most once per interval. A detected change
// is reported until the resource is closed.
func (r *fileResource) HasChanged() bool {
	if !r.detect {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.changed {
		return true
	}
	now := r.now()
	if r.interval > 0 && !r.checkedAt.IsZero() && now.Sub(r.checkedAt) < r.interval {
		return false
	}
	r.checkedAt = now
	r.changed = r.statChanged()
	return r.changed
}

func (r *fileResource) statChanged() bool {
	fi, err := os.Stat(r.path)
	if err != nil {
		return true
	}
	return !os.SameFile(fi, r.info) ||
		fi.Size() != r.info.Size() ||
		!fi.ModTime().Equal(r.info.ModTime())
}

// readFull reads exactly len(buf) bytes at off.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return err
}
