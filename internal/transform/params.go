package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pspoerri/gridshift/internal/grid"
)

// Params holds the +key=value pairs of an operator definition. Flags
// without a value map to the empty string.
type Params map[string]string

// ParseParams splits a definition such as "+proj=hgridshift +grids=a.gsb".
// The leading '+' is optional. When a key repeats, the first value wins.
func ParseParams(def string) (Params, error) {
	p := make(Params)
	for _, tok := range strings.Fields(def) {
		tok = strings.TrimPrefix(tok, "+")
		key, value, _ := strings.Cut(tok, "=")
		if key == "" {
			return nil, fmt.Errorf("%w: malformed parameter %q", grid.ErrInvalidParameter, tok)
		}
		if _, seen := p[key]; !seen {
			p[key] = value
		}
	}
	return p, nil
}

// Has reports whether key was given, with or without a value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float parses key as a number, returning def when it is absent.
func (p Params) Float(key string, def float64) (float64, error) {
	s, ok := p[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", grid.ErrInvalidParameter, key, s)
	}
	return v, nil
}

// now is replaced in tests.
var now = time.Now

// decimalYear expresses t as a year with a fractional part.
func decimalYear(t time.Time) float64 {
	return float64(t.Year()) + float64(t.YearDay()-1)/365
}

// timeWindow restricts a shift to coordinates observed before t_epoch when
// both t_epoch and t_final are set.
type timeWindow struct {
	epoch, final float64
}

func parseTimeWindow(p Params) (timeWindow, error) {
	var w timeWindow
	var err error
	if w.epoch, err = p.Float("t_epoch", 0); err != nil {
		return w, err
	}
	if p["t_final"] == "now" {
		w.final = decimalYear(now())
		return w, nil
	}
	w.final, err = p.Float("t_final", 0)
	return w, err
}

// applies reports whether a coordinate observed at t gets shifted.
func (w timeWindow) applies(t float64) bool {
	if w.epoch == 0 || w.final == 0 {
		return true
	}
	return t < w.epoch && w.final > w.epoch
}
