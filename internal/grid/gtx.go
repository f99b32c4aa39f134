package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

const gtxHeaderSize = 40

// gtxNodata is the missing-value marker written by the NOAA tools.
const gtxNodata = float32(-88.8888)

// gtxSource reads big-endian float32 heights stored south to north.
type gtxSource struct {
	res   Resource
	width int
}

func openGTX(res Resource, name string, logger *slog.Logger) (*Grid, error) {
	var header [gtxHeaderSize]byte
	if err := readFull(res, header[:], 0); err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	be := binary.BigEndian
	yorigin := math.Float64frombits(be.Uint64(header[0:]))
	xorigin := math.Float64frombits(be.Uint64(header[8:]))
	ystep := math.Float64frombits(be.Uint64(header[16:]))
	xstep := math.Float64frombits(be.Uint64(header[24:]))
	rows := int(int32(be.Uint32(header[32:])))
	cols := int(int32(be.Uint32(header[36:])))

	if xorigin < -360 || xorigin > 360 || yorigin < -90 || yorigin > 90 {
		return nil, errors.New("gtx file header has invalid extents, corrupt?")
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("gtx file header has invalid size %dx%d", cols, rows)
	}
	if !(xstep > 1e-10) || !(ystep > 1e-10) || math.IsInf(xstep, 0) || math.IsInf(ystep, 0) {
		return nil, fmt.Errorf("%w for %s: steps %g x %g", errInconsistentExtent, name, xstep, ystep)
	}
	// Some GTX files come in 0-360 and we shift them back into -180..180.
	if xorigin >= 180 {
		xorigin -= 360
	}
	if xorigin >= 0 && xorigin+xstep*float64(cols) > 180 {
		logger.Debug("This GTX spans the dateline! This will cause problems.", "grid", name)
	}

	ext := ExtentAndRes{
		Geographic: true,
		West:       xorigin * degToRad,
		South:      yorigin * degToRad,
		ResX:       xstep * degToRad,
		ResY:       ystep * degToRad,
		East:       (xorigin + xstep*float64(cols-1)) * degToRad,
		North:      (yorigin + ystep*float64(rows-1)) * degToRad,
	}
	return &Grid{
		name:   name,
		kind:   Vertical,
		format: FormatGTX,
		width:  cols,
		height: rows,
		extent: ext,
		src:    &gtxSource{res: res, width: cols},
	}, nil
}

func (s *gtxSource) samples() int { return 1 }

func (s *gtxSource) value(_, x, y int) (float32, error) {
	var buf [4]byte
	off := int64(gtxHeaderSize) + 4*(int64(y)*int64(s.width)+int64(x))
	if err := readFull(s.res, buf[:], off); err != nil {
		return 0, fmt.Errorf("%s: reading cell (%d,%d): %w", s.res.Name(), x, y, err)
	}
	return math.Float32frombits(binary.BigEndian.Uint32(buf[:])), nil
}

func (s *gtxSource) nodata(v float32, multiplier float64) bool {
	scaled := float64(v) * multiplier
	return scaled > 1000 || scaled < -1000 || v == gtxNodata
}

func (s *gtxSource) metadata(string, int) string { return "" }

func (s *gtxSource) changed() bool { return s.res.HasChanged() }
