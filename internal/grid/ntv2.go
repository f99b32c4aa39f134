package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/pspoerri/gridshift/internal/logging"
)

const ntv2RecordSize = 11 * 16

// ntv2Source reads one subfile: records of four float32 values (latitude
// shift, longitude shift and their accuracies) in arc-seconds, rows running
// east to west, longitudes positive west.
type ntv2Source struct {
	res    Resource
	order  binary.ByteOrder
	offset int64
	width  int
}

func isNTv2(header []byte) bool {
	return len(header) >= 48+7 &&
		string(header[0:8]) == "NUM_OREC" &&
		string(header[48:55]) == "GS_TYPE"
}

// openNTv2 reads every subfile and links them through their parent names.
// Subfiles naming an unknown parent become top-level grids.
func openNTv2(res Resource, name string, logger *slog.Logger) ([]*Grid, error) {
	header := make([]byte, ntv2RecordSize)
	if err := readFull(res, header, 0); err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	if string(header[56:63]) != "SECONDS" {
		return nil, errors.New("only GS_TYPE=SECONDS is supported")
	}
	var order binary.ByteOrder = binary.BigEndian
	if header[8] == 11 {
		order = binary.LittleEndian
	}
	numSubfiles := int(int32(order.Uint32(header[40:])))

	var top []*Grid
	byName := make(map[string]*Grid)
	pos := int64(ntv2RecordSize)
	for i := 0; i < numSubfiles; i++ {
		if err := readFull(res, header, pos); err != nil {
			return nil, fmt.Errorf("cannot read subfile header: %w", err)
		}
		pos += ntv2RecordSize
		if string(header[0:8]) != "SUB_NAME" {
			return nil, errors.New("invalid subfile header")
		}
		subName := strings.TrimRight(string(header[8:16]), " \x00")
		parentName := strings.TrimRight(string(header[24:32]), " \x00")
		double := func(off int) float64 {
			return math.Float64frombits(order.Uint64(header[off:]))
		}

		ext := ExtentAndRes{
			Geographic: true,
			South:      double(72) * arcSec,
			North:      double(88) * arcSec,
			East:       -double(104) * arcSec,
			West:       -double(120) * arcSec,
			ResY:       double(136) * arcSec,
			ResX:       double(152) * arcSec,
		}
		if !ext.validGeodetic() {
			return nil, fmt.Errorf("%w for %s", errInconsistentExtent, name)
		}
		cols := cellCount(ext.East-ext.West, ext.ResX)
		rows := cellCount(ext.North-ext.South, ext.ResY)
		logging.Trace(logger, "NTv2 subfile",
			"grid", name, "subfile", subName, "width", cols, "height", rows,
			"west", ext.West, "south", ext.South, "east", ext.East, "north", ext.North)

		count := int(int32(order.Uint32(header[168:])))
		if count/cols != rows {
			return nil, fmt.Errorf("GS_COUNT(%d) does not match expected cells (%dx%d)", count, cols, rows)
		}

		g := &Grid{
			name:   name + ", " + subName,
			kind:   Horizontal,
			format: FormatNTv2,
			width:  cols,
			height: rows,
			extent: ext,
			src:    &ntv2Source{res: res, order: order, offset: pos, width: cols},
		}
		if parent, ok := byName[parentName]; ok {
			parent.children = append(parent.children, g)
		} else {
			top = append(top, g)
		}
		byName[subName] = g

		pos += int64(count) * 16
	}
	return top, nil
}

func (s *ntv2Source) shift(x, y int, compensate bool) (float32, float32, error) {
	var buf [8]byte
	off := s.offset + 16*(int64(y)*int64(s.width)+int64(s.width-1-x))
	if err := readFull(s.res, buf[:], off); err != nil {
		return 0, 0, fmt.Errorf("%s: reading cell (%d,%d): %w", s.res.Name(), x, y, err)
	}
	lat := float64(math.Float32frombits(s.order.Uint32(buf[0:])))
	lon := float64(math.Float32frombits(s.order.Uint32(buf[4:])))
	sign := float32(1)
	if compensate {
		sign = -1
	}
	return sign * float32(lon*arcSec), float32(lat * arcSec), nil
}

func (s *ntv2Source) samples() int { return 2 }

func (s *ntv2Source) value(sample, x, y int) (float32, error) {
	lon, lat, err := s.shift(x, y, false)
	if sample == 0 {
		return lat, err
	}
	return lon, err
}

func (s *ntv2Source) nodata(float32, float64) bool { return false }

func (s *ntv2Source) metadata(string, int) string { return "" }

func (s *ntv2Source) changed() bool { return s.res.HasChanged() }
