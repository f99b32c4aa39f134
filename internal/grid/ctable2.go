package grid

import (
	"encoding/binary"
	"fmt"
	"math"
)

const ctable2HeaderSize = 160

// ctable2Source reads little-endian float32 pairs (longitude, latitude) in
// radians, rows running west to east. Longitudes are positive west.
type ctable2Source struct {
	res   Resource
	width int
}

func isCTable2(header []byte) bool {
	return len(header) >= 9 && string(header[0:9]) == "CTABLE V2"
}

func openCTable2(res Resource, name string) (*Grid, error) {
	var header [ctable2HeaderSize]byte
	if err := readFull(res, header[:], 0); err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	le := binary.LittleEndian
	double := func(off int) float64 {
		return math.Float64frombits(le.Uint64(header[off:]))
	}
	width := int(int32(le.Uint32(header[128:])))
	height := int(int32(le.Uint32(header[132:])))

	ext := ExtentAndRes{
		Geographic: true,
		West:       double(96),
		South:      double(104),
		ResX:       double(112),
		ResY:       double(120),
	}
	if !(math.Abs(ext.West) <= 4*math.Pi && math.Abs(ext.South) <= math.Pi+1e-5 &&
		ext.ResX > 1e-10 && ext.ResY > 1e-10 && width > 0 && height > 0) {
		return nil, fmt.Errorf("%w for %s", errInconsistentExtent, name)
	}
	ext.East = ext.West + float64(width-1)*ext.ResX
	// North is derived from ResX; deployed files rely on it.
	ext.North = ext.South + float64(height-1)*ext.ResX

	return &Grid{
		name:   name,
		kind:   Horizontal,
		format: FormatCTable2,
		width:  width,
		height: height,
		extent: ext,
		src:    &ctable2Source{res: res, width: width},
	}, nil
}

func (s *ctable2Source) shift(x, y int, compensate bool) (float32, float32, error) {
	var buf [8]byte
	off := int64(ctable2HeaderSize) + 8*(int64(y)*int64(s.width)+int64(x))
	if err := readFull(s.res, buf[:], off); err != nil {
		return 0, 0, fmt.Errorf("%s: reading cell (%d,%d): %w", s.res.Name(), x, y, err)
	}
	lon := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
	lat := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
	if compensate {
		lon = -lon
	}
	return lon, lat, nil
}

func (s *ctable2Source) samples() int { return 2 }

func (s *ctable2Source) value(sample, x, y int) (float32, error) {
	lon, lat, err := s.shift(x, y, false)
	if sample == 0 {
		return lat, err
	}
	return lon, err
}

func (s *ctable2Source) nodata(float32, float64) bool { return false }

func (s *ctable2Source) metadata(string, int) string { return "" }

func (s *ctable2Source) changed() bool { return s.res.HasChanged() }
