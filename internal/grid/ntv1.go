package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const ntv1HeaderSize = 192

// ntv1Source reads pairs of big-endian doubles (latitude, longitude) in
// arc-seconds. Longitudes are positive west and each row runs east to west.
type ntv1Source struct {
	res   Resource
	width int
}

func isNTv1(header []byte) bool {
	return len(header) >= 160 &&
		string(header[0:6]) == "HEADER" &&
		string(header[96:102]) == "W GRID" &&
		string(header[144:160]) == "TO      NAD83   "
}

func openNTv1(res Resource, name string) (*Grid, error) {
	var header [ntv1HeaderSize]byte
	if err := readFull(res, header[:], 0); err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	be := binary.BigEndian
	if int32(be.Uint32(header[8:])) != 12 {
		return nil, errors.New("NTv1 grid shift file has wrong record count, corrupt?")
	}
	double := func(off int) float64 {
		return math.Float64frombits(be.Uint64(header[off:]))
	}

	ext := ExtentAndRes{
		Geographic: true,
		West:       -double(72) * degToRad,
		South:      double(24) * degToRad,
		East:       -double(56) * degToRad,
		North:      double(40) * degToRad,
		ResX:       double(104) * degToRad,
		ResY:       double(88) * degToRad,
	}
	if !ext.validGeodetic() {
		return nil, fmt.Errorf("%w for %s", errInconsistentExtent, name)
	}
	cols := cellCount(ext.East-ext.West, ext.ResX)
	rows := cellCount(ext.North-ext.South, ext.ResY)

	return &Grid{
		name:   name,
		kind:   Horizontal,
		format: FormatNTv1,
		width:  cols,
		height: rows,
		extent: ext,
		src:    &ntv1Source{res: res, width: cols},
	}, nil
}

func (s *ntv1Source) read(x, y int) (lat, lon float64, err error) {
	var buf [16]byte
	off := int64(ntv1HeaderSize) + 16*(int64(y)*int64(s.width)+int64(s.width-1-x))
	if err := readFull(s.res, buf[:], off); err != nil {
		return 0, 0, fmt.Errorf("%s: reading cell (%d,%d): %w", s.res.Name(), x, y, err)
	}
	lat = math.Float64frombits(binary.BigEndian.Uint64(buf[0:]))
	lon = math.Float64frombits(binary.BigEndian.Uint64(buf[8:]))
	return lat, lon, nil
}

func (s *ntv1Source) shift(x, y int, compensate bool) (float32, float32, error) {
	lat, lon, err := s.read(x, y)
	if err != nil {
		return 0, 0, err
	}
	sign := 1.0
	if compensate {
		sign = -1
	}
	return float32(sign * lon * arcSec), float32(lat * arcSec), nil
}

func (s *ntv1Source) samples() int { return 2 }

// value returns the latitude shift as sample 0 and the native longitude
// shift as sample 1, in radians.
func (s *ntv1Source) value(sample, x, y int) (float32, error) {
	lon, lat, err := s.shift(x, y, false)
	if sample == 0 {
		return lat, err
	}
	return lon, err
}

func (s *ntv1Source) nodata(float32, float64) bool { return false }

func (s *ntv1Source) metadata(string, int) string { return "" }

func (s *ntv1Source) changed() bool { return s.res.HasChanged() }
