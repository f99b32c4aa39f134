package cog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleType is the decoded pixel data type of an image.
type SampleType uint8

const (
	SampleInvalid SampleType = iota
	SampleInt16
	SampleUInt16
	SampleInt32
	SampleUInt32
	SampleFloat32
	SampleFloat64
)

func (t SampleType) String() string {
	switch t {
	case SampleInt16:
		return "int16"
	case SampleUInt16:
		return "uint16"
	case SampleInt32:
		return "int32"
	case SampleUInt32:
		return "uint32"
	case SampleFloat32:
		return "float32"
	case SampleFloat64:
		return "float64"
	}
	return "invalid"
}

// Size returns the number of bytes of one sample.
func (t SampleType) Size() int {
	switch t {
	case SampleInt16, SampleUInt16:
		return 2
	case SampleInt32, SampleUInt32, SampleFloat32:
		return 4
	case SampleFloat64:
		return 8
	}
	return 0
}

// SampleType maps BitsPerSample and SampleFormat to one of the supported
// sample types.
func (ifd *IFD) SampleType() (SampleType, error) {
	bits := ifd.BytesPerSample() * 8
	for _, b := range ifd.BitsPerSample {
		if int(b) != bits {
			return SampleInvalid, fmt.Errorf("mixed BitsPerSample %v", ifd.BitsPerSample)
		}
	}
	switch {
	case ifd.SampleFormat == sampleFormatInt && bits == 16:
		return SampleInt16, nil
	case ifd.SampleFormat == sampleFormatUint && bits == 16:
		return SampleUInt16, nil
	case ifd.SampleFormat == sampleFormatInt && bits == 32:
		return SampleInt32, nil
	case ifd.SampleFormat == sampleFormatUint && bits == 32:
		return SampleUInt32, nil
	case ifd.SampleFormat == sampleFormatIEEE && bits == 32:
		return SampleFloat32, nil
	case ifd.SampleFormat == sampleFormatIEEE && bits == 64:
		return SampleFloat64, nil
	}
	return SampleInvalid, fmt.Errorf("unsupported sample format %d with %d bits", ifd.SampleFormat, bits)
}

// decodeSample reads the index-th sample of type t from buf.
func decodeSample(t SampleType, buf []byte, index int, bo binary.ByteOrder) (float64, error) {
	size := t.Size()
	off := index * size
	if size == 0 || index < 0 || off+size > len(buf) {
		return 0, fmt.Errorf("sample %d outside block of %d bytes", index, len(buf))
	}
	b := buf[off : off+size]
	switch t {
	case SampleInt16:
		return float64(int16(bo.Uint16(b))), nil
	case SampleUInt16:
		return float64(bo.Uint16(b)), nil
	case SampleInt32:
		return float64(int32(bo.Uint32(b))), nil
	case SampleUInt32:
		return float64(bo.Uint32(b)), nil
	case SampleFloat32:
		return float64(math.Float32frombits(bo.Uint32(b))), nil
	default:
		return math.Float64frombits(bo.Uint64(b)), nil
	}
}
