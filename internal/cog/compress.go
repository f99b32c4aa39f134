package cog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
})

// SupportedCompression reports whether blocks written with the given
// Compression tag value can be decoded.
func SupportedCompression(c uint16) bool {
	switch c {
	case CompressionNone, CompressionLZW, CompressionDeflate, compressionAdobeZip, CompressionZSTD:
		return true
	}
	return false
}

// decompress expands raw block bytes into at most want bytes.
func decompress(compression uint16, raw []byte, want int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return raw, nil
	case CompressionLZW:
		return decompressTIFFLZW(raw, want)
	case CompressionDeflate, compressionAdobeZip:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(want)))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		out, err := dec.DecodeAll(raw, make([]byte, 0, want))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression %d", compression)
	}
}

// undoPredictor reverses horizontal or floating point differencing in place.
// rowBytes is the byte length of one block row and stride the number of
// interleaved samples per pixel.
func undoPredictor(predictor uint16, data []byte, rowBytes, stride, sampleSize int, bo binary.ByteOrder) error {
	if rowBytes <= 0 {
		return nil
	}
	switch predictor {
	case PredictorNone, 0:
		return nil
	case PredictorHorizontal:
		for start := 0; start+rowBytes <= len(data); start += rowBytes {
			horizontalAccumulate(data[start:start+rowBytes], stride, sampleSize, bo)
		}
		return nil
	case PredictorFloatingPoint:
		tmp := make([]byte, rowBytes)
		for start := 0; start+rowBytes <= len(data); start += rowBytes {
			floatAccumulate(data[start:start+rowBytes], tmp, stride, sampleSize, bo)
		}
		return nil
	default:
		return fmt.Errorf("unsupported predictor %d", predictor)
	}
}

func horizontalAccumulate(row []byte, stride, size int, bo binary.ByteOrder) {
	n := len(row) / size
	switch size {
	case 1:
		for i := stride; i < n; i++ {
			row[i] += row[i-stride]
		}
	case 2:
		for i := stride; i < n; i++ {
			v := bo.Uint16(row[i*2:]) + bo.Uint16(row[(i-stride)*2:])
			bo.PutUint16(row[i*2:], v)
		}
	case 4:
		for i := stride; i < n; i++ {
			v := bo.Uint32(row[i*4:]) + bo.Uint32(row[(i-stride)*4:])
			bo.PutUint32(row[i*4:], v)
		}
	case 8:
		for i := stride; i < n; i++ {
			v := bo.Uint64(row[i*8:]) + bo.Uint64(row[(i-stride)*8:])
			bo.PutUint64(row[i*8:], v)
		}
	}
}

// floatAccumulate undoes the byte-wise differencing of predictor 3, then
// reassembles the byte planes (most significant first) into values laid out
// in the file's byte order.
func floatAccumulate(row, tmp []byte, stride, size int, bo binary.ByteOrder) {
	for i := stride; i < len(row); i++ {
		row[i] += row[i-stride]
	}
	copy(tmp, row)
	count := len(row) / size
	bigEndian := bo == binary.BigEndian
	for i := 0; i < count; i++ {
		for b := 0; b < size; b++ {
			if bigEndian {
				row[size*i+b] = tmp[b*count+i]
			} else {
				row[size*i+b] = tmp[(size-b-1)*count+i]
			}
		}
	}
}
