package cog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pspoerri/gridshift/internal/cog/cogtest"
)

func pattern(sample, x, y int) float64 {
	return float64(sample*1000 + y*10 + x)
}

func openBytes(t *testing.T, data []byte, cache *BlockCache) *Dataset {
	t.Helper()
	ds, err := Open("test.tif", bytes.NewReader(data), int64(len(data)), cache)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ds
}

func TestDatasetLayouts(t *testing.T) {
	tests := []struct {
		name  string
		order binary.ByteOrder
		img   cogtest.Image
		want  SampleType
		big   bool
	}{
		{"float32 strips", binary.LittleEndian,
			cogtest.Image{Width: 7, Height: 5, RowsPerStrip: 2}, SampleFloat32, false},
		{"float64 tiles deflate big endian", binary.BigEndian,
			cogtest.Image{Width: 7, Height: 5, Format: cogtest.Float64, TileWidth: 16, TileHeight: 16, Compression: CompressionDeflate}, SampleFloat64, false},
		{"int16 lzw predictor separate", binary.LittleEndian,
			cogtest.Image{Width: 7, Height: 5, Samples: 2, Format: cogtest.Int16, RowsPerStrip: 3, Separate: true, Compression: CompressionLZW, Predictor: PredictorHorizontal}, SampleInt16, false},
		{"uint16 zstd", binary.BigEndian,
			cogtest.Image{Width: 7, Height: 5, Format: cogtest.UInt16, Compression: CompressionZSTD}, SampleUInt16, false},
		{"int32 three samples predictor deflate", binary.LittleEndian,
			cogtest.Image{Width: 7, Height: 5, Samples: 3, Format: cogtest.Int32, Compression: CompressionDeflate, Predictor: PredictorHorizontal}, SampleInt32, false},
		{"float32 floating point predictor lzw", binary.BigEndian,
			cogtest.Image{Width: 7, Height: 5, Samples: 2, TileWidth: 16, TileHeight: 16, Compression: CompressionLZW, Predictor: PredictorFloatingPoint}, SampleFloat32, false},
		{"float64 floating point predictor little endian", binary.LittleEndian,
			cogtest.Image{Width: 7, Height: 5, Format: cogtest.Float64, Compression: CompressionZSTD, Predictor: PredictorFloatingPoint}, SampleFloat64, false},
		{"uint32 separate tiles", binary.LittleEndian,
			cogtest.Image{Width: 20, Height: 18, Samples: 2, Format: cogtest.UInt32, TileWidth: 16, TileHeight: 16, Separate: true}, SampleUInt32, false},
		{"bigtiff tiles", binary.LittleEndian,
			cogtest.Image{Width: 20, Height: 18, TileWidth: 16, TileHeight: 16, Compression: CompressionDeflate}, SampleFloat32, true},
		{"bigtiff strips big endian", binary.BigEndian,
			cogtest.Image{Width: 5, Height: 9, Samples: 2, Format: cogtest.Int16, RowsPerStrip: 4}, SampleInt16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := tt.img
			img.Value = pattern
			encode := cogtest.Encode
			if tt.big {
				encode = cogtest.EncodeBigTIFF
			}
			data, err := encode(tt.order, img)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			ds := openBytes(t, data, NewBlockCache(4))
			if ds.BigTIFF() != tt.big {
				t.Fatalf("BigTIFF() = %v, want %v", ds.BigTIFF(), tt.big)
			}
			if got := ds.SampleType(0); got != tt.want {
				t.Fatalf("SampleType() = %v, want %v", got, tt.want)
			}
			samples := max(img.Samples, 1)
			for s := 0; s < samples; s++ {
				for y := 0; y < img.Height; y++ {
					for x := 0; x < img.Width; x++ {
						v, err := ds.Sample(0, s, x, y)
						if err != nil {
							t.Fatalf("Sample(%d,%d,%d): %v", s, x, y, err)
						}
						if v != pattern(s, x, y) {
							t.Fatalf("Sample(%d,%d,%d) = %v, want %v", s, x, y, v, pattern(s, x, y))
						}
					}
				}
			}
		})
	}
}

func TestSampleOutOfRange(t *testing.T) {
	data, err := cogtest.Encode(binary.LittleEndian, cogtest.Image{Width: 4, Height: 3, Value: pattern})
	if err != nil {
		t.Fatal(err)
	}
	ds := openBytes(t, data, nil)
	for _, c := range [][3]int{{1, 0, 0}, {0, 4, 0}, {0, 0, 3}, {0, -1, 0}} {
		if _, err := ds.Sample(0, c[0], c[1], c[2]); err == nil {
			t.Errorf("Sample%v: expected error", c)
		}
	}
	if _, err := ds.Sample(1, 0, 0, 0); err == nil {
		t.Error("Sample on missing IFD: expected error")
	}
}

func TestIsTIFF(t *testing.T) {
	tests := []struct {
		header []byte
		want   bool
	}{
		{[]byte("II*\x00"), true},
		{[]byte("MM\x00*"), true},
		{[]byte("II+\x00"), true},
		{[]byte("MM\x00+"), true},
		{[]byte("II\x00\x00"), false},
		{[]byte("XX*\x00"), false},
		{[]byte("II"), false},
	}
	for _, tt := range tests {
		if got := IsTIFF(tt.header); got != tt.want {
			t.Errorf("IsTIFF(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestOpenRejectsIFDCycle(t *testing.T) {
	data := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0,
		0, 0, // no entries
		8, 0, 0, 0, // next IFD points back to itself
	}
	if _, err := Open("loop.tif", bytes.NewReader(data), int64(len(data)), nil); err == nil {
		t.Fatal("expected error for looping IFD chain")
	}
}

func TestOpenRejectsOutOfRangeEntry(t *testing.T) {
	data := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0,
		1, 0,
		// StripOffsets, LONG, count 16, offset 1000
		0x11, 0x01, 4, 0, 16, 0, 0, 0, 0xE8, 0x03, 0, 0,
		0, 0, 0, 0,
	}
	if _, err := Open("bad.tif", bytes.NewReader(data), int64(len(data)), nil); err == nil {
		t.Fatal("expected error for entry beyond end of file")
	}
}

// flakyReader fails every read once broken is set.
type flakyReader struct {
	r      io.ReaderAt
	broken atomic.Bool
}

func (f *flakyReader) ReadAt(p []byte, off int64) (int, error) {
	if f.broken.Load() {
		return 0, errors.New("device gone")
	}
	return f.r.ReadAt(p, off)
}

func TestReadErrorsAreReportedPerCall(t *testing.T) {
	data, err := cogtest.Encode(binary.LittleEndian, cogtest.Image{Width: 4, Height: 4, RowsPerStrip: 1, Value: pattern})
	if err != nil {
		t.Fatal(err)
	}
	fr := &flakyReader{r: bytes.NewReader(data)}
	ds, err := Open("flaky.tif", fr, int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.Sample(0, 0, 0, 0); err != nil {
		t.Fatalf("first read: %v", err)
	}
	fr.broken.Store(true)
	if _, err := ds.Sample(0, 0, 0, 1); err == nil {
		t.Fatal("expected read failure")
	}
	fr.broken.Store(false)
	if v, err := ds.Sample(0, 0, 1, 2); err != nil || v != pattern(0, 1, 2) {
		t.Fatalf("after recovery: %v, %v", v, err)
	}
}

func TestDatasetSharesCache(t *testing.T) {
	data, err := cogtest.Encode(binary.LittleEndian, cogtest.Image{Width: 4, Height: 4, RowsPerStrip: 1, Value: pattern})
	if err != nil {
		t.Fatal(err)
	}
	cache := NewBlockCache(8)
	defer cache.Stop()
	a := openBytes(t, data, cache)
	b := openBytes(t, data, cache)

	var wg sync.WaitGroup
	for y := 0; y < 4; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			if _, err := a.Sample(0, 0, 0, y); err != nil {
				t.Errorf("Sample: %v", err)
			}
		}(y)
	}
	wg.Wait()
	if _, err := b.Sample(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if got := cache.Len(); got != 5 {
		t.Fatalf("cache.Len() = %d, want 5", got)
	}

	a.Close()
	if got := cache.Len(); got != 1 {
		t.Fatalf("after Close cache.Len() = %d, want 1", got)
	}
}

func TestBlockCache(t *testing.T) {
	bc := NewBlockCache(0)
	defer bc.Stop()

	if got := bc.Get(1, 0, 0); got != nil {
		t.Fatalf("Get on empty cache = %v", got)
	}
	bc.Put(1, 0, 0, []byte{1})
	bc.Put(1, 1, 0, []byte{2})
	bc.Put(2, 0, 0, []byte{3})

	if got := bc.Get(1, 1, 0); !bytes.Equal(got, []byte{2}) {
		t.Errorf("Get(1,1,0) = %v", got)
	}
	if n := bc.Forget(1); n != 2 {
		t.Errorf("Forget(1) = %d, want 2", n)
	}
	if got := bc.Get(1, 0, 0); got != nil {
		t.Errorf("Get after Forget = %v", got)
	}
	if got := bc.Get(2, 0, 0); !bytes.Equal(got, []byte{3}) {
		t.Errorf("Get(2,0,0) = %v", got)
	}
}
