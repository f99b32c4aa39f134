// Package cogtest writes small TIFF files for tests.
package cogtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Format is the sample data type written to the file.
type Format int

const (
	Float32 Format = iota
	Float64
	Int16
	UInt16
	Int32
	UInt32
)

func (f Format) size() int {
	switch f {
	case Int16, UInt16:
		return 2
	case Float64:
		return 8
	}
	return 4
}

func (f Format) sampleFormat() uint16 {
	switch f {
	case Int16, Int32:
		return 2
	case UInt16, UInt32:
		return 1
	}
	return 3
}

// Image describes one IFD. Zero values pick single-sample float32 strips
// covering the whole image, without compression.
type Image struct {
	Width, Height int
	Samples       int
	Format        Format
	// Value returns the sample stored at column x of TIFF row y.
	Value func(sample, x, y int) float64

	TileWidth, TileHeight int
	RowsPerStrip          int
	Separate              bool
	Compression           uint16
	Predictor             uint16
	Photometric           uint16
	SubfileType           uint32

	PixelScale []float64
	TiePoint   []float64
	Transform  []float64
	GeoKeys    []uint16
	Metadata   string
	NoData     string
}

// GeoKeys builds a GeoKey directory with the model and raster type keys.
// modelType is 1 for projected and 2 for geographic; rasterType is 1 for
// PixelIsArea and 2 for PixelIsPoint.
func GeoKeys(modelType, rasterType uint16) []uint16 {
	return []uint16{
		1, 1, 0, 2,
		1024, 0, 1, modelType,
		1025, 0, 1, rasterType,
	}
}

// Item is one entry of a GDAL metadata document. Sample is -1 for
// dataset-wide items.
type Item struct {
	Name   string
	Sample int
	Role   string
	Value  string
}

// Metadata renders items as a GDALMetadata XML document.
func Metadata(items ...Item) string {
	var b bytes.Buffer
	b.WriteString("<GDALMetadata>\n")
	for _, it := range items {
		fmt.Fprintf(&b, "  <Item name=%q", it.Name)
		if it.Sample >= 0 {
			fmt.Fprintf(&b, " sample=\"%d\"", it.Sample)
		}
		if it.Role != "" {
			fmt.Fprintf(&b, " role=%q", it.Role)
		}
		fmt.Fprintf(&b, ">%s</Item>\n", it.Value)
	}
	b.WriteString("</GDALMetadata>")
	return b.String()
}

// WriteFile encodes images and writes them to path.
func WriteFile(path string, order binary.ByteOrder, images ...Image) error {
	data, err := Encode(order, images...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Encode produces a classic TIFF holding images in order.
func Encode(order binary.ByteOrder, images ...Image) ([]byte, error) {
	return encode(order, false, images)
}

// EncodeBigTIFF is like Encode but writes the 64-bit BigTIFF layout.
func EncodeBigTIFF(order binary.ByteOrder, images ...Image) ([]byte, error) {
	return encode(order, true, images)
}

func encode(order binary.ByteOrder, big bool, images []Image) ([]byte, error) {
	var out bytes.Buffer
	if order == binary.BigEndian {
		out.WriteString("MM")
	} else {
		out.WriteString("II")
	}
	nextPtr := 4
	if big {
		head := make([]byte, 14)
		order.PutUint16(head[0:], 43)
		order.PutUint16(head[2:], 8)
		out.Write(head)
		nextPtr = 8
	} else {
		head := make([]byte, 6)
		order.PutUint16(head[0:], 42)
		out.Write(head)
	}

	// Width of counts, offsets and inline values.
	word, countSize, entrySize := 4, 2, 12
	if big {
		word, countSize, entrySize = 8, 8, 20
	}
	putWord := func(b []byte, v uint64) {
		if big {
			order.PutUint64(b, v)
		} else {
			order.PutUint32(b, uint32(v))
		}
	}

	for i := range images {
		img := images[i]
		if img.Samples == 0 {
			img.Samples = 1
		}
		if img.Compression == 0 {
			img.Compression = 1
		}
		if img.Photometric == 0 {
			img.Photometric = 1
		}
		if img.Value == nil {
			img.Value = func(int, int, int) float64 { return 0 }
		}

		offsets, counts, err := writeBlocks(&out, order, img)
		if err != nil {
			return nil, err
		}
		entries := buildEntries(order, big, img, offsets, counts)

		pad(&out)
		ifdOffset := out.Len()
		putWord(out.Bytes()[nextPtr:], uint64(ifdOffset))

		ifdSize := countSize + entrySize*len(entries) + word
		extra := ifdOffset + ifdSize
		var ifd, tail bytes.Buffer
		cnt := make([]byte, countSize)
		if big {
			order.PutUint64(cnt, uint64(len(entries)))
		} else {
			order.PutUint16(cnt, uint16(len(entries)))
		}
		ifd.Write(cnt)
		for _, e := range entries {
			rec := make([]byte, entrySize)
			order.PutUint16(rec[0:], e.tag)
			order.PutUint16(rec[2:], e.typ)
			putWord(rec[4:], uint64(e.count))
			value := rec[4+word:]
			if len(e.data) <= word {
				copy(value, e.data)
			} else {
				if (extra+tail.Len())%2 == 1 {
					tail.WriteByte(0)
				}
				putWord(value, uint64(extra+tail.Len()))
				tail.Write(e.data)
			}
			ifd.Write(rec)
		}
		nextPtr = ifdOffset + ifd.Len()
		ifd.Write(make([]byte, word))
		out.Write(ifd.Bytes())
		out.Write(tail.Bytes())
	}
	return out.Bytes(), nil
}

func pad(b *bytes.Buffer) {
	if b.Len()%2 == 1 {
		b.WriteByte(0)
	}
}

func buildEntries(order binary.ByteOrder, big bool, img Image, offsets, counts []uint64) []entry {
	short := func(tag uint16, vals ...uint16) entry {
		b := make([]byte, 2*len(vals))
		for i, v := range vals {
			order.PutUint16(b[2*i:], v)
		}
		return entry{tag: tag, typ: 3, count: uint32(len(vals)), data: b}
	}
	long := func(tag uint16, vals ...uint32) entry {
		b := make([]byte, 4*len(vals))
		for i, v := range vals {
			order.PutUint32(b[4*i:], v)
		}
		return entry{tag: tag, typ: 4, count: uint32(len(vals)), data: b}
	}
	offsetList := func(tag uint16, vals []uint64) entry {
		if !big {
			small := make([]uint32, len(vals))
			for i, v := range vals {
				small[i] = uint32(v)
			}
			return long(tag, small...)
		}
		b := make([]byte, 8*len(vals))
		for i, v := range vals {
			order.PutUint64(b[8*i:], v)
		}
		return entry{tag: tag, typ: 16, count: uint32(len(vals)), data: b}
	}
	double := func(tag uint16, vals []float64) entry {
		b := make([]byte, 8*len(vals))
		for i, v := range vals {
			order.PutUint64(b[8*i:], math.Float64bits(v))
		}
		return entry{tag: tag, typ: 12, count: uint32(len(vals)), data: b}
	}
	ascii := func(tag uint16, s string) entry {
		b := append([]byte(s), 0)
		return entry{tag: tag, typ: 2, count: uint32(len(b)), data: b}
	}

	bits := make([]uint16, img.Samples)
	formats := make([]uint16, img.Samples)
	for i := range bits {
		bits[i] = uint16(img.Format.size() * 8)
		formats[i] = img.Format.sampleFormat()
	}
	planar := uint16(1)
	if img.Separate {
		planar = 2
	}

	entries := []entry{
		long(256, uint32(img.Width)),
		long(257, uint32(img.Height)),
		short(258, bits...),
		short(259, img.Compression),
		short(262, img.Photometric),
		short(277, uint16(img.Samples)),
		short(284, planar),
		short(339, formats...),
	}
	if img.SubfileType != 0 {
		entries = append(entries, long(254, img.SubfileType))
	}
	if img.Predictor != 0 {
		entries = append(entries, short(317, img.Predictor))
	}
	if img.TileWidth > 0 {
		entries = append(entries,
			long(322, uint32(img.TileWidth)),
			long(323, uint32(img.TileHeight)),
			offsetList(324, offsets),
			offsetList(325, counts),
		)
	} else {
		entries = append(entries,
			offsetList(273, offsets),
			long(278, uint32(rowsPerStrip(img))),
			offsetList(279, counts),
		)
	}
	if img.PixelScale != nil {
		entries = append(entries, double(33550, img.PixelScale))
	}
	if img.TiePoint != nil {
		entries = append(entries, double(33922, img.TiePoint))
	}
	if img.Transform != nil {
		entries = append(entries, double(34264, img.Transform))
	}
	if img.GeoKeys != nil {
		entries = append(entries, short(34735, img.GeoKeys...))
	}
	if img.Metadata != "" {
		entries = append(entries, ascii(42112, img.Metadata))
	}
	if img.NoData != "" {
		entries = append(entries, ascii(42113, img.NoData))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	return entries
}

func rowsPerStrip(img Image) int {
	if img.RowsPerStrip <= 0 || img.RowsPerStrip > img.Height {
		return img.Height
	}
	return img.RowsPerStrip
}

// writeBlocks appends every tile or strip of img to out and returns their
// offsets and byte counts.
func writeBlocks(out *bytes.Buffer, order binary.ByteOrder, img Image) ([]uint64, []uint64, error) {
	bw, bh := img.Width, rowsPerStrip(img)
	tiled := img.TileWidth > 0
	if tiled {
		bw, bh = img.TileWidth, img.TileHeight
	}
	across := (img.Width + bw - 1) / bw
	down := (img.Height + bh - 1) / bh
	planes, perPixel := 1, img.Samples
	if img.Separate {
		planes, perPixel = img.Samples, 1
	}
	size := img.Format.size()

	var offsets, counts []uint64
	for plane := 0; plane < planes; plane++ {
		for by := 0; by < down; by++ {
			for bx := 0; bx < across; bx++ {
				rows := bh
				if !tiled && (by+1)*bh > img.Height {
					rows = img.Height - by*bh
				}
				raw := make([]byte, bw*rows*perPixel*size)
				for r := 0; r < rows; r++ {
					for c := 0; c < bw; c++ {
						x, y := bx*bw+c, by*bh+r
						if x >= img.Width || y >= img.Height {
							continue
						}
						for s := 0; s < perPixel; s++ {
							sample := s
							if img.Separate {
								sample = plane
							}
							idx := ((r*bw+c)*perPixel + s) * size
							putSample(raw[idx:], img.Format, img.Value(sample, x, y), order)
						}
					}
				}
				applyPredictor(img.Predictor, raw, bw*perPixel*size, perPixel, size, order)
				data, err := compress(img.Compression, raw)
				if err != nil {
					return nil, nil, err
				}
				pad(out)
				offsets = append(offsets, uint64(out.Len()))
				counts = append(counts, uint64(len(data)))
				out.Write(data)
			}
		}
	}
	return offsets, counts, nil
}

func putSample(b []byte, f Format, v float64, order binary.ByteOrder) {
	switch f {
	case Int16:
		order.PutUint16(b, uint16(int16(v)))
	case UInt16:
		order.PutUint16(b, uint16(v))
	case Int32:
		order.PutUint32(b, uint32(int32(v)))
	case UInt32:
		order.PutUint32(b, uint32(v))
	case Float64:
		order.PutUint64(b, math.Float64bits(v))
	default:
		order.PutUint32(b, math.Float32bits(float32(v)))
	}
}

func applyPredictor(predictor uint16, data []byte, rowBytes, stride, size int, order binary.ByteOrder) {
	for start := 0; start+rowBytes <= len(data); start += rowBytes {
		row := data[start : start+rowBytes]
		switch predictor {
		case 2:
			n := len(row) / size
			for i := n - 1; i >= stride; i-- {
				switch size {
				case 2:
					order.PutUint16(row[i*2:], order.Uint16(row[i*2:])-order.Uint16(row[(i-stride)*2:]))
				case 4:
					order.PutUint32(row[i*4:], order.Uint32(row[i*4:])-order.Uint32(row[(i-stride)*4:]))
				case 8:
					order.PutUint64(row[i*8:], order.Uint64(row[i*8:])-order.Uint64(row[(i-stride)*8:]))
				}
			}
		case 3:
			count := len(row) / size
			tmp := make([]byte, len(row))
			for i := 0; i < count; i++ {
				for k := 0; k < size; k++ {
					if order == binary.BigEndian {
						tmp[k*count+i] = row[size*i+k]
					} else {
						tmp[k*count+i] = row[size*i+size-1-k]
					}
				}
			}
			for j := len(tmp) - 1; j >= stride; j-- {
				tmp[j] -= tmp[j-stride]
			}
			copy(row, tmp)
		}
	}
}

func compress(compression uint16, raw []byte) ([]byte, error) {
	switch compression {
	case 1:
		return raw, nil
	case 5:
		return encodeLZW(raw), nil
	case 8, 32946:
		var b bytes.Buffer
		zw := zlib.NewWriter(&b)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	case 50000:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	}
	// Other codecs are only tagged so that readers can be tested on them.
	return raw, nil
}

// encodeLZW writes data as a TIFF LZW stream made of literal codes only.
func encodeLZW(data []byte) []byte {
	var w bitWriter
	width := 9
	next := 258
	first := true
	w.write(256, width)
	for _, b := range data {
		if next >= 4000 {
			w.write(256, width)
			width, next, first = 9, 258, true
		}
		w.write(int(b), width)
		if first {
			first = false
			continue
		}
		next++
		if next+1 >= 1<<width && width < 12 {
			width++
		}
	}
	w.write(257, width)
	return w.bytes()
}

type bitWriter struct {
	buf   []byte
	acc   uint32
	nbits int
}

func (w *bitWriter) write(code, width int) {
	w.acc = w.acc<<uint(width) | uint32(code)
	w.nbits += width
	for w.nbits >= 8 {
		w.buf = append(w.buf, byte(w.acc>>uint(w.nbits-8)))
		w.nbits -= 8
	}
}

func (w *bitWriter) bytes() []byte {
	if w.nbits > 0 {
		w.buf = append(w.buf, byte(w.acc<<uint(8-w.nbits)))
		w.nbits = 0
	}
	return w.buf
}
