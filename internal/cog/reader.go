package cog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Dataset provides block-level access to a TIFF file through an
// io.ReaderAt. Blocks are decoded on demand and shared through an optional
// BlockCache. It is safe for concurrent use as long as the underlying
// reader is.
type Dataset struct {
	name    string
	r       io.ReaderAt
	size    int64
	bo      binary.ByteOrder
	bigTIFF bool
	ifds    []IFD
	types   []SampleType

	id       uint64
	cache    *BlockCache
	inflight singleflight.Group
}

// IsTIFF reports whether header starts with a classic or BigTIFF signature.
func IsTIFF(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	if string(header[:2]) != "II" && string(header[:2]) != "MM" {
		return false
	}
	return (header[2] == 0x2A && header[3] == 0) ||
		(header[3] == 0x2A && header[2] == 0) ||
		(header[2] == 0x2B && header[3] == 0) ||
		(header[3] == 0x2B && header[2] == 0)
}

// Open parses the TIFF structure read from r. name is only used in
// messages. cache may be nil, in which case every block read decodes
// from r.
func Open(name string, r io.ReaderAt, size int64, cache *BlockCache) (*Dataset, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	ifds, bo, bigTIFF, err := parseTIFF(io.NewSectionReader(r, 0, size), size)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if len(ifds) == 0 {
		return nil, fmt.Errorf("%s: no IFDs found", name)
	}

	d := &Dataset{
		name:    name,
		r:       r,
		size:    size,
		bo:      bo,
		bigTIFF: bigTIFF,
		ifds:    ifds,
		types:   make([]SampleType, len(ifds)),
		cache:   cache,
	}
	for i := range ifds {
		// Unsupported types surface when the IFD is used.
		d.types[i], _ = ifds[i].SampleType()
	}
	if cache != nil {
		d.id = cache.register()
	}
	return d, nil
}

// Close drops the dataset's cached blocks. It does not close the reader.
func (d *Dataset) Close() error {
	if d.cache != nil {
		d.cache.Forget(d.id)
	}
	return nil
}

// Name returns the name given at Open.
func (d *Dataset) Name() string { return d.name }

// ByteOrder returns the byte order of the file.
func (d *Dataset) ByteOrder() binary.ByteOrder { return d.bo }

// BigTIFF reports whether the file uses 64-bit offsets.
func (d *Dataset) BigTIFF() bool { return d.bigTIFF }

// IFDCount returns the total number of IFDs.
func (d *Dataset) IFDCount() int { return len(d.ifds) }

// IFD returns the directory at index i.
func (d *Dataset) IFD(i int) *IFD { return &d.ifds[i] }

// SampleType returns the decoded sample type of IFD i.
func (d *Dataset) SampleType(i int) SampleType { return d.types[i] }

// ReadBlock returns the decoded bytes of a tile or strip. Concurrent reads
// of the same block are coalesced.
func (d *Dataset) ReadBlock(level, block int) ([]byte, error) {
	if level < 0 || level >= len(d.ifds) {
		return nil, fmt.Errorf("%s: IFD %d out of range", d.name, level)
	}
	if d.cache != nil {
		if data := d.cache.Get(d.id, level, block); data != nil {
			return data, nil
		}
	}

	key := strconv.Itoa(level) + "/" + strconv.Itoa(block)
	v, err, _ := d.inflight.Do(key, func() (any, error) {
		data, err := d.decodeBlock(level, block)
		if err != nil {
			return nil, err
		}
		if d.cache != nil {
			d.cache.Put(d.id, level, block, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (d *Dataset) decodeBlock(level, block int) ([]byte, error) {
	ifd := &d.ifds[level]
	offsets, counts := ifd.blockOffsets()
	if block < 0 || block >= len(offsets) || block >= len(counts) {
		return nil, fmt.Errorf("%s: block %d out of range (%d blocks)", d.name, block, len(offsets))
	}
	if !SupportedCompression(ifd.Compression) {
		return nil, fmt.Errorf("%s: unsupported compression %d", d.name, ifd.Compression)
	}

	want := ifd.BlockSize()
	if want <= 0 || want > maxBlockSize {
		return nil, fmt.Errorf("%s: invalid block size %d", d.name, want)
	}

	offset, n := offsets[block], counts[block]
	if n == 0 {
		// Sparse block.
		return make([]byte, want), nil
	}
	if offset > uint64(d.size) || n > uint64(d.size)-offset {
		return nil, fmt.Errorf("%s: block %d at offset %d (+%d) beyond end of file", d.name, block, offset, n)
	}
	raw := make([]byte, n)
	if got, err := d.r.ReadAt(raw, int64(offset)); err != nil && !(errors.Is(err, io.EOF) && got == len(raw)) {
		return nil, fmt.Errorf("%s: reading block %d: %w", d.name, block, err)
	}

	data, err := decompress(ifd.Compression, raw, int(want))
	if err != nil {
		return nil, fmt.Errorf("%s: block %d: %w", d.name, block, err)
	}
	switch {
	case int64(len(data)) < want:
		padded := make([]byte, want)
		copy(padded, data)
		data = padded
	case int64(len(data)) > want:
		data = data[:want]
	}

	if ifd.Predictor != PredictorNone && ifd.Predictor != 0 {
		if ifd.Compression == CompressionNone {
			return data, nil
		}
		stride := 1
		if ifd.PlanarConfig != PlanarSeparate {
			stride = int(ifd.SamplesPerPixel)
		}
		rowBytes := ifd.BlockWidth() * ifd.BytesPerSample() * stride
		if err := undoPredictor(ifd.Predictor, data, rowBytes, stride, ifd.BytesPerSample(), d.bo); err != nil {
			return nil, fmt.Errorf("%s: block %d: %w", d.name, block, err)
		}
	}
	return data, nil
}

// Sample returns one sample of the pixel at column x and TIFF row row of
// IFD level, converted to float64.
func (d *Dataset) Sample(level, sample, x, row int) (float64, error) {
	if level < 0 || level >= len(d.ifds) {
		return 0, fmt.Errorf("%s: IFD %d out of range", d.name, level)
	}
	ifd := &d.ifds[level]
	t := d.types[level]
	if t == SampleInvalid {
		_, err := ifd.SampleType()
		return 0, fmt.Errorf("%s: %w", d.name, err)
	}
	spp := int(ifd.SamplesPerPixel)
	if sample < 0 || sample >= spp || x < 0 || x >= int(ifd.Width) || row < 0 || row >= int(ifd.Height) {
		return 0, fmt.Errorf("%s: sample %d at (%d,%d) outside %dx%dx%d image",
			d.name, sample, x, row, ifd.Width, ifd.Height, spp)
	}

	bw, bh := ifd.BlockWidth(), ifd.BlockHeight()
	blocksAcross := ifd.BlocksAcross()
	block := (row/bh)*blocksAcross + x/bw
	index := x%bw + (row%bh)*bw
	if ifd.PlanarConfig == PlanarSeparate {
		block += sample * blocksAcross * ifd.BlocksDown()
	} else {
		index = index*spp + sample
	}

	data, err := d.ReadBlock(level, block)
	if err != nil {
		return 0, err
	}
	v, err := decodeSample(t, data, index, d.bo)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", d.name, err)
	}
	return v, nil
}
