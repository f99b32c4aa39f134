package cog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// TIFF tag IDs.
const (
	tagSubfileType        = 254
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagPhotometric        = 262
	tagStripOffsets       = 273
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripByteCounts    = 279
	tagPlanarConfig       = 284
	tagPredictor          = 317
	tagTileWidth          = 322
	tagTileLength         = 323
	tagTileOffsets        = 324
	tagTileByteCounts     = 325
	tagSampleFormat       = 339
	tagModelPixelScaleTag = 33550
	tagModelTiepointTag   = 33922
	tagModelTransformTag  = 34264
	tagGeoKeyDirectoryTag = 34735
	tagGeoDoubleParamsTag = 34736
	tagGeoAsciiParamsTag  = 34737
	tagGDALMetadata       = 42112
	tagGDALNoData         = 42113
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtIFD       = 13
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// Compression schemes.
const (
	CompressionNone     = 1
	CompressionLZW      = 5
	CompressionOJPEG    = 6
	CompressionDeflate  = 8
	CompressionZSTD     = 50000
	compressionAdobeZip = 32946
)

// Values of SubfileType that describe a full-resolution image.
const (
	SubfileFullImage = 0
	SubfilePage      = 2
)

const (
	PlanarContig   = 1
	PlanarSeparate = 2

	PhotometricMinIsBlack = 1

	PredictorNone          = 1
	PredictorHorizontal    = 2
	PredictorFloatingPoint = 3

	sampleFormatUint = 1
	sampleFormatInt  = 2
	sampleFormatIEEE = 3
)

// Limits guarding against corrupt directory chains.
const (
	maxIFDs         = 4096
	maxIFDEntries   = 4096
	maxBlockSize    = 64 * 1024 * 2014
	defaultRowsStrp = math.MaxUint32
)

var errTruncated = errors.New("tiff: value extends beyond end of file")

// IFD represents a parsed TIFF Image File Directory.
type IFD struct {
	Offset          uint64
	SubfileType     uint32
	Width           uint32
	Height          uint32
	TileWidth       uint32
	TileHeight      uint32
	RowsPerStrip    uint32
	BitsPerSample   []uint16
	SamplesPerPixel uint16
	SampleFormat    uint16
	Compression     uint16
	Photometric     uint16
	PlanarConfig    uint16
	Predictor       uint16
	TileOffsets     []uint64
	TileByteCounts  []uint64
	StripOffsets    []uint64
	StripByteCounts []uint64
	ModelTiepoint   []float64
	ModelPixelScale []float64
	ModelTransform  []float64
	GeoKeys         []uint16
	GeoDoubleParams []float64
	GeoAsciiParams  string
	GDALMetadata    string
	GDALNoData      string
}

// Tiled reports whether the image is organised in tiles rather than strips.
func (ifd *IFD) Tiled() bool {
	return ifd.TileWidth != 0 && ifd.TileHeight != 0
}

// BlockWidth returns the width of a tile, or the image width for strips.
func (ifd *IFD) BlockWidth() int {
	if ifd.Tiled() {
		return int(ifd.TileWidth)
	}
	return int(ifd.Width)
}

// BlockHeight returns the height of a tile, or the rows per strip clamped to
// the image height.
func (ifd *IFD) BlockHeight() int {
	if ifd.Tiled() {
		return int(ifd.TileHeight)
	}
	if ifd.RowsPerStrip == 0 || ifd.RowsPerStrip > ifd.Height {
		return int(ifd.Height)
	}
	return int(ifd.RowsPerStrip)
}

// BlocksAcross returns the number of blocks in the horizontal direction.
func (ifd *IFD) BlocksAcross() int {
	bw := ifd.BlockWidth()
	return (int(ifd.Width) + bw - 1) / bw
}

// BlocksDown returns the number of blocks in the vertical direction.
func (ifd *IFD) BlocksDown() int {
	bh := ifd.BlockHeight()
	return (int(ifd.Height) + bh - 1) / bh
}

// BytesPerSample returns the size of one sample, from the first BitsPerSample entry.
func (ifd *IFD) BytesPerSample() int {
	if len(ifd.BitsPerSample) == 0 {
		return 0
	}
	return int(ifd.BitsPerSample[0]) / 8
}

// BlockSize returns the decoded size in bytes of a full block.
func (ifd *IFD) BlockSize() int64 {
	n := int64(ifd.BlockWidth()) * int64(ifd.BlockHeight()) * int64(ifd.BytesPerSample())
	if ifd.PlanarConfig != PlanarSeparate {
		n *= int64(ifd.SamplesPerPixel)
	}
	return n
}

func (ifd *IFD) blockOffsets() ([]uint64, []uint64) {
	if ifd.Tiled() {
		return ifd.TileOffsets, ifd.TileByteCounts
	}
	return ifd.StripOffsets, ifd.StripByteCounts
}

// tiffEntry is a raw TIFF directory entry.
type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte // raw value bytes or inline value
}

// parseTIFF reads all IFDs from a TIFF file.
func parseTIFF(r io.ReadSeeker, size int64) ([]IFD, binary.ByteOrder, bool, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, nil, false, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, false, fmt.Errorf("invalid TIFF byte order: %x", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	isBigTIFF := magic == 43
	if magic != 42 && magic != 43 {
		return nil, nil, false, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var firstIFDOffset uint64
	if isBigTIFF {
		// BigTIFF: bytes 4-5 = offset size (8), bytes 6-7 = always 0, bytes 8-15 = first IFD offset
		if bo.Uint16(header[4:6]) != 8 {
			return nil, nil, false, fmt.Errorf("unsupported BigTIFF offset size %d", bo.Uint16(header[4:6]))
		}
		var bigHeader [8]byte
		if _, err := io.ReadFull(r, bigHeader[:]); err != nil {
			return nil, nil, false, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		firstIFDOffset = bo.Uint64(bigHeader[:])
	} else {
		firstIFDOffset = uint64(bo.Uint32(header[4:8]))
	}

	var ifds []IFD
	seen := make(map[uint64]bool)
	offset := firstIFDOffset

	for offset != 0 {
		if seen[offset] {
			return nil, nil, false, fmt.Errorf("IFD chain loops back to offset %d", offset)
		}
		if len(ifds) >= maxIFDs {
			return nil, nil, false, fmt.Errorf("more than %d IFDs", maxIFDs)
		}
		seen[offset] = true
		ifd, nextOffset, err := parseOneIFD(r, bo, offset, isBigTIFF, size)
		if err != nil {
			return nil, nil, false, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifds = append(ifds, ifd)
		offset = nextOffset
	}

	return ifds, bo, isBigTIFF, nil
}

func parseOneIFD(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool, size int64) (IFD, uint64, error) {
	if offset >= uint64(size) {
		return IFD{}, 0, errTruncated
	}
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return IFD{}, 0, err
	}

	var numEntries uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return IFD{}, 0, err
		}
		numEntries = uint64(bo.Uint16(buf[:]))
	}
	if numEntries > maxIFDEntries {
		return IFD{}, 0, fmt.Errorf("too many directory entries (%d)", numEntries)
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]tiffEntry, numEntries)
	buf := make([]byte, entrySize)
	for i := uint64(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return IFD{}, 0, err
		}
		entries[i] = parseTiffEntry(buf, bo, bigTIFF)
	}

	var nextOffset uint64
	if bigTIFF {
		var nb [8]byte
		if _, err := io.ReadFull(r, nb[:]); err != nil {
			return IFD{}, 0, err
		}
		nextOffset = bo.Uint64(nb[:])
	} else {
		var nb [4]byte
		if _, err := io.ReadFull(r, nb[:]); err != nil {
			return IFD{}, 0, err
		}
		nextOffset = uint64(bo.Uint32(nb[:]))
	}

	// Resolve entries that point to external data.
	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF, size); err != nil {
			return IFD{}, 0, fmt.Errorf("resolving entry tag %d: %w", entries[i].Tag, err)
		}
	}

	ifd := buildIFD(entries, bo)
	ifd.Offset = offset
	return ifd, nextOffset, nil
}

func parseTiffEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) tiffEntry {
	tag := bo.Uint16(buf[0:2])
	dt := bo.Uint16(buf[2:4])

	var count uint64
	var valueBytes []byte

	if bigTIFF {
		count = bo.Uint64(buf[4:12])
		valueBytes = make([]byte, 8)
		copy(valueBytes, buf[12:20])
	} else {
		count = uint64(bo.Uint32(buf[4:8]))
		valueBytes = make([]byte, 4)
		copy(valueBytes, buf[8:12])
	}

	return tiffEntry{
		Tag:      tag,
		DataType: dt,
		Count:    count,
		Value:    valueBytes,
	}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat, dtIFD:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

// resolveEntry reads the actual data for an entry if it doesn't fit inline.
func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *tiffEntry, bigTIFF bool, size int64) error {
	if e.Count > uint64(size) {
		return errTruncated
	}
	totalSize := int64(e.Count) * int64(dataTypeSize(e.DataType))

	inlineSize := int64(4)
	if bigTIFF {
		inlineSize = 8
	}

	if totalSize <= inlineSize {
		return nil
	}

	var dataOffset uint64
	if bigTIFF {
		dataOffset = bo.Uint64(e.Value)
	} else {
		dataOffset = uint64(bo.Uint32(e.Value))
	}
	if dataOffset > uint64(size) || totalSize > size-int64(dataOffset) {
		return errTruncated
	}

	if _, err := r.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return err
	}

	data := make([]byte, totalSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) IFD {
	var ifd IFD
	ifd.SamplesPerPixel = 1
	ifd.PlanarConfig = PlanarContig
	ifd.SampleFormat = sampleFormatUint
	ifd.Compression = CompressionNone
	ifd.Photometric = PhotometricMinIsBlack
	ifd.Predictor = PredictorNone
	ifd.RowsPerStrip = defaultRowsStrp

	for _, e := range entries {
		switch e.Tag {
		case tagSubfileType:
			ifd.SubfileType = getUint32(e, bo)
		case tagImageWidth:
			ifd.Width = getUint32(e, bo)
		case tagImageLength:
			ifd.Height = getUint32(e, bo)
		case tagTileWidth:
			ifd.TileWidth = getUint32(e, bo)
		case tagTileLength:
			ifd.TileHeight = getUint32(e, bo)
		case tagRowsPerStrip:
			ifd.RowsPerStrip = getUint32(e, bo)
		case tagBitsPerSample:
			ifd.BitsPerSample = getUint16Slice(e, bo)
		case tagSamplesPerPixel:
			ifd.SamplesPerPixel = getUint16Val(e, bo)
		case tagSampleFormat:
			ifd.SampleFormat = getUint16Val(e, bo)
		case tagCompression:
			ifd.Compression = getUint16Val(e, bo)
		case tagPhotometric:
			ifd.Photometric = getUint16Val(e, bo)
		case tagPlanarConfig:
			ifd.PlanarConfig = getUint16Val(e, bo)
		case tagPredictor:
			ifd.Predictor = getUint16Val(e, bo)
		case tagTileOffsets:
			ifd.TileOffsets = getUint64Slice(e, bo)
		case tagTileByteCounts:
			ifd.TileByteCounts = getUint64Slice(e, bo)
		case tagStripOffsets:
			ifd.StripOffsets = getUint64Slice(e, bo)
		case tagStripByteCounts:
			ifd.StripByteCounts = getUint64Slice(e, bo)
		case tagModelTiepointTag:
			ifd.ModelTiepoint = getFloat64Slice(e, bo)
		case tagModelPixelScaleTag:
			ifd.ModelPixelScale = getFloat64Slice(e, bo)
		case tagModelTransformTag:
			ifd.ModelTransform = getFloat64Slice(e, bo)
		case tagGeoKeyDirectoryTag:
			ifd.GeoKeys = getUint16Slice(e, bo)
		case tagGeoDoubleParamsTag:
			ifd.GeoDoubleParams = getFloat64Slice(e, bo)
		case tagGeoAsciiParamsTag:
			ifd.GeoAsciiParams = getASCII(e)
		case tagGDALMetadata:
			ifd.GDALMetadata = getASCII(e)
		case tagGDALNoData:
			ifd.GDALNoData = getASCII(e)
		}
	}

	return ifd
}

func getASCII(e tiffEntry) string {
	n := min(int(e.Count), len(e.Value))
	return strings.TrimRight(string(e.Value[:n]), "\x00")
}

func getUint16Val(e tiffEntry, bo binary.ByteOrder) uint16 {
	switch e.DataType {
	case dtShort:
		return bo.Uint16(e.Value)
	case dtLong:
		return uint16(bo.Uint32(e.Value))
	default:
		return uint16(e.Value[0])
	}
}

func getUint32(e tiffEntry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong, dtIFD:
		return bo.Uint32(e.Value)
	case dtLong8, dtIFD8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func getUint16Slice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.Count)
	if e.DataType != dtShort || len(e.Value) < n*2 {
		return nil
	}
	result := make([]uint16, n)
	for i := 0; i < n; i++ {
		result[i] = bo.Uint16(e.Value[i*2 : i*2+2])
	}
	return result
}

func getUint64Slice(e tiffEntry, bo binary.ByteOrder) []uint64 {
	n := int(e.Count)
	if len(e.Value) < n*dataTypeSize(e.DataType) {
		return nil
	}
	result := make([]uint64, n)
	switch e.DataType {
	case dtLong:
		for i := 0; i < n; i++ {
			result[i] = uint64(bo.Uint32(e.Value[i*4 : i*4+4]))
		}
	case dtLong8:
		for i := 0; i < n; i++ {
			result[i] = bo.Uint64(e.Value[i*8 : i*8+8])
		}
	case dtShort:
		for i := 0; i < n; i++ {
			result[i] = uint64(bo.Uint16(e.Value[i*2 : i*2+2]))
		}
	default:
		return nil
	}
	return result
}

func getFloat64Slice(e tiffEntry, bo binary.ByteOrder) []float64 {
	n := int(e.Count)
	size := dataTypeSize(e.DataType)
	if len(e.Value) < n*size {
		return nil
	}
	result := make([]float64, n)
	for i := 0; i < n; i++ {
		off := i * size
		switch e.DataType {
		case dtDouble:
			result[i] = math.Float64frombits(bo.Uint64(e.Value[off : off+8]))
		case dtFloat:
			result[i] = float64(math.Float32frombits(bo.Uint32(e.Value[off : off+4])))
		}
	}
	return result
}
