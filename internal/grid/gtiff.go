package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/pspoerri/gridshift/internal/cog"
)

// tiffSource reads one image directory of a GeoTIFF grid file.
type tiffSource struct {
	res      Resource
	ds       *cog.Dataset
	ifd      int
	height   int
	spp      int
	bottomUp bool

	md        cog.Metadata
	scaled    bool
	hasNoData bool
	noData    float32

	// Horizontal grids only.
	latIdx       int
	lonIdx       int
	toRadian     float64
	positiveEast bool
}

// errSkipIFD marks directories that are ignored unless they come first.
var errSkipIFD = errors.New("unusable image directory")

// openGTiff turns the image directories of a GeoTIFF into a grid hierarchy.
// A problem with the first directory fails the whole file; later
// directories that cannot serve as grids of the requested kind are skipped.
func openGTiff(kind Kind, res Resource, name string, cache *cog.BlockCache, logger *slog.Logger) ([]*Grid, *cog.Dataset, error) {
	ds, err := cog.Open(res.Name(), res, res.Size(), cache)
	if err != nil {
		return nil, nil, err
	}

	var top []*Grid
	byName := make(map[string]*Grid)
	for i := 0; i < ds.IFDCount(); i++ {
		g, err := newTIFFGrid(kind, ds, i, res, name)
		if err != nil {
			if i == 0 {
				ds.Close()
				return nil, nil, err
			}
			if errors.Is(err, errSkipIFD) {
				logger.Debug("Ignoring IFD", "grid", name, "ifd", i, "reason", err)
				continue
			}
			logger.Debug("Stopping at invalid IFD", "grid", name, "ifd", i, "error", err)
			break
		}
		insertIntoHierarchy(logger, g, g.MetadataItem("grid_name", -1), g.MetadataItem("parent_grid_name", -1), &top, byName)
	}
	return top, ds, nil
}

func newTIFFGrid(kind Kind, ds *cog.Dataset, index int, res Resource, name string) (*Grid, error) {
	ifd := ds.IFD(index)
	if st := ifd.SubfileType; st != cog.SubfileFullImage && st != cog.SubfilePage {
		return nil, fmt.Errorf("%w: invalid subfileType %d", errSkipIFD, st)
	}
	if ifd.Width == 0 || ifd.Height == 0 || ifd.Width > math.MaxInt32 || ifd.Height > math.MaxInt32 {
		return nil, errors.New("invalid image size")
	}
	if ifd.SamplesPerPixel == 0 {
		return nil, errors.New("invalid SamplesPerPixel value")
	}
	if _, err := ifd.SampleType(); err != nil {
		return nil, fmt.Errorf("unsupported combination of SampleFormat and BitsPerSample values: %w", err)
	}
	if ifd.Photometric != cog.PhotometricMinIsBlack {
		return nil, fmt.Errorf("unsupported Photometric value %d", ifd.Photometric)
	}
	if ifd.Compression == cog.CompressionOJPEG {
		return nil, errors.New("unsupported compression method")
	}
	if !cog.SupportedCompression(ifd.Compression) {
		return nil, fmt.Errorf("cannot open TIFF file due to missing codec %d", ifd.Compression)
	}
	if bs := ifd.BlockSize(); bs <= 0 || bs > 64*1024*2014 {
		return nil, errors.New("unsupported block size")
	}
	blocks := ifd.BlocksAcross() * ifd.BlocksDown()
	if ifd.PlanarConfig == cog.PlanarSeparate {
		blocks *= int(ifd.SamplesPerPixel)
	}
	offsets, counts := ifd.TileOffsets, ifd.TileByteCounts
	if !ifd.Tiled() {
		offsets, counts = ifd.StripOffsets, ifd.StripByteCounts
	}
	if len(offsets) < blocks || len(counts) < blocks {
		return nil, fmt.Errorf("expected %d block offsets, found %d", blocks, min(len(offsets), len(counts)))
	}

	geo, err := ifd.Georef()
	if err != nil {
		return nil, err
	}
	width, height := int(ifd.Width), int(ifd.Height)
	mul := 1.0
	if geo.Geographic {
		mul = degToRad
	}
	ext := ExtentAndRes{
		Geographic: geo.Geographic,
		West:       geo.West * mul,
		North:      geo.North * mul,
		ResX:       geo.ResX * mul,
		ResY:       math.Abs(geo.ResY) * mul,
		East:       (geo.West + geo.ResX*float64(width-1)) * mul,
		South:      (geo.North - geo.ResY*float64(height-1)) * mul,
	}
	if geo.ResY < 0 {
		ext.North, ext.South = ext.South, ext.North
	}
	if !((!ext.Geographic ||
		(math.Abs(ext.West) <= 4*math.Pi && math.Abs(ext.East) <= 4*math.Pi &&
			math.Abs(ext.North) <= math.Pi+1e-5 && math.Abs(ext.South) <= math.Pi+1e-5)) &&
		ext.West < ext.East && ext.South < ext.North &&
		ext.ResX > 1e-10 && ext.ResY > 1e-10) {
		return nil, fmt.Errorf("%w for %s", errInconsistentExtent, name)
	}

	src := &tiffSource{
		res:      res,
		ds:       ds,
		ifd:      index,
		height:   height,
		spp:      int(ifd.SamplesPerPixel),
		bottomUp: geo.ResY < 0,
		md:       cog.ParseGDALMetadata(ifd.GDALMetadata),
	}
	src.scaled = src.md.HasScaleOffset()
	if s := strings.TrimSpace(ifd.GDALNoData); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			src.hasNoData = true
			src.noData = float32(v)
		}
	}

	gridName := name
	if gn := src.md.Item("grid_name", -1); gn != "" {
		gridName += ", " + gn
	}
	g := &Grid{
		name:   gridName,
		kind:   kind,
		format: FormatGTiff,
		width:  width,
		height: height,
		extent: ext,
		epsg:   geo.EPSG,
		src:    src,
	}

	switch kind {
	case Vertical:
		idx, err := src.pickSample(func(desc string) bool {
			return desc == "geoid_undulation" || desc == "vertical_offset"
		})
		if err != nil {
			return nil, err
		}
		g.heightSample = idx
	case Horizontal:
		if err := src.configureShift(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// pickSample returns the first sample whose description matches. Without
// any described sample it falls back to sample 0.
func (s *tiffSource) pickSample(match func(string) bool) (int, error) {
	described := false
	for i := 0; i < s.spp; i++ {
		desc := s.md.Item("DESCRIPTION", i)
		if desc != "" {
			described = true
		}
		if match(desc) {
			return i, nil
		}
	}
	if described {
		return 0, fmt.Errorf("%w: no sample with the expected description", errSkipIFD)
	}
	return 0, nil
}

func (s *tiffSource) configureShift() error {
	if s.spp < 2 {
		return fmt.Errorf("%w: at least 2 samples per pixel needed", errSkipIFD)
	}
	s.latIdx, s.lonIdx = 0, 1
	s.positiveEast = true
	s.toRadian = arcSec

	described := false
	foundLat, foundLon := false, false
	for i := 0; i < s.spp; i++ {
		switch desc := s.md.Item("DESCRIPTION", i); desc {
		case "":
		case "latitude_offset":
			described, foundLat = true, true
			s.latIdx = i
		case "longitude_offset":
			described, foundLon = true, true
			s.lonIdx = i
		default:
			described = true
		}
	}
	if described {
		if !foundLat && !foundLon {
			return fmt.Errorf("%w: missing latitude_offset/longitude_offset", errSkipIFD)
		}
		if !foundLat || !foundLon {
			return errors.New("found one of latitude_offset/longitude_offset, but not both")
		}
	}

	switch pv := s.md.Item("positive_value", s.lonIdx); pv {
	case "", "east":
	case "west":
		s.positiveEast = false
	default:
		return fmt.Errorf("unsupported value %q for 'positive_value'", pv)
	}

	latUnit := s.md.Item("UNITTYPE", s.latIdx)
	lonUnit := s.md.Item("UNITTYPE", s.lonIdx)
	if latUnit != lonUnit {
		return errors.New("different unit for longitude and latitude offset")
	}
	switch latUnit {
	case "", "arc-second":
		s.toRadian = arcSec
	case "radian":
		s.toRadian = 1
	case "degree":
		s.toRadian = degToRad
	default:
		return fmt.Errorf("unsupported unit %q", latUnit)
	}
	return nil
}

func (s *tiffSource) samples() int { return s.spp }

func (s *tiffSource) value(sample, x, y int) (float32, error) {
	row := s.height - 1 - y
	if s.bottomUp {
		row = y
	}
	v, err := s.ds.Sample(s.ifd, sample, x, row)
	if err != nil {
		return 0, err
	}
	f := float32(v)
	if (s.hasNoData && f == s.noData) || math.IsNaN(v) {
		return f, nil
	}
	if s.scaled {
		scale, offset := s.md.ScaleOffset(sample)
		f = float32(v*scale + offset)
	}
	return f, nil
}

func (s *tiffSource) shift(x, y int, _ bool) (float32, float32, error) {
	lat, err := s.value(s.latIdx, x, y)
	if err != nil {
		return 0, 0, err
	}
	lon, err := s.value(s.lonIdx, x, y)
	if err != nil {
		return 0, 0, err
	}
	lat = float32(float64(lat) * s.toRadian)
	lon = float32(float64(lon) * s.toRadian)
	if !s.positiveEast {
		lon = -lon
	}
	return lon, lat, nil
}

func (s *tiffSource) nodata(v float32, _ float64) bool {
	return (s.hasNoData && v == s.noData) || math.IsNaN(float64(v))
}

func (s *tiffSource) metadata(key string, sample int) string {
	return s.md.Item(key, sample)
}

func (s *tiffSource) changed() bool { return s.res.HasChanged() }
