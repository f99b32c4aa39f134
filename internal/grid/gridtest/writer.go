// Package gridtest encodes small GTX, NTv1, CTable2 and NTv2 files for tests.
package gridtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Shift is one horizontal correction. Longitude shifts are positive west.
type Shift struct {
	Lat, Lon float64
}

// GTX describes a GTX file. Heights[row][col] starts at the south-west cell.
type GTX struct {
	LatOrigin, LonOrigin float64 // degrees
	LatStep, LonStep     float64 // degrees
	Heights              [][]float32
}

// Encode returns the file contents.
func (g GTX) Encode() []byte {
	var buf bytes.Buffer
	be := binary.BigEndian
	rows, cols := len(g.Heights), 0
	if rows > 0 {
		cols = len(g.Heights[0])
	}
	binary.Write(&buf, be, []float64{g.LatOrigin, g.LonOrigin, g.LatStep, g.LonStep})
	binary.Write(&buf, be, []int32{int32(rows), int32(cols)})
	for _, row := range g.Heights {
		binary.Write(&buf, be, row)
	}
	return buf.Bytes()
}

// NTv1 describes an NTv1 file. Extents are in degrees, positive east.
// Shifts[row][col] starts at the south-west cell and is in arc-seconds.
type NTv1 struct {
	South, West      float64
	LatStep, LonStep float64
	Shifts           [][]Shift
}

// Encode returns the file contents.
func (g NTv1) Encode() []byte {
	rows, cols := dims(g.Shifts)
	north := g.South + g.LatStep*float64(rows-1)
	east := g.West + g.LonStep*float64(cols-1)

	var buf bytes.Buffer
	be := binary.BigEndian
	label := func(s string) { buf.WriteString(pad(s)) }
	double := func(name string, v float64) {
		label(name)
		binary.Write(&buf, be, v)
	}
	label("HEADER")
	binary.Write(&buf, be, []int32{12, 0})
	double("S LAT", g.South)
	double("N LAT", north)
	double("E LONG", -east)
	double("W LONG", -g.West)
	double("N GRID", g.LatStep)
	double("W GRID", g.LonStep)
	label("TYPE")
	label("SECONDS")
	label("VERSION")
	label("NTv1.0")
	label("TO")
	label("NAD83")
	label("FROM")
	label("NAD27")
	label("")
	label("")

	for _, row := range g.Shifts {
		for x := len(row) - 1; x >= 0; x-- {
			binary.Write(&buf, be, []float64{row[x].Lat, row[x].Lon})
		}
	}
	return buf.Bytes()
}

// CTable2 describes a CTable2 file. All values are in radians.
// Shifts[row][col] starts at the south-west cell.
type CTable2 struct {
	West, South float64
	ResX, ResY  float64
	Shifts      [][]Shift
}

// Encode returns the file contents.
func (g CTable2) Encode() []byte {
	rows, cols := dims(g.Shifts)
	header := make([]byte, 160)
	copy(header, "CTABLE V2")
	copy(header[16:], "test grid")
	le := binary.LittleEndian
	le.PutUint64(header[96:], math.Float64bits(g.West))
	le.PutUint64(header[104:], math.Float64bits(g.South))
	le.PutUint64(header[112:], math.Float64bits(g.ResX))
	le.PutUint64(header[120:], math.Float64bits(g.ResY))
	le.PutUint32(header[128:], uint32(cols))
	le.PutUint32(header[132:], uint32(rows))

	buf := bytes.NewBuffer(header)
	for _, row := range g.Shifts {
		for _, s := range row {
			binary.Write(buf, le, []float32{float32(s.Lon), float32(s.Lat)})
		}
	}
	return buf.Bytes()
}

// NTv2Subfile is one grid of an NTv2 file. Extents are in degrees,
// positive east; shifts are in arc-seconds.
type NTv2Subfile struct {
	Name   string
	Parent string // "NONE" for top-level grids
	South  float64
	West   float64

	LatStep, LonStep float64
	Shifts           [][]Shift
}

// NTv2 describes an NTv2 file.
type NTv2 struct {
	BigEndian bool
	Subfiles  []NTv2Subfile
}

// Encode returns the file contents.
func (g NTv2) Encode() []byte {
	var order binary.ByteOrder = binary.LittleEndian
	if g.BigEndian {
		order = binary.BigEndian
	}
	var buf bytes.Buffer
	label := func(s string) { buf.WriteString(pad(s)) }
	integer := func(name string, v int32) {
		label(name)
		binary.Write(&buf, order, []int32{v, 0})
	}
	double := func(name string, v float64) {
		label(name)
		binary.Write(&buf, order, v)
	}
	text := func(name, v string) {
		label(name)
		label(v)
	}

	integer("NUM_OREC", 11)
	integer("NUM_SREC", 11)
	integer("NUM_FILE", int32(len(g.Subfiles)))
	text("GS_TYPE", "SECONDS")
	text("VERSION", "NTv2.0")
	text("SYSTEM_F", "NAD27")
	text("SYSTEM_T", "NAD83")
	double("MAJOR_F", 6378206.4)
	double("MINOR_F", 6356583.8)
	double("MAJOR_T", 6378137)
	double("MINOR_T", 6356752.314)

	for _, sf := range g.Subfiles {
		rows, cols := dims(sf.Shifts)
		north := sf.South + sf.LatStep*float64(rows-1)
		east := sf.West + sf.LonStep*float64(cols-1)
		text("SUB_NAME", sf.Name)
		text("PARENT", sf.Parent)
		text("CREATED", "20200101")
		text("UPDATED", "20200101")
		double("S_LAT", sf.South*3600)
		double("N_LAT", north*3600)
		double("E_LONG", -east*3600)
		double("W_LONG", -sf.West*3600)
		double("LAT_INC", sf.LatStep*3600)
		double("LONG_INC", sf.LonStep*3600)
		integer("GS_COUNT", int32(rows*cols))
		for _, row := range sf.Shifts {
			for x := len(row) - 1; x >= 0; x-- {
				binary.Write(&buf, order, []float32{float32(row[x].Lat), float32(row[x].Lon), 0, 0})
			}
		}
	}
	label("END")
	binary.Write(&buf, order, []float64{0})
	return buf.Bytes()
}

// Uniform returns a rows x cols lattice holding s everywhere.
func Uniform(rows, cols int, s Shift) [][]Shift {
	out := make([][]Shift, rows)
	for y := range out {
		out[y] = make([]Shift, cols)
		for x := range out[y] {
			out[y][x] = s
		}
	}
	return out
}

func dims(shifts [][]Shift) (rows, cols int) {
	if len(shifts) == 0 {
		return 0, 0
	}
	return len(shifts), len(shifts[0])
}

// pad returns s blank-padded or truncated to an 8-byte record label.
func pad(s string) string {
	return fmt.Sprintf("%-8.8s", s)
}
