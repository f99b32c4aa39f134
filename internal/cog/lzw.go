package cog

import (
	"errors"
	"io"
	"slices"
)

// TIFF LZW packs codes MSB first and widens them one code earlier than the
// GIF flavour implemented by compress/lzw, which therefore rejects TIFF
// streams.

const (
	lzwClear    = 256
	lzwEOI      = 257
	lzwFirst    = 258
	lzwMinWidth = 9
	lzwMaxWidth = 12
	lzwTableLen = 1 << lzwMaxWidth
)

var errLZWCode = errors.New("lzw: invalid code")

// lzwBits reads MSB-first codes of varying width.
type lzwBits struct {
	src  []byte
	pos  int
	acc  uint32
	nacc uint
}

func (b *lzwBits) next(width uint) (int, error) {
	for b.nacc < width {
		if b.pos >= len(b.src) {
			return 0, io.ErrUnexpectedEOF
		}
		b.acc = b.acc<<8 | uint32(b.src[b.pos])
		b.pos++
		b.nacc += 8
	}
	b.nacc -= width
	return int(b.acc>>b.nacc) & (1<<width - 1), nil
}

// lzwTable stores each string as its prefix code plus a final byte.
type lzwTable struct {
	prefix [lzwTableLen]int16
	suffix [lzwTableLen]byte
	length [lzwTableLen]uint16
}

func newLZWTable() *lzwTable {
	t := new(lzwTable)
	for i := 0; i < 256; i++ {
		t.prefix[i], t.suffix[i], t.length[i] = -1, byte(i), 1
	}
	return t
}

// appendString appends the string of code to out.
func (t *lzwTable) appendString(out []byte, code int) []byte {
	n := int(t.length[code])
	end := len(out) + n
	out = slices.Grow(out, n)[:end]
	for i := end - 1; code >= 0; i-- {
		out[i] = t.suffix[code]
		code = int(t.prefix[code])
	}
	return out
}

// decompressTIFFLZW decodes a TIFF LZW stream. Decoding stops once limit
// bytes have been produced; a stream cut short returns what was decoded.
func decompressTIFFLZW(data []byte, limit int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	in := lzwBits{src: data}
	width := uint(lzwMinWidth)
	code, err := in.next(width)
	if err != nil {
		return nil, err
	}
	if code != lzwClear {
		return nil, errors.New("lzw: stream does not start with a clear code")
	}

	t := newLZWTable()
	out := make([]byte, 0, max(limit, 0))
	next, prev := lzwFirst, -1
	for {
		code, err := in.next(width)
		if err != nil {
			return out, nil
		}
		switch {
		case code == lzwEOI:
			return out, nil
		case code == lzwClear:
			width, next, prev = lzwMinWidth, lzwFirst, -1
			continue
		case prev < 0:
			if code > 255 {
				return nil, errLZWCode
			}
			out = append(out, byte(code))
			prev = code
			continue
		case code > next:
			return nil, errLZWCode
		}

		// code == next is not in the table yet: it spells prev's string
		// followed by that string's first byte.
		start := len(out)
		if code == next {
			out = t.appendString(out, prev)
			out = append(out, out[start])
		} else {
			out = t.appendString(out, code)
		}
		if next < lzwTableLen {
			t.prefix[next] = int16(prev)
			t.suffix[next] = out[start]
			t.length[next] = t.length[prev] + 1
			next++
		}

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if next+1 >= 1<<width && width < lzwMaxWidth {
			width++
		}
		prev = code
	}
}
