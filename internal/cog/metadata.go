package cog

import (
	"strconv"
	"strings"
)

type metaKey struct {
	sample int
	name   string
}

// Metadata holds the items of a GDAL_METADATA tag.
type Metadata struct {
	items  map[metaKey]string
	offset map[int]float64
	scale  map[int]float64
}

// ParseGDALMetadata extracts <Item name=".." sample=".." role="..">value</Item>
// entries. Items without a sample attribute are dataset-wide and stored
// under sample -1. Items with role "offset" or "scale" become per-sample
// value transforms instead of plain items.
func ParseGDALMetadata(text string) Metadata {
	md := Metadata{
		items:  make(map[metaKey]string),
		offset: make(map[int]float64),
		scale:  make(map[int]float64),
	}
	rest := text
	for {
		start := strings.Index(rest, "<Item ")
		if start < 0 {
			break
		}
		rest = rest[start:]
		tagEnd := strings.IndexByte(rest, '>')
		if tagEnd < 0 {
			break
		}
		valueEnd := strings.IndexByte(rest[tagEnd:], '<')
		if valueEnd < 0 {
			break
		}
		tag := rest[:tagEnd]
		value := rest[tagEnd+1 : tagEnd+valueEnd]
		rest = rest[tagEnd+valueEnd:]

		name, ok := xmlAttr(tag, "name")
		if !ok {
			break
		}
		sample := -1
		if s, ok := xmlAttr(tag, "sample"); ok {
			n, err := strconv.Atoi(s)
			if err != nil {
				continue
			}
			sample = n
		}
		role, _ := xmlAttr(tag, "role")
		switch role {
		case "offset":
			if sample >= 0 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
					md.offset[sample] = v
				}
			}
		case "scale":
			if sample >= 0 {
				if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
					md.scale[sample] = v
				}
			}
		default:
			md.items[metaKey{sample: sample, name: name}] = value
		}
	}
	return md
}

func xmlAttr(tag, attr string) (string, bool) {
	key := " " + attr + "=\""
	i := strings.Index(tag, key)
	if i < 0 {
		return "", false
	}
	v := tag[i+len(key):]
	end := strings.IndexByte(v, '"')
	if end < 0 {
		return "", false
	}
	return v[:end], true
}

// Item returns the value of the named item for a sample, or for the whole
// dataset when sample is negative. The empty string means absent.
func (m Metadata) Item(name string, sample int) string {
	if sample < 0 {
		sample = -1
	}
	return m.items[metaKey{sample: sample, name: name}]
}

// ScaleOffset returns the value transform of a sample, defaulting to the
// identity.
func (m Metadata) ScaleOffset(sample int) (scale, offset float64) {
	scale, offset = 1, 0
	if v, ok := m.scale[sample]; ok {
		scale = v
	}
	if v, ok := m.offset[sample]; ok {
		offset = v
	}
	return scale, offset
}

// HasScaleOffset reports whether any sample carries a scale or offset.
func (m Metadata) HasScaleOffset() bool {
	return len(m.scale) > 0 || len(m.offset) > 0
}
