package cog

import (
	"testing"
)

func TestGeoref(t *testing.T) {
	tests := []struct {
		name    string
		ifd     IFD
		want    Georef
		wantErr bool
	}{
		{
			name: "tiepoint point",
			ifd: IFD{
				GeoKeys:         []uint16{1, 1, 0, 2, 1024, 0, 1, 2, 2048, 0, 1, 4326},
				ModelPixelScale: []float64{0.25, 0.5, 0},
				ModelTiepoint:   []float64{0, 0, 0, -10, 50, 0},
			},
			want: Georef{EPSG: 4326, Geographic: true, West: -10, North: 50, ResX: 0.25, ResY: 0.5},
		},
		{
			name: "tiepoint area",
			ifd: IFD{
				GeoKeys:         []uint16{1, 1, 0, 2, 1024, 0, 1, 2, 1025, 0, 1, 1},
				ModelPixelScale: []float64{0.25, 0.5, 0},
				ModelTiepoint:   []float64{2, 1, 0, -10, 50, 0},
			},
			want: Georef{Geographic: true, PixelIsArea: true, West: -10.375, North: 50.25, ResX: 0.25, ResY: 0.5},
		},
		{
			name: "projected transform",
			ifd: IFD{
				GeoKeys: []uint16{1, 1, 0, 1, 1024, 0, 1, 1},
				ModelTransform: []float64{
					100, 0, 0, 2000,
					0, -50, 0, 9000,
					0, 0, 0, 0,
					0, 0, 0, 1,
				},
			},
			want: Georef{West: 2000, North: 9000, ResX: 100, ResY: 50},
		},
		{
			name: "no geokeys defaults to geographic",
			ifd: IFD{
				ModelPixelScale: []float64{1, 1, 0},
				ModelTiepoint:   []float64{0, 0, 0, 0, 0, 0},
			},
			want: Georef{Geographic: true, ResX: 1, ResY: 1},
		},
		{
			name: "rotation",
			ifd: IFD{ModelTransform: []float64{
				1, 0.1, 0, 0,
				0, -1, 0, 0,
				0, 0, 0, 0,
				0, 0, 0, 1,
			}},
			wantErr: true,
		},
		{
			name:    "bad key count",
			ifd:     IFD{GeoKeys: []uint16{1, 1, 0, 1, 1024, 0}},
			wantErr: true,
		},
		{
			name:    "bad key version",
			ifd:     IFD{GeoKeys: []uint16{2, 1, 0, 0}},
			wantErr: true,
		},
		{
			name:    "unsupported model type",
			ifd:     IFD{GeoKeys: []uint16{1, 1, 0, 1, 1024, 0, 1, 3}},
			wantErr: true,
		},
		{
			name:    "missing tiepoint",
			ifd:     IFD{ModelPixelScale: []float64{1, 1, 0}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ifd.Georef()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Georef() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGDALMetadata(t *testing.T) {
	md := ParseGDALMetadata(`<GDALMetadata>
  <Item name="grid_name">NAD83_to_NAD83</Item>
  <Item name="DESCRIPTION" sample="0" role="description">latitude_offset</Item>
  <Item name="DESCRIPTION" sample="1" role="description">longitude_offset</Item>
  <Item name="positive_value" sample="1">east</Item>
  <Item name="OFFSET" sample="0" role="offset">1.5</Item>
  <Item name="SCALE" sample="0" role="scale">0.01</Item>
</GDALMetadata>`)

	tests := []struct {
		name   string
		sample int
		want   string
	}{
		{"grid_name", -1, "NAD83_to_NAD83"},
		{"DESCRIPTION", 0, "latitude_offset"},
		{"DESCRIPTION", 1, "longitude_offset"},
		{"positive_value", 1, "east"},
		{"positive_value", 0, ""},
		{"grid_name", 0, ""},
		{"OFFSET", 0, ""},
	}
	for _, tt := range tests {
		if got := md.Item(tt.name, tt.sample); got != tt.want {
			t.Errorf("Item(%q, %d) = %q, want %q", tt.name, tt.sample, got, tt.want)
		}
	}

	scale, offset := md.ScaleOffset(0)
	if scale != 0.01 || offset != 1.5 {
		t.Errorf("ScaleOffset(0) = %v, %v", scale, offset)
	}
	scale, offset = md.ScaleOffset(1)
	if scale != 1 || offset != 0 {
		t.Errorf("ScaleOffset(1) = %v, %v", scale, offset)
	}
	if !md.HasScaleOffset() {
		t.Error("HasScaleOffset() = false")
	}
}

func TestParseGDALMetadataStopsOnMalformed(t *testing.T) {
	md := ParseGDALMetadata(`<Item name="a">1</Item><Item sample="0">x</Item><Item name="b">2</Item>`)
	if md.Item("a", -1) != "1" {
		t.Errorf("Item(a) = %q", md.Item("a", -1))
	}
	if md.Item("b", -1) != "" {
		t.Errorf("items after a nameless entry should be ignored")
	}
}
