package zrle

import (
	"bytes"
	"reflect"
	"testing"
)

func TestTilesToPixels(t *testing.T) {
	tiles := []Tile{
		{X: 0, Y: 0, Width: 1, Height: 1, Pixels: []CPixel{{0}}},
		{X: 1, Y: 0, Width: 2, Height: 1, Pixels: []CPixel{{1}, {2}}},
	}
	pixels := TilesToPixels(3, 1, tiles)
	expected := [][]CPixel{{{0}, {1}, {2}}}
	if !reflect.DeepEqual(expected, pixels) {
		t.Errorf("expected %v, got %v", expected, pixels)
	}
}

func TestTileToPixelGrid_GridCase(t *testing.T) {
	tile := Tile{
		Width:  2,
		Height: 2,
		Pixels: []CPixel{{0}, {1}, {2}, {3}},
	}
	pixels := tile.ToPixelGrid()
	expected := [][]CPixel{
		{{0}, {1}},
		{{2}, {3}},
	}
	if !reflect.DeepEqual(expected, pixels) {
		t.Errorf("expected %v, got %v", expected, pixels)
	}
}

func TestTileToPixelGrid_ColumnCase(t *testing.T) {
	tile := Tile{
		Width:  4,
		Height: 1,
		Pixels: []CPixel{{0}, {1}, {2}, {3}},
	}
	pixels := tile.ToPixelGrid()
	expected := [][]CPixel{{{0}, {1}, {2}, {3}}}
	if !reflect.DeepEqual(expected, pixels) {
		t.Errorf("expected %v, got %v", expected, pixels)
	}
}

func TestCreateTiles_EdgeTilesShrink(t *testing.T) {
	tiles := CreateTiles(70, 65)
	// two columns (64 + 6) x two rows (64 + 1) = 4 tiles
	if len(tiles) != 4 {
		t.Fatalf("expected 4 tiles, got %d", len(tiles))
	}
	last := tiles[len(tiles)-1]
	if last.Width != 6 || last.Height != 1 {
		t.Errorf("expected last tile 6x1, got %dx%d", last.Width, last.Height)
	}
}

func TestReadRunLength(t *testing.T) {
	cases := []struct {
		in       []byte
		wantLen  int
		wantRead int
		wantLeft int
	}{
		{[]byte{0}, 1, 1, 0},
		{[]byte{254}, 255, 1, 0},
		{[]byte{255, 254}, 510, 2, 0},
		{[]byte{255, 255, 0}, 511, 3, 0},
		{[]byte{255, 255, 0, 255}, 511, 3, 1},
	}
	for _, c := range cases {
		buf := bytes.NewReader(c.in)
		length, n, err := readRunLength(buf, 255)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if length != c.wantLen {
			t.Errorf("input %v: expected length %d, got %d", c.in, c.wantLen, length)
		}
		if n != c.wantRead {
			t.Errorf("input %v: expected bytesRead %d, got %d", c.in, c.wantRead, n)
		}
		if buf.Len() != c.wantLeft {
			t.Errorf("input %v: expected %d bytes left, got %d", c.in, c.wantLeft, buf.Len())
		}
	}
}

func TestGetSubencoding(t *testing.T) {
	cases := []struct {
		b       byte
		want    SubType
		wantErr bool
	}{
		{0, subRaw, false},
		{1, subSolid, false},
		{2, subPackedPalette, false},
		{16, subPackedPalette, false},
		{17, 0, true},
		{127, 0, true},
		{128, subRLE, false},
		{129, 0, true},
		{130, subPaletteRLE, false},
		{255, subPaletteRLE, false},
	}
	for _, c := range cases {
		enc, err := GetSubencoding(c.b)
		if c.wantErr {
			if err == nil {
				t.Errorf("byte %d: expected error, got none", c.b)
			}
			continue
		}
		if err != nil {
			t.Errorf("byte %d: unexpected error: %v", c.b, err)
			continue
		}
		if enc.SubType() != c.want {
			t.Errorf("byte %d: expected subtype %v, got %v", c.b, c.want, enc.SubType())
		}
	}
}

func TestSolidEncodingRead(t *testing.T) {
	buf := bytes.NewReader([]byte{0x12, 0x34, 0x56})
	tile := Tile{Width: 2, Height: 2, BytesPerCPixel: 3}
	enc := solidEncoding{}
	n, err := enc.Read(buf, &tile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 bytes read, got %d", n)
	}
	if len(tile.Pixels) != 4 {
		t.Fatalf("expected 4 pixels, got %d", len(tile.Pixels))
	}
	for _, p := range tile.Pixels {
		if !bytes.Equal(p, []byte{0x12, 0x34, 0x56}) {
			t.Errorf("expected pixel 0x123456, got %v", p)
		}
	}
}

func TestRLEEncodingRead(t *testing.T) {
	// one run of 3 red pixels covering a 3x1 tile: pixel + terminator(2)
	buf := bytes.NewReader([]byte{0xFF, 0x00, 0x00, 2})
	tile := Tile{Width: 3, Height: 1, BytesPerCPixel: 3}
	enc := rleEncoding{}
	_, err := enc.Read(buf, &tile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tile.Pixels) != 3 {
		t.Fatalf("expected 3 pixels, got %d", len(tile.Pixels))
	}
}

func TestPackedPaletteRead_TwoColour(t *testing.T) {
	// palette of 2 colours, 4x1 tile -> 1 index byte, bits 1,0,1,0
	buf := bytes.NewReader([]byte{
		0x00, 0x00, 0x00, // palette[0] black
		0xFF, 0xFF, 0xFF, // palette[1] white
		0b10100000,
	})
	tile := Tile{Width: 4, Height: 1, BytesPerCPixel: 3, SubType: 2}
	enc := packedPaletteEncoding{}
	_, err := enc.Read(buf, &tile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []CPixel{{255, 255, 255}, {0, 0, 0}, {255, 255, 255}, {0, 0, 0}}
	if !reflect.DeepEqual(want, tile.Pixels) {
		t.Errorf("expected %v, got %v", want, tile.Pixels)
	}
}
