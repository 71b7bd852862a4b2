// Package zrle implements the tile grid, CPIXEL representation and
// sub-encoding family used inside the RFB ZRLE rectangle encoding. A
// ZRLE rectangle's zlib-inflated payload is a sequence of 64x64
// sub-tiles (smaller at the right/bottom edge of the rectangle), each
// independently sub-encoded.
package zrle

import (
	"fmt"
	"io"
)

// CPixel is a "compact pixel": at 8/16 bpp it is a native pixel; at
// 32bpp with both colour channels fitting in 24 bits it is the 3-byte
// CPIXEL-24A/24B variant. The decoder that creates a
// Tile decides BytesPerCPixel; this package only ever treats a CPixel
// as an opaque byte slice of that width.
type CPixel []byte

// SubType identifies a ZRLE sub-tile's sub-encoding family.
type SubType uint8

const (
	subRaw SubType = iota
	subSolid
	subPackedPalette
	subRLE
	subPaletteRLE
)

const (
	// TileWidth is the standard width of a ZRLE sub-tile.
	TileWidth int = 64
	// TileHeight is the standard height of a ZRLE sub-tile.
	TileHeight = 64
)

// Tile is one sub-tile of a ZRLE rectangle: its grid position, pixel
// dimensions, the CPIXEL width in effect for the session's pixel
// format, the raw sub-encoding byte, and (once decoded) its pixels in
// row-major order.
type Tile struct {
	X, Y, Width, Height, BytesPerCPixel, SubType int
	Pixels                                       []CPixel
}

func (t Tile) String() string {
	return fmt.Sprintf("{X:%d Y:%d W:%d H:%d BytesPerCPixel:%d SubType:%d pixels:%d}",
		t.X, t.Y, t.Width, t.Height, t.BytesPerCPixel, t.SubType, len(t.Pixels))
}

// ToPixelGrid reshapes a tile's row-major pixel slice into rows.
func (t Tile) ToPixelGrid() [][]CPixel {
	pixels := make([][]CPixel, t.Height)
	for i := range pixels {
		pixels[i] = make([]CPixel, t.Width)
	}

	x, y := 0, 0
	for _, pixel := range t.Pixels {
		pixels[y][x] = pixel
		x++
		if x == t.Width {
			y++
			x = 0
		}
	}
	return pixels
}

// CreateTiles partitions a rectangle of the given pixel dimensions
// into a row-major grid of up-to-64x64 tiles, with the last column
// and row sized down to whatever remains.
func CreateTiles(width, height int) (tiles []Tile) {
	x, y := 0, 0
	for height > 0 {
		rowWidth := width

		rowHeight := TileHeight
		if height < rowHeight {
			rowHeight = height
		}
		height -= rowHeight

		for rowWidth > 0 {
			tileWidth := TileWidth
			if rowWidth < tileWidth {
				tileWidth = rowWidth
			}
			rowWidth -= tileWidth

			tiles = append(tiles, Tile{X: x, Y: y, Width: tileWidth, Height: rowHeight})
			x += tileWidth
		}
		x = 0
		y += rowHeight
	}
	return
}

// TilesToPixels assembles a full rectangle's worth of decoded tiles
// into one row-major CPixel grid.
func TilesToPixels(width, height int, tiles []Tile) [][]CPixel {
	pixels := make([][]CPixel, height)
	for i := range pixels {
		pixels[i] = make([]CPixel, width)
	}
	for _, tile := range tiles {
		tilePixels := tile.ToPixelGrid()
		for i, row := range tilePixels {
			for j, pixel := range row {
				pixels[tile.Y+i][tile.X+j] = pixel
			}
		}
	}
	return pixels
}

// Subencoding decodes one ZRLE sub-tile body, given the sub-tile's
// dimensions and CPIXEL width via t.
type Subencoding interface {
	SubType() SubType
	Read(buf io.Reader, t *Tile) (int, error)
	String() string
}

type rawEncoding struct{}
type solidEncoding struct{}
type packedPaletteEncoding struct{}
type rleEncoding struct{}
type paletteRLEEncoding struct{}

func (rawEncoding) SubType() SubType           { return subRaw }
func (solidEncoding) SubType() SubType         { return subSolid }
func (packedPaletteEncoding) SubType() SubType { return subPackedPalette }
func (rleEncoding) SubType() SubType           { return subRLE }
func (paletteRLEEncoding) SubType() SubType    { return subPaletteRLE }

func (rawEncoding) String() string           { return "Raw" }
func (solidEncoding) String() string         { return "Solid" }
func (packedPaletteEncoding) String() string { return "PackedPalette" }
func (rleEncoding) String() string           { return "RLE" }
func (paletteRLEEncoding) String() string    { return "PaletteRLE" }

func readPixel(buf io.Reader, n int) (CPixel, int, error) {
	pixel := make(CPixel, n)
	read, err := io.ReadFull(buf, pixel)
	return pixel, read, err
}

func (rawEncoding) Read(buf io.Reader, t *Tile) (int, error) {
	bytesRead := 0
	for i := 0; i < t.Width*t.Height; i++ {
		pixel, n, err := readPixel(buf, t.BytesPerCPixel)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: raw sub-tile pixel %d: %w", i, err)
		}
		t.Pixels = append(t.Pixels, pixel)
	}
	return bytesRead, nil
}

func (solidEncoding) Read(buf io.Reader, t *Tile) (int, error) {
	pixel, n, err := readPixel(buf, t.BytesPerCPixel)
	if err != nil {
		return n, fmt.Errorf("zrle: solid sub-tile: %w", err)
	}
	t.Pixels = make([]CPixel, t.Width*t.Height)
	for i := range t.Pixels {
		t.Pixels[i] = pixel
	}
	return n, nil
}

// paletteIndexWidth returns the bit-width of a packed-palette index
// for the given palette size: 1 bit for a two-colour palette, 2 bits
// for up to four colours, otherwise 4.
func paletteIndexWidth(paletteSize int) int {
	switch {
	case paletteSize == 2:
		return 1
	case paletteSize <= 4:
		return 2
	default:
		return 4
	}
}

func (packedPaletteEncoding) Read(buf io.Reader, t *Tile) (int, error) {
	bytesRead := 0
	palette := make([]CPixel, t.SubType)
	for i := range palette {
		pixel, n, err := readPixel(buf, t.BytesPerCPixel)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: packed-palette entry %d: %w", i, err)
		}
		palette[i] = pixel
	}

	px := paletteIndexWidth(t.SubType)
	t.Pixels = make([]CPixel, 0, t.Width*t.Height)

	for y := 0; y < t.Height; y++ {
		var b byte
		nb := 0
		rowByte := make([]byte, 1)
		for x := 0; x < t.Width; x++ {
			if nb == 0 {
				n, err := io.ReadFull(buf, rowByte)
				bytesRead += n
				if err != nil {
					return bytesRead, fmt.Errorf("zrle: packed-palette row byte: %w", err)
				}
				b = rowByte[0]
				nb = 8
			}
			nb -= px
			idx := (b >> uint(nb)) & ((1 << uint(px)) - 1)
			if int(idx) >= len(palette) {
				return bytesRead, fmt.Errorf("zrle: packed-palette index %d exceeds palette size %d", idx, len(palette))
			}
			t.Pixels = append(t.Pixels, palette[idx])
		}
	}
	return bytesRead, nil
}

// readRunLength reads a run-length terminated by a byte < maxVal: the
// run is 1 plus the sum of every maxVal byte read plus the terminator.
func readRunLength(buf io.Reader, maxVal int) (length, bytesRead int, err error) {
	length = 1
	b := make([]byte, 1)
	for {
		n, e := io.ReadFull(buf, b)
		bytesRead += n
		if e != nil {
			return length, bytesRead, e
		}
		length += int(b[0])
		if int(b[0]) != maxVal {
			return length, bytesRead, nil
		}
	}
}

func (rleEncoding) Read(buf io.Reader, t *Tile) (int, error) {
	bytesRead := 0
	total := t.Width * t.Height
	pixelsRead := 0

	for pixelsRead < total {
		pixel, n, err := readPixel(buf, t.BytesPerCPixel)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: rle pixel: %w", err)
		}
		runLength, n, err := readRunLength(buf, 255)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: rle run length: %w", err)
		}
		if pixelsRead+runLength > total {
			return bytesRead, fmt.Errorf("zrle: rle run overruns tile (%d + %d > %d)", pixelsRead, runLength, total)
		}
		for i := 0; i < runLength; i++ {
			t.Pixels = append(t.Pixels, pixel)
		}
		pixelsRead += runLength
	}
	return bytesRead, nil
}

func (paletteRLEEncoding) Read(buf io.Reader, t *Tile) (int, error) {
	paletteSize := t.SubType - 128
	bytesRead := 0
	palette := make([]CPixel, paletteSize)
	for i := range palette {
		pixel, n, err := readPixel(buf, t.BytesPerCPixel)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: palette-rle entry %d: %w", i, err)
		}
		palette[i] = pixel
	}

	total := t.Width * t.Height
	read := 0
	idxBuf := make([]byte, 1)

	for read < total {
		n, err := io.ReadFull(buf, idxBuf)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: palette-rle index: %w", err)
		}
		index := idxBuf[0]

		if index < 128 {
			if int(index) >= len(palette) {
				return bytesRead, fmt.Errorf("zrle: palette-rle index %d exceeds palette size %d", index, len(palette))
			}
			t.Pixels = append(t.Pixels, palette[index])
			read++
			continue
		}

		idx := index - 128
		if int(idx) >= len(palette) {
			return bytesRead, fmt.Errorf("zrle: palette-rle run index %d exceeds palette size %d", idx, len(palette))
		}
		runLength, n, err := readRunLength(buf, 255)
		bytesRead += n
		if err != nil {
			return bytesRead, fmt.Errorf("zrle: palette-rle run length: %w", err)
		}
		if read+runLength > total {
			return bytesRead, fmt.Errorf("zrle: palette-rle run overruns tile (%d + %d > %d)", read, runLength, total)
		}
		colour := palette[idx]
		for i := 0; i < runLength; i++ {
			t.Pixels = append(t.Pixels, colour)
		}
		read += runLength
	}
	return bytesRead, nil
}

// GetSubencoding dispatches a sub-tile's leading subencoding byte:
// 0 raw, 1 solid, 2..16 packed-palette, 128 plain RLE,
// 130..255 palette RLE. 17..127 and 129 are reserved and rejected.
func GetSubencoding(b byte) (Subencoding, error) {
	switch {
	case b == 0:
		return rawEncoding{}, nil
	case b == 1:
		return solidEncoding{}, nil
	case b >= 2 && b <= 16:
		return packedPaletteEncoding{}, nil
	case b == 128:
		return rleEncoding{}, nil
	case b >= 130:
		return paletteRLEEncoding{}, nil
	default:
		return nil, fmt.Errorf("zrle: reserved sub-encoding %d", b)
	}
}
