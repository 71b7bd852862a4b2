// Package tilecache implements the client-side mirror of the remote
// framebuffer: a grid of power-of-two tiles whose size is probed
// against a rendering backend's maximum, with sub-rectangle
// writes that may cross tile boundaries and a textured-quad draw
// contract for the host's UI thread.
package tilecache

// TextureBackend is the host-provided texture allocator the tile cache
// probes and drives. It is the "render-target" collaborator one level
// below actionqueue.RenderTarget: the cache itself implements that
// interface, and TextureBackend is what actually owns GPU (or other)
// resources per tile.
type TextureBackend interface {
	// ProbeMaxTileSize reports whether a texture of exactly w×h is
	// supported. Called repeatedly with shrinking power-of-two
	// candidates during Init until one succeeds.
	ProbeMaxTileSize(w, h int) bool
	// CreateTile allocates one backing texture of w×h, cleared to fill.
	CreateTile(w, h int, fill RGB24) (Texture, error)
}

// Texture is one tile's backing store.
type Texture interface {
	// Upload writes pixelsRGB24 (row-major, first row at y, 3 bytes per
	// pixel) into the sub-rectangle (x, y, w, h) of this texture.
	Upload(x, y, w, h int, pixelsRGB24 []byte)
	// Draw renders a textured quad; u1/v1 are the fractional texture
	// coordinates of the tile's far corner (1.0 unless this tile is
	// clipped at the framebuffer's right/bottom edge).
	Draw(corners Quad, u1, v1 float64)
	Destroy()
}

// RGB24 mirrors actionqueue.RGB24 without importing actionqueue, so
// that tilecache has no dependency on the action-item wire format.
type RGB24 struct {
	R, G, B uint8
}

// Quad is the parallelogram a tile is drawn into: three corners plus
// depth, the fourth is implied by bilinear interpolation of the other
// three.
type Quad struct {
	X00, Y00, Z00 float64
	X10, Y10, Z10 float64
	X11, Y11, Z11 float64
}

// TileGrid is the coordinate layout: strictly increasing coordinate
// arrays whose interior spacing is a
// fixed power-of-two tile size, sized to cover a framebuffer of
// (width, height) pixels.
type TileGrid struct {
	Width, Height  int
	TileW, TileH   int
	XCoords        []int
	YCoords        []int
}

func leastPow2GE(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// layoutAxis builds the strictly increasing coordinate array for one
// axis: coord[0] = 0, interior spacing equals tile, and the final span
// is the smallest power of two that reaches or exceeds dimension.
func layoutAxis(dimension, tile int) []int {
	coords := []int{0}
	pos := 0
	for pos < dimension {
		remaining := dimension - pos
		span := tile
		if remaining < tile {
			span = leastPow2GE(remaining)
		}
		pos += span
		coords = append(coords, pos)
	}
	if len(coords) == 1 {
		coords = append(coords, leastPow2GE(dimension))
	}
	return coords
}

// probeTileSize implements the shrink-on-failure search: start from
// the least power of two covering each
// dimension (capped at backendMax), and on a failed probe halve the
// larger side, breaking ties by halving whichever side has already
// been halved more times (the side "further from its requested
// value" — an Open Question in the source, resolved this way per
// DESIGN.md).
func probeTileSize(backend TextureBackend, w, h, backendMax int) (int, int) {
	tw := leastPow2GE(w)
	th := leastPow2GE(h)
	if tw > backendMax {
		tw = backendMax
	}
	if th > backendMax {
		th = backendMax
	}

	halvingsW, halvingsH := 0, 0
	for {
		if backend.ProbeMaxTileSize(tw, th) {
			return tw, th
		}
		if tw <= 1 && th <= 1 {
			return tw, th
		}
		switch {
		case tw > th:
			tw >>= 1
			halvingsW++
		case th > tw:
			th >>= 1
			halvingsH++
		default:
			if halvingsW >= halvingsH {
				tw >>= 1
				halvingsW++
			} else {
				th >>= 1
				halvingsH++
			}
		}
	}
}

// NewTileGrid lays out a grid covering a width×height framebuffer,
// probing backend for the largest supported power-of-two tile size up
// to backendMax.
func NewTileGrid(backend TextureBackend, width, height, backendMax int) TileGrid {
	tw, th := probeTileSize(backend, width, height, backendMax)
	return TileGrid{
		Width:   width,
		Height:  height,
		TileW:   tw,
		TileH:   th,
		XCoords: layoutAxis(width, tw),
		YCoords: layoutAxis(height, th),
	}
}

// TileXCount and TileYCount report the grid's dimensions in tiles.
func (g TileGrid) TileXCount() int { return len(g.XCoords) - 1 }
func (g TileGrid) TileYCount() int { return len(g.YCoords) - 1 }

// TileOrigin returns the pixel origin of tile (tx, ty).
func (g TileGrid) TileOrigin(tx, ty int) (int, int) {
	return g.XCoords[tx], g.YCoords[ty]
}

// TileSize returns the allocated texture dimensions of tile (tx, ty);
// every tile is TileW×TileH except the grid's last column/row, sized
// to the framebuffer edge.
func (g TileGrid) TileSize(tx, ty int) (int, int) {
	return g.XCoords[tx+1] - g.XCoords[tx], g.YCoords[ty+1] - g.YCoords[ty]
}

// edgeFraction returns the fractional texture coordinate to use when
// drawing tile index i of count tiles spanning coords: 1.0 unless this
// is the last tile and it overhangs the framebuffer edge.
func edgeFraction(coords []int, i, dimension, tileDim int) float64 {
	if i != len(coords)-2 {
		return 1.0
	}
	origin := coords[i]
	if dimension <= origin {
		return 0
	}
	return float64(dimension-origin) / float64(tileDim)
}

// tileRange returns the half-open tile index range [first, last) along
// one axis whose pixel extent intersects [from, from+length).
func tileRange(coords []int, from, length int) (int, int) {
	to := from + length
	first := 0
	for first < len(coords)-1 && coords[first+1] <= from {
		first++
	}
	last := first
	for last < len(coords)-1 && coords[last] < to {
		last++
	}
	return first, last
}
