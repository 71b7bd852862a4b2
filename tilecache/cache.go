package tilecache

import (
	"github.com/quartzvnc/rfbcore/actionqueue"
)

func toTileRGB(c actionqueue.RGB24) RGB24 { return RGB24{R: c.R, G: c.G, B: c.B} }

// Cache is the tile-cache render target. It satisfies
// actionqueue.RenderTarget and is driven exclusively from the render
// thread.
type Cache struct {
	backend TextureBackend
	grid    TileGrid
	tiles   [][]Texture // [ty][tx]
}

// NewCache constructs an empty, uninitialized cache over backend.
// Init must be called before any Write/Copy/Fill/DrawInQuad.
func NewCache(backend TextureBackend) *Cache {
	return &Cache{backend: backend}
}

// Init sizes the cache to (w, h) and allocates one texture per tile,
// cleared to fillRGB. A probe or allocation failure returns false,
// which the action-item layer treats as fatal for the session.
func (c *Cache) Init(w, h int, fillRGB actionqueue.RGB24) bool {
	c.destroyTiles()

	backendMax := leastPow2GE(maxInt(w, h))
	c.grid = NewTileGrid(c.backend, w, h, backendMax)
	if !c.backend.ProbeMaxTileSize(c.grid.TileW, c.grid.TileH) {
		return false
	}

	fill := toTileRGB(fillRGB)
	xCount, yCount := c.grid.TileXCount(), c.grid.TileYCount()
	c.tiles = make([][]Texture, yCount)
	for ty := 0; ty < yCount; ty++ {
		c.tiles[ty] = make([]Texture, xCount)
		for tx := 0; tx < xCount; tx++ {
			tw, th := c.grid.TileSize(tx, ty)
			tex, err := c.backend.CreateTile(tw, th, fill)
			if err != nil {
				c.destroyTiles()
				return false
			}
			c.tiles[ty][tx] = tex
		}
	}
	return true
}

// Close releases every tile texture.
func (c *Cache) Close() {
	c.destroyTiles()
}

func (c *Cache) destroyTiles() {
	for _, row := range c.tiles {
		for _, tex := range row {
			if tex != nil {
				tex.Destroy()
			}
		}
	}
	c.tiles = nil
}

// MaxTileProbe exposes the backend probe directly, satisfying
// actionqueue.RenderTarget; it does not mutate the cache.
func (c *Cache) MaxTileProbe(w, h int) bool {
	return c.backend.ProbeMaxTileSize(w, h)
}

// Write uploads pixelsRGB24 (row-major, bottom-to-top, RGB24 triples)
// into (destX, destY, w, h), splitting across tile boundaries as
// needed. Destinations fully outside the framebuffer are a no-op;
// partial overlap is clipped.
func (c *Cache) Write(destX, destY, w, h int, pixelsRGB24 []byte) {
	clipX, clipY, clipW, clipH, srcOffX, srcOffY, ok := clipRect(destX, destY, w, h, c.grid.Width, c.grid.Height)
	if !ok {
		return
	}

	firstTX, lastTX := tileRange(c.grid.XCoords, clipX, clipW)
	firstTY, lastTY := tileRange(c.grid.YCoords, clipY, clipH)

	for ty := firstTY; ty < lastTY; ty++ {
		for tx := firstTX; tx < lastTX; tx++ {
			c.writeTile(tx, ty, clipX, clipY, clipW, clipH, w, pixelsRGB24, srcOffX, srcOffY)
		}
	}
}

func (c *Cache) writeTile(tx, ty, clipX, clipY, clipW, clipH, srcStride int, pixelsRGB24 []byte, srcOffX, srcOffY int) {
	tileOriginX, tileOriginY := c.grid.TileOrigin(tx, ty)
	tileW, tileH := c.grid.TileSize(tx, ty)

	rectX := maxInt(clipX, tileOriginX)
	rectY := maxInt(clipY, tileOriginY)
	rectX2 := minInt(clipX+clipW, tileOriginX+tileW)
	rectY2 := minInt(clipY+clipH, tileOriginY+tileH)
	if rectX >= rectX2 || rectY >= rectY2 {
		return
	}
	rw, rh := rectX2-rectX, rectY2-rectY

	scratch := make([]byte, rw*rh*3)
	for row := 0; row < rh; row++ {
		srcRow := srcOffY + (rectY - clipY) + row
		srcCol := srcOffX + (rectX - clipX)
		srcStart := (srcRow*srcStride + srcCol) * 3
		copy(scratch[row*rw*3:(row+1)*rw*3], pixelsRGB24[srcStart:srcStart+rw*3])
	}

	c.tiles[ty][tx].Upload(rectX-tileOriginX, rectY-tileOriginY, rw, rh, scratch)
}

// clipRect clips (x, y, w, h) against [0, fbW) × [0, fbH), returning
// the clipped rectangle and the offset into the original (w, h) buffer
// the clipped region's first pixel corresponds to.
func clipRect(x, y, w, h, fbW, fbH int) (clipX, clipY, clipW, clipH, srcOffX, srcOffY int, ok bool) {
	if x < 0 {
		srcOffX = -x
		w += x
		x = 0
	}
	if y < 0 {
		srcOffY = -y
		h += y
		y = 0
	}
	if w <= 0 || h <= 0 || x >= fbW || y >= fbH {
		return 0, 0, 0, 0, 0, 0, false
	}
	if x+w > fbW {
		w = fbW - x
	}
	if y+h > fbH {
		h = fbH - y
	}
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0, 0, 0, false
	}
	return x, y, w, h, srcOffX, srcOffY, true
}

// Copy reads back (w, h) pixels at (srcX, srcY) and rewrites them at
// (destX, destY). Copy is expanded to a read-back plus Write when the
// backend cannot blit directly; this implementation always takes that
// path, since TextureBackend exposes no native blit.
func (c *Cache) Copy(destX, destY, w, h, srcX, srcY int) {
	pixels := c.readRegion(srcX, srcY, w, h)
	if pixels == nil {
		return
	}
	c.Write(destX, destY, w, h, pixels)
}

// readRegion materializes an RGB24 buffer for (x, y, w, h) by reading
// back each overlapping tile's own most recent upload. Tiles whose
// backing Texture does not implement ReadableTexture contribute zeroed
// pixels for their portion of the region.
func (c *Cache) readRegion(x, y, w, h int) []byte {
	if w <= 0 || h <= 0 {
		return nil
	}
	buf := make([]byte, w*h*3)
	firstTX, lastTX := tileRange(c.grid.XCoords, x, w)
	firstTY, lastTY := tileRange(c.grid.YCoords, y, h)
	for ty := firstTY; ty < lastTY; ty++ {
		for tx := firstTX; tx < lastTX; tx++ {
			c.readTileInto(buf, x, y, w, h, tx, ty)
		}
	}
	return buf
}

func (c *Cache) readTileInto(dst []byte, x, y, w, h, tx, ty int) {
	readable, ok := c.tiles[ty][tx].(ReadableTexture)
	if !ok {
		return
	}
	tileOriginX, tileOriginY := c.grid.TileOrigin(tx, ty)
	tileW, tileH := c.grid.TileSize(tx, ty)

	rectX := maxInt(x, tileOriginX)
	rectY := maxInt(y, tileOriginY)
	rectX2 := minInt(x+w, tileOriginX+tileW)
	rectY2 := minInt(y+h, tileOriginY+tileH)
	if rectX >= rectX2 || rectY >= rectY2 {
		return
	}
	rw, rh := rectX2-rectX, rectY2-rectY

	pixels := readable.Download(rectX-tileOriginX, rectY-tileOriginY, rw, rh)
	for row := 0; row < rh; row++ {
		dstRow := (rectY - y + row) * w * 3
		dstCol := (rectX - x) * 3
		copy(dst[dstRow+dstCol:dstRow+dstCol+rw*3], pixels[row*rw*3:(row+1)*rw*3])
	}
}

// Fill paints (x, y, w, h) with colour, by clipping and uploading a
// flat-colour scratch buffer through Write.
func (c *Cache) Fill(x, y, w, h int, colour actionqueue.RGB24) {
	if w <= 0 || h <= 0 {
		return
	}
	pixels := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pixels[i*3] = colour.R
		pixels[i*3+1] = colour.G
		pixels[i*3+2] = colour.B
	}
	c.Write(x, y, w, h, pixels)
}

// DrawInQuad renders every tile into the supplied parallelogram,
// clipping right/bottom-edge tiles to their fractional coverage of the
// framebuffer.
func (c *Cache) DrawInQuad(x00, y00, z00, x10, y10, z10, x11, y11, z11 float64) {
	xCount, yCount := c.grid.TileXCount(), c.grid.TileYCount()
	for ty := 0; ty < yCount; ty++ {
		_, tileH := c.grid.TileSize(0, ty)
		v := edgeFraction(c.grid.YCoords, ty, c.grid.Height, tileH)
		for tx := 0; tx < xCount; tx++ {
			tileW, _ := c.grid.TileSize(tx, ty)
			u := edgeFraction(c.grid.XCoords, tx, c.grid.Width, tileW)
			corners := tileQuad(c.grid, tx, ty, x00, y00, z00, x10, y10, z10, x11, y11, z11)
			c.tiles[ty][tx].Draw(corners, u, v)
		}
	}
}

// tileQuad bilinearly interpolates tile (tx, ty)'s pixel-space
// rectangle into the caller's parallelogram.
func tileQuad(grid TileGrid, tx, ty int, x00, y00, z00, x10, y10, z10, x11, y11, z11 float64) Quad {
	u0 := float64(grid.XCoords[tx]) / float64(grid.Width)
	u1 := float64(minInt(grid.XCoords[tx+1], grid.Width)) / float64(grid.Width)
	v0 := float64(grid.YCoords[ty]) / float64(grid.Height)
	v1 := float64(minInt(grid.YCoords[ty+1], grid.Height)) / float64(grid.Height)

	lerp3 := func(u, v float64) (float64, float64, float64) {
		x := x00 + u*(x10-x00) + v*(x11-x00)
		y := y00 + u*(y10-y00) + v*(y11-y00)
		z := z00 + u*(z10-z00) + v*(z11-z00)
		return x, y, z
	}

	x0, y0, z0 := lerp3(u0, v0)
	x1, y1, z1 := lerp3(u1, v0)
	x2, y2, z2 := lerp3(u0, v1)
	return Quad{
		X00: x0, Y00: y0, Z00: z0,
		X10: x1, Y10: y1, Z10: z1,
		X11: x2, Y11: y2, Z11: z2,
	}
}

// ReadableTexture is an optional extension a Texture may implement to
// support Copy's read-back path. A tile that doesn't implement it
// contributes zeroed pixels to a read instead of failing the call.
type ReadableTexture interface {
	Texture
	Download(x, y, w, h int) []byte
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
