package tilecache

import (
	"image"
	"image/draw"
)

// CPUBackend is a TextureBackend with no size limit unless
// MaxDimension is set, backing
// every tile with an in-process image.RGBA buffer rather than a GPU
// texture. It is grounded on the image.RGBA framebuffer pattern used
// by the example servers (bradfitz-rfbgo, patdhlk-rfb), repurposed
// here as the client-side tile store for hosts with no GPU backend of
// their own (e.g. headless tests, or a software-only front end).
type CPUBackend struct {
	// MaxDimension bounds ProbeMaxTileSize; zero means unbounded.
	MaxDimension int
}

func (b *CPUBackend) ProbeMaxTileSize(w, h int) bool {
	if b.MaxDimension == 0 {
		return true
	}
	return w <= b.MaxDimension && h <= b.MaxDimension
}

func (b *CPUBackend) CreateTile(w, h int, fill RGB24) (Texture, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fillColor(fill)}, image.Point{}, draw.Src)
	return &cpuTexture{img: img}, nil
}

type cpuTexture struct {
	img       *image.RGBA
	lastQuad  Quad
	lastU1    float64
	lastV1    float64
	drawCalls int
}

func (t *cpuTexture) Upload(x, y, w, h int, pixelsRGB24 []byte) {
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			src := (row*w + col) * 3
			off := t.img.PixOffset(x+col, y+row)
			t.img.Pix[off] = pixelsRGB24[src]
			t.img.Pix[off+1] = pixelsRGB24[src+1]
			t.img.Pix[off+2] = pixelsRGB24[src+2]
			t.img.Pix[off+3] = 0xff
		}
	}
}

func (t *cpuTexture) Download(x, y, w, h int) []byte {
	out := make([]byte, w*h*3)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			off := t.img.PixOffset(x+col, y+row)
			dst := (row*w + col) * 3
			out[dst] = t.img.Pix[off]
			out[dst+1] = t.img.Pix[off+1]
			out[dst+2] = t.img.Pix[off+2]
		}
	}
	return out
}

// Draw records the quad it was asked to render; a CPU backend has no
// display surface of its own, so this is purely observable state for
// tests and embedding hosts that composite tiles themselves.
func (t *cpuTexture) Draw(corners Quad, u1, v1 float64) {
	t.lastQuad = corners
	t.lastU1 = u1
	t.lastV1 = v1
	t.drawCalls++
}

func (t *cpuTexture) Destroy() {
	t.img = nil
}

func fillColor(c RGB24) rgbaColor {
	return rgbaColor{r: c.R, g: c.G, b: c.B}
}

// rgbaColor implements color.Color with alpha forced opaque.
type rgbaColor struct{ r, g, b uint8 }

func (c rgbaColor) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, 0xffff
}
