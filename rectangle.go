package rfbcore

import "github.com/quartzvnc/rfbcore/encodings"

// Rectangle is the header that precedes every FramebufferUpdate
// rectangle body: x/y/w/h are uint16 on the wire, encoding is a
// signed 32-bit ID.
type Rectangle struct {
	X, Y, W, H uint16
	Encoding   encodings.Encoding
}

// Area is the rectangle's pixel count.
func (r Rectangle) Area() int { return int(r.W) * int(r.H) }

// withinFramebuffer reports whether the rectangle fits inside a
// fbW×fbH framebuffer. DesktopSize is exempt: it redefines the
// framebuffer dimensions rather than living inside them.
func (r Rectangle) withinFramebuffer(fbW, fbH uint16) bool {
	if r.Encoding == encodings.DesktopSizePseudo {
		return true
	}
	return int(r.X)+int(r.W) <= int(fbW) && int(r.Y)+int(r.H) <= int(fbH)
}
