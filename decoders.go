package rfbcore

import (
	"fmt"

	"github.com/quartzvnc/rfbcore/actionqueue"
	"github.com/quartzvnc/rfbcore/encodings"
)

// decodeFunc is one encoding's rectangle decoder: given the channel
// positioned right after the rectangle header, the active pixel
// format, and the framebuffer's current height (for the render
// target's y-flip), it reads exactly the rectangle's body and pushes
// render operations onto queue. The encodings dispatch through a
// table of free functions rather than a type hierarchy.
type decodeFunc func(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error

var decoderTable = map[encodings.Encoding]decodeFunc{
	encodings.Raw:      decodeRaw,
	encodings.CopyRect: decodeCopyRectRect,
	encodings.RRE:      decodeRRE,
	encodings.CoRRE:    decodeCoRRE,
	encodings.Hextile:  decodeHextile,
	encodings.ZRLE:     decodeZRLE,
}

// decodeRectangle dispatches rect to its encoding's decoder. DesktopSize
// carries no pixel body; the engine updates the framebuffer descriptor
// itself and never reaches this dispatch for it.
func decodeRectangle(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	if rect.Area() == 0 {
		return nil
	}
	fn, ok := decoderTable[rect.Encoding]
	if !ok {
		return newErr(KindProtocol, "decodeRectangle", fmt.Sprintf("unknown encoding %d", rect.Encoding))
	}
	return fn(ch, rect, format, fbHeight, queue)
}

// flipY converts a wire rectangle's top-left-origin y (increasing
// downward) spanning h rows into the render target's y (increasing
// upward). Both src and dest y values go through this same transform.
func flipY(fbHeight, y, h int) int {
	return fbHeight - y - h
}

// flipRowsRGB24 reverses the row order of a row-major RGB24 buffer of
// w×h pixels: wire rows arrive top-to-bottom, the render target wants
// bottom-to-top.
func flipRowsRGB24(buf []byte, w, h int) []byte {
	rowBytes := w * 3
	out := make([]byte, len(buf))
	for row := 0; row < h; row++ {
		src := row * rowBytes
		dst := (h - 1 - row) * rowBytes
		copy(out[dst:dst+rowBytes], buf[src:src+rowBytes])
	}
	return out
}

// bytesToPixel assembles a native-width pixel value from its wire
// bytes, honouring the format's declared byte order. The channel
// itself is byte-oriented; callers perform any swap explicitly.
func bytesToPixel(bigEndian bool, b []byte) uint32 {
	var v uint32
	if bigEndian {
		for _, x := range b {
			v = v<<8 | uint32(x)
		}
	} else {
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | uint32(b[i])
		}
	}
	return v
}

// readFormatPixel reads one native-width pixel for format off ch.
func readFormatPixel(ch *Channel, format PixelFormat) (uint32, error) {
	b, err := ch.ReadExact(format.BytesPerPixel())
	if err != nil {
		return 0, err
	}
	return bytesToPixel(format.BigEndian, b), nil
}

func decodeCopyRectRect(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	return decodeCopyRect(ch, rect, fbHeight, queue)
}
