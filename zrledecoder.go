package rfbcore

import (
	"io"

	"github.com/quartzvnc/rfbcore/actionqueue"
	"github.com/quartzvnc/rfbcore/zrle"
)

// decodeZRLE reads the length-prefixed zlib sub-stream, decodes its
// sequence of 64x64 sub-tiles, and emits a single Write covering the
// whole rectangle.
func decodeZRLE(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	length, err := ch.ReadUint32()
	if err != nil {
		return wrapErr(KindIO, "decodeZRLE", "sub-stream length", err)
	}

	view, err := ch.OpenInflateView(int(length))
	if err != nil {
		return wrapErr(KindProtocol, "decodeZRLE", "open inflate view", err)
	}
	defer view.Close()

	w, h := int(rect.W), int(rect.H)
	placement := classifyCPixel(format)
	cpixelWidth := CPixelWidth(format)

	tiles := zrle.CreateTiles(w, h)
	subByteBuf := make([]byte, 1)
	for i := range tiles {
		if _, err := io.ReadFull(view, subByteBuf); err != nil {
			return wrapErr(KindIO, "decodeZRLE", "sub-tile subencoding byte", err)
		}
		subByte := subByteBuf[0]
		sub, err := zrle.GetSubencoding(subByte)
		if err != nil {
			return wrapErr(KindProtocol, "decodeZRLE", "sub-tile subencoding", err)
		}
		tiles[i].SubType = int(subByte)
		tiles[i].BytesPerCPixel = cpixelWidth
		if _, err := sub.Read(view, &tiles[i]); err != nil {
			return wrapErr(KindProtocol, "decodeZRLE", "sub-tile body", err)
		}
	}

	grid := zrle.TilesToPixels(w, h, tiles)
	buf := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := grid[y]
		for x := 0; x < w; x++ {
			pixel := cpixelToPixel(placement, cpixelWidth, format, row[x])
			rgb := ToRGB24(format, pixel)
			off := (y*w + x) * 3
			buf[off], buf[off+1], buf[off+2] = rgb.R, rgb.G, rgb.B
		}
	}

	flipped := flipRowsRGB24(buf, w, h)
	destY := flipY(fbHeight, int(rect.Y), h)
	item := actionqueue.WriteItem(int(rect.X), destY, w, h, flipped)
	return queue.AddAndBroadcast(item)
}

// cpixelToPixel expands one decoded CPixel (an opaque byte slice of
// cpixelWidth bytes) into a 32-bit pixel value.
func cpixelToPixel(placement cpixelPlacement, cpixelWidth int, format PixelFormat, px zrle.CPixel) uint32 {
	if cpixelWidth == 3 {
		return cpixelBytesToPixel(placement, format.BigEndian, px[0], px[1], px[2])
	}
	return bytesToPixel(format.BigEndian, px)
}
