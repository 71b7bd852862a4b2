package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// decodeRRE and decodeCoRRE share one body, differing only in the
// wire width of the sub-rectangle count and coordinate fields.
func decodeRRE(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	return decodeRREFamily(ch, rect, format, fbHeight, queue, 4, 2)
}

func decodeCoRRE(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	return decodeRREFamily(ch, rect, format, fbHeight, queue, 1, 1)
}

func decodeRREFamily(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue, countBytes, coordBytes int) error {
	countRaw, err := ch.ReadExact(countBytes)
	if err != nil {
		return wrapErr(KindIO, "decodeRREFamily", "sub-rect count", err)
	}
	count := bytesToPixel(true, countRaw)

	bgPixel, err := readFormatPixel(ch, format)
	if err != nil {
		return wrapErr(KindIO, "decodeRREFamily", "background pixel", err)
	}
	background := ToRGB24(format, bgPixel)

	destY := flipY(fbHeight, int(rect.Y), int(rect.H))
	bg := actionqueue.FillItem(int(rect.X), destY, int(rect.W), int(rect.H), background)
	if err := queue.AddAndBroadcast(bg); err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		pixel, err := readFormatPixel(ch, format)
		if err != nil {
			return wrapErr(KindIO, "decodeRREFamily", "sub-rect pixel", err)
		}
		colour := ToRGB24(format, pixel)

		coordRaw, err := ch.ReadExact(coordBytes * 4)
		if err != nil {
			return wrapErr(KindIO, "decodeRREFamily", "sub-rect coords", err)
		}
		x := bytesToPixel(true, coordRaw[0*coordBytes:1*coordBytes])
		y := bytesToPixel(true, coordRaw[1*coordBytes:2*coordBytes])
		w := bytesToPixel(true, coordRaw[2*coordBytes:3*coordBytes])
		h := bytesToPixel(true, coordRaw[3*coordBytes:4*coordBytes])

		absX := int(rect.X) + int(x)
		absY := int(rect.Y) + int(y)
		subDestY := flipY(fbHeight, absY, int(h))
		item := actionqueue.FillItem(absX, subDestY, int(w), int(h), colour)
		if err := queue.AddAndBroadcast(item); err != nil {
			return err
		}
	}
	return nil
}
