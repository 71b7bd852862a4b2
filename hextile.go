package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// Hextile sub-tile mask bits.
const (
	hextileRaw                 = 0x01
	hextileBackgroundSpecified = 0x02
	hextileForegroundSpecified = 0x04
	hextileAnySubrects         = 0x08
	hextileSubrectsColoured    = 0x10
)

const hextileTile = 16

// decodeHextile walks the rectangle's 16x16 sub-tiles in row-major
// order, each carrying its own mask byte.
func decodeHextile(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	bpp := format.BytesPerPixel()
	var background, foreground actionqueue.RGB24
	firstNonRaw := true

	for tileY := 0; tileY < int(rect.H); tileY += hextileTile {
		th := min(hextileTile, int(rect.H)-tileY)
		for tileX := 0; tileX < int(rect.W); tileX += hextileTile {
			tw := min(hextileTile, int(rect.W)-tileX)

			maskRaw, err := ch.ReadExact(1)
			if err != nil {
				return wrapErr(KindIO, "decodeHextile", "mask byte", err)
			}
			mask := maskRaw[0]

			absX := int(rect.X) + tileX
			absY := int(rect.Y) + tileY
			destY := flipY(fbHeight, absY, th)

			if mask&hextileRaw != 0 {
				buf := make([]byte, tw*th*3)
				for y := 0; y < th; y++ {
					for x := 0; x < tw; x++ {
						raw, err := ch.ReadExact(bpp)
						if err != nil {
							return wrapErr(KindIO, "decodeHextile", "raw sub-tile pixel", err)
						}
						pixel := bytesToPixel(format.BigEndian, raw)
						rgb := ToRGB24(format, pixel)
						off := y*tw*3 + x*3
						buf[off], buf[off+1], buf[off+2] = rgb.R, rgb.G, rgb.B
					}
				}
				flipped := flipRowsRGB24(buf, tw, th)
				item := actionqueue.WriteItem(absX, destY, tw, th, flipped)
				if err := queue.AddAndBroadcast(item); err != nil {
					return err
				}
				continue
			}

			if firstNonRaw && mask&hextileBackgroundSpecified == 0 {
				return newErr(KindProtocol, "decodeHextile", "first non-Raw sub-tile must set BackgroundSpecified")
			}
			firstNonRaw = false

			if mask&hextileForegroundSpecified != 0 && mask&hextileSubrectsColoured != 0 {
				return newErr(KindProtocol, "decodeHextile", "ForegroundSpecified is illegal with SubrectsColoured")
			}

			if mask&hextileBackgroundSpecified != 0 {
				pixel, err := readFormatPixel(ch, format)
				if err != nil {
					return wrapErr(KindIO, "decodeHextile", "background pixel", err)
				}
				background = ToRGB24(format, pixel)
			}
			if mask&hextileForegroundSpecified != 0 {
				pixel, err := readFormatPixel(ch, format)
				if err != nil {
					return wrapErr(KindIO, "decodeHextile", "foreground pixel", err)
				}
				foreground = ToRGB24(format, pixel)
			}

			bgItem := actionqueue.FillItem(absX, destY, tw, th, background)
			if err := queue.AddAndBroadcast(bgItem); err != nil {
				return err
			}

			if mask&hextileAnySubrects == 0 {
				continue
			}
			countRaw, err := ch.ReadExact(1)
			if err != nil {
				return wrapErr(KindIO, "decodeHextile", "sub-rect count", err)
			}
			count := int(countRaw[0])

			for i := 0; i < count; i++ {
				colour := foreground
				if mask&hextileSubrectsColoured != 0 {
					pixel, err := readFormatPixel(ch, format)
					if err != nil {
						return wrapErr(KindIO, "decodeHextile", "sub-rect colour", err)
					}
					colour = ToRGB24(format, pixel)
				}
				xy, err := ch.ReadExact(1)
				if err != nil {
					return wrapErr(KindIO, "decodeHextile", "sub-rect xy", err)
				}
				wh, err := ch.ReadExact(1)
				if err != nil {
					return wrapErr(KindIO, "decodeHextile", "sub-rect wh", err)
				}
				sx := int(xy[0] >> 4)
				sy := int(xy[0] & 0x0f)
				sw := int(wh[0]>>4) + 1
				sh := int(wh[0]&0x0f) + 1

				subAbsX := absX + sx
				subAbsY := absY + sy
				subDestY := flipY(fbHeight, subAbsY, sh)
				item := actionqueue.FillItem(subAbsX, subDestY, sw, sh, colour)
				if err := queue.AddAndBroadcast(item); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
