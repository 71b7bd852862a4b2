package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// rawBatchBudget bounds how many bytes of decoded RGB24 pixels one Raw
// batch holds before it is flushed as a Write, on the order of 64 KiB.
const rawBatchBudget = 64 * 1024

// decodeRaw reads w×bytesPerPixel bytes per row for h rows, batching
// rows into Write items of roughly rawBatchBudget bytes each.
func decodeRaw(ch *Channel, rect Rectangle, format PixelFormat, fbHeight int, queue *actionqueue.Queue) error {
	w, h := int(rect.W), int(rect.H)
	bpp := format.BytesPerPixel()
	rowBytes := w * 3

	rowsPerBatch := rawBatchBudget / rowBytes
	if rowsPerBatch < 1 {
		rowsPerBatch = 1
	}

	rowsDone := 0
	for rowsDone < h {
		batchRows := rowsPerBatch
		if batchRows > h-rowsDone {
			batchRows = h - rowsDone
		}

		buf := make([]byte, batchRows*rowBytes)
		for r := 0; r < batchRows; r++ {
			for x := 0; x < w; x++ {
				raw, err := ch.ReadExact(bpp)
				if err != nil {
					return wrapErr(KindIO, "decodeRaw", "pixel read", err)
				}
				pixel := bytesToPixel(format.BigEndian, raw)
				rgb := ToRGB24(format, pixel)
				off := r*rowBytes + x*3
				buf[off], buf[off+1], buf[off+2] = rgb.R, rgb.G, rgb.B
			}
		}

		flipped := flipRowsRGB24(buf, w, batchRows)
		destY := flipY(fbHeight, int(rect.Y)+rowsDone, batchRows)
		item := actionqueue.WriteItem(int(rect.X), destY, w, batchRows, flipped)
		if err := queue.AddAndBroadcast(item); err != nil {
			return err
		}
		rowsDone += batchRows
	}
	return nil
}
