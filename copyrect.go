package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// decodeCopyRect reads the source origin and emits one Copy action.
// Source and destination y are transformed by the identical y-flip.
func decodeCopyRect(ch *Channel, rect Rectangle, fbHeight int, queue *actionqueue.Queue) error {
	srcX, err := ch.ReadUint16()
	if err != nil {
		return wrapErr(KindIO, "decodeCopyRect", "source x", err)
	}
	srcY, err := ch.ReadUint16()
	if err != nil {
		return wrapErr(KindIO, "decodeCopyRect", "source y", err)
	}

	destY := flipY(fbHeight, int(rect.Y), int(rect.H))
	flippedSrcY := flipY(fbHeight, int(srcY), int(rect.H))
	item := actionqueue.CopyItem(int(rect.X), destY, int(rect.W), int(rect.H), int(srcX), flippedSrcY)
	return queue.AddAndBroadcast(item)
}
