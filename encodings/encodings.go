// Package encodings defines the numeric IDs for RFB rectangle
// encodings and pseudo-encodings, and the client's default preference
// order when advertising SetEncodings.
package encodings

import "fmt"

// Encoding is the 32-bit signed encoding identifier sent on the wire.
type Encoding int32

const (
	Raw     Encoding = 0
	CopyRect Encoding = 1
	RRE     Encoding = 2
	CoRRE   Encoding = 4
	Hextile Encoding = 5
	ZRLE    Encoding = 16

	// DesktopSizePseudo is the pseudo-encoding the client advertises to
	// tell the server it can handle a resize notification in place of
	// a pixel-carrying rectangle.
	DesktopSizePseudo Encoding = -223
)

// String names an encoding for logging; unknown values are rendered
// numerically.
func (e Encoding) String() string {
	switch e {
	case Raw:
		return "Raw"
	case CopyRect:
		return "CopyRect"
	case RRE:
		return "RRE"
	case CoRRE:
		return "CoRRE"
	case Hextile:
		return "Hextile"
	case ZRLE:
		return "ZRLE"
	case DesktopSizePseudo:
		return "DesktopSize"
	default:
		return fmt.Sprintf("Encoding(%d)", int32(e))
	}
}

// DefaultPreferenceOrder is sent to the server when the host does not
// supply its own encoding list. CopyRect is always sent first by the
// engine regardless of this list; this order is the fallback for
// everything after it.
var DefaultPreferenceOrder = []Encoding{
	Raw,
	CopyRect,
	RRE,
	CoRRE,
	Hextile,
	ZRLE,
	DesktopSizePseudo,
}
