package rfbcore

import "github.com/quartzvnc/rfbcore/rfbflags"

// Client-to-server message type bytes.
const (
	msgSetPixelFormat          = 0
	msgSetEncodings            = 2
	msgFramebufferUpdateReq    = 3
	msgKeyEvent                = 4
	msgPointerEvent            = 5
	msgClientCutText           = 6
)

// Server-to-client message type bytes.
const (
	msgFramebufferUpdate   = 0
	msgSetColourMapEntries = 1
	msgBell                = 2
	msgServerCutText       = 3
)

// KeyEvent wire layout mirrors hduplooy-gorfb's case 4 in the
// client-to-server direction: type byte, down flag, 2 padding bytes,
// 32-bit keysym.
func keyEventBytes(keysym uint32, down bool) []byte {
	buf := make([]byte, 8)
	buf[0] = msgKeyEvent
	buf[1] = byte(rfbflags.FromBool(down))
	copy(buf[4:8], putUint32(keysym))
	return buf
}

// PointerEvent wire layout mirrors hduplooy-gorfb's case 5: type byte,
// button mask, 16-bit x, 16-bit y. Negative coordinates are clamped to
// zero.
func pointerEventBytes(buttonMask uint8, x, y int) []byte {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	buf := make([]byte, 6)
	buf[0] = msgPointerEvent
	buf[1] = buttonMask
	copy(buf[2:4], putUint16(uint16(x)))
	copy(buf[4:6], putUint16(uint16(y)))
	return buf
}

// ClientCutText wire layout mirrors hduplooy-gorfb's SendCutText (here
// reversed for the client direction): type byte, 3 padding bytes,
// 32-bit length, then the raw text bytes.
func clientCutTextBytes(text string) []byte {
	buf := make([]byte, 8+len(text))
	buf[0] = msgClientCutText
	copy(buf[4:8], putUint32(uint32(len(text))))
	copy(buf[8:], text)
	return buf
}

// KeyEvent sends a single key press or release.
func (e *Engine) KeyEvent(keysym uint32, down bool) error {
	return e.writeLocked(keyEventBytes(keysym, down))
}

// PointerEvent sends a pointer position and button-mask update.
func (e *Engine) PointerEvent(buttonMask uint8, x, y int) error {
	return e.writeLocked(pointerEventBytes(buttonMask, x, y))
}

// ClientCutText sends locally-copied text to the server.
func (e *Engine) ClientCutText(text string) error {
	return e.writeLocked(clientCutTextBytes(text))
}

// Keysyms used by TypeString for characters with no literal ASCII
// keysym.
type TypeKeysyms struct {
	Tab     uint32
	Enter   uint32
	Control uint32 // 0 disables control-character mapping
}

// DefaultTypeKeysyms are the standard X11 keysym values for tab,
// enter and left-control.
var DefaultTypeKeysyms = TypeKeysyms{Tab: 0xff09, Enter: 0xff0d, Control: 0xffe3}

// TypeString sends s as a sequence of KeyEvent down/up pairs, mapping
// tab and newline to the configured keysyms and, for other control
// characters (when keysyms.Control is non-zero), sending
// Ctrl-down, letter-down, letter-up, Ctrl-up.
func (e *Engine) TypeString(s string, keysyms TypeKeysyms) error {
	for _, r := range s {
		switch {
		case r == '\t':
			if err := e.pressAndRelease(keysyms.Tab); err != nil {
				return err
			}
		case r == '\n' || r == '\r':
			if err := e.pressAndRelease(keysyms.Enter); err != nil {
				return err
			}
		case r < 0x20 && keysyms.Control != 0:
			letter := uint32(r) + 'a' - 1
			if err := e.KeyEvent(keysyms.Control, true); err != nil {
				return err
			}
			if err := e.pressAndRelease(letter); err != nil {
				return err
			}
			if err := e.KeyEvent(keysyms.Control, false); err != nil {
				return err
			}
		default:
			if err := e.pressAndRelease(uint32(r)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) pressAndRelease(keysym uint32) error {
	if err := e.KeyEvent(keysym, true); err != nil {
		return err
	}
	return e.KeyEvent(keysym, false)
}
