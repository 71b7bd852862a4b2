package rfbcore

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quartzvnc/rfbcore/actionqueue"
	"github.com/quartzvnc/rfbcore/encodings"
	"github.com/quartzvnc/rfbcore/rfbflags"
)

// State is the session state machine. Only the engine itself
// transitions between states.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateHandshaking
	StateAuthenticating
	StateRunning
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateAuthenticating:
		return "Authenticating"
	case StateRunning:
		return "Running"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// Options configures a Dial. Port follows hduplooy-gorfb's convention:
// values under 100 are a VNC display number, offset by 5900; 100 and
// above are taken as a literal TCP port.
type Options struct {
	Host      string
	Port      int
	Shared    bool
	Format    PixelFormat
	Encodings []encodings.Encoding
}

func (o Options) tcpPort() int {
	if o.Port < 100 {
		return 5900 + o.Port
	}
	return o.Port
}

func (o Options) format() PixelFormat {
	if o.Format == (PixelFormat{}) {
		return DefaultPixelFormat
	}
	return o.Format
}

func (o Options) encodingList() []encodings.Encoding {
	if len(o.Encodings) == 0 {
		return encodings.DefaultPreferenceOrder
	}
	return o.Encodings
}

// passwordCompletion implements actionqueue.PasswordCompletion by
// releasing a one-shot barrier channel.
type passwordCompletion struct {
	ch chan []byte
}

func (p passwordCompletion) Post(password []byte) {
	p.ch <- password
}

// Engine is the protocol engine: it owns the framed channel
// exclusively and runs the handshake, auth, and running-loop state
// machine. Engine is driven from a single I/O thread; KeyEvent/
// PointerEvent/ClientCutText/TypeString, NeedUpdate, State,
// FramebufferSize and Close may also be called from another goroutine.
type Engine struct {
	opts  Options
	chan_ *Channel
	queue *actionqueue.Queue
	log   zerolog.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	state       State
	fbWidth     int
	fbHeight    int
	format      PixelFormat
	desktopName string
	needX       int
	needY       int
	needW       int
	needH       int
	needPending bool
}

// Dial opens a TCP connection to opts.Host/opts.Port and returns an
// Engine positioned at StateConnecting, ready for Handshake.
func Dial(ctx context.Context, opts Options, queue *actionqueue.Queue, log zerolog.Logger) (*Engine, error) {
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.tcpPort())
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, wrapErr(KindIO, "Dial", "connect "+addr, err)
	}
	return NewEngine(NewChannel(conn), opts, queue, log), nil
}

// NewEngine wraps an already-established channel (e.g. from a listen
// Accept, for the RFB "reverse connection" mode) into an Engine at
// StateConnecting.
func NewEngine(ch *Channel, opts Options, queue *actionqueue.Queue, log zerolog.Logger) *Engine {
	return &Engine{
		opts:   opts,
		chan_:  ch,
		queue:  queue,
		log:    log.With().Str("component", "rfbcore.engine").Logger(),
		state:  StateConnecting,
		format: opts.format(),
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// State reports the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// FramebufferSize reports the current framebuffer dimensions, as last
// set by ServerInit or a DesktopSize pseudo-rectangle.
func (e *Engine) FramebufferSize() (w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fbWidth, e.fbHeight
}

// NeedUpdate accumulates a dirty rectangle requested by the host,
// unioned with any rectangle already pending.
func (e *Engine) NeedUpdate(x, y, w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.needPending {
		e.needX, e.needY, e.needW, e.needH = x, y, w, h
		e.needPending = true
		return
	}
	x1 := minInt(e.needX, x)
	y1 := minInt(e.needY, y)
	x2 := maxInt(e.needX+e.needW, x+w)
	y2 := maxInt(e.needY+e.needH, y+h)
	e.needX, e.needY, e.needW, e.needH = x1, y1, x2-x1, y2-y1
}

func (e *Engine) takeNeedUpdate() (x, y, w, h int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.needPending {
		return 0, 0, 0, 0, false
	}
	x, y, w, h = e.needX, e.needY, e.needW, e.needH
	e.needPending = false
	return x, y, w, h, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Handshake reads the version banner, replies fixed at 3.3 (higher
// server versions are negotiated down), and transitions to
// StateHandshaking then StateAuthenticating.
func (e *Engine) Handshake() error {
	e.setState(StateHandshaking)
	banner, err := e.chan_.ReadExact(12)
	if err != nil {
		return wrapErr(KindIO, "Engine.Handshake", "version banner", err)
	}
	var sMajor, sMinor int
	if _, err := fmt.Sscanf(string(banner), "RFB %03d.%03d\n", &sMajor, &sMinor); err != nil {
		return wrapErr(KindProtocol, "Engine.Handshake", "malformed version banner", err)
	}
	reply := []byte(fmt.Sprintf("RFB %03d.%03d\n", 3, 3))
	if err := e.chan_.WriteAll(reply); err != nil {
		return wrapErr(KindIO, "Engine.Handshake", "version reply", err)
	}
	e.queue.Add(actionqueue.InfoProtocolVersionItem(sMajor, sMinor, 3, 3))
	e.setState(StateAuthenticating)
	return nil
}

// Authenticate reads the 32-bit scheme code and runs the matching
// auth routine.
func (e *Engine) Authenticate(passwordProvider actionqueue.PasswordProvider) error {
	schemeRaw, err := e.chan_.ReadUint32()
	if err != nil {
		return wrapErr(KindIO, "Engine.Authenticate", "scheme code", err)
	}
	switch Scheme(schemeRaw) {
	case authFailed:
		reason, err := e.readLengthPrefixedText()
		if err != nil {
			return wrapErr(KindIO, "Engine.Authenticate", "failure reason", err)
		}
		e.queue.Add(actionqueue.ErrorFromServerItem("Engine.Authenticate", reason))
		return newErr(KindAuth, "Engine.Authenticate", "server refused connection: "+reason)
	case authNone:
		e.queue.Add(actionqueue.InfoAuthResultItem(true, uint32(authNone), 0))
		return nil
	case authVNC:
		return e.authenticateVNC(passwordProvider)
	default:
		return newErr(KindAuth, "Engine.Authenticate", fmt.Sprintf("unknown auth scheme %d", schemeRaw))
	}
}

func (e *Engine) authenticateVNC(passwordProvider actionqueue.PasswordProvider) error {
	challenge, err := e.chan_.ReadExact(16)
	if err != nil {
		return wrapErr(KindIO, "Engine.authenticateVNC", "challenge", err)
	}

	ch := make(chan []byte, 1)
	e.queue.Add(actionqueue.GetPasswordItem(passwordCompletion{ch: ch}))
	if passwordProvider == nil {
		ch <- nil
	}
	password := <-ch
	if password == nil {
		return newErr(KindAuth, "Engine.authenticateVNC", "no password supplied")
	}

	response, err := vncAuthResponse(password, challenge)
	if err != nil {
		return wrapErr(KindAuth, "Engine.authenticateVNC", "DES response", err)
	}
	if err := e.chan_.WriteAll(response); err != nil {
		return wrapErr(KindIO, "Engine.authenticateVNC", "response write", err)
	}

	result, err := e.chan_.ReadUint32()
	if err != nil {
		return wrapErr(KindIO, "Engine.authenticateVNC", "auth result", err)
	}
	ok := result == 0
	e.queue.Add(actionqueue.InfoAuthResultItem(ok, uint32(authVNC), result))
	if !ok {
		return newErr(KindAuth, "Engine.authenticateVNC", fmt.Sprintf("auth failed, result=%d", result))
	}
	return nil
}

func (e *Engine) readLengthPrefixedText() (string, error) {
	n, err := e.chan_.ReadUint32()
	if err != nil {
		return "", err
	}
	b, err := e.chan_.ReadExact(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// InitSession writes ClientInit, reads ServerInit and the desktop
// name, and transitions to StateRunning.
func (e *Engine) InitSession() error {
	e.queue.Add(actionqueue.InfoServerInitStartedItem())

	shared := byte(rfbflags.FromBool(e.opts.Shared))
	if err := e.chan_.WriteAll([]byte{shared}); err != nil {
		return wrapErr(KindIO, "Engine.InitSession", "ClientInit", err)
	}

	header, err := e.chan_.ReadExact(24)
	if err != nil {
		return wrapErr(KindIO, "Engine.InitSession", "ServerInit header", err)
	}
	width := int(bytesToPixel(true, header[0:2]))
	height := int(bytesToPixel(true, header[2:4]))
	format, err := decodePixelFormatBytes(header[4:20])
	if err != nil {
		return wrapErr(KindProtocol, "Engine.InitSession", "pixel format", err)
	}
	nameLen := int(bytesToPixel(true, header[20:24]))
	nameBytes, err := e.chan_.ReadExact(nameLen)
	if err != nil {
		return wrapErr(KindIO, "Engine.InitSession", "desktop name", err)
	}

	e.mu.Lock()
	e.fbWidth, e.fbHeight = width, height
	e.desktopName = string(nameBytes)
	e.mu.Unlock()

	init := actionqueue.ServerInit{
		Width: uint16(width), Height: uint16(height),
		BitsPerPixel: format.BitsPerPixel, Depth: format.Depth,
		BigEndian: format.BigEndian, TrueColor: format.TrueColor,
		RedMax: format.RedMax, GreenMax: format.GreenMax, BlueMax: format.BlueMax,
		RedShift: format.RedShift, GreenShift: format.GreenShift, BlueShift: format.BlueShift,
		DesktopName: string(nameBytes),
	}
	e.queue.Add(actionqueue.InfoServerInitCompletedItem(true))
	e.queue.Add(actionqueue.InitDisplayItem(init))

	if err := e.sendSetPixelFormat(); err != nil {
		return err
	}
	if err := e.sendSetEncodings(); err != nil {
		return err
	}
	if err := e.sendFramebufferUpdateRequest(false, 0, 0, width, height); err != nil {
		return err
	}

	e.setState(StateRunning)
	return nil
}

// decodePixelFormatBytes parses the 16-byte pixel-format wire record
// embedded in ServerInit.
func decodePixelFormatBytes(b []byte) (PixelFormat, error) {
	bpp := b[0]
	if bpp != 8 && bpp != 16 && bpp != 32 {
		return PixelFormat{}, newErr(KindProtocol, "decodePixelFormatBytes", fmt.Sprintf("unsupported bits-per-pixel %d", bpp))
	}
	f := PixelFormat{
		BitsPerPixel: bpp,
		Depth:        b[1],
		BigEndian:    rfbflags.RFBFlag(b[2]).IsTrue(),
		TrueColor:    rfbflags.RFBFlag(b[3]).IsTrue(),
		RedMax:       uint16(bytesToPixel(true, b[4:6])),
		GreenMax:     uint16(bytesToPixel(true, b[6:8])),
		BlueMax:      uint16(bytesToPixel(true, b[8:10])),
		RedShift:     b[10],
		GreenShift:   b[11],
		BlueShift:    b[12],
	}
	if !f.TrueColor {
		return PixelFormat{}, newErr(KindProtocol, "decodePixelFormatBytes", "colormap pixel formats are not supported")
	}
	return f, nil
}

func pixelFormatBytes(f PixelFormat) []byte {
	b := make([]byte, 16)
	b[0] = f.BitsPerPixel
	b[1] = f.Depth
	b[2] = byte(rfbflags.FromBool(f.BigEndian))
	b[3] = byte(rfbflags.FromBool(f.TrueColor))
	copy(b[4:6], putUint16(f.RedMax))
	copy(b[6:8], putUint16(f.GreenMax))
	copy(b[8:10], putUint16(f.BlueMax))
	b[10] = f.RedShift
	b[11] = f.GreenShift
	b[12] = f.BlueShift
	return b
}

// sendSetPixelFormat sends the message-0 SetPixelFormat request for
// the engine's active format.
func (e *Engine) sendSetPixelFormat() error {
	e.mu.Lock()
	format := e.format
	e.mu.Unlock()

	buf := make([]byte, 4+16)
	buf[0] = msgSetPixelFormat
	copy(buf[4:], pixelFormatBytes(format))
	return e.writeLocked(buf)
}

// sendSetEncodings sends CopyRect first, then the rest of the
// preference list with CopyRect removed.
func (e *Engine) sendSetEncodings() error {
	list := e.opts.encodingList()
	ordered := make([]encodings.Encoding, 0, len(list)+1)
	ordered = append(ordered, encodings.CopyRect)
	for _, enc := range list {
		if enc == encodings.CopyRect {
			continue
		}
		ordered = append(ordered, enc)
	}

	buf := make([]byte, 4+len(ordered)*4)
	buf[0] = msgSetEncodings
	copy(buf[2:4], putUint16(uint16(len(ordered))))
	for i, enc := range ordered {
		copy(buf[4+i*4:8+i*4], putUint32(uint32(int32(enc))))
	}
	return e.writeLocked(buf)
}

// sendFramebufferUpdateRequest issues a FramebufferUpdateRequest.
func (e *Engine) sendFramebufferUpdateRequest(incremental bool, x, y, w, h int) error {
	buf := make([]byte, 10)
	buf[0] = msgFramebufferUpdateReq
	if incremental {
		buf[1] = 1
	}
	copy(buf[2:4], putUint16(uint16(x)))
	copy(buf[4:6], putUint16(uint16(y)))
	copy(buf[6:8], putUint16(uint16(w)))
	copy(buf[8:10], putUint16(uint16(h)))
	return e.writeLocked(buf)
}

// writeLocked serializes writes against concurrent input-event sends:
// KeyEvent, PointerEvent and ClientCutText each serialize their own
// writes through this.
func (e *Engine) writeLocked(p []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.chan_.WriteAll(p)
}

// Run executes the running loop until a fatal error or the caller's
// closed flag is observed. It returns the error that ended the loop,
// or nil if closed is true before a read or after a read fails.
func (e *Engine) Run(closed func() bool) error {
	for {
		if closed() {
			return nil
		}
		if err := e.runOnce(); err != nil {
			if closed() {
				return nil
			}
			e.setState(StateClosing)
			e.queue.Add(actionqueue.ErrorItem("Engine.Run", err.Error()))
			return err
		}
	}
}

func (e *Engine) runOnce() error {
	msgType, err := e.chan_.ReadUint8()
	if err != nil {
		return wrapErr(KindIO, "Engine.runOnce", "message type", err)
	}
	switch msgType {
	case msgFramebufferUpdate:
		return e.handleFramebufferUpdate()
	case msgSetColourMapEntries:
		return newErr(KindProtocol, "Engine.runOnce", "server sent SetColourMapEntries; colormap formats unsupported")
	case msgBell:
		return nil
	case msgServerCutText:
		return e.handleServerCutText()
	default:
		return newErr(KindProtocol, "Engine.runOnce", fmt.Sprintf("unknown server message type %d", msgType))
	}
}

func (e *Engine) handleServerCutText() error {
	if _, err := e.chan_.ReadExact(3); err != nil {
		return wrapErr(KindIO, "Engine.handleServerCutText", "padding", err)
	}
	text, err := e.readLengthPrefixedText()
	if err != nil {
		return wrapErr(KindIO, "Engine.handleServerCutText", "text", err)
	}
	_ = text
	return nil
}

// handleFramebufferUpdate decodes every rectangle in one update,
// pushing render operations as it goes, then issues the next request.
// A failure part-way through a rectangle fails the whole update and
// the engine closes; items already queued, including that rectangle's
// earlier ones, are left for the render thread to perform.
func (e *Engine) handleFramebufferUpdate() error {
	if _, err := e.chan_.ReadExact(1); err != nil {
		return wrapErr(KindIO, "Engine.handleFramebufferUpdate", "padding", err)
	}
	count, err := e.chan_.ReadUint16()
	if err != nil {
		return wrapErr(KindIO, "Engine.handleFramebufferUpdate", "rectangle count", err)
	}

	e.mu.Lock()
	format := e.format
	fbHeight := e.fbHeight
	e.mu.Unlock()

	for i := 0; i < int(count); i++ {
		rect, err := e.readRectangleHeader()
		if err != nil {
			return err
		}
		if rect.Encoding == encodings.DesktopSizePseudo {
			e.mu.Lock()
			e.fbWidth, e.fbHeight = int(rect.W), int(rect.H)
			fbHeight = e.fbHeight
			e.mu.Unlock()
			continue
		}
		if !rect.withinFramebuffer(uint16(e.fbWidthLocked()), uint16(fbHeight)) {
			return newErr(KindProtocol, "Engine.handleFramebufferUpdate", "rectangle exceeds framebuffer bounds")
		}
		if err := decodeRectangle(e.chan_, rect, format, fbHeight, e.queue); err != nil {
			return err
		}
	}

	if x, y, w, h, ok := e.takeNeedUpdate(); ok {
		return e.sendFramebufferUpdateRequest(false, x, y, w, h)
	}
	w, h := e.FramebufferSize()
	return e.sendFramebufferUpdateRequest(true, 0, 0, w, h)
}

func (e *Engine) fbWidthLocked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fbWidth
}

func (e *Engine) readRectangleHeader() (Rectangle, error) {
	b, err := e.chan_.ReadExact(12)
	if err != nil {
		return Rectangle{}, wrapErr(KindIO, "Engine.readRectangleHeader", "rectangle header", err)
	}
	return Rectangle{
		X:        uint16(bytesToPixel(true, b[0:2])),
		Y:        uint16(bytesToPixel(true, b[2:4])),
		W:        uint16(bytesToPixel(true, b[4:6])),
		H:        uint16(bytesToPixel(true, b[6:8])),
		Encoding: encodings.Encoding(int32(bytesToPixel(true, b[8:12]))),
	}, nil
}

// Close closes the underlying channel. Safe to call concurrently with
// Run; the next blocking read observes the socket error and Run
// returns.
func (e *Engine) Close() error {
	e.setState(StateClosing)
	e.queue.Add(actionqueue.InfoCloseStartedItem())
	err := e.chan_.Close()
	e.queue.Add(actionqueue.InfoCloseCompletedItem())
	e.setState(StateClosed)
	return err
}
