package actionqueue

// MessageSink is the host-provided status/error reporting interface.
type MessageSink interface {
	InternalError(where, msg string)
	Error(where, msg string)
	ErrorFromServer(where, msg string)
	InfoServerInitStarted()
	InfoProtocolVersion(sMajor, sMinor, cMajor, cMinor int)
	InfoAuthResult(ok bool, scheme, result uint32)
	InfoServerInitCompleted(ok bool)
	InfoCloseStarted()
	InfoCloseCompleted()
}

// PasswordProvider is the host-provided asynchronous password
// retrieval interface. GetPassword is invoked on the render thread;
// the host calls completion.Post asynchronously, possibly from any
// goroutine.
type PasswordProvider interface {
	GetPassword(completion PasswordCompletion)
}

// RenderTarget is the host-provided render-target interface. w/h are
// framebuffer pixel dimensions; fillRGB seeds every tile with a
// neutral colour on Init.
type RenderTarget interface {
	Init(w, h int, fillRGB RGB24) bool
	Close()
	Write(destX, destY, w, h int, pixelsRGB24 []byte)
	Copy(destX, destY, w, h, srcX, srcY int)
	Fill(x, y, w, h int, colour RGB24)
	DrawInQuad(x00, y00, z00, x10, y10, z10, x11, y11, z11 float64)
	MaxTileProbe(w, h int) bool
}

// Target bundles the three host collaborators an Item.Perform needs.
type Target struct {
	Render   RenderTarget
	Sink     MessageSink
	Password PasswordProvider
}

// Perform executes one action item's pure effect against the target
// collaborators. A GetPassword item whose host has no
// PasswordProvider, or whose host declines, is not treated as fatal.
func (it Item) Perform(t Target) error {
	switch it.Type {
	case TypeGetPassword:
		if t.Password != nil && it.Completion != nil {
			t.Password.GetPassword(it.Completion)
		} else if it.Completion != nil {
			it.Completion.Post(nil)
		}
		return nil
	case TypeInitDisplay:
		fill := RGB24{R: 0x40, G: 0x40, B: 0x40}
		ok := t.Render.Init(int(it.Init.Width), int(it.Init.Height), fill)
		if t.Sink != nil {
			t.Sink.InfoServerInitCompleted(ok)
		}
		if !ok {
			return errResourceInitFailed
		}
		return nil
	case TypeWrite:
		t.Render.Write(it.DestX, it.DestY, it.W, it.H, it.Pixels)
		return nil
	case TypeCopy:
		t.Render.Copy(it.DestX, it.DestY, it.W, it.H, it.SrcX, it.SrcY)
		return nil
	case TypeFill:
		t.Render.Fill(it.DestX, it.DestY, it.W, it.H, it.Colour)
		return nil
	case TypeInternalError:
		if t.Sink != nil {
			t.Sink.InternalError(it.Where, it.Msg)
		}
		return nil
	case TypeError:
		if t.Sink != nil {
			t.Sink.Error(it.Where, it.Msg)
		}
		return nil
	case TypeErrorFromServer:
		if t.Sink != nil {
			t.Sink.ErrorFromServer(it.Where, it.Msg)
		}
		return nil
	case TypeInfoServerInitStarted:
		if t.Sink != nil {
			t.Sink.InfoServerInitStarted()
		}
		return nil
	case TypeInfoProtocolVersion:
		if t.Sink != nil {
			t.Sink.InfoProtocolVersion(it.ServerMajor, it.ServerMinor, it.ClientMajor, it.ClientMinor)
		}
		return nil
	case TypeInfoAuthResult:
		if t.Sink != nil {
			t.Sink.InfoAuthResult(it.AuthOK, it.AuthScheme, it.AuthResult)
		}
		return nil
	case TypeInfoServerInitCompleted:
		if t.Sink != nil {
			t.Sink.InfoServerInitCompleted(it.InitOK)
		}
		return nil
	case TypeInfoCloseStarted:
		if t.Sink != nil {
			t.Sink.InfoCloseStarted()
		}
		return nil
	case TypeInfoCloseCompleted:
		if t.Sink != nil {
			t.Sink.InfoCloseCompleted()
		}
		return nil
	default:
		return errUnknownItemType
	}
}
