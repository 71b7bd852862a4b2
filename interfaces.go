package rfbcore

import "github.com/quartzvnc/rfbcore/actionqueue"

// MessageSink, PasswordProvider and RenderTarget are the three host
// collaborators the core consumes. They are defined in actionqueue,
// which also needs them
// for Item.Perform; aliased here so a host only importing the root
// package never has to name the actionqueue package directly.
type (
	MessageSink        = actionqueue.MessageSink
	PasswordProvider   = actionqueue.PasswordProvider
	PasswordCompletion = actionqueue.PasswordCompletion
	RenderTarget       = actionqueue.RenderTarget
)

// Target bundles the three collaborators for Session.Drain /
// NewSession.
type Target = actionqueue.Target
