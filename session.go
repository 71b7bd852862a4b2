package rfbcore

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/quartzvnc/rfbcore/actionqueue"
)

// Session is the session controller: it owns the protocol engine and
// the action queue, runs the I/O thread, and
// drives the render-thread drain on the caller's behalf.
type Session struct {
	ID uuid.UUID

	engine *Engine
	queue  *actionqueue.Queue
	log    zerolog.Logger

	target actionqueue.Target

	wg     conc.WaitGroup
	closed atomic.Bool
	runErr atomic.Value // error
}

// NewSession constructs a session controller around an already-dialed
// Engine and its Queue, bound to target's host collaborators for
// PerformQueuedActions.
func NewSession(engine *Engine, queue *actionqueue.Queue, target actionqueue.Target, log zerolog.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:     id,
		engine: engine,
		queue:  queue,
		target: target,
		log:    log.With().Str("component", "rfbcore.session").Str("session_id", id.String()).Logger(),
	}
}

// Start launches the handshake, auth handshake and I/O thread in the
// background and returns immediately: one I/O thread per session. VNC
// auth blocks on the caller servicing a queued GetPassword action item
// through Drain, so the handshake/auth/init sequence cannot run on the
// caller's own goroutine without deadlocking a caller that follows the
// documented Start-then-periodically-Drain usage. Failures during
// handshake, auth or init are reported through the action queue (see
// fail) and observed on the next Drain, or by polling State.
func (s *Session) Start(passwordProvider actionqueue.PasswordProvider) {
	s.wg.Go(func() {
		if err := s.engine.Handshake(); err != nil {
			s.fail(err)
			return
		}
		if err := s.engine.Authenticate(passwordProvider); err != nil {
			s.fail(err)
			return
		}
		if err := s.engine.InitSession(); err != nil {
			s.fail(err)
			return
		}

		if err := s.engine.Run(s.closed.Load); err != nil {
			s.runErr.Store(err)
			s.log.Error().Err(err).Msg("protocol engine stopped")
		}
	})
}

func (s *Session) fail(err error) error {
	s.queue.Add(actionqueue.ErrorItem("Session.Start", err.Error()))
	s.log.Error().Err(err).Msg("session failed to start")
	return err
}

// Drain runs one render-thread pass: perform every queued action item
// against the session's Target. The host is expected to call this
// periodically from its own render thread.
func (s *Session) Drain() {
	s.queue.PerformQueuedActions(s.target)
}

// Stop closes the engine, waits briefly for slave replicas to observe
// InfoCloseCompleted over the broadcast channel, then joins the I/O
// thread. Safe to call once.
func (s *Session) Stop() error {
	s.closed.Store(true)
	err := s.engine.Close()
	time.Sleep(250 * time.Millisecond)
	s.wg.Wait()
	if runErr, ok := s.runErr.Load().(error); ok {
		return runErr
	}
	return err
}

// State reports the underlying engine's current state.
func (s *Session) State() State {
	return s.engine.State()
}

// Engine exposes the underlying protocol engine for input delivery
// (KeyEvent/PointerEvent/ClientCutText/TypeString), and for NeedUpdate
// calls from the host render loop.
func (s *Session) Engine() *Engine {
	return s.engine
}
