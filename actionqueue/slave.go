package actionqueue

import (
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SlaveReplica subscribes to a master's broadcast subject and replays
// each decoded item onto a local Queue, reconstructing the master's
// session state without talking to the RFB server itself. It exits
// once it observes an InfoCloseCompleted item.
type SlaveReplica struct {
	queue *Queue
	sub   *nats.Subscription
	log   zerolog.Logger
	done  chan struct{}
}

// NewSlaveReplica subscribes conn to subject and starts feeding decoded
// items into queue. The caller drains queue (e.g. via
// PerformQueuedActions) from its own render thread; NewSlaveReplica
// never calls Perform itself.
func NewSlaveReplica(conn *nats.Conn, subject string, queue *Queue, log zerolog.Logger) (*SlaveReplica, error) {
	s := &SlaveReplica{
		queue: queue,
		log:   log.With().Str("component", "actionqueue.slave").Logger(),
		done:  make(chan struct{}),
	}

	sub, err := Subscribe(conn, subject, s.log, s.onItem)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

func (s *SlaveReplica) onItem(item Item) {
	select {
	case <-s.done:
		return
	default:
	}
	s.queue.Add(item)
	if item.Type == TypeInfoCloseCompleted {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	}
}

// Done returns a channel closed once the replica has observed the
// master's InfoCloseCompleted item.
func (s *SlaveReplica) Done() <-chan struct{} {
	return s.done
}

// Close unsubscribes from the broadcast subject. It does not drain or
// perform any remaining queued items.
func (s *SlaveReplica) Close() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}
