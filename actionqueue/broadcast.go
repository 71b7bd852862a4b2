package actionqueue

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// BroadcastChannel is the reliable, ordered fan-out channel used to
// replicate action items to slave sessions. Send is called only from
// the I/O thread, once per item, in enqueue order.
type BroadcastChannel interface {
	Send(item Item) error
	Close() error
}

// NoopBroadcast discards every item; it is the default when a session
// has no slave replicas.
type NoopBroadcast struct{}

func (NoopBroadcast) Send(Item) error { return nil }
func (NoopBroadcast) Close() error    { return nil }

// NatsBroadcast publishes each action item to a NATS subject, one
// session per subject. It is grounded on helixml-helix's
// api/pkg/pubsub Publisher/PubSub shape: a thin wrapper over
// *nats.Conn, owned by the Queue it is passed to.
type NatsBroadcast struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewNatsBroadcast wires a broadcast channel to an existing NATS
// connection and subject. The caller owns the connection's lifecycle;
// Close only flushes, it does not close conn.
func NewNatsBroadcast(conn *nats.Conn, subject string, log zerolog.Logger) *NatsBroadcast {
	return &NatsBroadcast{conn: conn, subject: subject, log: log.With().Str("component", "actionqueue.broadcast").Logger()}
}

// Send encodes and publishes one item.
func (b *NatsBroadcast) Send(item Item) error {
	payload, err := Encode(item)
	if err != nil {
		return fmt.Errorf("actionqueue: encode %s: %w", item.Type, err)
	}
	if err := b.conn.Publish(b.subject, payload); err != nil {
		return fmt.Errorf("actionqueue: publish %s: %w", item.Type, err)
	}
	return nil
}

// Close flushes any buffered publishes.
func (b *NatsBroadcast) Close() error {
	return b.conn.Flush()
}

// Subscribe starts consuming items published to subject, invoking
// handler for each decoded item. The returned nats.Subscription can
// be unsubscribed by the caller; decode failures are logged and
// skipped rather than killing the subscription, since a single
// corrupt message must not stop a slave replica from following later,
// well-formed ones.
func Subscribe(conn *nats.Conn, subject string, log zerolog.Logger, handler func(Item)) (*nats.Subscription, error) {
	return conn.Subscribe(subject, func(msg *nats.Msg) {
		item, err := Decode(msg.Data)
		if err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to decode broadcast item")
			return
		}
		handler(item)
	})
}
