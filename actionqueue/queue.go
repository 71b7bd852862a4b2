package actionqueue

import (
	"sync"

	"github.com/rs/zerolog"
)

// Queue is the mutex-protected FIFO of action items. Add and
// RemoveNext never block; PerformQueuedActions drains until the queue
// is empty, including items added while it runs.
type Queue struct {
	mu        sync.Mutex
	items     []Item
	broadcast BroadcastChannel
	log       zerolog.Logger
}

// NewQueue constructs an empty queue. broadcast may be nil, in which
// case AddAndBroadcast behaves exactly like Add.
func NewQueue(broadcast BroadcastChannel, log zerolog.Logger) *Queue {
	return &Queue{broadcast: broadcast, log: log.With().Str("component", "actionqueue").Logger()}
}

// Add appends an item without attempting cluster replication.
func (q *Queue) Add(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// AddAndBroadcast serializes the item to the broadcast channel before
// enqueueing it locally. This ordering avoids a race where local
// consumption deletes an item mid-broadcast. Must only be called from
// the I/O thread.
func (q *Queue) AddAndBroadcast(item Item) error {
	if q.broadcast != nil {
		if err := q.broadcast.Send(item); err != nil {
			q.log.Error().Err(err).Str("item", item.Type.String()).Msg("broadcast send failed")
			return err
		}
	}
	q.Add(item)
	return nil
}

// RemoveNext pops the oldest item, if any.
func (q *Queue) RemoveNext() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len reports the number of queued-but-undrained items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// PerformQueuedActions drains the queue in FIFO order, calling
// Item.Perform against target for each one. A failing item is logged
// as an InternalError but does not halt the drain.
func (q *Queue) PerformQueuedActions(target Target) {
	for {
		item, ok := q.RemoveNext()
		if !ok {
			return
		}
		if err := item.Perform(target); err != nil {
			q.log.Error().Err(err).Str("item", item.Type.String()).Msg("action item failed")
			if target.Sink != nil {
				target.Sink.InternalError("actionqueue.PerformQueuedActions", err.Error())
			}
		}
	}
}

// Drain discards every queued item without performing it. Intended
// for use when the queue's owner is shutting down.
func (q *Queue) Drain() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
