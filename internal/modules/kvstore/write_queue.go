package kvstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// WriteQueue performs writes in the background, in submission order per key. Writes to
// different keys proceed independently. A failed write is reported to the error callback
// and dropped; later writes to the same key still run.
type WriteQueue struct {
	store   Store
	onError func(key string, err error)
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string][]write
	active  map[string]bool
	// inflight counts writes scheduled but not yet attempted. idle is closed and replaced
	// whenever it drops to zero.
	inflight int
	idle     chan struct{}
}

type write struct {
	ctx    context.Context
	key    string
	value  string
	delete bool
}

// NewWriteQueue creates a queue writing to store. onError may be nil.
func NewWriteQueue(store Store, onError func(key string, err error), log zerolog.Logger) *WriteQueue {
	return &WriteQueue{
		store:   store,
		onError: onError,
		log:     log.With().Str("service", "write_queue").Logger(),
		pending: make(map[string][]write),
		active:  make(map[string]bool),
		idle:    make(chan struct{}),
	}
}

// Set schedules a write of key. Values attached to ctx (such as the origin) are kept;
// its cancellation is not, since the write outlives the caller.
func (q *WriteQueue) Set(ctx context.Context, key, value string) {
	q.enqueue(write{ctx: context.WithoutCancel(ctx), key: key, value: value})
}

// Delete schedules the removal of key.
func (q *WriteQueue) Delete(ctx context.Context, key string) {
	q.enqueue(write{ctx: context.WithoutCancel(ctx), key: key, delete: true})
}

func (q *WriteQueue) enqueue(w write) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inflight++
	q.pending[w.key] = append(q.pending[w.key], w)
	if !q.active[w.key] {
		q.active[w.key] = true
		go q.drain(w.key)
	}
}

// drain runs the queued writes of key until none are left.
func (q *WriteQueue) drain(key string) {
	for {
		q.mu.Lock()
		queue := q.pending[key]
		if len(queue) == 0 {
			delete(q.pending, key)
			delete(q.active, key)
			q.mu.Unlock()
			return
		}
		w := queue[0]
		q.pending[key] = queue[1:]
		q.mu.Unlock()

		q.apply(w)
		q.done()
	}
}

// done marks one write as attempted and wakes Flush callers once nothing is in flight.
func (q *WriteQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
		q.idle = make(chan struct{})
	}
}

func (q *WriteQueue) apply(w write) {
	var err error
	if w.delete {
		err = q.store.Delete(w.ctx, w.key)
	} else {
		err = q.store.Set(w.ctx, w.key, w.value)
	}
	if err == nil {
		return
	}

	q.log.Warn().Err(err).Str("key", w.key).Msg("Background write failed")
	if q.onError != nil {
		q.onError(w.key, err)
	}
}

// Flush blocks until every write scheduled so far has been attempted, or ctx is done.
// Writes scheduled while waiting are waited for as well.
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.inflight == 0 {
		q.mu.Unlock()
		return nil
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
