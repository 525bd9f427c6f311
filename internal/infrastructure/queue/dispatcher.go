package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// RefreshFunc re-fetches one order into the cache.
type RefreshFunc func(ctx context.Context, orderID string) error

// Dispatcher fans order refreshes out to a fixed set of workers using
// consistent hashing on the order id, so refreshes for the same order never
// run concurrently or out of order while different orders refresh in parallel.
type Dispatcher struct {
	workers []chan string
	refresh RefreshFunc
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, refresh RefreshFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		refresh: refresh,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends an order id to the worker responsible for it.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(orderID string) {
	d.workers[d.shardIndex(orderID)] <- orderID
}

// EnqueueBatch enqueues multiple order ids preserving per-order ordering.
func (d *Dispatcher) EnqueueBatch(orderIDs []string) {
	for _, id := range orderIDs {
		d.Enqueue(id)
	}
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case orderID, ok := <-ch:
			if !ok {
				return
			}
			if err := d.refresh(ctx, orderID); err != nil {
				d.log.Error().Err(err).
					Str("order_id", orderID).
					Int("worker_id", id).
					Msg("order refresh failed")
			}
		}
	}
}
