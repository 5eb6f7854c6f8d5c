// Package dispatch runs jobs one at a time per key while different keys run
// concurrently. A key's worker goroutine exits as soon as its queue drains.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Errors returned by Submit.
var (
	ErrClosed    = errors.New("dispatcher closed")
	ErrQueueFull = errors.New("too many pending jobs for key")
)

// DefaultMaxPending bounds the backlog of a single key.
const DefaultMaxPending = 32

// Job is one unit of work for a key.
type Job func(ctx context.Context)

// Dispatcher serializes jobs per key.
type Dispatcher struct {
	ctx        context.Context
	log        *zap.Logger
	maxPending int

	mu     sync.Mutex
	queues map[string][]Job // present while a worker runs for the key
	closed bool
	wg     sync.WaitGroup
}

// New returns a dispatcher whose jobs receive ctx.
func New(ctx context.Context, log *zap.Logger, maxPending int) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Dispatcher{
		ctx:        ctx,
		log:        log,
		maxPending: maxPending,
		queues:     make(map[string][]Job),
	}
}

// Submit queues job behind any pending jobs for key.
func (d *Dispatcher) Submit(key string, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	q, running := d.queues[key]
	if len(q) >= d.maxPending {
		return fmt.Errorf("%w %s", ErrQueueFull, key)
	}
	d.queues[key] = append(q, job)
	if !running {
		d.wg.Add(1)
		go d.work(key)
	}
	return nil
}

func (d *Dispatcher) work(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := q[0]
		q[0] = nil
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.run(key, job)
	}
}

func (d *Dispatcher) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("job panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	job(d.ctx)
}

// Active returns the number of keys with a running worker.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
