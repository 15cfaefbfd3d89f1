// Package viewscounter batches page view increments in memory and flushes
// them to storage periodically, so following a page link never waits on a
// counter update.
package viewscounter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patric-chuzhbe/rango/internal/logger"
)

var ErrStopped = errors.New("views counter is stopped")

type viewsKeeper interface {
	IncrementPageViews(ctx context.Context, views map[int64]int64) error
}

type ViewsCounter struct {
	queue         chan int64
	db            viewsKeeper
	flushInterval time.Duration
	errorChannel  chan error
	done          chan struct{}

	// mu is held for reading by every Enqueue in flight; the loop takes it
	// for writing to set stopped, so no send can land after the last drain.
	mu      sync.RWMutex
	stopped bool
}

func New(
	db viewsKeeper,
	channelCapacity int,
	flushInterval time.Duration,
) *ViewsCounter {
	return &ViewsCounter{
		db:            db,
		queue:         make(chan int64, channelCapacity),
		flushInterval: flushInterval,
		errorChannel:  make(chan error, channelCapacity),
		done:          make(chan struct{}),
	}
}

// ListenErrors passes every failed flush to callback. The listening
// goroutine ends once the counter has stopped.
func (c *ViewsCounter) ListenErrors(callback func(error)) {
	go func() {
		for err := range c.errorChannel {
			callback(err)
		}
	}()
}

// Enqueue schedules one view of the page. A nil error means the view will
// be part of a flush.
func (c *ViewsCounter) Enqueue(ctx context.Context, pageID int64) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stopped {
		return ErrStopped
	}

	select {
	case c.queue <- pageID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the flushing loop. When ctx is cancelled whatever is still
// queued is flushed once and the loop exits.
func (c *ViewsCounter) Run(ctx context.Context) {
	go func() {
		defer close(c.done)
		defer close(c.errorChannel)

		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		pending := map[int64]int64{}

		for {
			select {
			case pageID := <-c.queue:
				pending[pageID]++
			case <-ticker.C:
				pending = c.flush(ctx, pending)
			case <-ctx.Done():
				c.stop(pending)
				c.flush(context.WithoutCancel(ctx), pending)
				return
			}
		}
	}()
}

// stop marks the counter stopped and collects everything enqueued before.
// Enqueue calls blocked on a full queue are served while waiting for the lock.
func (c *ViewsCounter) stop(pending map[int64]int64) {
	locked := make(chan struct{})
	go func() {
		c.mu.Lock()
		c.stopped = true
		close(locked)
	}()

	for {
		select {
		case pageID := <-c.queue:
			pending[pageID]++
		case <-locked:
			c.drain(pending)
			c.mu.Unlock()
			return
		}
	}
}

// Wait blocks until the loop started by Run has exited.
func (c *ViewsCounter) Wait() {
	<-c.done
}

func (c *ViewsCounter) drain(pending map[int64]int64) {
	for {
		select {
		case pageID := <-c.queue:
			pending[pageID]++
		default:
			return
		}
	}
}

// flush returns the views that still have to be written.
func (c *ViewsCounter) flush(ctx context.Context, pending map[int64]int64) map[int64]int64 {
	if len(pending) == 0 {
		return pending
	}

	err := c.db.IncrementPageViews(ctx, pending)
	if err != nil {
		select {
		case c.errorChannel <- err:
		default:
			logger.Log.Errorw("views counter error channel is full", "error", err)
		}
		return pending
	}
	logger.Log.Debugf("flushed views of %d pages", len(pending))

	return map[int64]int64{}
}
