package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/prepd/internal/model"
)

// emitter wraps the output channel with the keepalive cadence: a
// background ticker watches time since the last event and injects a
// synthetic keepalive whenever the gap would otherwise exceed
// keepaliveInterval (spec.md §4.10).
type emitter struct {
	out chan model.StreamEvent

	mu   sync.Mutex
	last time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

func newEmitter(out chan model.StreamEvent) *emitter {
	e := &emitter{out: out, last: time.Now(), done: make(chan struct{})}
	e.wg.Add(1)
	go e.keepaliveLoop()
	return e
}

func (e *emitter) keepaliveLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			idle := time.Since(e.last)
			e.mu.Unlock()
			if idle >= keepaliveInterval {
				select {
				case e.out <- model.KeepaliveEvent:
					e.touch()
				case <-e.done:
					return
				}
			}
		case <-e.done:
			return
		}
	}
}

func (e *emitter) touch() {
	e.mu.Lock()
	e.last = time.Now()
	e.mu.Unlock()
}

// send delivers ev, returning false if ctx was already cancelled or is
// cancelled before the consumer accepts it. Checking ctx.Err() up front
// (rather than relying solely on select's pseudo-random tie-break between
// a ready channel and a ready Done()) makes cancellation deterministic:
// once the consumer disconnects, no further stage is ever entered.
func (e *emitter) send(ctx context.Context, ev model.StreamEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case e.out <- ev:
		e.touch()
		return true
	case <-ctx.Done():
		return false
	}
}

// progress is a convenience wrapper building and sending a progress event.
func (e *emitter) progress(ctx context.Context, stage model.StreamStage, message string, percent int) bool {
	return e.send(ctx, model.NewProgressEvent(stage, message, percent))
}

// stop shuts down the keepalive goroutine and waits for it to exit, so the
// caller's deferred close(out) never races with a keepalive send.
func (e *emitter) stop() {
	close(e.done)
	e.wg.Wait()
}
