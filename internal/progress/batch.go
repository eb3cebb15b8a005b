package progress

import "time"

// batcher accumulates events until either the size limit is hit or the
// oldest buffered event has waited maxWait. It is owned by the hub goroutine.
type batcher struct {
	events  []Event
	max     int
	maxWait time.Duration
	timer   *time.Timer
	armed   bool
}

func newBatcher(limit int, maxWait time.Duration) *batcher {
	t := time.NewTimer(maxWait)
	t.Stop()
	return &batcher{
		events:  make([]Event, 0, limit),
		max:     limit,
		maxWait: maxWait,
		timer:   t,
	}
}

// add buffers evt and reports whether the batch is full.
func (b *batcher) add(evt Event) bool {
	b.events = append(b.events, evt)
	if len(b.events) >= b.max {
		return true
	}
	if !b.armed {
		b.timer.Reset(b.maxWait)
		b.armed = true
	}
	return false
}

// due fires when the current batch has waited long enough. A nil channel is
// returned while nothing is buffered so select skips it.
func (b *batcher) due() <-chan time.Time {
	if !b.armed {
		return nil
	}
	return b.timer.C
}

// take hands off the buffered events and disarms the timer. The returned
// slice is not reused by the batcher.
func (b *batcher) take() []Event {
	b.stop()
	if len(b.events) == 0 {
		return nil
	}
	out := b.events
	b.events = make([]Event, 0, b.max)
	return out
}

func (b *batcher) stop() {
	if !b.armed {
		return
	}
	if !b.timer.Stop() {
		select {
		case <-b.timer.C:
		default:
		}
	}
	b.armed = false
}
