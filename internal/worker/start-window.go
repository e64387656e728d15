package worker

import (
	"context"
	"sync"
	"time"
)

// startWindow admits at most max starts in any rolling period. It keeps the
// instants of the last max admissions; a new start waits until the oldest of
// them is a full period old.
type startWindow struct {
	mu     sync.Mutex
	max    int
	period time.Duration
	starts []time.Time
	oldest int
}

func newStartWindow(max int, period time.Duration) *startWindow {
	if max < 1 {
		max = 1
	}
	return &startWindow{max: max, period: period, starts: make([]time.Time, 0, max)}
}

// Wait blocks until a start is admitted and returns the admitted instant.
func (w *startWindow) Wait(ctx context.Context) (time.Time, error) {
	for {
		w.mu.Lock()
		now := time.Now()
		if len(w.starts) < w.max {
			w.starts = append(w.starts, now)
			w.mu.Unlock()
			return now, nil
		}
		wait := w.starts[w.oldest].Add(w.period).Sub(now)
		if wait <= 0 {
			w.starts[w.oldest] = now
			w.oldest = (w.oldest + 1) % w.max
			w.mu.Unlock()
			return now, nil
		}
		w.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return time.Time{}, ctx.Err()
		case <-t.C:
		}
	}
}
