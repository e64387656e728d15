package worker

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxInWindow reports the largest number of instants falling in any
// half-open window [t, t+period).
func maxInWindow(starts []time.Time, period time.Duration) int {
	sorted := append([]time.Time(nil), starts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	peak := 0
	for i := range sorted {
		n := 0
		for j := i; j < len(sorted) && sorted[j].Sub(sorted[i]) < period; j++ {
			n++
		}
		if n > peak {
			peak = n
		}
	}
	return peak
}

func TestStartWindow_NeverAdmitsMoreThanMaxPerPeriod(t *testing.T) {
	w := newStartWindow(5, 200*time.Millisecond)

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				at, err := w.Wait(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				starts = append(starts, at)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, starts, 20)
	assert.Equal(t, 5, maxInWindow(starts, 200*time.Millisecond))
}

func TestStartWindow_WaitHonoursCancellation(t *testing.T) {
	w := newStartWindow(1, time.Hour)
	_, err := w.Wait(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = w.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
