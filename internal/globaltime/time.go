// Package globaltime is the process clock. Retention cutoffs and
// generated_at stamps read it so tests can freeze time.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	clock = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return clock()
}

func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock at t until the returned restore func runs.
func Freeze(t time.Time) (restore func()) {
	mu.Lock()
	prev := clock
	clock = func() time.Time { return t }
	mu.Unlock()

	return func() {
		mu.Lock()
		clock = prev
		mu.Unlock()
	}
}
