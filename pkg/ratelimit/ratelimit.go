// Package ratelimit implements a per-user sliding-window limiter for code
// submissions. State is process-local; a background sweep evicts entries of
// users that went idle so the map stays bounded over long process lifetimes.
package ratelimit

import (
	"sync"
	"time"
)

type SlidingWindow struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[int][]time.Time

	stop chan struct{}
	once sync.Once
}

// New builds a limiter allowing max events per key over the trailing window
// and starts the idle-entry sweeper.
func New(max int, window time.Duration) *SlidingWindow {
	l := &SlidingWindow{
		max:    max,
		window: window,
		now:    time.Now,
		hits:   make(map[int][]time.Time),
		stop:   make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow prunes timestamps older than the window, then either records the new
// event and returns true, or returns false when the pruned count has reached
// the cap.
func (l *SlidingWindow) Allow(key int) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

func (l *SlidingWindow) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Keys reports how many keys currently hold state.
func (l *SlidingWindow) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func (l *SlidingWindow) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *SlidingWindow) evictIdle() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}
