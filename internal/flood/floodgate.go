// Package flood caps how many comparisons a user may start per minute.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window for submission counting
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle users are forgotten
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a user may stay quiet before being forgotten
	idleTimeout = 10 * time.Minute
)

// Floodgate is a per-user sliding window rate limiter. A non-positive
// limit disables it.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*userEntry // Key: user id
	mutex          sync.RWMutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type userEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate and starts its background cleanup.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*userEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup. It is safe to call more than once.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow records a submission by userID and reports whether it is within the limit.
func (fg *Floodgate) Allow(userID string) bool {
	if fg.limitPerMinute <= 0 {
		return true
	}
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[userID]
	if !exists {
		entry = &userEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[userID] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// ActiveUsers returns how many users the limiter is currently tracking.
func (fg *Floodgate) ActiveUsers() int {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return len(fg.entries)
}
