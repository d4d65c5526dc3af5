package flood

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestFloodgate(t *testing.T, limit int) (*Floodgate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	fg := New(limit)
	fg.now = clock.Now
	t.Cleanup(fg.Stop)
	return fg, clock
}

func TestFloodgate_Allow_AllowsNormalUsage(t *testing.T) {
	fg, _ := newTestFloodgate(t, 3)

	for i := 0; i < 3; i++ {
		require.True(t, fg.Allow("user-1"), "submission %d should be allowed", i+1)
	}

	assert.False(t, fg.Allow("user-1"), "4th submission within a minute should be blocked")
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg, clock := newTestFloodgate(t, 2)

	require.True(t, fg.Allow("user-1"))
	clock.Advance(30 * time.Second)
	require.True(t, fg.Allow("user-1"))
	require.False(t, fg.Allow("user-1"))

	// First timestamp leaves the window, second one is still inside.
	clock.Advance(31 * time.Second)
	assert.True(t, fg.Allow("user-1"), "allowed once the oldest leaves the window")
	assert.False(t, fg.Allow("user-1"), "window should be full again")
}

func TestFloodgate_Allow_PerUser(t *testing.T) {
	fg, _ := newTestFloodgate(t, 1)

	require.True(t, fg.Allow("user-1"))
	require.True(t, fg.Allow("user-2"), "different users have separate windows")
	assert.False(t, fg.Allow("user-1"))
	assert.False(t, fg.Allow("user-2"))
}

func TestFloodgate_DisabledLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		fg, _ := newTestFloodgate(t, limit)
		for i := 0; i < 100; i++ {
			require.True(t, fg.Allow("user-1"), "limit %d: submission %d", limit, i+1)
		}
		assert.Zero(t, fg.ActiveUsers(), "a disabled limiter tracks nobody")
	}
}

func TestFloodgate_ActiveUsersAndCleanup(t *testing.T) {
	fg, clock := newTestFloodgate(t, 5)

	fg.Allow("user-1")
	fg.Allow("user-2")
	fg.Allow("user-2")
	assert.Equal(t, 2, fg.ActiveUsers())

	clock.Advance(idleTimeout + time.Second)
	fg.Allow("user-3")
	fg.performCleanup()

	assert.Equal(t, 1, fg.ActiveUsers(), "idle users are forgotten")
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg, _ := newTestFloodgate(t, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if fg.Allow("user-1") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestFloodgate_StopIsIdempotent(t *testing.T) {
	fg := New(1)
	assert.NotPanics(t, func() {
		fg.Stop()
		fg.Stop()
	})
}
