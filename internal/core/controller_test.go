package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubComparer struct {
	mu      sync.Mutex
	calls   int
	urls    []string
	users   []string
	result  *ComparisonResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubComparer) Compare(_ context.Context, userID, youtubeURL string) (*ComparisonResult, error) {
	s.mu.Lock()
	s.calls++
	s.urls = append(s.urls, youtubeURL)
	s.users = append(s.users, userID)
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubComparer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubHistory struct {
	mu     sync.Mutex
	loads  int
	items  []HistoryItem
	onLoad func()
}

func (s *stubHistory) Load(_ context.Context, _ string, _ int) []HistoryItem {
	if s.onLoad != nil {
		s.onLoad()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.items
}

func (s *stubHistory) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func newTestController(comparer Comparer, history HistoryLoader) *Controller {
	return NewController(ControllerOptions{
		Comparer: comparer,
		History:  history,
		Logger:   zap.NewNop(),
	})
}

func testUser() *User {
	u := NewUser("user-1", "user@example.com", "")
	return &u
}

func waitStarted(t *testing.T, comparer *stubComparer) {
	t.Helper()
	select {
	case <-comparer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("submission never reached the backend")
	}
}

func TestControllerValidationWarnings(t *testing.T) {
	tests := []struct {
		name     string
		user     *User
		input    string
		expected error
	}{
		{"no user", nil, "https://youtu.be/abc", ErrNotAuthenticated},
		{"empty input", testUser(), "   ", ErrEmptyLink},
		{"spotify link", testUser(), "https://open.spotify.com/track/xyz", ErrInvalidLink},
		{"garbage", testUser(), "not a url at all", ErrInvalidLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparer := &stubComparer{}
			ctrl := newTestController(comparer, &stubHistory{})
			ctrl.SetUser(tt.user)
			ctrl.SetInput(tt.input)

			assert.False(t, ctrl.CanSubmit())

			result, err := ctrl.Submit(context.Background())
			require.ErrorIs(t, err, tt.expected)
			assert.Nil(t, result)
			assert.Zero(t, comparer.callCount(), "validation failures never reach the backend")
			assert.ErrorIs(t, ctrl.Snapshot().Warning, tt.expected)
		})
	}
}

func TestControllerSubmitSuccess(t *testing.T) {
	comparer := &stubComparer{result: &ComparisonResult{
		MatchedTitle: "Matched Song",
		MatchedURL:   "https://youtu.be/match",
		Similarity:   0.873,
	}}
	history := &stubHistory{items: []HistoryItem{{ID: "1", MatchedTitle: "Matched Song"}}}
	ctrl := newTestController(comparer, history)
	ctrl.SetUser(testUser())
	ctrl.SetInput("  https://www.youtube.com/watch?v=abc123  ")

	require.True(t, ctrl.CanSubmit())

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "87.3%", result.SimilarityPercent())
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=abc123"}, comparer.urls)
	assert.Equal(t, []string{"user-1"}, comparer.users)

	view := ctrl.Snapshot()
	assert.Equal(t, StateSuccess, view.State)
	require.NotNil(t, view.Result)
	assert.Equal(t, "Matched Song", view.Result.MatchedTitle)
	assert.NoError(t, view.Failure)
	assert.Equal(t, 1, history.loadCount())
	assert.Len(t, view.History, 1)
}

func TestControllerSubmitReturnsItsOwnResult(t *testing.T) {
	comparer := &stubComparer{result: &ComparisonResult{MatchedTitle: "Song", Similarity: 0.5}}
	history := &stubHistory{}
	ctrl := newTestController(comparer, history)
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")

	// Another request on the session edits the input before Submit returns.
	history.onLoad = func() { ctrl.SetInput("https://youtu.be/next") }

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Song", result.MatchedTitle)
	assert.Nil(t, ctrl.Snapshot().Result, "the edit cleared the stored result")
}

func TestControllerRefreshRunsAfterSuccessHandler(t *testing.T) {
	comparer := &stubComparer{result: &ComparisonResult{MatchedTitle: "Song", Similarity: 0.5}}
	history := &stubHistory{}
	ctrl := newTestController(comparer, history)

	var stateDuringLoad State
	var resultDuringLoad *ComparisonResult
	history.onLoad = func() {
		view := ctrl.Snapshot()
		stateDuringLoad = view.State
		resultDuringLoad = view.Result
	}

	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, stateDuringLoad, "history refresh started before the result was stored")
	assert.NotNil(t, resultDuringLoad)
}

func TestControllerSubmitFailure(t *testing.T) {
	backendErr := errors.New("backend exploded")
	comparer := &stubComparer{err: backendErr}
	history := &stubHistory{}
	ctrl := newTestController(comparer, history)
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://music.youtube.com/watch?v=abc")

	result, err := ctrl.Submit(context.Background())
	require.ErrorIs(t, err, backendErr)
	assert.Nil(t, result)

	view := ctrl.Snapshot()
	assert.Equal(t, StateFailure, view.State)
	assert.Nil(t, view.Result)
	assert.Zero(t, history.loadCount(), "history must not refresh after a failure")
	assert.Equal(t, 1, comparer.callCount(), "no retry")
}

func TestControllerNilResultIsAFailure(t *testing.T) {
	ctrl := newTestController(&stubComparer{}, &stubHistory{})
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")

	_, err := ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailure, ctrl.Snapshot().State)
}

func TestControllerRejectsConcurrentSubmission(t *testing.T) {
	comparer := &stubComparer{
		result:  &ComparisonResult{MatchedTitle: "Song"},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	ctrl := newTestController(comparer, &stubHistory{})
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background())
		done <- err
	}()
	waitStarted(t, comparer)

	assert.False(t, ctrl.CanSubmit(), "CanSubmit must be false while a submission is pending")
	_, err := ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionPending)

	ctrl.SetInput("https://youtu.be/other")
	assert.Equal(t, "https://youtu.be/abc", ctrl.Snapshot().Input, "input is locked during submission")

	close(comparer.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, comparer.callCount())
}

func TestControllerDiscardsResultWhenUserChanges(t *testing.T) {
	tests := []struct {
		name string
		next *User
	}{
		{"other user signs in", &User{ID: "user-2", Email: "bob@example.com", Name: "bob"}},
		{"user signs out", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparer := &stubComparer{
				result:  &ComparisonResult{MatchedTitle: "private match"},
				started: make(chan struct{}, 1),
				release: make(chan struct{}),
			}
			history := &stubHistory{}
			ctrl := newTestController(comparer, history)
			ctrl.SetUser(testUser())
			ctrl.SetInput("https://youtu.be/abc")

			done := make(chan error, 1)
			go func() {
				result, err := ctrl.Submit(context.Background())
				assert.Nil(t, result)
				done <- err
			}()
			waitStarted(t, comparer)

			ctrl.SetUser(tt.next)
			close(comparer.release)
			require.ErrorIs(t, <-done, ErrUserChanged)

			view := ctrl.Snapshot()
			assert.Equal(t, StateIdle, view.State)
			assert.Nil(t, view.Result, "a result must never surface for another user")
			assert.NoError(t, view.Failure)
			assert.Zero(t, history.loadCount(), "no history refresh for the previous user")
		})
	}
}

func TestControllerNewInputClearsResult(t *testing.T) {
	comparer := &stubComparer{result: &ComparisonResult{MatchedTitle: "Song"}}
	ctrl := newTestController(comparer, &stubHistory{})
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")
	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)

	ctrl.SetInput("https://youtu.be/def")
	view := ctrl.Snapshot()
	assert.Nil(t, view.Result)
	assert.Equal(t, StateValidating, view.State)

	ctrl.SetInput("")
	assert.Equal(t, StateIdle, ctrl.Snapshot().State)
}

func TestControllerRateLimited(t *testing.T) {
	comparer := &stubComparer{result: &ComparisonResult{}}
	ctrl := NewController(ControllerOptions{
		Comparer: comparer,
		History:  &stubHistory{},
		Limiter:  denyLimiter{},
	})
	ctrl.SetUser(testUser())
	ctrl.SetInput("https://youtu.be/abc")

	_, err := ctrl.Submit(context.Background())
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, comparer.callCount(), "rate limited submission must not reach the backend")
}

func TestControllerEnsureHistoryLoadsOnce(t *testing.T) {
	history := &stubHistory{}
	ctrl := newTestController(&stubComparer{}, history)
	ctrl.SetUser(testUser())

	ctrl.EnsureHistory(context.Background())
	ctrl.EnsureHistory(context.Background())
	assert.Equal(t, 1, history.loadCount())

	other := NewUser("user-2", "other@example.com", "")
	ctrl.SetUser(&other)
	ctrl.EnsureHistory(context.Background())
	assert.Equal(t, 2, history.loadCount(), "reload after user switch")
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateIdle:       "idle",
		StateValidating: "validating",
		StateSubmitting: "submitting",
		StateSuccess:    "success",
		StateFailure:    "failure",
		State(99):       "unknown",
	}
	for state, expected := range states {
		assert.Equal(t, expected, state.String())
	}
}
