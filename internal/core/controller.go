package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"melodora/pkg/musiclink"
)

// State is the lifecycle position of a comparison request.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

var errNoResult = errors.New("comparison backend returned no result")

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Comparer     Comparer
	History      HistoryLoader
	Limiter      SubmitLimiter
	HistoryLimit int
	Logger       *zap.Logger
}

// Controller drives one user's comparison workflow: input, validation,
// a single in-flight backend call, and the history refresh that follows success.
type Controller struct {
	comparer     Comparer
	history      HistoryLoader
	limiter      SubmitLimiter
	historyLimit int
	logger       *zap.Logger

	mu          sync.Mutex
	user        *User
	input       string
	linkType    musiclink.LinkType
	state       State
	result      *ComparisonResult
	failure     error
	warning     error
	items       []HistoryItem
	historySeen bool
	startedAt   time.Time
}

// View is an immutable snapshot of a Controller used for rendering.
type View struct {
	State         State
	Input         string
	LinkType      musiclink.LinkType
	CanSubmit     bool
	Result        *ComparisonResult
	Failure       error
	Warning       error
	History       []HistoryItem
	HistoryLoaded bool
}

// Submitting reports whether a backend call is in flight.
func (v View) Submitting() bool {
	return v.State == StateSubmitting
}

func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHomepageHistoryLimit
	}
	return &Controller{
		comparer:     opts.Comparer,
		history:      opts.History,
		limiter:      opts.Limiter,
		historyLimit: limit,
		logger:       logger,
		state:        StateIdle,
	}
}

// SetUser records the signed-in user, or clears it when user is nil.
func (c *Controller) SetUser(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if user == nil {
		c.user = nil
		return
	}
	if c.user != nil && c.user.ID != user.ID {
		c.items = nil
		c.historySeen = false
		c.result = nil
		c.failure = nil
	}
	u := *user
	c.user = &u
}

// SetInput replaces the link text and reclassifies it. Edits made while a
// submission is in flight are ignored; the input is locked until it settles.
func (c *Controller) SetInput(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return
	}

	c.input = raw
	c.linkType = musiclink.Classify(raw)
	c.result = nil
	c.failure = nil
	c.warning = nil

	if strings.TrimSpace(raw) == "" {
		c.state = StateIdle
		return
	}
	c.state = StateValidating
}

// CanSubmit reports whether Submit would issue a backend call right now.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.guardLocked() == nil
}

func (c *Controller) guardLocked() error {
	if c.user == nil {
		return ErrNotAuthenticated
	}
	link := strings.TrimSpace(c.input)
	if link == "" {
		return ErrEmptyLink
	}
	if !musiclink.IsYouTube(link) {
		return ErrInvalidLink
	}
	if c.state == StateSubmitting {
		return ErrSubmissionPending
	}
	return nil
}

// Submit validates the current input and, when it passes, sends exactly one
// comparison request and returns the result it stored. Validation failures
// are stored as warnings and never reach the network. On success the history
// is re-fetched after the result has been stored. A result that arrives after
// the signed-in user changed is discarded with ErrUserChanged.
func (c *Controller) Submit(ctx context.Context) (*ComparisonResult, error) {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		if !errors.Is(err, ErrSubmissionPending) {
			c.warning = err
		}
		c.mu.Unlock()
		return nil, err
	}
	user := *c.user
	if c.limiter != nil && !c.limiter.Allow(user.ID) {
		c.warning = ErrRateLimited
		c.mu.Unlock()
		return nil, ErrRateLimited
	}
	link := strings.TrimSpace(c.input)
	c.state = StateSubmitting
	c.result = nil
	c.failure = nil
	c.warning = nil
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("Submitting comparison",
		zap.String("user_id", user.ID),
		zap.String("url", link))

	result, err := c.comparer.Compare(ctx, user.ID, link)
	if err == nil && result == nil {
		err = errNoResult
	}

	c.mu.Lock()
	elapsed := time.Since(c.startedAt)
	if c.user == nil || c.user.ID != user.ID {
		c.state = StateIdle
		c.result = nil
		c.failure = nil
		c.mu.Unlock()

		c.logger.Info("Discarding comparison of a signed-out user",
			zap.String("user_id", user.ID),
			zap.Duration("elapsed", elapsed))
		return nil, ErrUserChanged
	}
	if err != nil {
		c.state = StateFailure
		c.failure = err
		c.mu.Unlock()

		c.logger.Warn("Comparison failed",
			zap.String("user_id", user.ID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	stored := *result
	c.state = StateSuccess
	c.result = &stored
	c.failure = nil
	c.mu.Unlock()

	c.logger.Info("Comparison completed",
		zap.String("user_id", user.ID),
		zap.String("matched_title", result.MatchedTitle),
		zap.Float64("similarity", result.Similarity),
		zap.Duration("elapsed", elapsed))

	c.refreshFor(ctx, user.ID)
	out := stored
	return &out, nil
}

// RefreshHistory re-fetches the history page for the current user.
func (c *Controller) RefreshHistory(ctx context.Context) {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return
	}
	userID := c.user.ID
	c.mu.Unlock()

	c.refreshFor(ctx, userID)
}

// EnsureHistory loads the history once; later calls reuse the cached list.
func (c *Controller) EnsureHistory(ctx context.Context) {
	c.mu.Lock()
	seen := c.historySeen
	c.mu.Unlock()

	if !seen {
		c.RefreshHistory(ctx)
	}
}

func (c *Controller) refreshFor(ctx context.Context, userID string) {
	if c.history == nil {
		return
	}
	items := c.history.Load(ctx, userID, c.historyLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	// The user may have changed while loading.
	if c.user == nil || c.user.ID != userID {
		return
	}
	c.items = items
	c.historySeen = true
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{
		State:         c.state,
		Input:         c.input,
		LinkType:      c.linkType,
		CanSubmit:     c.guardLocked() == nil,
		Failure:       c.failure,
		Warning:       c.warning,
		HistoryLoaded: c.historySeen,
	}
	if c.result != nil {
		r := *c.result
		view.Result = &r
	}
	if len(c.items) > 0 {
		view.History = make([]HistoryItem, len(c.items))
		copy(view.History, c.items)
	}
	return view
}
