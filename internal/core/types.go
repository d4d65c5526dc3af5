package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"melodora/internal/i18n"
)

var (
	// ErrNotAuthenticated is returned when a submission has no signed-in user.
	ErrNotAuthenticated = errors.New("no authenticated user")
	// ErrEmptyLink is returned when the trimmed link is empty.
	ErrEmptyLink = errors.New("link is empty")
	// ErrInvalidLink is returned when the link does not classify as YouTube.
	ErrInvalidLink = errors.New("link is not a YouTube URL")
	// ErrSubmissionPending is returned while another comparison is in flight.
	ErrSubmissionPending = errors.New("a comparison is already in flight")
	// ErrRateLimited is returned when the user exceeded the per-minute submission limit.
	ErrRateLimited = errors.New("comparison rate limit exceeded")
	// ErrUserChanged is returned when the signed-in user changed while a
	// comparison was in flight; its result is discarded.
	ErrUserChanged = errors.New("signed-in user changed during comparison")
)

// User is the signed-in identity as reported by the auth service.
type User struct {
	ID    string
	Email string
	Name  string
}

// NewUser derives the display name from metadata, the email local part, or "User".
func NewUser(id, email, metadataName string) User {
	name := strings.TrimSpace(metadataName)
	if name == "" {
		if local, _, found := strings.Cut(email, "@"); found && local != "" {
			name = local
		} else if email != "" && !strings.Contains(email, "@") {
			name = email
		}
	}
	if name == "" {
		name = "User"
	}
	return User{ID: id, Email: email, Name: name}
}

// ComparisonResult is the backend's answer to one comparison request.
type ComparisonResult struct {
	ComparisonID ID       `json:"comparison_id,omitempty"`
	FromTitle    string   `json:"from_title,omitempty"`
	MatchedTitle string   `json:"matched_title"`
	MatchedURL   string   `json:"matched_url"`
	Similarity   float64  `json:"similarity"`
	BPM          *float64 `json:"uploaded_bpm,omitempty"`
	Key          *string  `json:"uploaded_key,omitempty"`
}

// ID accepts either a JSON number or a JSON string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// SimilarityPercent renders the similarity as "87.3%".
func (r ComparisonResult) SimilarityPercent() string {
	return FormatSimilarity(r.Similarity)
}

// HistoryItem is one persisted comparison, as listed on the history pages.
type HistoryItem struct {
	ID            string
	UploadedURL   string
	FromTitle     string
	MatchedSongID *int64
	MatchedTitle  string
	MatchedURL    string
	Similarity    float64
	BPM           *float64
	Key           *string
	CreatedAt     time.Time
}

// SimilarityPercent renders the similarity as "87.3%".
func (h HistoryItem) SimilarityPercent() string {
	return FormatSimilarity(h.Similarity)
}

// CreatedAtDisplay renders the creation time in the server's local zone.
func (h HistoryItem) CreatedAtDisplay() string {
	if h.CreatedAt.IsZero() {
		return ""
	}
	return h.CreatedAt.Local().Format("2006-01-02 15:04")
}

// HistoryStats summarizes a page of history for the profile page.
type HistoryStats struct {
	TotalSearches     int
	AverageSimilarity float64
}

// AverageDisplay renders the average similarity, or "--" without history.
func (s HistoryStats) AverageDisplay() string {
	if s.TotalSearches == 0 {
		return "--"
	}
	return FormatSimilarity(s.AverageSimilarity)
}

// FormatSimilarity renders a similarity in [0,1] as a percentage with one
// decimal. Halves round away from zero: 0.8725 renders as "87.3%".
func FormatSimilarity(similarity float64) string {
	percent := math.Round(similarity*100*10) / 10
	return strconv.FormatFloat(percent, 'f', 1, 64) + "%"
}

// RoundBPM rounds a detected tempo for display.
func RoundBPM(bpm float64) int {
	return int(math.Round(bpm))
}

// Comparer submits one link to the comparison backend.
type Comparer interface {
	Compare(ctx context.Context, userID, youtubeURL string) (*ComparisonResult, error)
}

// HistoryLoader fetches the most recent comparisons of a user.
// Implementations fail soft: errors yield an empty slice.
type HistoryLoader interface {
	Load(ctx context.Context, userID string, limit int) []HistoryItem
}

// SubmitLimiter caps how often a user may submit comparisons.
type SubmitLimiter interface {
	Allow(userID string) bool
}

// LocalizedError is implemented by errors that carry their own user-facing text.
type LocalizedError interface {
	error
	Localize(l *i18n.Localizer) string
}

// Describe turns a workflow error into the message shown to the user.
func Describe(err error, l *i18n.Localizer) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return l.T("validate.login_required")
	case errors.Is(err, ErrEmptyLink):
		return l.T("validate.link_empty")
	case errors.Is(err, ErrInvalidLink):
		return l.T("validate.link_invalid")
	case errors.Is(err, ErrSubmissionPending):
		return l.T("error.submission_pending")
	case errors.Is(err, ErrRateLimited):
		return l.T("error.rate_limited")
	case errors.Is(err, ErrUserChanged):
		return l.T("error.user_changed")
	}

	var localized LocalizedError
	if errors.As(err, &localized) {
		return localized.Localize(l)
	}

	return l.T("error.generic")
}
