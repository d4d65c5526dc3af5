// Package compare talks to the external audio comparison backend.
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"melodora/internal/core"
	"melodora/internal/i18n"
)

const (
	comparePath = "/music/compare"
	// maxBodyBytes bounds how much of a backend response is read.
	maxBodyBytes = 1 << 20
)

// BackendError is returned when the backend answered with a non-2xx status
// or an unreadable success body.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("comparison backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("comparison backend returned %d", e.Status)
}

// Localize prefers the backend's own detail message.
func (e *BackendError) Localize(l *i18n.Localizer) string {
	if e.Detail != "" {
		return e.Detail
	}
	return l.T("error.backend_status", e.Status)
}

// UnreachableError is returned when no HTTP response was received.
type UnreachableError struct {
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("comparison backend at %s unreachable: %v", e.BaseURL, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

func (e *UnreachableError) Localize(l *i18n.Localizer) string {
	return l.T("error.backend_unreachable", e.BaseURL)
}

type compareRequest struct {
	UserUID    string `json:"user_uid"`
	YouTubeURL string `json:"youtube_url"`
}

// wireResult accepts the legacy matched_song field next to matched_title.
type wireResult struct {
	core.ComparisonResult
	MatchedSong string `json:"matched_song,omitempty"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Client issues comparison requests. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    core.NormalizeBackendURL(baseURL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Compare posts {user_uid, youtube_url} and decodes the matched song.
func (c *Client) Compare(ctx context.Context, userID, youtubeURL string) (*core.ComparisonResult, error) {
	payload, err := json.Marshal(compareRequest{UserUID: userID, YouTubeURL: youtubeURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+comparePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{BaseURL: c.baseURL, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close compare response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &UnreachableError{BaseURL: c.baseURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		backendErr := &BackendError{Status: resp.StatusCode, Detail: parseDetail(body)}
		c.logger.Warn("Comparison backend returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", backendErr.Detail))
		return nil, backendErr
	}

	var wire wireResult
	if err := json.Unmarshal(body, &wire); err != nil {
		c.logger.Warn("Comparison backend returned malformed JSON",
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, &BackendError{Status: resp.StatusCode}
	}

	result := wire.ComparisonResult
	if result.MatchedTitle == "" {
		result.MatchedTitle = wire.MatchedSong
	}
	return &result, nil
}

// parseDetail extracts a human-readable "detail" from an error body. FastAPI
// validation errors carry a list of objects with "msg" fields.
func parseDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(parsed.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// IsUnreachable reports whether err stems from a transport failure.
func IsUnreachable(err error) bool {
	var unreachable *UnreachableError
	return errors.As(err, &unreachable)
}
