package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"melodora/internal/auth"
	"melodora/internal/compare"
	"melodora/internal/core"
	"melodora/internal/history"
	"melodora/pkg/musiclink"
)

const maxCompareBodyBytes = 4 << 10

type classifyResponse struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type previewResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

type compareRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

type compareResponse struct {
	*core.ComparisonResult
	SimilarityPercent string `json:"similarity_percent"`
}

type historyItemResponse struct {
	ID                string    `json:"id"`
	UploadedURL       string    `json:"uploaded_url"`
	FromTitle         string    `json:"from_title"`
	MatchedSongID     *int64    `json:"matched_song_id,omitempty"`
	MatchedTitle      string    `json:"matched_title"`
	MatchedURL        string    `json:"matched_url"`
	Similarity        float64   `json:"similarity"`
	SimilarityPercent string    `json:"similarity_percent"`
	BPM               *float64  `json:"uploaded_bpm,omitempty"`
	Key               *string   `json:"uploaded_key,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type historyResponse struct {
	Items []historyItemResponse `json:"items"`
	Stats struct {
		TotalSearches     int     `json:"total_searches"`
		AverageSimilarity float64 `json:"average_similarity"`
		AverageDisplay    string  `json:"average_display"`
	} `json:"stats"`
}

// handleClassify backs keystroke-level validation of the link field.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	linkType := musiclink.Classify(r.URL.Query().Get("url"))
	s.RecordClassification(linkType.String())

	writeJSON(w, http.StatusOK, classifyResponse{
		Type:     linkType.String(),
		Label:    linkType.Label(),
		Accepted: linkType == musiclink.LinkTypeYouTube,
		Message:  linkHint(l, linkType),
	}, s.logger)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	link := strings.TrimSpace(r.URL.Query().Get("url"))
	linkType := musiclink.Classify(link)
	if !musiclink.Accepts(link, musiclink.LinkTypeYouTube, musiclink.LinkTypeSpotify) || s.deps.Resolver == nil {
		writeError(w, http.StatusUnprocessableEntity, l.T("link.unknown"), s.logger)
		return
	}

	info, err := s.deps.Resolver.Resolve(r.Context(), link)
	if err != nil {
		s.logger.Debug("Link preview failed", zap.String("url", link), zap.Error(err))
		writeError(w, http.StatusBadGateway, l.T("error.generic"), s.logger)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Type:   linkType.String(),
		Title:  info.Title,
		Artist: info.Artist,
	}, s.logger)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)

	var req compareRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCompareBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, l.T("validate.link_empty"), s.logger)
		return
	}

	ctrl := s.controller(r)
	ctrl.SetInput(req.YouTubeURL)
	result, err := s.submit(r.Context(), ctrl)
	if err != nil {
		writeError(w, compareStatus(err), core.Describe(err, l), s.logger)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{
		ComparisonResult:  result,
		SimilarityPercent: result.SimilarityPercent(),
	}, s.logger)
}

func compareStatus(err error) int {
	var backendErr *compare.BackendError
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrEmptyLink), errors.Is(err, core.ErrInvalidLink):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSubmissionPending), errors.Is(err, core.ErrUserChanged):
		return http.StatusConflict
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	case compare.IsUnreachable(err), errors.As(err, &backendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	limit := parseLimit(r.URL.Query().Get("limit"), s.config.App.HomepageHistoryLimit, s.config.App.HistoryLimit)
	items := s.deps.History.Load(r.Context(), user.ID, limit)

	resp := historyResponse{Items: make([]historyItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, historyItemResponse{
			ID:                item.ID,
			UploadedURL:       item.UploadedURL,
			FromTitle:         item.FromTitle,
			MatchedSongID:     item.MatchedSongID,
			MatchedTitle:      item.MatchedTitle,
			MatchedURL:        item.MatchedURL,
			Similarity:        item.Similarity,
			SimilarityPercent: item.SimilarityPercent(),
			BPM:               item.BPM,
			Key:               item.Key,
			CreatedAt:         item.CreatedAt,
		})
	}
	stats := history.Stats(items)
	resp.Stats.TotalSearches = stats.TotalSearches
	resp.Stats.AverageSimilarity = stats.AverageSimilarity
	resp.Stats.AverageDisplay = stats.AverageDisplay()

	writeJSON(w, http.StatusOK, resp, s.logger)
}

// parseLimit reads a page size, clamped to [1, maximum].
func parseLimit(raw string, fallback, maximum int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		limit = fallback
	}
	if maximum > 0 && limit > maximum {
		limit = maximum
	}
	return limit
}
