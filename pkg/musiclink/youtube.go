package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	// YouTubeOEmbedURL is the YouTube oEmbed API endpoint.
	YouTubeOEmbedURL = "https://www.youtube.com/oembed"
	// youtubeExpectedSplitParts is the expected number of parts when splitting "Artist - Title".
	youtubeExpectedSplitParts = 2
)

var (
	// ErrNoVideoID is returned when a YouTube link carries no video ID.
	ErrNoVideoID = errors.New("no video ID in YouTube URL")

	titleNoisePattern = regexp.MustCompile(
		`(?i)\s*[\(\[](?:official (?:music )?video|official audio|lyric video|lyrics|hd|4k)[\)\]]`)
	camelCasePattern = regexp.MustCompile(`([a-z])([A-Z])`)
)

// YouTubeOEmbedResponse represents the response from YouTube's oEmbed API.
type YouTubeOEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// YouTubeResolver resolves YouTube and YouTube Music links to preview metadata.
type YouTubeResolver struct {
	client    *http.Client
	oembedURL string
}

// NewYouTubeResolver creates a new YouTube link resolver.
func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{
		client:    newHTTPClient(),
		oembedURL: YouTubeOEmbedURL,
	}
}

// CanResolve checks if the URL is a YouTube or YouTube Music link.
func (r *YouTubeResolver) CanResolve(rawURL string) bool {
	return Classify(rawURL) == LinkTypeYouTube
}

// Resolve fetches the video title and channel for a YouTube URL using oEmbed.
func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a YouTube URL")
	}

	videoID, err := VideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video ID: %w", err)
	}

	videoURL := "https://www.youtube.com/watch?v=" + videoID

	var resp YouTubeOEmbedResponse
	if err := fetchOEmbedJSON(ctx, r.client, r.oembedURL, videoURL, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	title, artist := parseYouTubeTrackInfo(&resp)

	return &TrackInfo{
		Title:  title,
		Artist: artist,
		Type:   LinkTypeYouTube,
	}, nil
}

// VideoID extracts the YouTube video ID from youtu.be paths or the v query parameter.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(withScheme(rawURL))
	if err != nil {
		return "", err
	}

	if strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), "youtu.be") {
		id := strings.Trim(u.Path, "/")
		if id == "" {
			return "", ErrNoVideoID
		}
		return id, nil
	}

	id := u.Query().Get("v")
	if id == "" {
		return "", ErrNoVideoID
	}
	return id, nil
}

// parseYouTubeTrackInfo extracts track title and artist from an oEmbed response.
func parseYouTubeTrackInfo(resp *YouTubeOEmbedResponse) (title, artist string) {
	return cleanTitle(resp.Title), extractArtist(resp.Title, resp.AuthorName)
}

// cleanTitle removes common YouTube video markers such as "(Official Video)" or "[HD]".
func cleanTitle(title string) string {
	return strings.TrimSpace(titleNoisePattern.ReplaceAllString(title, ""))
}

// extractArtist guesses the artist from the channel name or an "Artist - Title" video title.
func extractArtist(title, authorName string) string {
	if strings.HasSuffix(authorName, "VEVO") {
		return splitCamelCase(strings.TrimSuffix(authorName, "VEVO"))
	}

	// Auto-generated artist channels.
	if strings.HasSuffix(authorName, " - Topic") {
		return strings.TrimSuffix(authorName, " - Topic")
	}

	if strings.Contains(title, " - ") {
		parts := strings.SplitN(title, " - ", youtubeExpectedSplitParts)
		if len(parts) == youtubeExpectedSplitParts {
			return strings.TrimSpace(parts[0])
		}
	}

	return authorName
}

// splitCamelCase splits "RickAstley" into "Rick Astley".
func splitCamelCase(s string) string {
	return camelCasePattern.ReplaceAllString(s, "$1 $2")
}
