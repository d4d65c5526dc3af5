package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SpotifyOEmbedURL is the Spotify oEmbed API endpoint.
const SpotifyOEmbedURL = "https://open.spotify.com/oembed"

// SpotifyOEmbedResponse represents the subset of Spotify's oEmbed response we read.
type SpotifyOEmbedResponse struct {
	Title        string `json:"title"`
	ProviderName string `json:"provider_name"`
}

// SpotifyResolver resolves Spotify links to preview metadata.
// Spotify links are display-only: they are never submitted for comparison.
type SpotifyResolver struct {
	client    *http.Client
	oembedURL string
}

// NewSpotifyResolver creates a new Spotify link resolver.
func NewSpotifyResolver() *SpotifyResolver {
	return &SpotifyResolver{
		client:    newHTTPClient(),
		oembedURL: SpotifyOEmbedURL,
	}
}

// CanResolve checks if the URL is an open.spotify.com link or spotify: URI.
func (r *SpotifyResolver) CanResolve(rawURL string) bool {
	return Classify(rawURL) == LinkTypeSpotify
}

// Resolve fetches the title for a Spotify link using oEmbed.
func (r *SpotifyResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a Spotify URL")
	}

	var resp SpotifyOEmbedResponse
	if err := fetchOEmbedJSON(ctx, r.client, r.oembedURL, spotifyWebURL(rawURL), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch oEmbed data: %w", err)
	}

	return &TrackInfo{
		Title: strings.TrimSpace(resp.Title),
		Type:  LinkTypeSpotify,
	}, nil
}

// spotifyWebURL turns spotify:track:ID into https://open.spotify.com/track/ID.
func spotifyWebURL(rawURL string) string {
	link := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(strings.ToLower(link), "spotify:") {
		return withScheme(link)
	}
	parts := strings.Split(link[len("spotify:"):], ":")
	return "https://open.spotify.com/" + strings.Join(parts, "/")
}
