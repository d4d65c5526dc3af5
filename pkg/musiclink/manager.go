package musiclink

import (
	"context"
)

// Manager dispatches preview lookups to the resolver for the link's platform.
type Manager struct {
	resolvers []Resolver
}

// NewManager creates a manager with the YouTube and Spotify resolvers.
func NewManager() *Manager {
	return NewManagerWith(NewYouTubeResolver(), NewSpotifyResolver())
}

// NewManagerWith creates a manager over the given resolvers, tried in order.
func NewManagerWith(resolvers ...Resolver) *Manager {
	return &Manager{resolvers: resolvers}
}

// Resolve fetches preview metadata using the first resolver that accepts the link.
func (m *Manager) Resolve(ctx context.Context, url string) (*TrackInfo, error) {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return resolver.Resolve(ctx, url)
		}
	}

	return nil, ErrNoResolver
}

// CanResolve checks if any resolver can handle the given URL.
func (m *Manager) CanResolve(url string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return true
		}
	}
	return false
}
