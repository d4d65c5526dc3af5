// Package musiclink classifies pasted music links and resolves preview metadata for them.
package musiclink

import (
	"context"
)

// LinkType is the platform a pasted link belongs to.
type LinkType int

const (
	// LinkTypeNone means the input is empty or too short to judge.
	LinkTypeNone LinkType = iota
	// LinkTypeYouTube covers youtube.com/watch, youtu.be and music.youtube.com links.
	LinkTypeYouTube
	// LinkTypeSpotify covers open.spotify.com links and spotify: URIs.
	LinkTypeSpotify
	// LinkTypeUnknown is any other input of sufficient length.
	LinkTypeUnknown
)

// String returns the stable identifier used in JSON responses and metric labels.
func (t LinkType) String() string {
	switch t {
	case LinkTypeYouTube:
		return "youtube"
	case LinkTypeSpotify:
		return "spotify"
	case LinkTypeUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Label returns the human readable platform name.
func (t LinkType) Label() string {
	switch t {
	case LinkTypeYouTube:
		return "YouTube/YouTube Music"
	case LinkTypeSpotify:
		return "Spotify"
	case LinkTypeUnknown:
		return "Unknown"
	default:
		return ""
	}
}

// TrackInfo holds preview metadata for a link.
type TrackInfo struct {
	Title  string   // Track or video title.
	Artist string   // Artist or channel name, when known.
	Type   LinkType // Platform the metadata came from.
}

// Resolver fetches preview metadata for links of one platform.
type Resolver interface {
	// Resolve extracts track information from a provider URL.
	Resolve(ctx context.Context, url string) (*TrackInfo, error)

	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool
}
