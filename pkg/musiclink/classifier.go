package musiclink

import (
	"regexp"
	"strings"
)

// MinLinkLength is the shortest trimmed input that gets classified at all.
const MinLinkLength = 5

var (
	spotifyPattern = regexp.MustCompile(`(?i)^(?:(?:https?://)?open\.spotify\.com/|spotify:)`)
	youtubePattern = regexp.MustCompile(
		`(?i)^(?:https?://)?(?:(?:www\.|m\.)?youtube\.com/watch\?v=|(?:www\.)?youtu\.be/|music\.youtube\.com/)`)
)

// Classify reports which platform a pasted link belongs to.
// Only the prefix is checked; a malformed video ID after a valid prefix still counts.
func Classify(input string) LinkType {
	link := strings.TrimSpace(input)
	if len(link) < MinLinkLength {
		return LinkTypeNone
	}

	if spotifyPattern.MatchString(link) {
		return LinkTypeSpotify
	}

	if youtubePattern.MatchString(link) {
		return LinkTypeYouTube
	}

	return LinkTypeUnknown
}

// IsYouTube reports whether input classifies as a YouTube link.
func IsYouTube(input string) bool {
	return Classify(input) == LinkTypeYouTube
}

// Accepts reports whether the classification of input is one of the accepted types.
func Accepts(input string, accepted ...LinkType) bool {
	linkType := Classify(input)
	for _, t := range accepted {
		if t == linkType {
			return true
		}
	}
	return false
}
