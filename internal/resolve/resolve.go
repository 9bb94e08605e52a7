// Package resolve classifies batch input locators. A locator is either a URL
// or a local file path; classification decides which enrichment branch
// handles it.
package resolve

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Kind is the enrichment branch a locator belongs to.
type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
	KindWebpage  Kind = "webpage"
	KindFile     Kind = "file"
)

// Default display values used when metadata extraction leaves a field blank.
const (
	DefaultTitle         = "No Title"
	DefaultUploader      = "Unknown Uploader"
	DefaultPlaylistTitle = "Untitled Playlist"
)

// Classify maps a locator to its enrichment branch. Anything that does not
// parse as an http or https URL is treated as a local file.
func Classify(locator string) Kind {
	locator = strings.TrimSpace(locator)
	parsed, err := url.Parse(locator)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return KindFile
	}
	if isYouTubeHost(parsed.Host) {
		if isPlaylistURL(parsed) {
			return KindPlaylist
		}
		return KindVideo
	}
	return KindWebpage
}

// DisplayName returns the human-facing name for a locator before metadata is
// available: the base name for files, the locator itself for URLs.
func DisplayName(locator string) string {
	if Classify(locator) == KindFile {
		return filepath.Base(strings.TrimSpace(locator))
	}
	return strings.TrimSpace(locator)
}

// TitleOrDefault substitutes the blank-title placeholder.
func TitleOrDefault(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return DefaultTitle
}

// UploaderOrDefault substitutes the blank-uploader placeholder.
func UploaderOrDefault(uploader string) string {
	if uploader = strings.TrimSpace(uploader); uploader != "" {
		return uploader
	}
	return DefaultUploader
}

// PlaylistTitleOrDefault substitutes the blank-playlist-title placeholder.
func PlaylistTitleOrDefault(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return DefaultPlaylistTitle
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}

// isPlaylistURL reports whether a YouTube URL names a whole playlist rather
// than a single video. A watch URL with a list parameter still counts as a
// single video.
func isPlaylistURL(parsed *url.URL) bool {
	if !strings.Contains(parsed.Path, "/playlist") {
		return false
	}
	return parsed.Query().Get("list") != ""
}
