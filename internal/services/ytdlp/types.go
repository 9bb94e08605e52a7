package ytdlp

import (
	"fmt"
	"strings"
)

// VideoInfo mirrors the subset of yt-dlp's single-video JSON dump the
// pipeline consumes.
type VideoInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Uploader    string      `json:"uploader"`
	Channel     string      `json:"channel"`
	Duration    float64     `json:"duration"`
	Description string      `json:"description"`
	WebpageURL  string      `json:"webpage_url"`
	Thumbnail   string      `json:"thumbnail"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
}

// UploaderName prefers the uploader field and falls back to the channel name.
func (v *VideoInfo) UploaderName() string {
	if name := strings.TrimSpace(v.Uploader); name != "" {
		return name
	}
	return strings.TrimSpace(v.Channel)
}

// Thumbnail is one entry from yt-dlp's thumbnail list.
type Thumbnail struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// BestThumbnail picks the preferred thumbnail URL: yt-dlp's declared default
// first, then the maxres variant, then hq, then whatever was listed last, and
// finally the predictable i.ytimg.com URL derived from the video ID.
func (v *VideoInfo) BestThumbnail() string {
	if url := strings.TrimSpace(v.Thumbnail); url != "" {
		return url
	}
	var byID = map[string]string{}
	for _, thumb := range v.Thumbnails {
		if thumb.URL == "" {
			continue
		}
		byID[thumb.ID] = thumb.URL
		if strings.Contains(thumb.URL, "maxresdefault") {
			byID["maxres"] = thumb.URL
		}
		if strings.Contains(thumb.URL, "hqdefault") {
			byID["hq"] = thumb.URL
		}
	}
	for _, key := range []string{"maxres", "hq"} {
		if url, ok := byID[key]; ok {
			return url
		}
	}
	for i := len(v.Thumbnails) - 1; i >= 0; i-- {
		if v.Thumbnails[i].URL != "" {
			return v.Thumbnails[i].URL
		}
	}
	if id := strings.TrimSpace(v.ID); id != "" {
		return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	return ""
}

// PlaylistInfo mirrors yt-dlp's flat playlist dump.
type PlaylistInfo struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Uploader string          `json:"uploader"`
	Channel  string          `json:"channel"`
	Entries  []PlaylistEntry `json:"entries"`
}

// UploaderName prefers the uploader field and falls back to the channel name.
func (p *PlaylistInfo) UploaderName() string {
	if name := strings.TrimSpace(p.Uploader); name != "" {
		return name
	}
	return strings.TrimSpace(p.Channel)
}

// PlaylistEntry is one flat-mode playlist member.
type PlaylistEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
}

// WatchURL returns the entry's direct video URL, deriving the canonical
// watch URL from the ID when flat mode omitted it.
func (e *PlaylistEntry) WatchURL() string {
	if url := strings.TrimSpace(e.URL); url != "" {
		return url
	}
	if id := strings.TrimSpace(e.ID); id != "" {
		return "https://www.youtube.com/watch?v=" + id
	}
	return ""
}
