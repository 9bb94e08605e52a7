package catalog

import "time"

// Kind classifies how a record's locator was resolved.
type Kind string

const (
	KindVideo   Kind = "video"
	KindWebpage Kind = "webpage"
	KindFile    Kind = "file"
)

// Record is one enriched catalog entry. Summary, Tags, and Category are
// always populated; failed enrichment stores sentinel text, never NULL.
type Record struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Kind         Kind      `json:"type"`
	Summary      string    `json:"summary"`
	Tags         string    `json:"tags"`
	Category     string    `json:"category"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Uploader     string    `json:"uploader,omitempty"`
	Duration     int64     `json:"duration,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
	PlaylistID   *int64    `json:"playlist_id,omitempty"`
}

// Playlist groups records resolved from one playlist locator.
type Playlist struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Uploader    string    `json:"uploader,omitempty"`
	VideoCount  int       `json:"video_count,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// LibraryEntry is one top-level item in the library view: either a playlist
// with its nested records, or a standalone record.
type LibraryEntry struct {
	Kind        string    `json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
	Playlist    *Playlist `json:"playlist,omitempty"`
	Records     []*Record `json:"videos,omitempty"`
	Record      *Record   `json:"record,omitempty"`
}
