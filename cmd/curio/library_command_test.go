package main

import (
	"strings"
	"testing"
	"time"

	"curio/internal/catalog"
)

func TestRenderLibraryNestsPlaylistMembers(t *testing.T) {
	processed := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	entries := []catalog.LibraryEntry{
		{
			Playlist: &catalog.Playlist{ID: 4, Title: "Build Series", Uploader: "The Channel", ProcessedAt: processed},
			Records: []*catalog.Record{
				{ID: 9, Name: "Episode One", Kind: catalog.KindVideo, Category: "Tech", Uploader: "The Channel", ProcessedAt: processed},
			},
		},
		{
			Record: &catalog.Record{ID: 12, Name: "Solo Page", Kind: catalog.KindWebpage, Category: "News", ProcessedAt: processed},
		},
	}

	out := renderLibrary(entries)

	if !strings.Contains(out, "P4") {
		t.Fatalf("playlist ID marker missing:\n%s", out)
	}
	if !strings.Contains(out, "1 videos") {
		t.Fatalf("playlist video count missing:\n%s", out)
	}
	if !strings.Contains(out, "  Episode One") {
		t.Fatalf("member row not indented under its playlist:\n%s", out)
	}
	if !strings.Contains(out, "Solo Page") {
		t.Fatalf("standalone record missing:\n%s", out)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Processed") {
		t.Fatalf("header row missing:\n%s", out)
	}
}

func TestRenderLibraryEmpty(t *testing.T) {
	out := renderLibrary(nil)
	if !strings.Contains(out, "Name") {
		t.Fatalf("empty library should still render headers:\n%s", out)
	}
}
