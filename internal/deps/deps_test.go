package deps

import (
	"os"
	"path/filepath"
	"testing"

	"curio/internal/config"
)

func TestCheckBinariesFindsStubbedTool(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "yt-dlp")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	statuses := CheckBinaries(Requirements(&cfg))
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("yt-dlp not reported available: %+v", statuses[0])
	}
}

func TestCheckBinariesReportsMissingTool(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	statuses := CheckBinaries([]Requirement{{Name: "yt-dlp", Command: "yt-dlp"}})
	if statuses[0].Available {
		t.Fatal("missing binary reported available")
	}
	if statuses[0].Detail == "" {
		t.Fatal("missing detail for unavailable binary")
	}
}

func TestCheckBinariesUnconfiguredCommand(t *testing.T) {
	statuses := CheckBinaries([]Requirement{{Name: "mystery", Command: "  "}})
	if statuses[0].Available || statuses[0].Detail != "command not configured" {
		t.Fatalf("status = %+v", statuses[0])
	}
}
