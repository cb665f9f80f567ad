package qbittorrent

import "testing"

func TestParseMagnetHash(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{
			"magnet:?xt=urn:btih:C12FE1C06BB254D5D1D4F3F0C0D1E2A3B4C5D6E7&dn=Hades",
			"c12fe1c06bb254d5d1d4f3f0c0d1e2a3b4c5d6e7",
		},
		{
			"MAGNET:?xt=urn:btih:c12fe1c06bb254d5d1d4f3f0c0d1e2a3b4c5d6e7",
			"c12fe1c06bb254d5d1d4f3f0c0d1e2a3b4c5d6e7",
		},
		{"magnet:?dn=NoHashHere", ""},
		{"https://indexer.example/download/123.torrent", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseMagnetHash(tt.url); got != tt.want {
			t.Errorf("ParseMagnetHash(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIsMagnet(t *testing.T) {
	if !IsMagnet("magnet:?xt=urn:btih:abc") {
		t.Error("expected magnet URI to be recognized")
	}
	if IsMagnet("https://example.com/file.torrent") {
		t.Error("http URL misclassified as magnet")
	}
}

func TestNormalizePathKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`C:\Downloads\Games`, "c:/downloads/games"},
		{"/mnt/Downloads/Games/", "/mnt/downloads/games"},
		{"/MNT/downloads", "/mnt/downloads"},
	}
	for _, tt := range tests {
		if got := normalizePathKey(tt.in); got != tt.want {
			t.Errorf("normalizePathKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeHostURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{"https://qbit.example.com", "https://qbit.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeHostURL(tt.in); got != tt.want {
			t.Errorf("sanitizeHostURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTorrentStateHelpers(t *testing.T) {
	if !(Torrent{State: "error"}).Errored() {
		t.Error("error state must report errored")
	}
	if (Torrent{State: "downloading"}).Errored() {
		t.Error("downloading state must not report errored")
	}
	if !(Torrent{Progress: 1.0}).Complete() {
		t.Error("progress 1.0 must report complete")
	}
	if (Torrent{Progress: 0.97}).Complete() {
		t.Error("progress below 1.0 must not report complete")
	}
}
