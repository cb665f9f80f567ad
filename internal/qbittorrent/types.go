package qbittorrent

import (
	"net/url"
	"regexp"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"
)

// Torrent is the canonical internal shape the rest of the system
// observes. Daemon-private state names are not interpreted beyond
// error detection.
type Torrent struct {
	Hash          string  `json:"hash"`
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	Progress      float64 `json:"progress"`
	DownloadSpeed int64   `json:"downloadSpeed"`
	UploadSpeed   int64   `json:"uploadSpeed"`
	ETA           int64   `json:"eta"`
	State         string  `json:"state"`
	Category      string  `json:"category"`
	Tags          string  `json:"tags"`
	SavePath      string  `json:"savePath"`
	AddedOn       int64   `json:"addedOn"`
	CompletionOn  int64   `json:"completionOn,omitempty"`
}

// Errored reports whether the daemon flags this torrent as failed.
func (t Torrent) Errored() bool {
	return t.State == "error" || t.State == "missingFiles"
}

// Complete reports whether the transfer has finished.
func (t Torrent) Complete() bool {
	return t.Progress >= 1
}

func fromQbt(t qbt.Torrent) Torrent {
	return Torrent{
		Hash:          t.Hash,
		Name:          t.Name,
		Size:          t.Size,
		Progress:      t.Progress,
		DownloadSpeed: t.DlSpeed,
		UploadSpeed:   t.UpSpeed,
		ETA:           t.ETA,
		State:         string(t.State),
		Category:      t.Category,
		Tags:          t.Tags,
		SavePath:      t.SavePath,
		AddedOn:       t.AddedOn,
		CompletionOn:  t.CompletionOn,
	}
}

// AddOptions control how a torrent is added to the daemon.
type AddOptions struct {
	Category string
	Tags     string
	Paused   bool
	SavePath string
}

var magnetHashRe = regexp.MustCompile(`(?i)urn:btih:([0-9a-f]{40}|[a-z2-7]{32})`)

// IsMagnet reports whether the URL is a magnet URI.
func IsMagnet(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "magnet:")
}

// ParseMagnetHash extracts the lowercased info-hash from a magnet URI,
// or "" when absent or not a magnet link.
func ParseMagnetHash(rawURL string) string {
	if !IsMagnet(rawURL) {
		return ""
	}
	if m := magnetHashRe.FindStringSubmatch(rawURL); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// normalizePathKey lowercases a path and unifies separators so that
// prefix comparisons survive OS differences and daemon quirks.
func normalizePathKey(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimRight(p, "/")
	return strings.ToLower(p)
}

// sanitizeHostURL normalizes a configured host into a URL the daemon
// client accepts, defaulting to http when no scheme is given.
func sanitizeHostURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if u, err := url.Parse(host); err == nil {
		u.Path = strings.TrimSuffix(u.Path, "/")
		return u.String()
	}
	return host
}
