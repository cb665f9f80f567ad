// Package models defines the persisted domain entities shared by the
// repositories and the background workers.
package models

import "time"

// GameStatus is the lifecycle state of a game in the catalog.
type GameStatus string

const (
	GameStatusWanted      GameStatus = "wanted"
	GameStatusDownloading GameStatus = "downloading"
	GameStatusDownloaded  GameStatus = "downloaded"
)

// UpdatePolicy controls how successor releases for a downloaded game are handled.
type UpdatePolicy string

const (
	UpdatePolicyNotify UpdatePolicy = "notify"
	UpdatePolicyAuto   UpdatePolicy = "auto"
	UpdatePolicyIgnore UpdatePolicy = "ignore"
)

// Game is a catalog entry identified by an external metadata id.
type Game struct {
	ID               int64        `json:"id"`
	IgdbID           int64        `json:"igdbId"`
	Title            string       `json:"title"`
	Year             int          `json:"year,omitempty"`
	Platform         string       `json:"platform,omitempty"`
	CoverURL         string       `json:"coverUrl,omitempty"`
	FolderPath       string       `json:"folderPath,omitempty"`
	Monitored        bool         `json:"monitored"`
	Status           GameStatus   `json:"status"`
	InstalledVersion string       `json:"installedVersion,omitempty"`
	InstalledQuality string       `json:"installedQuality,omitempty"`
	UpdatePolicy     UpdatePolicy `json:"updatePolicy"`
	UpdateAvailable  bool         `json:"updateAvailable"`
	LastUpdateCheck  *time.Time   `json:"lastUpdateCheck,omitempty"`
	LatestVersion    string       `json:"latestVersion,omitempty"`
	LibraryID        *int64       `json:"libraryId,omitempty"`
	AddedAt          time.Time    `json:"addedAt"`
}

// ReleaseStatus is the lifecycle state of a grabbed release.
type ReleaseStatus string

const (
	ReleaseStatusPending     ReleaseStatus = "pending"
	ReleaseStatusDownloading ReleaseStatus = "downloading"
	ReleaseStatusCompleted   ReleaseStatus = "completed"
	ReleaseStatusFailed      ReleaseStatus = "failed"
)

// Active reports whether the release still has a live transfer.
func (s ReleaseStatus) Active() bool {
	return s == ReleaseStatusPending || s == ReleaseStatusDownloading
}

// Release is a candidate that was grabbed for a game.
type Release struct {
	ID          int64         `json:"id"`
	GameID      int64         `json:"gameId"`
	Title       string        `json:"title"`
	Size        int64         `json:"size"`
	Seeders     int           `json:"seeders"`
	DownloadURL string        `json:"downloadUrl"`
	Indexer     string        `json:"indexer"`
	Quality     string        `json:"quality,omitempty"`
	TorrentHash string        `json:"torrentHash,omitempty"`
	Status      ReleaseStatus `json:"status"`
	GrabbedAt   time.Time     `json:"grabbedAt"`
}

// UpdateType classifies a successor release for a downloaded game.
type UpdateType string

const (
	UpdateTypeVersion       UpdateType = "version"
	UpdateTypeDLC           UpdateType = "dlc"
	UpdateTypeBetterRelease UpdateType = "better_release"
)

// UpdateStatus is the lifecycle state of an update candidate.
type UpdateStatus string

const (
	UpdateStatusPending   UpdateStatus = "pending"
	UpdateStatusDismissed UpdateStatus = "dismissed"
	UpdateStatusGrabbed   UpdateStatus = "grabbed"
)

// GameUpdate is a candidate successor release for a downloaded game.
// (gameId, downloadUrl) and (gameId, title) are both dedup keys.
type GameUpdate struct {
	ID          int64        `json:"id"`
	GameID      int64        `json:"gameId"`
	UpdateType  UpdateType   `json:"updateType"`
	Title       string       `json:"title"`
	Version     string       `json:"version,omitempty"`
	Size        int64        `json:"size"`
	Quality     string       `json:"quality,omitempty"`
	Seeders     int          `json:"seeders"`
	DownloadURL string       `json:"downloadUrl"`
	Indexer     string       `json:"indexer"`
	Status      UpdateStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Library is a configured root directory for organized games.
type Library struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Path            string `json:"path"`
	Platform        string `json:"platform,omitempty"`
	Monitored       bool   `json:"monitored"`
	DownloadEnabled bool   `json:"downloadEnabled"`
	Priority        int    `json:"priority"`
}

// LibraryFile is a scanned game folder inside a library root.
type LibraryFile struct {
	ID            int64     `json:"id"`
	FolderPath    string    `json:"folderPath"`
	ParsedTitle   string    `json:"parsedTitle"`
	ParsedYear    int       `json:"parsedYear,omitempty"`
	MatchedGameID *int64    `json:"matchedGameId,omitempty"`
	LibraryID     *int64    `json:"libraryId,omitempty"`
	Ignored       bool      `json:"ignored"`
	ScannedAt     time.Time `json:"scannedAt"`
}

// HistoryEvent tags a download-history row.
type HistoryEvent string

const (
	HistoryEventGrabbed   HistoryEvent = "grabbed"
	HistoryEventCompleted HistoryEvent = "completed"
	HistoryEventFailed    HistoryEvent = "failed"
)

// HistoryEntry records a download lifecycle event for audit purposes.
type HistoryEntry struct {
	ID           int64        `json:"id"`
	GameID       int64        `json:"gameId"`
	Event        HistoryEvent `json:"event"`
	ReleaseTitle string       `json:"releaseTitle"`
	Indexer      string       `json:"indexer,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}
