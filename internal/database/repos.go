package database

import "database/sql"

// Repos bundles all repositories over one connection. It is the
// composition root's handle on the persistence layer.
type Repos struct {
	Games        *GameRepo
	Releases     *ReleaseRepo
	Updates      *UpdateRepo
	Libraries    *LibraryRepo
	LibraryFiles *LibraryFileRepo
	Settings     *SettingRepo
	History      *HistoryRepo
}

// NewRepos creates all repositories over the given connection.
func NewRepos(conn *sql.DB) *Repos {
	return &Repos{
		Games:        NewGameRepo(conn),
		Releases:     NewReleaseRepo(conn),
		Updates:      NewUpdateRepo(conn),
		Libraries:    NewLibraryRepo(conn),
		LibraryFiles: NewLibraryFileRepo(conn),
		Settings:     NewSettingRepo(conn),
		History:      NewHistoryRepo(conn),
	}
}
