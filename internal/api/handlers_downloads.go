package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
)

// listDownloads returns the daemon's torrents in our category, in the
// canonical torrent shape.
func (s *Server) listDownloads(c echo.Context) error {
	includeCompleted := c.QueryParam("includeCompleted") == "true"
	torrents, err := s.downloads.ActiveDownloads(c.Request().Context(), includeCompleted)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, torrents)
}

// cancelDownload removes a torrent and fails its release.
func (s *Server) cancelDownload(c echo.Context) error {
	hash := c.Param("hash")
	if hash == "" {
		return fail(c, apperr.Validation("torrent hash is required"))
	}
	deleteFiles := c.QueryParam("deleteFiles") == "true"

	if err := s.downloads.CancelDownload(c.Request().Context(), hash, deleteFiles); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// pauseDownload pauses a torrent in place.
func (s *Server) pauseDownload(c echo.Context) error {
	hash := c.Param("hash")
	if hash == "" {
		return fail(c, apperr.Validation("torrent hash is required"))
	}
	if err := s.qbit.PauseTorrents(c.Request().Context(), []string{hash}); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// resumeDownload resumes a paused torrent.
func (s *Server) resumeDownload(c echo.Context) error {
	hash := c.Param("hash")
	if hash == "" {
		return fail(c, apperr.Validation("torrent hash is required"))
	}
	if err := s.qbit.ResumeTorrents(c.Request().Context(), []string{hash}); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// downloadHistory returns recent grab/complete/fail events.
func (s *Server) downloadHistory(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			return fail(c, apperr.Validation("limit must be an integer in [1, 500]"))
		}
		limit = parsed
	}

	entries, err := s.downloads.Recent(c.Request().Context(), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// cleanupOrphans deletes tagged torrents whose game no longer exists.
func (s *Server) cleanupOrphans(c echo.Context) error {
	deleteFiles := c.QueryParam("deleteFiles") == "true"
	removed, err := s.downloads.RemoveOrphanedTorrents(c.Request().Context(), deleteFiles)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}
