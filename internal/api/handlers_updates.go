package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
)

// listPendingUpdates returns all pending update candidates.
func (s *Server) listPendingUpdates(c echo.Context) error {
	pending, err := s.detector.ListPending(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pending)
}

// listGameUpdates returns the update candidates for one game.
func (s *Server) listGameUpdates(c echo.Context) error {
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}
	found, err := s.detector.ListByGame(c.Request().Context(), game.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

// checkGameUpdates runs an on-demand update check for one game.
// Concurrent checks for the same game share one indexer call.
func (s *Server) checkGameUpdates(c echo.Context) error {
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}
	found, err := s.detector.CheckGameForUpdates(c.Request().Context(), game.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

// dismissUpdate hides an update candidate. Idempotent.
func (s *Server) dismissUpdate(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, apperr.Validation("invalid update id"))
	}
	if err := s.detector.Dismiss(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// runUpdateSweep triggers the whole-catalog sweep; a sweep already in
// flight is joined rather than duplicated.
func (s *Server) runUpdateSweep(c echo.Context) error {
	result, err := s.updatesJob.Run(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
