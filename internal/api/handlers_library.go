package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/models"
)

func (s *Server) listLibraries(c echo.Context) error {
	libraries, err := s.repos.Libraries.List(c.Request().Context())
	if err != nil {
		return fail(c, apperr.Database("list libraries", err))
	}
	return c.JSON(http.StatusOK, libraries)
}

type createLibraryRequest struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	Platform        string `json:"platform"`
	Monitored       *bool  `json:"monitored"`
	DownloadEnabled *bool  `json:"downloadEnabled"`
	Priority        int    `json:"priority"`
}

func (s *Server) createLibrary(c echo.Context) error {
	var req createLibraryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" || req.Path == "" {
		return fail(c, apperr.Validation("name and path are required"))
	}

	monitored := true
	if req.Monitored != nil {
		monitored = *req.Monitored
	}
	downloadEnabled := true
	if req.DownloadEnabled != nil {
		downloadEnabled = *req.DownloadEnabled
	}

	created, err := s.repos.Libraries.Create(c.Request().Context(), &models.Library{
		Name:            req.Name,
		Path:            req.Path,
		Platform:        req.Platform,
		Monitored:       monitored,
		DownloadEnabled: downloadEnabled,
		Priority:        req.Priority,
	})
	if err != nil {
		return fail(c, apperr.Database("create library", err))
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) deleteLibrary(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, apperr.Validation("invalid library id"))
	}
	if err := s.repos.Libraries.Delete(c.Request().Context(), id); err != nil {
		return fail(c, apperr.Database("delete library", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// libraryIDParam reads the optional libraryId query parameter.
func libraryIDParam(c echo.Context) (*int64, error) {
	raw := c.QueryParam("libraryId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("invalid libraryId")
	}
	return &id, nil
}

// scanLibrary returns scanned folders, from cache when available.
func (s *Server) scanLibrary(c echo.Context) error {
	libraryID, err := libraryIDParam(c)
	if err != nil {
		return fail(c, err)
	}
	files, err := s.library.Scan(c.Request().Context(), libraryID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// refreshLibrary forces a filesystem walk.
func (s *Server) refreshLibrary(c echo.Context) error {
	libraryID, err := libraryIDParam(c)
	if err != nil {
		return fail(c, err)
	}
	files, err := s.library.Refresh(c.Request().Context(), libraryID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// findDuplicates groups near-identical titles with their disk usage.
func (s *Server) findDuplicates(c echo.Context) error {
	groups, err := s.library.FindDuplicateGames(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, groups)
}
