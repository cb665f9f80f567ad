package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
)

// systemStatus reports integration readiness and runtime flags.
func (s *Server) systemStatus(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]any{
		"prowlarrConfigured":    s.prowlarr.IsConfigured(ctx),
		"qbittorrentConfigured": s.qbit.IsConfigured(ctx),
		"igdbConfigured":        s.igdb.IsConfigured(ctx),
		"dryRun":                s.settings.DryRun(ctx),
	})
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// listTasks returns the scheduler registry.
func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sched.ListTasks())
}

// runTask triggers a scheduled task outside its schedule.
func (s *Server) runTask(c echo.Context) error {
	if err := s.sched.RunNow(c.Param("id")); err != nil {
		return fail(c, apperr.NotFound(err.Error()))
	}
	return c.NoContent(http.StatusAccepted)
}

// testProwlarr verifies indexer connectivity with current settings.
func (s *Server) testProwlarr(c echo.Context) error {
	if err := s.prowlarr.TestConnection(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type qbitConfigRequest struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// configureQbit persists daemon credentials and drops the session so
// the next call re-authenticates.
func (s *Server) configureQbit(c echo.Context) error {
	var req qbitConfigRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Host == "" {
		return fail(c, apperr.Validation("host is required"))
	}
	if err := s.qbit.Configure(c.Request().Context(), req.Host, req.Username, req.Password); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// testQbit verifies daemon connectivity with current settings.
func (s *Server) testQbit(c echo.Context) error {
	if err := s.qbit.TestConnection(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
