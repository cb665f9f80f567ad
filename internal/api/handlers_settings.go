package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/scheduler/tasks"
	"github.com/gamearr/gamearr/internal/settings"
)

// getSettings returns every stored setting with sensitive values
// redacted.
func (s *Server) getSettings(c echo.Context) error {
	all, err := s.settings.All(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, all)
}

// updateSettings applies a bulk write. Only allowlisted keys are
// accepted; protected keys are rejected outright so credentials-only
// clients cannot flip auth flags.
func (s *Server) updateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var incoming map[string]string
	if err := c.Bind(&incoming); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(incoming) == 0 {
		return fail(c, apperr.Validation("no settings provided"))
	}

	for key := range incoming {
		if settings.IsProtected(key) {
			return fail(c, apperr.Validation(fmt.Sprintf("setting %q is managed by a dedicated endpoint", key)))
		}
		if !settings.IsWritable(key) {
			return fail(c, apperr.Validation(fmt.Sprintf("setting %q is not writable", key)))
		}
	}

	for key, value := range incoming {
		if err := s.settings.Set(ctx, key, value); err != nil {
			return fail(c, err)
		}
	}

	s.applyScheduleChanges(c, incoming)

	all, err := s.settings.All(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, all)
}

// applyScheduleChanges pushes new intervals into the scheduler when an
// interval setting was part of the write. Failures are logged, not
// surfaced: the setting is stored and takes effect on restart at worst.
func (s *Server) applyScheduleChanges(c echo.Context, incoming map[string]string) {
	if s.sched == nil {
		return
	}
	ctx := c.Request().Context()

	if _, ok := incoming[settings.KeySearchInterval]; ok {
		if err := s.sched.Reschedule(tasks.SearchTaskID, s.settings.SearchInterval(ctx), ""); err != nil {
			s.logger.Error().Err(err).Msg("Failed to reschedule search task")
		}
	}
	if _, ok := incoming[settings.KeyRSSSyncInterval]; ok {
		if err := s.sched.Reschedule(tasks.RSSSyncTaskID, s.settings.RSSSyncInterval(ctx), ""); err != nil {
			s.logger.Error().Err(err).Msg("Failed to reschedule RSS sync task")
		}
	}
	if _, ok := incoming[settings.KeyUpdateCheckSched]; ok {
		cron := tasks.CronForSchedule(s.settings.UpdateCheckSchedule(ctx))
		if err := s.sched.Reschedule(tasks.UpdateCheckTaskID, 0, cron); err != nil {
			s.logger.Error().Err(err).Msg("Failed to reschedule update check task")
		}
	}
}
