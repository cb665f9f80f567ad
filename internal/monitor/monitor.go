// Package monitor reconciles download daemon state into the catalog on
// a fixed cadence, staying quiet while the daemon is unreachable.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/startup"
)

const (
	// TickInterval is the reconciliation cadence.
	TickInterval = 30 * time.Second
	// reminderInterval spaces out DEBUG reminders while disconnected.
	reminderInterval = 5 * time.Minute
)

// Syncer reconciles active releases against daemon torrents.
type Syncer interface {
	SyncDownloadStatus(ctx context.Context) error
}

// Monitor drives periodic reconciliation. A connection-type failure
// logs one WARN and flips the state to disconnected; identical failures
// are then dropped except for a DEBUG reminder every five minutes, and
// the first success logs an INFO before returning to connected.
type Monitor struct {
	syncer Syncer
	logger zerolog.Logger

	disconnected bool
	failures     int
	lastErrorAt  time.Time
	lastReminder time.Time

	now func() time.Time
}

// New creates a download monitor.
func New(syncer Syncer, logger zerolog.Logger) *Monitor {
	return &Monitor{
		syncer: syncer,
		logger: logger.With().Str("component", "monitor").Logger(),
		now:    time.Now,
	}
}

// Tick runs one reconciliation pass and applies the logging discipline.
// Called from a single scheduler goroutine; no internal locking.
func (m *Monitor) Tick(ctx context.Context) {
	err := m.syncer.SyncDownloadStatus(ctx)
	if err == nil {
		if m.disconnected {
			m.logger.Info().
				Int("failedAttempts", m.failures).
				Dur("downFor", m.now().Sub(m.lastErrorAt)).
				Msg("Download daemon connection restored")
		}
		m.disconnected = false
		m.failures = 0
		return
	}

	if !isConnectionError(err) {
		m.logger.Error().Err(err).Msg("Download status sync failed")
		return
	}

	m.failures++
	now := m.now()
	if !m.disconnected {
		m.disconnected = true
		m.lastErrorAt = now
		m.lastReminder = now
		m.logger.Warn().Err(err).Msg("Download daemon unreachable, suppressing repeat errors")
		return
	}

	if now.Sub(m.lastReminder) >= reminderInterval {
		m.lastReminder = now
		m.logger.Debug().
			Err(err).
			Int("failedAttempts", m.failures).
			Dur("downFor", now.Sub(m.lastErrorAt)).
			Msg("Download daemon still unreachable")
	}
}

// Disconnected reports whether the daemon is currently unreachable.
func (m *Monitor) Disconnected() bool {
	return m.disconnected
}

func isConnectionError(err error) bool {
	return apperr.IsNotConfigured(err) || startup.IsNetworkError(err)
}
