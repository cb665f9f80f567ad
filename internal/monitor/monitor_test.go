package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
)

type fakeSyncer struct {
	err   error
	calls int
}

func (f *fakeSyncer) SyncDownloadStatus(context.Context) error {
	f.calls++
	return f.err
}

func countLevel(buf *bytes.Buffer, level string) int {
	return strings.Count(buf.String(), `"level":"`+level+`"`)
}

func newMonitor(syncer *fakeSyncer) (*Monitor, *bytes.Buffer, *time.Time) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)
	m := New(syncer, logger)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, buf, &clock
}

func TestSilentReconnection(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("dial tcp 127.0.0.1:8080: connection refused")}
	m, buf, clock := newMonitor(syncer)
	ctx := context.Background()

	// Daemon down for 12 ticks at 30 s spacing.
	for i := 0; i < 12; i++ {
		m.Tick(ctx)
		*clock = clock.Add(30 * time.Second)
	}

	if got := countLevel(buf, "warn"); got != 1 {
		t.Errorf("warn count = %d, want exactly 1", got)
	}
	// Reminder fires once the outage passes five minutes (tick 11).
	if got := countLevel(buf, "debug"); got != 1 {
		t.Errorf("debug count = %d, want exactly 1", got)
	}
	if got := countLevel(buf, "error"); got != 0 {
		t.Errorf("error count = %d, want 0 for connection failures", got)
	}
	if !m.Disconnected() {
		t.Error("monitor should report disconnected")
	}

	// Daemon returns.
	syncer.err = nil
	m.Tick(ctx)

	if got := countLevel(buf, "info"); got != 1 {
		t.Errorf("info count = %d, want exactly 1 restoration message", got)
	}
	if !strings.Contains(buf.String(), "connection restored") {
		t.Error("restoration message missing")
	}
	if m.Disconnected() {
		t.Error("monitor should report connected again")
	}

	// Further successes stay silent.
	before := buf.Len()
	m.Tick(ctx)
	if buf.Len() != before {
		t.Error("healthy tick should not log")
	}
}

func TestNotConfiguredTreatedAsConnectionFailure(t *testing.T) {
	syncer := &fakeSyncer{err: apperr.NotConfigured("qbittorrent", "host not set")}
	m, buf, _ := newMonitor(syncer)

	m.Tick(context.Background())
	m.Tick(context.Background())

	if got := countLevel(buf, "warn"); got != 1 {
		t.Errorf("warn count = %d, want 1", got)
	}
	if got := countLevel(buf, "error"); got != 0 {
		t.Errorf("error count = %d, want 0", got)
	}
}

func TestNonConnectionErrorsAlwaysLogged(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("constraint violation")}
	m, buf, _ := newMonitor(syncer)

	m.Tick(context.Background())
	m.Tick(context.Background())
	m.Tick(context.Background())

	if got := countLevel(buf, "error"); got != 3 {
		t.Errorf("error count = %d, want one per tick", got)
	}
	if m.Disconnected() {
		t.Error("non-connection errors must not flip the connection state")
	}
}
