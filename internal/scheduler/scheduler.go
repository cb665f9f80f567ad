// Package scheduler manages the background workers on top of gocron:
// the periodic search, RSS and monitor ticks plus the cron-style update
// sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// TaskFunc is the signature scheduled tasks implement.
type TaskFunc func(ctx context.Context) error

// TaskConfig describes one scheduled task. Exactly one of Interval or
// Cron must be set.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Interval    time.Duration
	Cron        string
	Func        TaskFunc
	RunOnStart  bool
	// StartDelay postpones the first interval run; used to keep slow
	// first checks off the boot path.
	StartDelay time.Duration
}

// TaskInfo is the API-facing view of a registered task.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Interval    string     `json:"interval,omitempty"`
	Cron        string     `json:"cron,omitempty"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config  TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// Scheduler owns the background task registry.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex
}

// New creates a scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
	}, nil
}

func definitionFor(config TaskConfig) (gocron.JobDefinition, error) {
	switch {
	case config.Interval > 0 && config.Cron != "":
		return nil, fmt.Errorf("task %q sets both interval and cron", config.ID)
	case config.Interval > 0:
		return gocron.DurationJob(config.Interval), nil
	case config.Cron != "":
		return gocron.CronJob(config.Cron, false), nil
	default:
		return nil, fmt.Errorf("task %q sets neither interval nor cron", config.ID)
	}
}

// RegisterTask adds a task to the registry and schedules it.
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task %q already registered", config.ID)
	}

	definition, err := definitionFor(config)
	if err != nil {
		return err
	}

	opts := []gocron.JobOption{
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
	}
	if config.StartDelay > 0 {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartDateTime(time.Now().Add(config.StartDelay))))
	}

	job, err := s.gocron.NewJob(definition, gocron.NewTask(func() { s.executeTask(config.ID) }), opts...)
	if err != nil {
		return fmt.Errorf("create job for task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{config: config, job: job}

	s.logger.Info().
		Str("id", config.ID).
		Str("name", config.Name).
		Dur("interval", config.Interval).
		Str("cron", config.Cron).
		Msg("Registered task")

	return nil
}

// UnregisterTask removes a task and cancels its schedule.
func (s *Scheduler) UnregisterTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	if err := s.gocron.RemoveJob(entry.job.ID()); err != nil {
		return fmt.Errorf("remove job for task %q: %w", taskID, err)
	}
	delete(s.tasks, taskID)
	s.logger.Info().Str("id", taskID).Msg("Unregistered task")
	return nil
}

// Reschedule replaces a task's timing in place. Used when the interval
// or schedule setting changes at runtime.
func (s *Scheduler) Reschedule(taskID string, interval time.Duration, cron string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}

	config := entry.config
	config.Interval = interval
	config.Cron = cron
	definition, err := definitionFor(config)
	if err != nil {
		return err
	}

	job, err := s.gocron.Update(entry.job.ID(), definition,
		gocron.NewTask(func() { s.executeTask(taskID) }),
		gocron.WithName(config.Name),
		gocron.WithTags(taskID))
	if err != nil {
		return fmt.Errorf("reschedule task %q: %w", taskID, err)
	}

	entry.config = config
	entry.job = job
	s.logger.Info().
		Str("id", taskID).
		Dur("interval", interval).
		Str("cron", cron).
		Msg("Rescheduled task")
	return nil
}

func (s *Scheduler) executeTask(taskID string) {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists {
		s.mu.Unlock()
		return
	}
	entry.running = true
	// Reschedule replaces entry.config under the lock, so grab the
	// function before releasing it.
	fn := entry.config.Func
	s.mu.Unlock()

	startTime := time.Now()
	s.logger.Debug().Str("id", taskID).Msg("Starting task")

	err := fn(context.Background())

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &startTime
	s.mu.Unlock()

	duration := time.Since(startTime)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("id", taskID).
			Dur("duration", duration).
			Msg("Task failed")
	} else {
		s.logger.Debug().
			Str("id", taskID).
			Dur("duration", duration).
			Msg("Task completed")
	}
}

// Start begins executing schedules and kicks off RunOnStart tasks.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("Starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	var startup []string
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, taskID := range startup {
		go s.executeTask(taskID)
	}
}

// Stop shuts the scheduler down, waiting for in-flight tasks.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.gocron.Shutdown()
}

// RunNow triggers a task outside its schedule.
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.RLock()
	entry, exists := s.tasks[taskID]
	running := exists && entry.running
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	if running {
		return fmt.Errorf("task %q is already running", taskID)
	}

	go s.executeTask(taskID)
	return nil
}

// ListTasks returns the registry for API consumption.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		tasks = append(tasks, s.infoLocked(entry))
	}
	return tasks
}

// GetTask returns one task's state.
func (s *Scheduler) GetTask(taskID string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task %q not found", taskID)
	}
	info := s.infoLocked(entry)
	return &info, nil
}

func (s *Scheduler) infoLocked(entry *taskEntry) TaskInfo {
	info := TaskInfo{
		ID:          entry.config.ID,
		Name:        entry.config.Name,
		Description: entry.config.Description,
		Cron:        entry.config.Cron,
		LastRun:     entry.lastRun,
		Running:     entry.running,
	}
	if entry.config.Interval > 0 {
		info.Interval = entry.config.Interval.String()
	}
	if nextRun, err := entry.job.NextRun(); err == nil {
		info.NextRun = &nextRun
	}
	return info
}
