package services

import (
	"context"
	"sync"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/go-co-op/gocron"
)

// Schedule is a fixed interval, optionally with a first run at startup.
type Schedule struct {
	Interval     time.Duration
	RunOnStartup bool
}

// Job represents a scheduled task that can be executed by the scheduler
type Job interface {
	Name() string
	Execute(ctx context.Context) error
	Schedule() Schedule
}

type SchedulerService struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	log       logger.Logger
	started   bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSchedulerService() *SchedulerService {
	scheduler := gocron.NewScheduler(time.UTC)

	ctx, cancel := context.WithCancel(context.Background())

	return &SchedulerService{
		scheduler: scheduler,
		jobs:      make([]Job, 0),
		log:       logger.New("scheduler"),
		started:   false,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *SchedulerService) executeJob(job Job, log logger.Logger) {
	ctx := logger.ContextWithTraceID(s.ctx, job.Name()+"-"+time.Now().UTC().Format("20060102T150405"))

	log.Info("Executing scheduled job", "job", job.Name())
	if err := job.Execute(ctx); err != nil {
		log.Er("Job execution failed", err, "job", job.Name())
		return
	}
	log.Info("Job execution completed successfully", "job", job.Name())
}

// AddJob registers a job. Jobs run in singleton mode so a slow run is never
// overlapped by its own next tick.
func (s *SchedulerService) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("AddJob")

	schedule := job.Schedule()
	if schedule.Interval <= 0 {
		return log.Error("job interval must be positive", "job", job.Name(), "interval", schedule.Interval)
	}

	builder := s.scheduler.Every(schedule.Interval).Tag(job.Name()).SingletonMode()
	if !schedule.RunOnStartup {
		builder = builder.WaitForSchedule()
	}

	_, err := builder.Do(func() {
		s.executeJob(job, log)
	})
	if err != nil {
		return log.Err("failed to register job with scheduler", err, "job", job.Name())
	}

	s.jobs = append(s.jobs, job)
	log.Info("Job registered successfully",
		"job", job.Name(),
		"interval", schedule.Interval.String(),
		"runOnStartup", schedule.RunOnStartup,
	)

	return nil
}

func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("Start")

	if s.started {
		log.Info("Scheduler already started")
		return nil
	}

	if len(s.jobs) == 0 {
		log.Info("No jobs registered, scheduler will not start")
		return nil
	}

	log.Info("Starting scheduler", "jobCount", len(s.jobs))
	s.scheduler.StartAsync()
	s.started = true

	for _, job := range s.scheduler.Jobs() {
		log.Info("Job scheduled", "tags", job.Tags(), "nextRun", job.NextRun())
	}

	return nil
}

// Stop cancels the context handed to running jobs and stops the scheduler.
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("Stop")

	if !s.started {
		log.Info("Scheduler not started, nothing to stop")
		return nil
	}

	log.Info("Stopping scheduler")

	if s.cancel != nil {
		s.cancel()
	}

	s.scheduler.Stop()
	s.started = false

	log.Info("Scheduler stopped successfully")
	return nil
}

func (s *SchedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *SchedulerService) GetJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// GetNextRunTime returns the earliest next run across jobs, or nil when the
// scheduler is not running.
func (s *SchedulerService) GetNextRunTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	var next *time.Time
	for _, job := range s.scheduler.Jobs() {
		run := job.NextRun()
		if next == nil || run.Before(*next) {
			next = &run
		}
	}
	return next
}
