// Package scheduler triggers periodic maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tenantapi/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobStatus represents the status of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc performs one run of a job and returns the number of rows it affected.
type JobFunc func(ctx context.Context) (int64, error)

// Job is a named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobState is a snapshot of a job's last run.
type JobState struct {
	Name        string
	Status      JobStatus
	LastStarted time.Time
	LastEnded   time.Time
	LastCount   int64
	LastError   string
	Attempts    int
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	RunOnStartup      bool
}

// SchedulerConfigFrom maps the maintenance config section.
func SchedulerConfigFrom(cfg config.MaintenanceConfig) SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		JobTimeout:        cfg.JobTimeout,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelay,
		RunOnStartup:      cfg.RunOnStartup,
	}
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 2,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        30 * time.Second,
	}
}

func (c SchedulerConfig) validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// MaintenanceScheduler runs registered jobs on their intervals through a
// bounded worker pool. Each run gets a timeout and is retried on error.
// A job is never run concurrently with itself.
type MaintenanceScheduler struct {
	config SchedulerConfig
	logger *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*Job
	order     []string
	states    map[string]*JobState
	inFlight  map[string]bool
	queue     chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewMaintenanceScheduler creates a scheduler
func NewMaintenanceScheduler(cfg SchedulerConfig, logger *zap.Logger) (*MaintenanceScheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MaintenanceScheduler{
		config:   cfg,
		logger:   logger,
		jobs:     make(map[string]*Job),
		states:   make(map[string]*JobState),
		inFlight: make(map[string]bool),
	}, nil
}

// Register adds a job. It must be called before Start.
func (s *MaintenanceScheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job needs a name, a function and a positive interval", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	j := job
	s.jobs[job.Name] = &j
	s.order = append(s.order, job.Name)
	s.states[job.Name] = &JobState{Name: job.Name, Status: JobStatusPending}
	return nil
}

// Jobs returns the registered job names in registration order
func (s *MaintenanceScheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// State returns a snapshot of a job's last run
func (s *MaintenanceScheduler) State(name string) (JobState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	if !ok {
		return JobState{}, false
	}
	return *st, true
}

// Start launches the workers and one ticker per job.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.queue = make(chan *Job, len(s.jobs)+1)
	s.inFlight = make(map[string]bool)
	jobs := make([]*Job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	for _, job := range jobs {
		s.wg.Add(1)
		go s.tick(ctx, job)
	}

	s.logger.Info("Maintenance scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Int("jobs", len(jobs)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers, bounded by ctx.
func (s *MaintenanceScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Maintenance scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger queues a run of the named job on the worker pool.
func (s *MaintenanceScheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if s.inFlight[name] {
		s.logger.Debug("Job already queued or running, skipping", zap.String("job", name))
		return nil
	}

	select {
	case s.queue <- job:
		s.inFlight[name] = true
		return nil
	default:
		return ErrJobQueueFull
	}
}

// RunOnce runs the named job synchronously with the configured timeout
// and retries. It does not need Start.
func (s *MaintenanceScheduler) RunOnce(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, job)
}

func (s *MaintenanceScheduler) tick(ctx context.Context, job *Job) {
	defer s.wg.Done()

	if s.config.RunOnStartup {
		s.enqueue(job.Name)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(job.Name)
		}
	}
}

func (s *MaintenanceScheduler) enqueue(name string) {
	if err := s.Trigger(name); err != nil && !errors.Is(err, ErrSchedulerNotRunning) {
		s.logger.Warn("Failed to queue maintenance job", zap.String("job", name), zap.Error(err))
	}
}

func (s *MaintenanceScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.logger.Debug("Processing job", zap.Int("worker_id", workerID), zap.String("job", job.Name))
			_, _ = s.execute(ctx, job)
			s.mu.Lock()
			delete(s.inFlight, job.Name)
			s.mu.Unlock()
		}
	}
}

// execute runs job with per-attempt timeouts, retrying up to RetryAttempts
// times after the first failure.
func (s *MaintenanceScheduler) execute(ctx context.Context, job *Job) (int64, error) {
	s.updateState(job.Name, func(st *JobState) {
		st.Status = JobStatusRunning
		st.LastStarted = time.Now()
		st.Attempts = 0
	})

	var (
		count int64
		err   error
	)
	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			s.logger.Info("Retrying maintenance job",
				zap.String("job", job.Name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", s.config.RetryDelay),
			)
			select {
			case <-ctx.Done():
				err = ctx.Err()
				s.finish(job.Name, 0, err, attempt)
				return 0, err
			case <-time.After(s.config.RetryDelay):
			}
		}

		count, err = s.attempt(ctx, job)
		if err == nil {
			s.finish(job.Name, count, nil, attempt+1)
			s.logger.Info("Maintenance job completed",
				zap.String("job", job.Name),
				zap.Int64("count", count),
			)
			return count, nil
		}
		s.logger.Error("Maintenance job failed",
			zap.String("job", job.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	s.finish(job.Name, 0, err, s.config.RetryAttempts+1)
	return 0, err
}

func (s *MaintenanceScheduler) attempt(ctx context.Context, job *Job) (count int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}

func (s *MaintenanceScheduler) finish(name string, count int64, err error, attempts int) {
	s.updateState(name, func(st *JobState) {
		st.LastEnded = time.Now()
		st.LastCount = count
		st.Attempts = attempts
		if err != nil {
			st.Status = JobStatusFailed
			st.LastError = err.Error()
			return
		}
		st.Status = JobStatusSuccess
		st.LastError = ""
	})
}

func (s *MaintenanceScheduler) updateState(name string, fn func(*JobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[name]; ok {
		fn(st)
	}
}
