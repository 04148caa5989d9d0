package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

var (
	ErrNilJob          = errors.New("job cannot be nil")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrAlreadyStarted  = errors.New("scheduler already started")
)

// Job is a task run periodically by the Scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Scheduler runs each registered Job every interval until stopped.
// runs of a same job never overlap: a tick missed while the job runs is dropped.
type Scheduler struct {
	log core.Logger

	mu      sync.Mutex
	jobs    []scheduledJob
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(logger core.Logger) *Scheduler {
	return &Scheduler{log: logger}
}

func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if job == nil {
		return ErrNilJob
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
	return nil
}

// Start launches the registered jobs in the background. The first run happens after one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, sj := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, sj)
		s.log.Info("job scheduled", map[string]interface{}{"job": sj.job.Name(), "interval": sj.interval.String()})
	}
	return nil
}

// Stop cancels the running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, sj scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, sj.job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", errors.Errorf("%v", r), map[string]interface{}{"job": job.Name()})
		}
	}()

	start := time.Now()
	err := job.Run(ctx)
	extras := map[string]interface{}{"job": job.Name(), "duration": time.Since(start).String()}
	switch {
	case err == nil:
		s.log.Info("job done", extras)
	case errors.Cause(err) == core.ErrLocked:
		s.log.Info("job skipped: already running", extras)
	case errors.Cause(err) == context.Canceled:
		s.log.Info("job cancelled", extras)
	default:
		s.log.Error("job failed", err, extras)
	}
}
