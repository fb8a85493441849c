package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered
var ErrUnknownJob = errors.New("unknown job")

// Runner is one unit of scheduled work
type Runner func(ctx context.Context) error

type Config struct {
	SweepInterval time.Duration
	ReportHourUTC uint // hour of day the movement report runs
}

// JobScheduler runs the periodic low-stock sweep and the nightly movement report.
// Each job runs in singleton mode so a slow run is never overlapped by the next.
type JobScheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

func NewJobScheduler(cfg Config, sweep, report Runner, logger zerolog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Minute
	}
	if cfg.ReportHourUTC > 23 {
		cfg.ReportHourUTC = 1
	}

	if err := js.register("low-stock-sweep", gocron.DurationJob(cfg.SweepInterval), sweep); err != nil {
		cancel()
		return nil, err
	}
	daily := gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(cfg.ReportHourUTC, 0, 0)))
	if err := js.register("movement-report", daily, report); err != nil {
		cancel()
		return nil, err
	}

	logger.Info().Int("jobs", len(js.jobs)).Dur("sweep_interval", cfg.SweepInterval).Msg("background jobs registered")
	return js, nil
}

func (js *JobScheduler) register(name string, def gocron.JobDefinition, run Runner) error {
	if run == nil {
		return nil
	}
	job, err := js.scheduler.NewJob(
		def,
		gocron.NewTask(js.wrap(name, run)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}

	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

func (js *JobScheduler) wrap(name string, run Runner) func() {
	return func() {
		started := time.Now()
		if err := run(js.ctx); err != nil {
			js.logger.Error().Err(err).Str("job", name).Msg("background job failed")
			return
		}
		js.logger.Debug().Str("job", name).Dur("took", time.Since(started)).Msg("background job finished")
	}
}

func (js *JobScheduler) Start() {
	js.logger.Info().Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return
func (js *JobScheduler) Stop() error {
	js.logger.Info().Msg("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

// RunNow triggers a registered job outside its schedule
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return job.RunNow()
}

// NextRuns reports when each job fires next
func (js *JobScheduler) NextRuns() map[string]time.Time {
	js.mu.RLock()
	defer js.mu.RUnlock()

	out := make(map[string]time.Time, len(js.jobs))
	for name, job := range js.jobs {
		if next, err := job.NextRun(); err == nil {
			out[name] = next
		}
	}
	return out
}
