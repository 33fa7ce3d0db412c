package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"retentiond/internal/domain/purge"
	"retentiond/internal/domain/schedule"
)

const (
	JobPurgeTier    = "purge_tier"
	JobGraceCleanup = "grace_cleanup"
	JobManualPurge  = "purge_manual"
	JobErasure      = "erasure"
)

// Service owns the in-process job queue and the cron triggers for the
// cadence tiers. Jobs run one at a time off the queue; the engine itself
// processes each run's jobs sequentially, so a single worker keeps purge
// runs from racing each other.
type Service struct {
	Engine   *purge.Engine
	Schedule schedule.Config
	queue    chan job
	cron     *cron.Cron
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(engine *purge.Engine, sched schedule.Config) *Service {
	return &Service{
		Engine:   engine,
		Schedule: sched,
		queue:    make(chan job, 64),
		cron:     cron.New(),
	}
}

// Start launches the worker and registers the cron triggers. It returns an
// error only for an invalid cron expression; the schedule should have been
// validated at startup already.
func (s *Service) Start(ctx context.Context) error {
	go s.worker(ctx)

	for _, cadence := range []schedule.Cadence{
		schedule.CadenceDaily, schedule.CadenceWeekly,
		schedule.CadenceMonthly, schedule.CadenceQuarterly,
	} {
		expr := s.Schedule.Cron(cadence)
		if expr == "" {
			continue
		}
		tier := cadence
		if _, err := s.cron.AddFunc(expr, func() {
			s.Enqueue(JobPurgeTier, func(ctx context.Context) (any, error) {
				return s.Engine.ExecuteRun(ctx, purge.RunOptions{
					Categories: s.Schedule.Categories(tier),
				})
			})
		}); err != nil {
			return err
		}
	}

	if expr := s.Schedule.GraceCleanupCron; expr != "" {
		if _, err := s.cron.AddFunc(expr, func() {
			s.Enqueue(JobGraceCleanup, func(ctx context.Context) (any, error) {
				return s.Engine.RunGraceCleanup(ctx, "")
			})
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	slog.Info("purge schedulers started",
		"daily", s.Schedule.DailyCron,
		"weekly", s.Schedule.WeeklyCron,
		"monthly", s.Schedule.MonthlyCron,
		"quarterly", s.Schedule.QuarterlyCron,
		"graceCleanup", s.Schedule.GraceCleanupCron)
	return nil
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full, dropping trigger", "jobType", jobType)
	}
}

// RunNow executes a job synchronously, bypassing the queue. Manual operator
// purges use this so the API call returns the run summary.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("scheduled job failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	slog.Info("job started", "jobType", j.Type)
	details, err := j.Run(ctx)
	if err != nil {
		slog.Warn("job finished with error", "jobType", j.Type, "err", err)
		return details, err
	}
	slog.Info("job finished", "jobType", j.Type)
	return details, nil
}
