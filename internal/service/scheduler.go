package service

import (
	"context"
	"fmt"
	"time"

	"backtest-engine/config"
	"backtest-engine/pkg/logger"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

type SchedulerService interface {
	// Start registers the periodic jobs and starts the cron runner.
	Start(ctx context.Context) error
	// Stop halts the runner; the returned context is done once running jobs
	// have finished.
	Stop() context.Context
	RunLeaderboardJob(ctx context.Context) error
	RunCleanupJob(ctx context.Context) error
}

type schedulerService struct {
	cfg                *config.Config
	log                *logger.Logger
	cron               *cron.Cron
	cronParser         cron.Parser
	leaderboardService LeaderboardService
	backtestService    BacktestService
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	leaderboardService LeaderboardService,
	backtestService BacktestService,
) *schedulerService {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &schedulerService{
		cfg:        cfg,
		log:        log,
		cronParser: parser,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		leaderboardService: leaderboardService,
		backtestService:    backtestService,
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{name: "leaderboard_refresh", spec: s.cfg.Scheduler.LeaderboardCron, run: s.RunLeaderboardJob},
		{name: "backtest_cleanup", spec: s.cfg.Scheduler.CleanupCron, run: s.RunCleanupJob},
	}

	for _, job := range jobs {
		if job.spec == "" {
			s.log.InfoContext(ctx, "Job disabled", logger.StringField("job_name", job.name))
			continue
		}
		if _, err := s.cronParser.Parse(job.spec); err != nil {
			return fmt.Errorf("invalid cron expression for %s: %w", job.name, err)
		}

		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		s.log.InfoContext(ctx, "Job scheduled",
			logger.StringField("job_name", job.name),
			logger.StringField("cron", job.spec),
		)
	}

	s.cron.Start()
	return nil
}

func (s *schedulerService) wrap(name string, run func(context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorContextWithAlert(context.Background(), "Job panicked",
					logger.StringField("job_name", name),
					logger.Field("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := run(ctx); err != nil {
			s.log.ErrorContextWithAlert(ctx, "Failed to execute job",
				logger.StringField("job_name", name),
				logger.ErrorField(err),
			)
			return
		}
		s.log.InfoContext(ctx, "Job execution completed",
			logger.StringField("job_name", name),
			logger.DurationField("elapsed", time.Since(started)),
		)
	}
}

func (s *schedulerService) Stop() context.Context {
	return s.cron.Stop()
}

func (s *schedulerService) RunLeaderboardJob(ctx context.Context) error {
	return s.leaderboardService.Refresh(ctx)
}

func (s *schedulerService) RunCleanupJob(ctx context.Context) error {
	_, err := s.backtestService.Cleanup(ctx)
	return err
}
