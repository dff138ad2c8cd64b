package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/go-co-op/gocron/v2"
)

// Job is a named task run with its own request id. A zero Timeout means no deadline.
type Job struct {
	Name    string
	Run     func(ctx context.Context) error
	Timeout time.Duration
}

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() *Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("Scheduler shutdown error", slog.String("err", err.Error()))
	}
}

// NewIntervalJob runs job every interval, optionally right after Start.
func (s *Scheduler) NewIntervalJob(job Job, interval time.Duration, startImmediately bool) {
	var opts []gocron.JobOption
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	s.addJob(gocron.DurationJob(interval), job, opts...)
}

// NewCrontabJob runs job on a five-field crontab.
func (s *Scheduler) NewCrontabJob(job Job, crontab string) {
	s.addJob(gocron.CronJob(crontab, false), job)
}

// overlapping runs are rescheduled, never stacked
func (s *Scheduler) addJob(definition gocron.JobDefinition, job Job, opts ...gocron.JobOption) {
	opts = append(opts, gocron.WithName(job.Name), gocron.WithSingletonMode(gocron.LimitModeReschedule))

	if _, err := s.scheduler.NewJob(definition, gocron.NewTask(runJob, job), opts...); err != nil {
		slog.Error("Scheduler creating job error", slog.String("jobName", job.Name), slog.String("err", err.Error()))
		panic(err.Error())
	}
}

func runJob(job Job) {
	ctx := utils.CreateCtxWithRqID(context.Background())
	rqID := utils.GetRequestIDFromCtx(ctx)

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"Panic recovered in scheduler job",
				slog.String("rqID", rqID),
				slog.String("jobName", job.Name),
				slog.Any("panic", r),
				slog.String("stacktrace", string(debug.Stack())),
			)
		}
	}()

	start := time.Now()
	slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", job.Name))

	if err := job.Run(ctx); err != nil {
		slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", job.Name),
			slog.Duration("elapsed", time.Since(start)), slog.String("err", err.Error()))
		return
	}

	slog.Info("job completed", slog.String("rqID", rqID), slog.String("jobName", job.Name), slog.Duration("elapsed", time.Since(start)))
}
