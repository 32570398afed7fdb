package jobs

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trafficportal/internal/config"
	"trafficportal/internal/tasks"
)

// Scheduler enqueues the periodic worker tasks onto the task stream.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	specs  config.JobsConfig
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, specs config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		specs:  specs,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	jobs := []struct {
		spec     string
		taskType string
	}{
		{s.specs.SnapshotSpec, tasks.TypeRegistrySnapshot},
		{s.specs.AuditSpec, tasks.TypePermissionsAudit},
	}
	for _, job := range jobs {
		taskType := job.taskType
		if _, err := s.cron.AddFunc(job.spec, func() { s.enqueue(taskType) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
	return nil
}

// Stop halts the schedule; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueue(taskType string) {
	if err := s.Enqueue(context.Background(), taskType); err != nil {
		s.log.Error().Err(err).Str("type", taskType).Msg("enqueue task failed")
	}
}

// Enqueue appends one task to the stream immediately.
func (s *Scheduler) Enqueue(ctx context.Context, taskType string) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"type": taskType},
	}).Err()
}
