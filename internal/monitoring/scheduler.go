package monitoring

import (
	"fmt"

	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the metrics retention prune on a cron schedule.
type Scheduler struct {
	metricsSvc     services.MetricsServiceProvider
	retentionHours int
	cron           *cron.Cron
	done           chan bool
}

// NewScheduler creates a scheduler that prunes metrics older than
// retentionHours whenever spec fires. spec accepts standard cron expressions
// and descriptors such as "@every 1h".
func NewScheduler(metricsSvc services.MetricsServiceProvider, retentionHours int, spec string) (*Scheduler, error) {
	s := &Scheduler{
		metricsSvc:     metricsSvc,
		retentionHours: retentionHours,
		cron:           cron.New(cron.WithLogger(cronLogger{})),
		done:           make(chan bool),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.PruneNow() }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the scheduler. It blocks until Stop is called.
func (s *Scheduler) Run() {
	log.Info().Int("retention_hours", s.retentionHours).Msg("Starting retention scheduler...")

	// Run once immediately on start
	s.PruneNow()
	s.cron.Start()

	<-s.done
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping retention scheduler.")
}

// Stop halts the scheduler after any running prune completes.
func (s *Scheduler) Stop() {
	s.done <- true
}

// PruneNow deletes expired snapshots. Failures are logged only; they never
// reach history or uptime queries.
func (s *Scheduler) PruneNow() int64 {
	n, err := s.metricsSvc.Prune(s.retentionHours)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to prune metrics history")
		return 0
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Scheduler: Pruned metrics history")
	}
	return n
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("Scheduler: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("Scheduler: " + msg)
}
