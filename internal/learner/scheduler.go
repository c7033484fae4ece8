package learner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedules holds the cron expressions for the learner's background jobs.
type Schedules struct {
	EvaluateOutcomes      string `json:"evaluate_outcomes"`
	UpdateWeights         string `json:"update_weights"`
	CheckProbation        string `json:"check_probation"`
	CalculateCorrelations string `json:"calculate_correlations"`
}

// DefaultSchedules spreads the jobs on slow cadences: evaluation hourly,
// weight updates every 6 hours, probation and correlations daily.
func DefaultSchedules() Schedules {
	return Schedules{
		EvaluateOutcomes:      "5 * * * *",
		UpdateWeights:         "20 */6 * * *",
		CheckProbation:        "35 2 * * *",
		CalculateCorrelations: "50 3 * * *",
	}
}

const jobTimeout = 10 * time.Minute

// Scheduler runs the learner's jobs in-process on cron cadences. Each job
// runs serialized with itself via cron's SkipIfStillRunning wrapper, which
// keeps the single-writer guarantee on weight state.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler registers the four learner jobs. ctx bounds every job run.
func NewScheduler(
	ctx context.Context,
	tracker *PerformanceTracker,
	learner *Learner,
	universe UniverseSource,
	series SeriesSource,
	schedules Schedules,
	log zerolog.Logger,
) (*Scheduler, error) {
	logger := log.With().Str("component", "learner_scheduler").Logger()
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"evaluate_outcomes", schedules.EvaluateOutcomes, tracker.EvaluateOutcomes},
		{"update_weights", schedules.UpdateWeights, learner.UpdateWeights},
		{"check_probation", schedules.CheckProbation, learner.CheckProbation},
		{"calculate_correlations", schedules.CalculateCorrelations, func(ctx context.Context) error {
			return learner.CalculateCorrelations(ctx, universe, series)
		}},
	}

	for _, job := range jobs {
		job := job
		_, err := c.AddFunc(job.spec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			start := time.Now()
			if err := job.run(jobCtx); err != nil {
				logger.Error().Err(err).Str("job", job.name).Msg("job failed")
				return
			}
			logger.Debug().Str("job", job.name).Dur("took", time.Since(start)).Msg("job finished")
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	return &Scheduler{cron: c, log: logger}, nil
}

// Start begins running jobs on their cadences.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("learner jobs scheduled")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
