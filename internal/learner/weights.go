package learner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"crypto-consensus-bot/internal/market"
)

// Weight update thresholds. Accuracy is the directional hit rate over the
// 30-day window unless stated otherwise.
const (
	weightMin = 0.2
	weightMax = 2.0

	boostHighAccuracy = 0.70 // ×1.30, capped at 2.0
	boostHighFactor   = 1.30
	boostHighCap      = 2.0

	boostMidAccuracy = 0.60 // ×1.10, capped at 1.5
	boostMidFactor   = 1.10
	boostMidCap      = 1.5

	cutAccuracy = 0.50 // below this, ×0.50, floored at 0.2
	cutFactor   = 0.50

	updateMinSamples = 20

	disableAccuracy   = 0.35 // below this over >=50 samples the generator is disabled
	disableMinSamples = 50

	probationCooldown   = 7 * 24 * time.Hour
	probationWindow     = 7 * 24 * time.Hour
	probationMinSamples = 20
	probationPassRate   = 0.50
	maxDisables         = 3
)

// Confidence-floor auto-tuning bounds. The floor starts at 0.6 and drifts
// with 7-day realized accuracy across all generators.
const (
	SettingConfidenceFloor = "confidence_floor"

	floorDefault = 0.60
	floorMin     = 0.50
	floorMax     = 0.80
	floorStep    = 0.02

	floorRaiseBelow = 0.45 // overall 7d accuracy below this raises the floor
	floorLowerAbove = 0.60 // above this lowers it
	floorMinSamples = 30
)

// MetricsSink receives weight lifecycle transitions. Implemented by
// metrics.Recorder.
type MetricsSink interface {
	WeightTransition(transition string)
}

// Learner recomputes per-generator trust weights from matured prediction
// outcomes and drives the probation lifecycle. It is the only writer of
// weight state; run it serialized, never concurrently with itself.
type Learner struct {
	store        Store
	philosophies map[string]string // generator name -> philosophy tag
	metrics      MetricsSink
	log          zerolog.Logger
	now          func() time.Time
}

// NewLearner creates a weight learner. philosophies seeds the state row
// created on first observation of each generator; metrics may be nil.
func NewLearner(store Store, philosophies map[string]string, metrics MetricsSink, log zerolog.Logger) *Learner {
	return &Learner{
		store:        store,
		philosophies: philosophies,
		metrics:      metrics,
		log:          log.With().Str("component", "weight_learner").Logger(),
		now:          time.Now,
	}
}

// UpdateWeights recomputes every generator's rolling accuracy and applies
// the multiplier rule, then re-tunes the global confidence floor. Safe to
// re-run: it reads only finalized outcomes and writes absolute values.
func (l *Learner) UpdateWeights(ctx context.Context) error {
	now := l.now()

	acc7, err := l.store.AccuracySince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("7d accuracy: %w", err)
	}
	acc30, err := l.store.AccuracySince(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return fmt.Errorf("30d accuracy: %w", err)
	}
	acc90, err := l.store.AccuracySince(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		return fmt.Errorf("90d accuracy: %w", err)
	}

	states, err := l.store.WeightStates(ctx)
	if err != nil {
		return fmt.Errorf("load weight states: %w", err)
	}

	for name, philosophy := range l.philosophies {
		state, ok := states[name]
		if !ok {
			state = &market.WeightState{
				GeneratorName: name,
				Philosophy:    philosophy,
				CurrentWeight: 1.0,
				Status:        market.GeneratorStatusActive,
			}
			states[name] = state
		}

		state.Accuracy7d = acc7[name].Rate()
		state.Accuracy30d = acc30[name].Rate()
		state.Accuracy90d = acc90[name].Rate()
		state.SampleCount = acc90[name].Total

		if state.Status == market.GeneratorStatusActive {
			l.applyWeightRule(state, acc30[name], now)
		}

		state.UpdatedAt = now
		if err := l.store.UpsertWeightState(ctx, state); err != nil {
			return fmt.Errorf("persist weight state %s: %w", name, err)
		}
	}

	if err := l.tuneConfidenceFloor(ctx, acc7); err != nil {
		return err
	}

	l.log.Info().Int("generators", len(l.philosophies)).Msg("weight update finished")
	return nil
}

// applyWeightRule mutates one ACTIVE generator's weight and, when the
// hard disable rule fires, its lifecycle status.
func (l *Learner) applyWeightRule(state *market.WeightState, acc market.Accuracy, now time.Time) {
	rate := acc.Rate()

	// Disabling requires a large sample so a cold streak can't kill a
	// generator prematurely.
	if acc.Total >= disableMinSamples && rate < disableAccuracy {
		l.disable(state, now)
		return
	}

	if acc.Total < updateMinSamples {
		return
	}

	switch {
	case rate >= boostHighAccuracy:
		state.CurrentWeight = min(state.CurrentWeight*boostHighFactor, boostHighCap)
	case rate >= boostMidAccuracy:
		state.CurrentWeight = min(state.CurrentWeight*boostMidFactor, boostMidCap)
	case rate >= cutAccuracy:
		// 50-60%: hold steady.
	default:
		state.CurrentWeight = max(state.CurrentWeight*cutFactor, weightMin)
	}
	state.CurrentWeight = clampWeight(state.CurrentWeight)
}

func (l *Learner) disable(state *market.WeightState, now time.Time) {
	from := state.Status
	state.DisableCount++
	disabledAt := now
	state.DisabledAt = &disabledAt
	state.ProbationStart = nil
	state.ProbationUntil = nil

	if state.DisableCount >= maxDisables {
		state.Status = market.GeneratorStatusPermanentlyDisabled
	} else {
		state.Status = market.GeneratorStatusDisabled
	}

	l.log.Warn().
		Str("generator", state.GeneratorName).
		Str("status", state.Status).
		Int("disable_count", state.DisableCount).
		Msg("generator disabled for chronic inaccuracy")
	l.recordTransition(from, state.Status)
}

// CheckProbation advances the lifecycle state machine:
// DISABLED generators past cooldown re-enter as PROBATION; PROBATION
// generators with enough matured predictions get a verdict, and ones
// without get their deadline extended.
func (l *Learner) CheckProbation(ctx context.Context) error {
	now := l.now()
	states, err := l.store.WeightStates(ctx)
	if err != nil {
		return fmt.Errorf("load weight states: %w", err)
	}

	for _, state := range states {
		var changed bool
		switch state.Status {
		case market.GeneratorStatusDisabled:
			changed = l.maybeStartProbation(state, now)
		case market.GeneratorStatusProbation:
			changed, err = l.judgeProbation(ctx, state, now)
			if err != nil {
				return err
			}
		default:
			continue
		}
		if !changed {
			continue
		}
		state.UpdatedAt = now
		if err := l.store.UpsertWeightState(ctx, state); err != nil {
			return fmt.Errorf("persist weight state %s: %w", state.GeneratorName, err)
		}
	}
	return nil
}

func (l *Learner) maybeStartProbation(state *market.WeightState, now time.Time) bool {
	if state.DisabledAt == nil || now.Sub(*state.DisabledAt) < probationCooldown {
		return false
	}
	start := now
	until := now.Add(probationWindow)
	state.Status = market.GeneratorStatusProbation
	state.ProbationStart = &start
	state.ProbationUntil = &until
	state.CurrentWeight = clampWeight(state.CurrentWeight)

	l.log.Info().
		Str("generator", state.GeneratorName).
		Time("until", until).
		Msg("generator re-admitted on probation")
	l.recordTransition(market.GeneratorStatusDisabled, market.GeneratorStatusProbation)
	return true
}

func (l *Learner) judgeProbation(ctx context.Context, state *market.WeightState, now time.Time) (bool, error) {
	if state.ProbationStart == nil || state.ProbationUntil == nil {
		// Repair a torn row: restart the probation clock.
		start, until := now, now.Add(probationWindow)
		state.ProbationStart = &start
		state.ProbationUntil = &until
		return true, nil
	}

	acc, err := l.store.GeneratorAccuracySince(ctx, state.GeneratorName, *state.ProbationStart)
	if err != nil {
		return false, fmt.Errorf("probation accuracy %s: %w", state.GeneratorName, err)
	}

	if acc.Total >= probationMinSamples {
		if acc.Rate() >= probationPassRate {
			state.Status = market.GeneratorStatusActive
			state.ProbationStart = nil
			state.ProbationUntil = nil
			state.DisabledAt = nil
			l.log.Info().
				Str("generator", state.GeneratorName).
				Float64("accuracy", acc.Rate()).
				Msg("probation passed, guardrails lifted")
			l.recordTransition(market.GeneratorStatusProbation, market.GeneratorStatusActive)
		} else {
			l.disable(state, now)
		}
		return true, nil
	}

	if now.After(*state.ProbationUntil) {
		// Not enough matured predictions to judge; extend rather than
		// forcing a premature verdict.
		until := state.ProbationUntil.Add(probationWindow)
		state.ProbationUntil = &until
		l.log.Info().
			Str("generator", state.GeneratorName).
			Int("samples", acc.Total).
			Time("until", until).
			Msg("probation extended, insufficient samples")
		return true, nil
	}
	return false, nil
}

// tuneConfidenceFloor nudges the global aggregation floor within its
// bounds based on overall 7-day accuracy.
func (l *Learner) tuneConfidenceFloor(ctx context.Context, acc7 map[string]market.Accuracy) error {
	var total market.Accuracy
	for _, a := range acc7 {
		total.Correct += a.Correct
		total.Total += a.Total
	}
	if total.Total < floorMinSamples {
		return nil
	}

	floor := floorDefault
	if raw, err := l.store.Setting(ctx, SettingConfidenceFloor); err != nil {
		return err
	} else if raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			floor = parsed
		}
	}

	rate := total.Rate()
	switch {
	case rate < floorRaiseBelow:
		floor = min(floor+floorStep, floorMax)
	case rate > floorLowerAbove:
		floor = max(floor-floorStep, floorMin)
	default:
		return nil
	}

	l.log.Info().Float64("accuracy_7d", rate).Float64("floor", floor).Msg("confidence floor retuned")
	return l.store.SetSetting(ctx, SettingConfidenceFloor, strconv.FormatFloat(floor, 'f', 2, 64))
}

func (l *Learner) recordTransition(from, to string) {
	if l.metrics != nil {
		l.metrics.WeightTransition(from + "->" + to)
	}
}

func clampWeight(w float64) float64 {
	return min(max(w, weightMin), weightMax)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
