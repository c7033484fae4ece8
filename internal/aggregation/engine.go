// Package aggregation combines the raw generator signals for one asset
// into a single consensus recommendation, applying regime-aware weighting,
// adaptive trust multipliers, and bounded confidence boosts.
package aggregation

import (
	"time"

	"crypto-consensus-bot/internal/generators"
	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/market"
)

// Weighting constants. Regime boosts scale with regime strength inside the
// documented bands.
const (
	// Matched philosophy: 1.2x at zero strength up to 1.8x at full strength.
	regimeBoostBase = 1.2
	regimeBoostSpan = 0.6
	// Mismatched philosophy: 0.8x at zero strength down to 0.5x at full.
	regimePenaltyBase = 0.8
	regimePenaltySpan = 0.3

	// Derivatives-tagged generators get a flat, regime-independent boost.
	derivativesBoost = 1.2

	// Confidence bonuses and their hard ceiling.
	consensus70Bonus = 1.10
	consensus80Bonus = 1.10
	contrarianBonus  = 1.05
	confidenceCap    = 0.95

	// Contrarian-alignment requirements.
	contrarianMinAgree     = 3
	contrarianMinConsensus = 70.0
)

// Config tunes the aggregation filters.
type Config struct {
	// ConfidenceFloor drops signals below this confidence. Auto-tuned by
	// the weight learner within [0.5, 0.8].
	ConfidenceFloor float64
	// MinParticipation is the minimum surviving generator count for a
	// recommendation to be emitted at all.
	MinParticipation int
}

// DefaultConfig returns the stock aggregation tuning.
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor:  0.6,
		MinParticipation: 3,
	}
}

// WeightSource provides a read-only snapshot of generator trust state.
// The aggregation engine never mutates weight state.
type WeightSource interface {
	// Snapshot returns the current weight state per generator name. A
	// generator missing from the map is treated as active with weight 1.
	Snapshot() map[string]*market.WeightState
	// ConfidenceFloor returns the auto-tuned global confidence floor, or
	// 0 if tuning has not run yet.
	ConfidenceFloor() float64
}

// Engine computes the consensus signal.
type Engine struct {
	cfg          Config
	philosophies map[string]generators.Philosophy
	weights      WeightSource
	logger       *logging.Logger
}

// NewEngine creates an aggregation engine. philosophies maps generator
// name to its declared philosophy tag.
func NewEngine(cfg Config, philosophies map[string]generators.Philosophy, weights WeightSource, logger *logging.Logger) *Engine {
	if cfg.ConfidenceFloor == 0 {
		cfg.ConfidenceFloor = DefaultConfig().ConfidenceFloor
	}
	if cfg.MinParticipation == 0 {
		cfg.MinParticipation = DefaultConfig().MinParticipation
	}
	return &Engine{
		cfg:          cfg,
		philosophies: philosophies,
		weights:      weights,
		logger:       logger,
	}
}

// Aggregate combines one asset's signals into a consensus recommendation.
// Returns nil when fewer than MinParticipation generators survive the
// filters; that is a normal outcome, not an error.
func (e *Engine) Aggregate(symbol string, signals []market.BotSignal, regime market.Regime) *market.AggregatedSignal {
	if len(signals) == 0 {
		return nil
	}

	weights := map[string]*market.WeightState{}
	floor := e.cfg.ConfidenceFloor
	if e.weights != nil {
		weights = e.weights.Snapshot()
		if f := e.weights.ConfidenceFloor(); f > 0 {
			floor = f
		}
	}

	surviving := make([]market.BotSignal, 0, len(signals))
	for _, sig := range signals {
		ws := weights[sig.GeneratorName]
		if ws != nil && !ws.Enabled() {
			continue
		}

		sigFloor := floor
		if ws != nil && ws.Status == market.GeneratorStatusProbation {
			g := probationGuardrails()
			sigFloor += g.ConfidenceFloorAdd
			sig = applyGuardrails(sig, g)
		}
		if sig.Confidence < sigFloor {
			continue
		}
		surviving = append(surviving, sig)
	}

	if len(surviving) < e.cfg.MinParticipation {
		return nil
	}

	var longSum, shortSum float64
	var longCount, shortCount int
	for _, sig := range surviving {
		w := e.signalWeight(sig, regime, weights[sig.GeneratorName])
		switch sig.Direction {
		case market.DirectionLong:
			longSum += sig.Confidence * w
			longCount++
		case market.DirectionShort:
			shortSum += sig.Confidence * w
			shortCount++
		}
	}

	// Equal weighted sums resolve to SHORT. The bias is deliberate and
	// covered by a unit test; do not "fix" it to LONG.
	direction := market.DirectionShort
	if longSum > shortSum {
		direction = market.DirectionLong
	}

	dominant := make([]market.BotSignal, 0, len(surviving))
	contrarianAgree := 0
	for _, sig := range surviving {
		if sig.Direction != direction {
			continue
		}
		dominant = append(dominant, sig)
		if e.philosophies[sig.GeneratorName] == generators.PhilosophyContrarian {
			contrarianAgree++
		}
	}
	if len(dominant) == 0 {
		return nil
	}

	consensusPct := float64(len(dominant)) / float64(len(surviving)) * 100

	var confSum, entrySum, tpSum, slSum float64
	for _, sig := range dominant {
		confSum += sig.Confidence
		entrySum += sig.Entry
		tpSum += sig.TakeProfit
		slSum += sig.StopLoss
	}
	n := float64(len(dominant))
	confidence := confSum / n

	if consensusPct >= 70 {
		confidence = capBoost(confidence, consensus70Bonus)
	}
	if consensusPct >= 80 {
		confidence = capBoost(confidence, consensus80Bonus)
	}
	if contrarianAgree >= contrarianMinAgree && consensusPct >= contrarianMinConsensus {
		confidence = capBoost(confidence, contrarianBonus)
	}
	// The ceiling holds even when no bonus fires: a dominant side averaging
	// above the cap must not pass through unclamped.
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	agg := &market.AggregatedSignal{
		Symbol:            symbol,
		Direction:         direction,
		Confidence:        confidence,
		ConsensusPercent:  consensusPct,
		ParticipatingBots: len(surviving),
		LongCount:         longCount,
		ShortCount:        shortCount,
		AvgEntry:          entrySum / n,
		AvgTakeProfit:     tpSum / n,
		AvgStopLoss:       slSum / n,
		Regime:            regime,
		GeneratedAt:       time.Now().UTC(),
	}

	if e.logger != nil {
		e.logger.Debug("consensus computed",
			"symbol", symbol,
			"direction", string(direction),
			"consensus_pct", consensusPct,
			"confidence", confidence,
			"participants", len(surviving))
	}
	return agg
}

// signalWeight computes the per-generator weight: regime multiplier times
// the derivatives category boost times the adaptive trust weight.
func (e *Engine) signalWeight(sig market.BotSignal, regime market.Regime, ws *market.WeightState) float64 {
	phil := e.philosophies[sig.GeneratorName]
	w := regimeMultiplier(phil, regime)
	if phil == generators.PhilosophyDerivatives {
		w *= derivativesBoost
	}
	if ws != nil && ws.CurrentWeight > 0 {
		w *= ws.CurrentWeight
	}
	return w
}

// regimeMultiplier maps (philosophy, regime) to the boost or penalty band.
// Philosophies with no regime affinity are weighted neutrally.
func regimeMultiplier(phil generators.Philosophy, regime market.Regime) float64 {
	var matched generators.Philosophy
	switch regime.Type {
	case market.RegimeTrending:
		matched = generators.PhilosophyTrend
	case market.RegimeRanging:
		matched = generators.PhilosophyMeanReversion
	case market.RegimeVolatile:
		matched = generators.PhilosophyVolatility
	}

	switch phil {
	case generators.PhilosophyTrend, generators.PhilosophyMeanReversion, generators.PhilosophyVolatility:
		if phil == matched {
			return regimeBoostBase + regimeBoostSpan*regime.Strength
		}
		return regimePenaltyBase - regimePenaltySpan*regime.Strength
	default:
		return 1.0
	}
}

func capBoost(confidence, bonus float64) float64 {
	confidence *= bonus
	if confidence > confidenceCap {
		confidence = confidenceCap
	}
	return confidence
}

// probationGuardrails returns the stricter limits applied to signals from
// generators currently on probation.
func probationGuardrails() market.ProbationGuardrails {
	return market.ProbationGuardrails{
		MaxLeverage:        2,
		ConfidenceFloorAdd: 0.1,
		StopLossTightening: 0.5,
	}
}

// applyGuardrails rewrites a probation generator's signal under the
// stricter limits: leverage capped and stop-loss distance halved.
func applyGuardrails(sig market.BotSignal, g market.ProbationGuardrails) market.BotSignal {
	if sig.Leverage > g.MaxLeverage {
		sig.Leverage = g.MaxLeverage
	}
	dist := sig.Entry - sig.StopLoss
	sig.StopLoss = sig.Entry - dist*g.StopLossTightening
	return sig
}
