// Package generators holds the pool of independent signal generators. Each
// generator is a pure function of (indicators, enrichment snapshots, asset)
// returning an optional directional prediction. The registry evaluates all
// of them with panic isolation so one broken heuristic cannot silence the
// rest of the pool.
package generators

import (
	"math"

	"crypto-consensus-bot/internal/indicators"
	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/market"
)

// Philosophy tags a generator with its trading style. The aggregation
// engine uses the tag for regime weighting, so it is declared metadata,
// never inferred from the name.
type Philosophy string

const (
	PhilosophyTrend         Philosophy = "trend"
	PhilosophyMeanReversion Philosophy = "mean_reversion"
	PhilosophyVolatility    Philosophy = "volatility"
	PhilosophyDerivatives   Philosophy = "derivatives"
	PhilosophyContrarian    Philosophy = "contrarian"
	PhilosophyNoise         Philosophy = "noise"
)

// Input bundles everything a generator may consult for one asset. The
// enrichment snapshots are individually nullable; generators that need a
// missing one must abstain rather than fail.
type Input struct {
	Asset       market.Asset
	Series      market.Series
	Indicators  indicators.Set
	Derivatives *market.DerivativesSnapshot
	Options     *market.OptionsSnapshot
	OnChain     *market.OnChainSnapshot
	Sentiment   *market.SentimentSnapshot
}

// Generator is one heuristic predictor. Eval returns nil to abstain.
type Generator struct {
	Name       string
	Philosophy Philosophy
	Eval       func(in Input) *market.BotSignal
}

// MetricsSink receives generator fault events. Satisfied by the metrics
// recorder; nil-safe throughout.
type MetricsSink interface {
	GeneratorFault(generator string)
}

// Registry is the fixed pool of generators for one process lifetime.
type Registry struct {
	generators []Generator
	logger     *logging.Logger
	metrics    MetricsSink
}

// NewRegistry builds a registry from an explicit generator list.
func NewRegistry(gens []Generator, logger *logging.Logger, metrics MetricsSink) *Registry {
	return &Registry{generators: gens, logger: logger, metrics: metrics}
}

// DefaultRegistry builds the full production pool.
func DefaultRegistry(logger *logging.Logger, metrics MetricsSink) *Registry {
	gens := []Generator{}
	gens = append(gens, trendGenerators()...)
	gens = append(gens, meanReversionGenerators()...)
	gens = append(gens, volatilityGenerators()...)
	gens = append(gens, derivativesGenerators()...)
	gens = append(gens, contrarianGenerators()...)
	gens = append(gens, noiseGenerators()...)
	return NewRegistry(gens, logger, metrics)
}

// Generators returns the pool, for weight-state seeding.
func (r *Registry) Generators() []Generator {
	return r.generators
}

// Len returns the pool size.
func (r *Registry) Len() int {
	return len(r.generators)
}

// Philosophies returns the declared philosophy per generator name.
func (r *Registry) Philosophies() map[string]Philosophy {
	out := make(map[string]Philosophy, len(r.generators))
	for _, g := range r.generators {
		out[g.Name] = g.Philosophy
	}
	return out
}

// EvaluateAll runs every generator against the input. A panicking generator
// is logged and treated as "no signal"; it never aborts the others.
func (r *Registry) EvaluateAll(in Input) []market.BotSignal {
	signals := make([]market.BotSignal, 0, len(r.generators))
	for _, g := range r.generators {
		if sig := r.evaluateOne(g, in); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

func (r *Registry) evaluateOne(g Generator, in Input) (sig *market.BotSignal) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("generator panicked, treating as no signal",
					"generator", g.Name, "symbol", in.Asset.Symbol, "panic", rec)
			}
			if r.metrics != nil {
				r.metrics.GeneratorFault(g.Name)
			}
			sig = nil
		}
	}()

	sig = g.Eval(in)
	if sig == nil {
		return nil
	}

	sig.GeneratorName = g.Name
	sig.Symbol = in.Asset.Symbol
	if sig.Confidence < 0 || sig.Confidence > 1 || math.IsNaN(sig.Confidence) {
		return nil
	}
	return sig
}

// longSignal builds a LONG BotSignal with ATR-derived exits.
func longSignal(in Input, confidence float64, leverage int) *market.BotSignal {
	entry := in.Indicators.LastClose
	atr := in.Indicators.ATR
	if entry <= 0 {
		return nil
	}
	if atr <= 0 {
		atr = entry * 0.02
	}
	return &market.BotSignal{
		Direction:  market.DirectionLong,
		Confidence: clamp01(confidence),
		Entry:      entry,
		TakeProfit: entry + atr*3,
		StopLoss:   entry - atr*1.5,
		Leverage:   leverage,
	}
}

// shortSignal builds a SHORT BotSignal with ATR-derived exits.
func shortSignal(in Input, confidence float64, leverage int) *market.BotSignal {
	entry := in.Indicators.LastClose
	atr := in.Indicators.ATR
	if entry <= 0 {
		return nil
	}
	if atr <= 0 {
		atr = entry * 0.02
	}
	return &market.BotSignal{
		Direction:  market.DirectionShort,
		Confidence: clamp01(confidence),
		Entry:      entry,
		TakeProfit: entry - atr*3,
		StopLoss:   entry + atr*1.5,
		Leverage:   leverage,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
