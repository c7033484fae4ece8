package learner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crypto-consensus-bot/internal/market"
)

// Store is the persistence surface the learner needs. Implemented by
// database.Repository and database.MemoryStore.
type Store interface {
	MatureSignals(ctx context.Context, horizon string, before time.Time, limit int) ([]market.StoredSignal, error)
	InsertOutcome(ctx context.Context, o *market.PredictionOutcome) (bool, error)
	AccuracySince(ctx context.Context, since time.Time) (map[string]market.Accuracy, error)
	GeneratorAccuracySince(ctx context.Context, generator string, since time.Time) (market.Accuracy, error)
	WeightStates(ctx context.Context) (map[string]*market.WeightState, error)
	UpsertWeightState(ctx context.Context, w *market.WeightState) error
	UpsertCorrelation(ctx context.Context, c *market.Correlation) error
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// PriceSource answers "what does this symbol trade at right now".
// Implemented by providers.PriceFeed.
type PriceSource interface {
	Latest(symbol string) (float64, bool)
}

// SeriesSource is the fallback when the live feed has no fresh price.
// Implemented by providers.Layer.
type SeriesSource interface {
	Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error)
}

const evaluationBatchSize = 500

var horizonDurations = map[string]time.Duration{
	market.Horizon24h: 24 * time.Hour,
	market.Horizon48h: 48 * time.Hour,
	market.Horizon7d:  7 * 24 * time.Hour,
}

// PerformanceTracker scores persisted predictions against realized prices
// once they mature at each horizon.
type PerformanceTracker struct {
	store  Store
	prices PriceSource
	series SeriesSource
	log    zerolog.Logger
}

// NewPerformanceTracker creates a tracker. prices may be nil when no live
// feed is running; the series source is always consulted as fallback.
func NewPerformanceTracker(store Store, prices PriceSource, series SeriesSource, log zerolog.Logger) *PerformanceTracker {
	return &PerformanceTracker{
		store:  store,
		prices: prices,
		series: series,
		log:    log.With().Str("component", "performance_tracker").Logger(),
	}
}

// EvaluateOutcomes scores every matured, not-yet-evaluated prediction at
// every horizon. Re-running it is safe: already-scored (signal, horizon)
// pairs are skipped at the storage layer.
func (t *PerformanceTracker) EvaluateOutcomes(ctx context.Context) error {
	now := time.Now()
	var evaluated, skipped int

	for horizon, dur := range horizonDurations {
		cutoff := now.Add(-dur)
		signals, err := t.store.MatureSignals(ctx, horizon, cutoff, evaluationBatchSize)
		if err != nil {
			t.log.Error().Err(err).Str("horizon", horizon).Msg("loading matured signals failed")
			return err
		}

		priceBySymbol := make(map[string]float64)
		for _, sig := range signals {
			if sig.Entry <= 0 {
				// A zero entry cannot be scored; the P/L division would
				// poison the accuracy aggregates with NaN rows.
				t.log.Warn().Str("signal_id", sig.ID).Msg("signal has no entry price, skipping")
				skipped++
				continue
			}
			price, ok := priceBySymbol[sig.Symbol]
			if !ok {
				price, ok = t.realizedPrice(ctx, sig.Symbol)
				if !ok {
					skipped++
					continue
				}
				priceBySymbol[sig.Symbol] = price
			}

			outcome := scoreSignal(sig, horizon, price, now)
			inserted, err := t.store.InsertOutcome(ctx, outcome)
			if err != nil {
				t.log.Error().Err(err).Str("signal_id", sig.ID).Msg("recording outcome failed")
				return err
			}
			if inserted {
				evaluated++
			}
		}
	}

	t.log.Info().Int("evaluated", evaluated).Int("skipped", skipped).Msg("outcome evaluation finished")
	return nil
}

// realizedPrice resolves the current price from the live feed, falling
// back to the most recent candle close from the acquisition chain.
func (t *PerformanceTracker) realizedPrice(ctx context.Context, symbol string) (float64, bool) {
	if t.prices != nil {
		if price, ok := t.prices.Latest(symbol); ok && price > 0 {
			return price, true
		}
	}
	if t.series == nil {
		return 0, false
	}
	series, err := t.series.Series(ctx, symbol, "1h", 2)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", symbol).Msg("no price available, deferring evaluation")
		return 0, false
	}
	if close := series.LastClose(); close > 0 {
		return close, true
	}
	return 0, false
}

// scoreSignal judges directional correctness: LONG is correct when the
// realized price exceeds the entry, SHORT when it is below.
func scoreSignal(sig market.StoredSignal, horizon string, realized float64, now time.Time) *market.PredictionOutcome {
	move := (realized - sig.Entry) / sig.Entry * 100
	correct := (sig.Direction == market.DirectionLong && realized > sig.Entry) ||
		(sig.Direction == market.DirectionShort && realized < sig.Entry)

	pnl := move
	if sig.Direction == market.DirectionShort {
		pnl = -move
	}

	return &market.PredictionOutcome{
		ID:            uuid.New().String(),
		SignalID:      sig.ID,
		GeneratorName: sig.GeneratorName,
		Symbol:        sig.Symbol,
		Horizon:       horizon,
		PredictedAt:   sig.PredictedAt,
		EntryPrice:    sig.Entry,
		RealizedPrice: realized,
		Direction:     sig.Direction,
		Correct:       correct,
		PnLPercent:    pnl,
		EvaluatedAt:   now,
	}
}
