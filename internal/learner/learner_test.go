package learner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crypto-consensus-bot/internal/database"
	"crypto-consensus-bot/internal/market"
)

// Both stores must satisfy the full persistence surface, correlation
// upserts included.
var (
	_ Store = (*database.MemoryStore)(nil)
	_ Store = (*database.Repository)(nil)
)

func testLearner(store Store) *Learner {
	return NewLearner(store, map[string]string{"gen-a": "trend"}, nil, zerolog.Nop())
}

// seedOutcomes inserts n matured outcomes for a generator, correct of
// which are directional hits, all evaluated just before now.
func seedOutcomes(store *database.MemoryStore, generator string, correct, n int, now time.Time) {
	for i := 0; i < n; i++ {
		store.AddOutcome(market.PredictionOutcome{
			ID:            fmt.Sprintf("%s-out-%d", generator, i),
			SignalID:      fmt.Sprintf("%s-sig-%d", generator, i),
			GeneratorName: generator,
			Symbol:        "BTCUSDT",
			Horizon:       market.Horizon24h,
			Correct:       i < correct,
			EvaluatedAt:   now.Add(-time.Hour),
		})
	}
}

func TestUpdateWeightsBoostsAccurateGenerator(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 18, 24, now) // 75% over 24 samples

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	w := states["gen-a"]
	if w == nil {
		t.Fatal("weight state not created on first observation")
	}
	if w.CurrentWeight != 1.30 {
		t.Errorf("weight = %v, want 1.30", w.CurrentWeight)
	}
	if w.Status != market.GeneratorStatusActive {
		t.Errorf("status = %s, want ACTIVE", w.Status)
	}
}

func TestUpdateWeightsBoostCaps(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 18, 24, now)
	store.UpsertWeightState(context.Background(), &market.WeightState{
		GeneratorName: "gen-a",
		CurrentWeight: 1.9,
		Status:        market.GeneratorStatusActive,
	})

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	if w := states["gen-a"].CurrentWeight; w != 2.0 {
		t.Errorf("weight = %v, want cap 2.0", w)
	}
}

func TestUpdateWeightsCutsPoorGenerator(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 9, 22, now) // ~41% over 22 samples

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	w := states["gen-a"]
	if w.CurrentWeight != 0.5 {
		t.Errorf("weight = %v, want 0.5", w.CurrentWeight)
	}
	if w.Status != market.GeneratorStatusActive {
		t.Errorf("status = %s, want ACTIVE below the 50-sample disable guardrail", w.Status)
	}
}

func TestUpdateWeightsHoldsMiddlingAccuracy(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 11, 20, now) // 55%

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	if w := states["gen-a"].CurrentWeight; w != 1.0 {
		t.Errorf("weight = %v, want unchanged 1.0", w)
	}
}

func TestUpdateWeightsIgnoresSmallSamples(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 2, 10, now) // 20%, but only 10 samples

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	w := states["gen-a"]
	if w.CurrentWeight != 1.0 || w.Status != market.GeneratorStatusActive {
		t.Errorf("got weight %v status %s, want untouched generator", w.CurrentWeight, w.Status)
	}
}

func TestUpdateWeightsDisablesChronicallyPoorGenerator(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 16, 55, now) // ~29% over 55 samples

	l := testLearner(store)
	l.now = func() time.Time { return now }
	if err := l.UpdateWeights(context.Background()); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	states, _ := store.WeightStates(context.Background())
	w := states["gen-a"]
	if w.Status != market.GeneratorStatusDisabled {
		t.Fatalf("status = %s, want DISABLED", w.Status)
	}
	if w.DisableCount != 1 {
		t.Errorf("disable_count = %d, want 1", w.DisableCount)
	}
	if w.DisabledAt == nil {
		t.Error("disabled_at not set")
	}
}

func TestUpdateWeightsIsIdempotentOverSameOutcomes(t *testing.T) {
	store := database.NewMemoryStore()
	now := time.Now()
	seedOutcomes(store, "gen-a", 11, 20, now) // 55%: hold

	l := testLearner(store)
	l.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		if err := l.UpdateWeights(context.Background()); err != nil {
			t.Fatalf("UpdateWeights run %d: %v", i, err)
		}
	}

	states, _ := store.WeightStates(context.Background())
	if w := states["gen-a"].CurrentWeight; w != 1.0 {
		t.Errorf("weight = %v after repeated runs, want 1.0", w)
	}
}

func TestProbationLifecycle(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	l := testLearner(store)
	clock := now
	l.now = func() time.Time { return clock }

	// Disabled two days ago: cooldown not elapsed.
	disabledAt := now.Add(-2 * 24 * time.Hour)
	store.UpsertWeightState(ctx, &market.WeightState{
		GeneratorName: "gen-a",
		CurrentWeight: 0.2,
		Status:        market.GeneratorStatusDisabled,
		DisableCount:  1,
		DisabledAt:    &disabledAt,
	})
	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ := store.WeightStates(ctx)
	if got := states["gen-a"].Status; got != market.GeneratorStatusDisabled {
		t.Fatalf("status = %s before cooldown, want DISABLED", got)
	}

	// Cooldown elapsed: re-admit on probation.
	clock = now.Add(6 * 24 * time.Hour)
	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ = store.WeightStates(ctx)
	w := states["gen-a"]
	if w.Status != market.GeneratorStatusProbation {
		t.Fatalf("status = %s after cooldown, want PROBATION", w.Status)
	}
	if w.ProbationStart == nil || w.ProbationUntil == nil {
		t.Fatal("probation window not set")
	}

	// 20 matured predictions at 55% during probation: back to ACTIVE.
	for i := 0; i < 20; i++ {
		store.AddOutcome(market.PredictionOutcome{
			ID:            fmt.Sprintf("probe-%d", i),
			SignalID:      fmt.Sprintf("probe-sig-%d", i),
			GeneratorName: "gen-a",
			Correct:       i < 11,
			EvaluatedAt:   clock.Add(time.Duration(i) * time.Hour),
		})
	}
	clock = clock.Add(24 * time.Hour)
	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ = store.WeightStates(ctx)
	w = states["gen-a"]
	if w.Status != market.GeneratorStatusActive {
		t.Fatalf("status = %s after passing probation, want ACTIVE", w.Status)
	}
	if w.ProbationStart != nil || w.ProbationUntil != nil {
		t.Error("probation window not cleared after pass")
	}
}

func TestProbationFailureAndPermanentDisable(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	l := testLearner(store)
	clock := now
	l.now = func() time.Time { return clock }

	start := now.Add(-3 * 24 * time.Hour)
	until := now.Add(4 * 24 * time.Hour)
	store.UpsertWeightState(ctx, &market.WeightState{
		GeneratorName:  "gen-a",
		CurrentWeight:  0.2,
		Status:         market.GeneratorStatusProbation,
		DisableCount:   2,
		ProbationStart: &start,
		ProbationUntil: &until,
	})
	for i := 0; i < 20; i++ {
		store.AddOutcome(market.PredictionOutcome{
			ID:            fmt.Sprintf("probe-%d", i),
			SignalID:      fmt.Sprintf("probe-sig-%d", i),
			GeneratorName: "gen-a",
			Correct:       i < 6, // 30%
			EvaluatedAt:   start.Add(time.Duration(i) * time.Hour),
		})
	}

	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ := store.WeightStates(ctx)
	w := states["gen-a"]
	if w.Status != market.GeneratorStatusPermanentlyDisabled {
		t.Fatalf("status = %s on third disable, want PERMANENTLY_DISABLED", w.Status)
	}
	if w.DisableCount != 3 {
		t.Errorf("disable_count = %d, want 3", w.DisableCount)
	}

	// Terminal: further probation passes never touch it.
	clock = clock.Add(30 * 24 * time.Hour)
	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ = store.WeightStates(ctx)
	if got := states["gen-a"].Status; got != market.GeneratorStatusPermanentlyDisabled {
		t.Errorf("status = %s, permanent disable must be terminal", got)
	}
}

func TestProbationExtendsOnInsufficientSamples(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	l := testLearner(store)
	l.now = func() time.Time { return now }

	start := now.Add(-8 * 24 * time.Hour)
	until := now.Add(-24 * time.Hour) // deadline passed
	store.UpsertWeightState(ctx, &market.WeightState{
		GeneratorName:  "gen-a",
		CurrentWeight:  0.2,
		Status:         market.GeneratorStatusProbation,
		DisableCount:   1,
		ProbationStart: &start,
		ProbationUntil: &until,
	})
	for i := 0; i < 5; i++ { // fewer than the 20 required
		store.AddOutcome(market.PredictionOutcome{
			ID:            fmt.Sprintf("probe-%d", i),
			SignalID:      fmt.Sprintf("probe-sig-%d", i),
			GeneratorName: "gen-a",
			Correct:       true,
			EvaluatedAt:   start.Add(time.Duration(i) * time.Hour),
		})
	}

	if err := l.CheckProbation(ctx); err != nil {
		t.Fatalf("CheckProbation: %v", err)
	}
	states, _ := store.WeightStates(ctx)
	w := states["gen-a"]
	if w.Status != market.GeneratorStatusProbation {
		t.Fatalf("status = %s, want PROBATION extended", w.Status)
	}
	wantUntil := until.Add(probationWindow)
	if !w.ProbationUntil.Equal(wantUntil) {
		t.Errorf("probation_until = %v, want %v", w.ProbationUntil, wantUntil)
	}
}

type staticPrices map[string]float64

func (p staticPrices) Latest(symbol string) (float64, bool) {
	price, ok := p[symbol]
	return price, ok
}

type staticSeries map[string]market.Series

func (s staticSeries) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	series, ok := s[symbol]
	if !ok {
		return market.Series{}, fmt.Errorf("no series for %s", symbol)
	}
	return series, nil
}

func TestEvaluateOutcomesScoresDirections(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()
	predictedAt := time.Now().Add(-8 * 24 * time.Hour) // matured at every horizon

	store.AddSignal(market.StoredSignal{
		ID:          "sig-long",
		PredictedAt: predictedAt,
		BotSignal: market.BotSignal{
			GeneratorName: "gen-a",
			Symbol:        "BTCUSDT",
			Direction:     market.DirectionLong,
			Entry:         100,
		},
	})
	store.AddSignal(market.StoredSignal{
		ID:          "sig-short",
		PredictedAt: predictedAt,
		BotSignal: market.BotSignal{
			GeneratorName: "gen-b",
			Symbol:        "BTCUSDT",
			Direction:     market.DirectionShort,
			Entry:         100,
		},
	})

	prices := staticPrices{"BTCUSDT": 110}
	tracker := NewPerformanceTracker(store, prices, nil, zerolog.Nop())
	if err := tracker.EvaluateOutcomes(ctx); err != nil {
		t.Fatalf("EvaluateOutcomes: %v", err)
	}

	acc, _ := store.AccuracySince(ctx, time.Time{})
	if got := acc["gen-a"]; got.Correct != 3 || got.Total != 3 {
		t.Errorf("gen-a accuracy = %+v, want 3/3 (LONG, price rose)", got)
	}
	if got := acc["gen-b"]; got.Correct != 0 || got.Total != 3 {
		t.Errorf("gen-b accuracy = %+v, want 0/3 (SHORT, price rose)", got)
	}
}

func TestEvaluateOutcomesIsIdempotent(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	store.AddSignal(market.StoredSignal{
		ID:          "sig-1",
		PredictedAt: time.Now().Add(-8 * 24 * time.Hour),
		BotSignal: market.BotSignal{
			GeneratorName: "gen-a",
			Symbol:        "BTCUSDT",
			Direction:     market.DirectionLong,
			Entry:         100,
		},
	})

	tracker := NewPerformanceTracker(store, staticPrices{"BTCUSDT": 105}, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if err := tracker.EvaluateOutcomes(ctx); err != nil {
			t.Fatalf("EvaluateOutcomes run %d: %v", i, err)
		}
	}

	acc, _ := store.AccuracySince(ctx, time.Time{})
	if got := acc["gen-a"]; got.Total != 3 {
		t.Errorf("total outcomes = %d, want exactly one per horizon", got.Total)
	}
}

func TestEvaluateOutcomesSkipsZeroEntry(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	store.AddSignal(market.StoredSignal{
		ID:          "sig-broken",
		PredictedAt: time.Now().Add(-8 * 24 * time.Hour),
		BotSignal: market.BotSignal{
			GeneratorName: "gen-a",
			Symbol:        "BTCUSDT",
			Direction:     market.DirectionLong,
			// Entry left zero: a torn row must be skipped, not divided by.
		},
	})

	tracker := NewPerformanceTracker(store, staticPrices{"BTCUSDT": 105}, nil, zerolog.Nop())
	if err := tracker.EvaluateOutcomes(ctx); err != nil {
		t.Fatalf("EvaluateOutcomes: %v", err)
	}

	acc, _ := store.AccuracySince(ctx, time.Time{})
	if got := acc["gen-a"]; got.Total != 0 {
		t.Errorf("outcomes = %d for a zero-entry signal, want 0", got.Total)
	}
}

func TestEvaluateOutcomesFallsBackToSeries(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	store.AddSignal(market.StoredSignal{
		ID:          "sig-1",
		PredictedAt: time.Now().Add(-2 * 24 * time.Hour),
		BotSignal: market.BotSignal{
			GeneratorName: "gen-a",
			Symbol:        "ETHUSDT",
			Direction:     market.DirectionShort,
			Entry:         2000,
		},
	})

	series := staticSeries{"ETHUSDT": {
		Symbol:    "ETHUSDT",
		Timeframe: "1h",
		Candles:   []market.Candle{{Close: 1900}, {Close: 1850}},
	}}
	tracker := NewPerformanceTracker(store, staticPrices{}, series, zerolog.Nop())
	if err := tracker.EvaluateOutcomes(ctx); err != nil {
		t.Fatalf("EvaluateOutcomes: %v", err)
	}

	acc, _ := store.AccuracySince(ctx, time.Time{})
	got := acc["gen-a"]
	if got.Total == 0 {
		t.Fatal("no outcomes recorded via series fallback")
	}
	if got.Correct != got.Total {
		t.Errorf("accuracy = %+v, SHORT at 2000 realized 1850 should be correct", got)
	}
}

func TestCalculateCorrelations(t *testing.T) {
	store := database.NewMemoryStore()
	ctx := context.Background()

	up := make([]market.Candle, 31)
	down := make([]market.Candle, 31)
	for i := range up {
		up[i] = market.Candle{Close: 100 + float64(i)}
		down[i] = market.Candle{Close: 200 - float64(i)}
	}
	series := staticSeries{
		"BTCUSDT": {Symbol: "BTCUSDT", Candles: up},
		"ETHUSDT": {Symbol: "ETHUSDT", Candles: down},
	}
	universe := staticUniverse{{Symbol: "BTCUSDT"}, {Symbol: "ETHUSDT"}}

	l := testLearner(store)
	if err := l.CalculateCorrelations(ctx, universe, series); err != nil {
		t.Fatalf("CalculateCorrelations: %v", err)
	}
	if got := store.CorrelationCount(); got != 1 {
		t.Errorf("correlation pairs = %d, want 1", got)
	}
}

type staticUniverse []market.Asset

func (u staticUniverse) Universe(ctx context.Context, limit int) ([]market.Asset, error) {
	return u, nil
}

func TestPearsonBounds(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	coef, n, ok := pearson(a, a)
	if !ok || n != 10 {
		t.Fatalf("pearson self: ok=%v n=%d", ok, n)
	}
	if coef < 0.999 || coef > 1.001 {
		t.Errorf("self correlation = %v, want 1", coef)
	}

	inv := make([]float64, len(a))
	for i, v := range a {
		inv[i] = -v
	}
	coef, _, _ = pearson(a, inv)
	if coef > -0.999 {
		t.Errorf("inverse correlation = %v, want -1", coef)
	}
}
