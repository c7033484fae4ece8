package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crypto-consensus-bot/internal/aggregation"
	"crypto-consensus-bot/internal/database"
	"crypto-consensus-bot/internal/generators"
	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/market"
)

type fakeData struct {
	assets      []market.Asset
	series      map[string]market.Series
	seriesErr   map[string]error
	universeErr error
}

func (f *fakeData) Universe(ctx context.Context, limit int) ([]market.Asset, error) {
	if f.universeErr != nil {
		return nil, f.universeErr
	}
	return f.assets, nil
}

func (f *fakeData) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	if err := f.seriesErr[symbol]; err != nil {
		return market.Series{}, err
	}
	return f.series[symbol], nil
}

func (f *fakeData) Derivatives(ctx context.Context, symbol string) (*market.DerivativesSnapshot, error) {
	return nil, fmt.Errorf("derivatives unavailable")
}

func (f *fakeData) Options(ctx context.Context, symbol string) (*market.OptionsSnapshot, error) {
	return nil, fmt.Errorf("options unavailable")
}

func (f *fakeData) OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error) {
	return nil, fmt.Errorf("onchain unavailable")
}

func (f *fakeData) Sentiment(ctx context.Context) (*market.SentimentSnapshot, error) {
	return nil, fmt.Errorf("sentiment unavailable")
}

// trendingSeries produces a steadily rising hourly series long enough for
// every indicator lookback.
func trendingSeries(symbol string, n int) market.Series {
	candles := make([]market.Candle, n)
	price := 100.0
	for i := range candles {
		price *= 1.004
		candles[i] = market.Candle{
			OpenTime: int64(i) * 3_600_000,
			Open:     price * 0.998,
			High:     price * 1.004,
			Low:      price * 0.996,
			Close:    price,
			Volume:   1000,
		}
	}
	return market.Series{Symbol: symbol, Timeframe: "1h", Candles: candles}
}

// agreeingRegistry builds n generators that all vote LONG with the given
// confidence.
func agreeingRegistry(n int, confidence float64) *generators.Registry {
	gens := make([]generators.Generator, n)
	for i := range gens {
		gens[i] = generators.Generator{
			Name:       fmt.Sprintf("test-long-%d", i),
			Philosophy: generators.PhilosophyTrend,
			Eval: func(in generators.Input) *market.BotSignal {
				return &market.BotSignal{
					Direction:  market.DirectionLong,
					Confidence: confidence,
					Entry:      in.Series.LastClose(),
					TakeProfit: in.Series.LastClose() * 1.05,
					StopLoss:   in.Series.LastClose() * 0.97,
					Leverage:   3,
				}
			},
		}
	}
	return generators.NewRegistry(gens, logging.Default(), nil)
}

func testScanner(data DataSource, registry *generators.Registry, store Store, cfg Config) *Scanner {
	engine := aggregation.NewEngine(aggregation.DefaultConfig(), registry.Philosophies(), nil, logging.Default())
	return NewScanner(data, registry, engine, nil, store, nil, nil, cfg, logging.Default())
}

func TestRunScanPersistsRecommendation(t *testing.T) {
	store := database.NewMemoryStore()
	data := &fakeData{
		assets: []market.Asset{{Symbol: "BTC", Price: 50000}},
		series: map[string]market.Series{"BTC": trendingSeries("BTC", 250)},
	}
	cfg := DefaultConfig()
	cfg.WallClockBudget = time.Minute

	sc := testScanner(data, agreeingRegistry(5, 0.8), store, cfg)
	summary, err := sc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if summary.Status != market.ScanStatusCompleted {
		t.Errorf("status = %s, want completed", summary.Status)
	}
	if summary.AssetsScanned != 1 {
		t.Errorf("assets scanned = %d, want 1", summary.AssetsScanned)
	}
	if summary.Recommendations != 1 {
		t.Fatalf("recommendations = %d, want 1", summary.Recommendations)
	}

	rec := summary.Results[0].Recommendation
	if rec == nil {
		t.Fatal("no recommendation in result")
	}
	if rec.Direction != market.DirectionLong {
		t.Errorf("direction = %s, want LONG", rec.Direction)
	}
	if store.SignalCount() != 5 {
		t.Errorf("persisted signals = %d, want 5", store.SignalCount())
	}

	run := store.ScanRun(summary.ScanID)
	if run == nil {
		t.Fatal("scan run not persisted")
	}
	if run.Status != market.ScanStatusCompleted || run.Recommendations != 1 {
		t.Errorf("run = %+v, want completed with 1 recommendation", run)
	}
}

func TestRunScanSkipsAssetWithoutSeries(t *testing.T) {
	store := database.NewMemoryStore()
	data := &fakeData{
		assets: []market.Asset{
			{Symbol: "BTC", Price: 50000},
			{Symbol: "DEAD", Price: 1},
		},
		series:    map[string]market.Series{"BTC": trendingSeries("BTC", 250)},
		seriesErr: map[string]error{"DEAD": fmt.Errorf("all providers failed")},
	}
	cfg := DefaultConfig()
	cfg.WallClockBudget = time.Minute

	sc := testScanner(data, agreeingRegistry(5, 0.8), store, cfg)
	summary, err := sc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if summary.AssetsScanned != 1 || summary.AssetsSkipped != 1 {
		t.Errorf("scanned=%d skipped=%d, want 1/1", summary.AssetsScanned, summary.AssetsSkipped)
	}
	if summary.Status != market.ScanStatusCompleted {
		t.Errorf("status = %s, one bad asset must not fail the scan", summary.Status)
	}
}

func TestRunScanUniverseFailureMarksRunFailed(t *testing.T) {
	store := database.NewMemoryStore()
	data := &fakeData{universeErr: fmt.Errorf("all providers failed")}
	cfg := DefaultConfig()
	cfg.WallClockBudget = time.Minute

	sc := testScanner(data, agreeingRegistry(5, 0.8), store, cfg)
	if _, err := sc.RunScan(context.Background()); err == nil {
		t.Fatal("RunScan succeeded without a universe")
	}

	runs := store.ScanRuns()
	if len(runs) != 1 {
		t.Fatalf("stored runs = %d, want 1", len(runs))
	}
	if runs[0].Status != market.ScanStatusFailed {
		t.Errorf("status = %s, want failed", runs[0].Status)
	}
	if runs[0].FinishedAt.IsZero() {
		t.Error("failed run left without a finish time")
	}
}

func TestRunScanWallClockBudget(t *testing.T) {
	store := database.NewMemoryStore()
	assets := make([]market.Asset, 10)
	series := make(map[string]market.Series, len(assets))
	for i := range assets {
		symbol := fmt.Sprintf("COIN%d", i)
		assets[i] = market.Asset{Symbol: symbol, Price: 10}
		series[symbol] = trendingSeries(symbol, 250)
	}
	data := &fakeData{assets: assets, series: series}

	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.WallClockBudget = time.Nanosecond // expires before any admission

	sc := testScanner(data, agreeingRegistry(3, 0.8), store, cfg)
	summary, err := sc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if summary.Status != market.ScanStatusCompletedTimeout {
		t.Errorf("status = %s, want completed_timeout", summary.Status)
	}
	if summary.AssetsScanned == len(assets) {
		t.Error("every asset admitted despite expired budget")
	}
}

func TestRunScanBelowMinParticipation(t *testing.T) {
	store := database.NewMemoryStore()
	data := &fakeData{
		assets: []market.Asset{{Symbol: "BTC", Price: 50000}},
		series: map[string]market.Series{"BTC": trendingSeries("BTC", 250)},
	}
	cfg := DefaultConfig()
	cfg.WallClockBudget = time.Minute

	// Two agreeing generators: below the participation minimum of three,
	// so no recommendation, but the signals still persist.
	sc := testScanner(data, agreeingRegistry(2, 0.8), store, cfg)
	summary, err := sc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if summary.Recommendations != 0 {
		t.Errorf("recommendations = %d, want 0", summary.Recommendations)
	}
	if store.SignalCount() != 2 {
		t.Errorf("persisted signals = %d, want 2 for the tracker", store.SignalCount())
	}
}

func TestFilterAssetsPriceBounds(t *testing.T) {
	sc := &Scanner{config: Config{MinPrice: 1, MaxPrice: 1000}}
	assets := []market.Asset{
		{Symbol: "SUB", Price: 0.5},
		{Symbol: "OK", Price: 10},
		{Symbol: "BIG", Price: 50000},
	}
	got := sc.filterAssets(assets)
	if len(got) != 1 || got[0].Symbol != "OK" {
		t.Errorf("filtered = %v, want only OK", got)
	}
}
