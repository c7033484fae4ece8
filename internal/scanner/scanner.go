// Package scanner orchestrates the per-asset pipeline: acquisition,
// indicators, generators, regime classification, and consensus
// aggregation, fanned out across the asset universe with a wall-clock
// budget per scan.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto-consensus-bot/internal/aggregation"
	"crypto-consensus-bot/internal/cache"
	"crypto-consensus-bot/internal/generators"
	"crypto-consensus-bot/internal/indicators"
	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/market"
	"crypto-consensus-bot/internal/regime"
)

// DataSource is the acquisition surface the scanner consumes.
// Implemented by providers.Layer.
type DataSource interface {
	Universe(ctx context.Context, limit int) ([]market.Asset, error)
	Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error)
	Derivatives(ctx context.Context, symbol string) (*market.DerivativesSnapshot, error)
	Options(ctx context.Context, symbol string) (*market.OptionsSnapshot, error)
	OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error)
	Sentiment(ctx context.Context) (*market.SentimentSnapshot, error)
}

// Store is the persistence surface the scanner writes. Implemented by
// database.Repository and database.MemoryStore.
type Store interface {
	CreateScanRun(ctx context.Context, run *market.ScanRun) error
	FinishScanRun(ctx context.Context, run *market.ScanRun) error
	SaveRecommendation(ctx context.Context, scanID string, agg *market.AggregatedSignal, signals []market.BotSignal) error
	SaveSignals(ctx context.Context, scanID string, signals []market.BotSignal) error
}

// WeightRefresher reloads the aggregation weight snapshot at the top of a
// scan. Implemented by learner.WeightCache.
type WeightRefresher interface {
	Refresh(ctx context.Context) error
}

// MetricsSink receives scan-level counters. Implemented by
// metrics.Recorder.
type MetricsSink interface {
	ScanCompleted(status string, seconds float64, assets int)
	RecommendationEmitted(direction string)
}

// Scanner drives scan cycles, either on an interval loop or on demand.
type Scanner struct {
	data      DataSource
	registry  *generators.Registry
	engine    *aggregation.Engine
	weights   WeightRefresher
	store     Store
	snapshots *cache.Service
	metrics   MetricsSink
	logger    *logging.Logger
	config    Config

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu          sync.RWMutex
	lastSummary *Summary
}

// NewScanner wires the pipeline. weights, snapshots, and metrics may be
// nil; store and data are required.
func NewScanner(
	data DataSource,
	registry *generators.Registry,
	engine *aggregation.Engine,
	weights WeightRefresher,
	store Store,
	snapshots *cache.Service,
	metrics MetricsSink,
	config Config,
	logger *logging.Logger,
) *Scanner {
	return &Scanner{
		data:      data,
		registry:  registry,
		engine:    engine,
		weights:   weights,
		store:     store,
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger.WithComponent("scanner"),
		config:    config,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background scan loop.
func (sc *Scanner) Start(ctx context.Context) {
	if !sc.config.Enabled {
		sc.logger.Info("scan loop disabled")
		return
	}
	sc.wg.Add(1)
	go sc.runLoop(ctx)
	sc.logger.Info("scan loop started", "interval", sc.config.Interval.String())
}

// Stop halts the scan loop and waits for an in-flight scan to finish.
func (sc *Scanner) Stop() {
	close(sc.stopChan)
	sc.wg.Wait()
}

// LastSummary returns the most recent scan's summary, or nil.
func (sc *Scanner) LastSummary() *Summary {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastSummary
}

func (sc *Scanner) runLoop(ctx context.Context) {
	defer sc.wg.Done()

	ticker := time.NewTicker(sc.config.Interval)
	defer ticker.Stop()

	// First scan immediately.
	if _, err := sc.RunScan(ctx); err != nil {
		sc.logger.Error("scan failed", "error", err.Error())
	}

	for {
		select {
		case <-ticker.C:
			if _, err := sc.RunScan(ctx); err != nil {
				sc.logger.Error("scan failed", "error", err.Error())
			}
		case <-sc.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunScan executes one full scan cycle: refresh weights, pull the
// universe, fan the pipeline out across assets under the wall-clock
// budget, and persist every result. Assets admitted before the budget
// expires are allowed to finish; the scan is then marked as a timeout
// completion rather than failed.
func (sc *Scanner) RunScan(ctx context.Context) (*Summary, error) {
	start := time.Now()
	scanID := uuid.New().String()
	log := sc.logger.WithScanID(scanID)

	run := &market.ScanRun{ID: scanID, StartedAt: start, Status: market.ScanStatusRunning}
	if err := sc.store.CreateScanRun(ctx, run); err != nil {
		return nil, err
	}

	if sc.weights != nil {
		if err := sc.weights.Refresh(ctx); err != nil {
			log.Warn("weight refresh failed, using previous snapshot", "error", err.Error())
		}
	}

	assets, err := sc.data.Universe(ctx, sc.config.CoinLimit)
	if err != nil {
		run.FinishedAt = time.Now()
		run.Status = market.ScanStatusFailed
		if finishErr := sc.store.FinishScanRun(ctx, run); finishErr != nil {
			log.Error("finishing failed scan run failed", "error", finishErr.Error())
		}
		return nil, err
	}
	assets = sc.filterAssets(assets)
	log.Info("scan starting", "assets", len(assets))

	// Market-wide sentiment is fetched once per scan, not per asset.
	sentiment, err := sc.data.Sentiment(ctx)
	if err != nil {
		sentiment = nil
	}

	assetChan := make(chan market.Asset)
	resultChan := make(chan AssetResult, len(assets))

	var workers sync.WaitGroup
	n := sc.config.Workers
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for asset := range assetChan {
				resultChan <- sc.evaluateAsset(ctx, scanID, asset, sentiment)
			}
		}()
	}

	// Admission: once the budget is spent, stop feeding new assets but
	// let in-flight ones finish.
	deadline := start.Add(sc.config.WallClockBudget)
	var timedOut bool
	var admitted int
feed:
	for _, asset := range assets {
		if sc.config.WallClockBudget > 0 && time.Now().After(deadline) {
			timedOut = true
			break
		}
		select {
		case assetChan <- asset:
			admitted++
		case <-ctx.Done():
			timedOut = true
			break feed
		}
	}
	close(assetChan)
	workers.Wait()
	close(resultChan)

	summary := &Summary{
		ScanID:    scanID,
		StartedAt: start,
		Status:    market.ScanStatusCompleted,
	}
	for result := range resultChan {
		summary.Results = append(summary.Results, result)
		if result.Skipped {
			summary.AssetsSkipped++
			continue
		}
		summary.AssetsScanned++
		if result.Recommendation != nil {
			summary.Recommendations++
		}
	}
	if timedOut {
		summary.Status = market.ScanStatusCompletedTimeout
	}
	summary.FinishedAt = time.Now()

	run.FinishedAt = summary.FinishedAt
	run.Status = summary.Status
	run.AssetsScanned = summary.AssetsScanned
	run.Recommendations = summary.Recommendations
	if err := sc.store.FinishScanRun(ctx, run); err != nil {
		log.Error("finishing scan run failed", "error", err.Error())
	}

	if sc.metrics != nil {
		sc.metrics.ScanCompleted(summary.Status, summary.FinishedAt.Sub(start).Seconds(), summary.AssetsScanned)
	}
	if sc.snapshots != nil {
		if err := sc.snapshots.StoreScan(ctx, scanID, summary); err != nil {
			log.Warn("caching scan snapshot failed", "error", err.Error())
		}
	}

	sc.mu.Lock()
	sc.lastSummary = summary
	sc.mu.Unlock()

	log.Info("scan finished",
		"status", summary.Status,
		"assets", summary.AssetsScanned,
		"skipped", summary.AssetsSkipped,
		"recommendations", summary.Recommendations,
		"took", summary.FinishedAt.Sub(start).String())
	return summary, nil
}

func (sc *Scanner) filterAssets(assets []market.Asset) []market.Asset {
	out := assets[:0]
	for _, a := range assets {
		if a.Price < sc.config.MinPrice {
			continue
		}
		if sc.config.MaxPrice > 0 && a.Price > sc.config.MaxPrice {
			continue
		}
		out = append(out, a)
	}
	return out
}

// evaluateAsset runs the strict per-asset sequence: series, indicators,
// enrichment, generators, regime, aggregation, persistence. Every failure
// here is scoped to the one asset.
func (sc *Scanner) evaluateAsset(ctx context.Context, scanID string, asset market.Asset, sentiment *market.SentimentSnapshot) AssetResult {
	log := logging.AssetContext(scanID, asset.Symbol)

	series, err := sc.data.Series(ctx, asset.Symbol, sc.config.Timeframe, sc.config.CandleLimit)
	if err != nil {
		log.Warn("no candle series, skipping asset", "error", err.Error())
		return AssetResult{Symbol: asset.Symbol, Skipped: true, SkipReason: "series unavailable"}
	}

	ind := indicators.Compute(series.Candles)
	if !ind.Available {
		return AssetResult{Symbol: asset.Symbol, Skipped: true, SkipReason: "insufficient candles"}
	}

	// Enrichment kinds degrade independently; a missing one leaves its
	// snapshot nil and the dependent generators abstain.
	deriv, err := sc.data.Derivatives(ctx, asset.Symbol)
	if err != nil {
		deriv = nil
	}
	opts, err := sc.data.Options(ctx, asset.Symbol)
	if err != nil {
		opts = nil
	}
	onchain, err := sc.data.OnChain(ctx, asset.Symbol)
	if err != nil {
		onchain = nil
	}

	reg := regime.Classify(ind, series.LastClose())

	signals := sc.registry.EvaluateAll(generators.Input{
		Asset:       asset,
		Series:      series,
		Indicators:  ind,
		Derivatives: deriv,
		Options:     opts,
		OnChain:     onchain,
		Sentiment:   sentiment,
	})

	agg := sc.engine.Aggregate(asset.Symbol, signals, reg)

	if agg != nil {
		if err := sc.store.SaveRecommendation(ctx, scanID, agg, signals); err != nil {
			log.Error("persisting recommendation failed", "error", err.Error())
		} else if sc.metrics != nil {
			sc.metrics.RecommendationEmitted(string(agg.Direction))
		}
	} else if len(signals) > 0 {
		// No consensus, but the individual predictions still feed the
		// performance tracker.
		if err := sc.store.SaveSignals(ctx, scanID, signals); err != nil {
			log.Error("persisting signals failed", "error", err.Error())
		}
	}

	return AssetResult{
		Symbol:         asset.Symbol,
		Regime:         reg,
		SignalCount:    len(signals),
		Recommendation: agg,
	}
}
