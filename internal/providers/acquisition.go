package providers

import (
	"context"
	"fmt"
	"sync"

	"crypto-consensus-bot/internal/logging"
	"crypto-consensus-bot/internal/market"
)

// Data kinds served by the acquisition layer.
const (
	KindUniverse    = "universe"
	KindSeries      = "series"
	KindDerivatives = "derivatives"
	KindOptions     = "options"
	KindOnChain     = "onchain"
	KindSentiment   = "sentiment"
)

// Per-kind provider contracts. Each is a pure I/O boundary returning
// provider-agnostic structures.
type (
	UniverseProvider interface {
		Name() string
		TopAssets(ctx context.Context, limit int) ([]market.Asset, error)
	}
	SeriesProvider interface {
		Name() string
		Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error)
	}
	DerivativesProvider interface {
		Name() string
		Derivatives(ctx context.Context, symbol string) (*market.DerivativesSnapshot, error)
	}
	OptionsProvider interface {
		Name() string
		Options(ctx context.Context, symbol string) (*market.OptionsSnapshot, error)
	}
	OnChainProvider interface {
		Name() string
		OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error)
	}
	SentimentProvider interface {
		Name() string
		Sentiment(ctx context.Context) (*market.SentimentSnapshot, error)
	}
)

// FallbackRecorder receives chain events for instrumentation. Satisfied by
// the metrics recorder; nil-safe throughout.
type FallbackRecorder interface {
	ProviderFallback(kind, provider string)
	ChainExhausted(kind string)
}

// Layer orchestrates the ordered fallback chains, one per data kind.
// A provider failure advances the chain; there is no per-provider retry —
// fallback is the retry strategy. Only an exhausted chain surfaces as
// ErrDataKindUnavailable, which callers treat as "skip this data kind for
// this asset".
type Layer struct {
	universe    []UniverseProvider
	series      []SeriesProvider
	derivatives []DerivativesProvider
	options     []OptionsProvider
	onchain     []OnChainProvider
	sentiment   []SentimentProvider

	logger   *logging.Logger
	recorder FallbackRecorder

	mu         sync.RWMutex
	lastSource map[string]string // kind -> provider that last served it
}

// NewLayer creates an acquisition layer over the given chains.
func NewLayer(logger *logging.Logger, recorder FallbackRecorder) *Layer {
	return &Layer{
		logger:     logger,
		recorder:   recorder,
		lastSource: make(map[string]string),
	}
}

// AddUniverse appends a universe provider to its chain.
func (l *Layer) AddUniverse(p UniverseProvider) { l.universe = append(l.universe, p) }

// AddSeries appends an OHLCV provider to its chain.
func (l *Layer) AddSeries(p SeriesProvider) { l.series = append(l.series, p) }

// AddDerivatives appends a derivatives provider to its chain.
func (l *Layer) AddDerivatives(p DerivativesProvider) { l.derivatives = append(l.derivatives, p) }

// AddOptions appends an options provider to its chain.
func (l *Layer) AddOptions(p OptionsProvider) { l.options = append(l.options, p) }

// AddOnChain appends an on-chain provider to its chain.
func (l *Layer) AddOnChain(p OnChainProvider) { l.onchain = append(l.onchain, p) }

// AddSentiment appends a sentiment provider to its chain.
func (l *Layer) AddSentiment(p SentimentProvider) { l.sentiment = append(l.sentiment, p) }

// Validate fails when a required data kind has no providers at all. This
// is the only fatal configuration error; optional kinds may be empty.
func (l *Layer) Validate() error {
	if len(l.universe) == 0 {
		return fmt.Errorf("no universe providers configured")
	}
	if len(l.series) == 0 {
		return fmt.Errorf("no series providers configured")
	}
	return nil
}

// LastSource reports which provider last served a data kind.
func (l *Layer) LastSource(kind string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSource[kind]
}

func (l *Layer) recordSuccess(kind, provider string) {
	l.mu.Lock()
	l.lastSource[kind] = provider
	l.mu.Unlock()
}

func (l *Layer) recordFailure(kind, provider, symbol string, err error) {
	if l.recorder != nil {
		l.recorder.ProviderFallback(kind, provider)
	}
	logging.ProviderContext(provider, kind, symbol).
		WithError(err).
		Warn("provider failed, advancing fallback chain")
}

func (l *Layer) exhausted(kind, symbol string) error {
	if l.recorder != nil {
		l.recorder.ChainExhausted(kind)
	}
	logging.ProviderContext("", kind, symbol).
		Warn("all providers failed for data kind")
	return fmt.Errorf("%s %s: %w", kind, symbol, ErrDataKindUnavailable)
}

// Universe fetches the top-coins list through the universe chain.
func (l *Layer) Universe(ctx context.Context, limit int) ([]market.Asset, error) {
	for _, p := range l.universe {
		assets, err := p.TopAssets(ctx, limit)
		if err != nil {
			l.recordFailure(KindUniverse, p.Name(), "", err)
			continue
		}
		l.recordSuccess(KindUniverse, p.Name())
		return assets, nil
	}
	return nil, l.exhausted(KindUniverse, "")
}

// Series fetches the OHLCV series for one asset through the series chain.
func (l *Layer) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	for _, p := range l.series {
		series, err := p.Series(ctx, symbol, timeframe, limit)
		if err != nil {
			l.recordFailure(KindSeries, p.Name(), symbol, err)
			continue
		}
		l.recordSuccess(KindSeries, p.Name())
		return series, nil
	}
	return market.Series{}, l.exhausted(KindSeries, symbol)
}

// Derivatives fetches the futures snapshot. A nil snapshot with a
// DataKindUnavailable error means generators needing it abstain.
func (l *Layer) Derivatives(ctx context.Context, symbol string) (*market.DerivativesSnapshot, error) {
	for _, p := range l.derivatives {
		snap, err := p.Derivatives(ctx, symbol)
		if err != nil {
			l.recordFailure(KindDerivatives, p.Name(), symbol, err)
			continue
		}
		l.recordSuccess(KindDerivatives, p.Name())
		return snap, nil
	}
	return nil, l.exhausted(KindDerivatives, symbol)
}

// Options fetches the options snapshot through its chain.
func (l *Layer) Options(ctx context.Context, symbol string) (*market.OptionsSnapshot, error) {
	for _, p := range l.options {
		snap, err := p.Options(ctx, symbol)
		if err != nil {
			l.recordFailure(KindOptions, p.Name(), symbol, err)
			continue
		}
		l.recordSuccess(KindOptions, p.Name())
		return snap, nil
	}
	return nil, l.exhausted(KindOptions, symbol)
}

// OnChain fetches the on-chain snapshot through its chain.
func (l *Layer) OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error) {
	for _, p := range l.onchain {
		snap, err := p.OnChain(ctx, symbol)
		if err != nil {
			l.recordFailure(KindOnChain, p.Name(), symbol, err)
			continue
		}
		l.recordSuccess(KindOnChain, p.Name())
		return snap, nil
	}
	return nil, l.exhausted(KindOnChain, symbol)
}

// Sentiment fetches the market-wide sentiment snapshot. Market-wide, not
// per-asset: the scanner fetches it once per cycle.
func (l *Layer) Sentiment(ctx context.Context) (*market.SentimentSnapshot, error) {
	for _, p := range l.sentiment {
		snap, err := p.Sentiment(ctx)
		if err != nil {
			l.recordFailure(KindSentiment, p.Name(), "", err)
			continue
		}
		l.recordSuccess(KindSentiment, p.Name())
		return snap, nil
	}
	return nil, l.exhausted(KindSentiment, "")
}
