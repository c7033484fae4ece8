package learner

import (
	"context"
	"fmt"
	"math"

	"crypto-consensus-bot/internal/market"
)

// UniverseSource lists the assets worth correlating. Implemented by
// providers.Layer.
type UniverseSource interface {
	Universe(ctx context.Context, limit int) ([]market.Asset, error)
}

const (
	correlationWindow     = "30d"
	correlationCandles    = 31 // 30 daily returns
	correlationUniverse   = 20
	correlationMinSamples = 10
)

// CalculateCorrelations recomputes pairwise daily-return correlations
// across the top of the asset universe and persists each pair.
func (l *Learner) CalculateCorrelations(ctx context.Context, universe UniverseSource, series SeriesSource) error {
	assets, err := universe.Universe(ctx, correlationUniverse)
	if err != nil {
		return fmt.Errorf("correlation universe: %w", err)
	}

	returns := make(map[string][]float64, len(assets))
	var symbols []string
	for _, asset := range assets {
		s, err := series.Series(ctx, asset.Symbol, "1d", correlationCandles)
		if err != nil {
			l.log.Warn().Err(err).Str("symbol", asset.Symbol).Msg("skipping asset in correlation pass")
			continue
		}
		r := dailyReturns(s.Candles)
		if len(r) < correlationMinSamples {
			continue
		}
		returns[asset.Symbol] = r
		symbols = append(symbols, asset.Symbol)
	}

	now := l.now()
	var written int
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			base, quote := symbols[i], symbols[j]
			coef, n, ok := pearson(returns[base], returns[quote])
			if !ok {
				continue
			}
			c := &market.Correlation{
				BaseSymbol:   base,
				QuoteSymbol:  quote,
				Window:       correlationWindow,
				Coefficient:  coef,
				SampleSize:   n,
				CalculatedAt: now,
			}
			if err := l.store.UpsertCorrelation(ctx, c); err != nil {
				return fmt.Errorf("persist correlation %s/%s: %w", base, quote, err)
			}
			written++
		}
	}

	l.log.Info().Int("assets", len(symbols)).Int("pairs", written).Msg("correlation pass finished")
	return nil
}

func dailyReturns(candles []market.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, (candles[i].Close-prev)/prev)
	}
	return out
}

// pearson aligns both series on their most recent overlap and returns the
// correlation coefficient, the sample size, and whether it is defined.
func pearson(a, b []float64) (float64, int, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < correlationMinSamples {
		return 0, 0, false
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, 0, false
	}
	return cov / math.Sqrt(varA*varB), n, true
}
