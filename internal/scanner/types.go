package scanner

import (
	"time"

	"crypto-consensus-bot/internal/market"
)

// Config controls one scan cycle and the background scan loop.
type Config struct {
	Enabled         bool          `json:"enabled"`
	Interval        time.Duration `json:"interval"`
	CoinLimit       int           `json:"coin_limit"`
	Workers         int           `json:"workers"`
	WallClockBudget time.Duration `json:"wall_clock_budget"`
	Timeframe       string        `json:"timeframe"`
	CandleLimit     int           `json:"candle_limit"`
	MinPrice        float64       `json:"min_price"`
	MaxPrice        float64       `json:"max_price"` // 0 disables the upper bound
}

// DefaultConfig scans the top 50 coins hourly with a bounded fan-out.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Interval:        time.Hour,
		CoinLimit:       50,
		Workers:         8,
		WallClockBudget: 10 * time.Minute,
		Timeframe:       "1h",
		CandleLimit:     250,
	}
}

// AssetResult is the outcome of one asset's pipeline run.
type AssetResult struct {
	Symbol         string                   `json:"symbol"`
	Regime         market.Regime            `json:"regime"`
	SignalCount    int                      `json:"signal_count"`
	Recommendation *market.AggregatedSignal `json:"recommendation,omitempty"`
	Skipped        bool                     `json:"skipped"`
	SkipReason     string                   `json:"skip_reason,omitempty"`
}

// Summary is one scan cycle's aggregate outcome, cached for consumers.
type Summary struct {
	ScanID          string        `json:"scan_id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Status          string        `json:"status"`
	AssetsScanned   int           `json:"assets_scanned"`
	AssetsSkipped   int           `json:"assets_skipped"`
	Recommendations int           `json:"recommendations"`
	Results         []AssetResult `json:"results"`
}
