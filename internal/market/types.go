// Package market defines the core value types shared by the acquisition,
// generation, aggregation, and learning layers. Everything here is a plain
// immutable snapshot; nothing in this package does I/O.
package market

import (
	"time"
)

// Direction is the side of a directional prediction.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Asset is a point-in-time snapshot of one coin from the universe list.
// Immutable for the duration of a scan cycle.
type Asset struct {
	Symbol    string  `json:"symbol"` // e.g. "BTC"
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	MarketCap float64 `json:"market_cap"`
}

// Candle is a single OHLCV bar.
type Candle struct {
	OpenTime int64   `json:"open_time"` // unix milliseconds
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Series is an ordered OHLCV sequence for one asset and timeframe,
// oldest first. Recomputed each scan, never persisted by the core.
type Series struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"` // e.g. "1h"
	Candles   []Candle `json:"candles"`
}

// LastClose returns the most recent close price, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// DerivativesSnapshot carries futures-market enrichment for one asset.
// Optional input: a nil snapshot must never prevent signal generation.
type DerivativesSnapshot struct {
	Symbol         string    `json:"symbol"`
	FundingRate    float64   `json:"funding_rate"` // current 8h funding rate
	OpenInterest   float64   `json:"open_interest"`
	OpenInterest24 float64   `json:"open_interest_24h_ago"`
	LongShortRatio float64   `json:"long_short_ratio"`
	MarkPrice      float64   `json:"mark_price"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// OIChangePercent returns the 24h open-interest change in percent.
func (d *DerivativesSnapshot) OIChangePercent() float64 {
	if d == nil || d.OpenInterest24 == 0 {
		return 0
	}
	return (d.OpenInterest - d.OpenInterest24) / d.OpenInterest24 * 100
}

// OptionsSnapshot carries options-market aggregates for one asset. Optional.
type OptionsSnapshot struct {
	Symbol       string    `json:"symbol"`
	PutCallRatio float64   `json:"put_call_ratio"`
	TotalOI      float64   `json:"total_open_interest"`
	IVRank       float64   `json:"iv_rank"` // 0..1 where known, else 0
	FetchedAt    time.Time `json:"fetched_at"`
}

// OnChainSnapshot carries on-chain flow estimates for one asset. Optional.
type OnChainSnapshot struct {
	Symbol          string    `json:"symbol"`
	NetExchangeFlow float64   `json:"net_exchange_flow"` // >0 inflow to exchanges
	ActiveAddresses int64     `json:"active_addresses"`
	TxVolume        float64   `json:"tx_volume"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// SentimentSnapshot carries market-wide sentiment scores. Optional.
type SentimentSnapshot struct {
	FearGreedIndex int       `json:"fear_greed_index"` // 0..100
	Classification string    `json:"classification"`   // "Extreme Fear" .. "Extreme Greed"
	FetchedAt      time.Time `json:"fetched_at"`
}

// BotSignal is one generator's directional prediction for one asset in one
// scan. Produced fresh each cycle and never mutated.
type BotSignal struct {
	GeneratorName string    `json:"generator_name"`
	Symbol        string    `json:"symbol"`
	Direction     Direction `json:"direction"`
	Confidence    float64   `json:"confidence"` // 0..1
	Entry         float64   `json:"entry"`
	TakeProfit    float64   `json:"take_profit"`
	StopLoss      float64   `json:"stop_loss"`
	Leverage      int       `json:"leverage"`
}

// RegimeType labels the current market condition for one asset.
type RegimeType string

const (
	RegimeTrending RegimeType = "trending"
	RegimeRanging  RegimeType = "ranging"
	RegimeVolatile RegimeType = "volatile"
)

// Regime is the classified market condition with a 0..1 strength.
type Regime struct {
	Type     RegimeType `json:"type"`
	Strength float64    `json:"strength"`
}

// AggregatedSignal is the consensus recommendation for one asset in one
// scan, the unit persisted downstream.
type AggregatedSignal struct {
	Symbol            string     `json:"symbol"`
	Direction         Direction  `json:"direction"`
	Confidence        float64    `json:"confidence"`
	ConsensusPercent  float64    `json:"consensus_percent"`
	ParticipatingBots int        `json:"participating_bots"`
	LongCount         int        `json:"long_count"`
	ShortCount        int        `json:"short_count"`
	AvgEntry          float64    `json:"avg_entry"`
	AvgTakeProfit     float64    `json:"avg_take_profit"`
	AvgStopLoss       float64    `json:"avg_stop_loss"`
	Regime            Regime     `json:"regime"`
	GeneratedAt       time.Time  `json:"generated_at"`
}

// Generator lifecycle statuses driven by the adaptive weight learner.
const (
	GeneratorStatusActive              = "ACTIVE"
	GeneratorStatusDisabled            = "DISABLED"
	GeneratorStatusProbation           = "PROBATION"
	GeneratorStatusPermanentlyDisabled = "PERMANENTLY_DISABLED"
)

// ProbationGuardrails are the stricter limits applied to a generator while
// it is on probation.
type ProbationGuardrails struct {
	MaxLeverage        int     `json:"max_leverage"`
	ConfidenceFloorAdd float64 `json:"confidence_floor_add"`
	StopLossTightening float64 `json:"stop_loss_tightening"` // multiplier on SL distance
}

// WeightState is the long-lived trust record for one generator. Mutated
// only by the adaptive weight learner; everything else reads it.
type WeightState struct {
	GeneratorName  string     `json:"generator_name"`
	Philosophy     string     `json:"philosophy"`
	CurrentWeight  float64    `json:"current_weight"` // clamped to [0.2, 2.0]
	Status         string     `json:"status"`
	DisableCount   int        `json:"disable_count"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty"`
	ProbationUntil *time.Time `json:"probation_until,omitempty"`
	ProbationStart *time.Time `json:"probation_start,omitempty"`
	Accuracy7d     float64    `json:"accuracy_7d"`
	Accuracy30d    float64    `json:"accuracy_30d"`
	Accuracy90d    float64    `json:"accuracy_90d"`
	SampleCount    int        `json:"sample_count"` // matured predictions, lifetime
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Enabled reports whether signals from this generator may participate in
// aggregation at all.
func (w *WeightState) Enabled() bool {
	return w.Status == GeneratorStatusActive || w.Status == GeneratorStatusProbation
}

// Outcome horizons at which a prediction is scored.
const (
	Horizon24h = "24h"
	Horizon48h = "48h"
	Horizon7d  = "7d"
)

// PredictionOutcome scores one persisted BotSignal against the realized
// price at one horizon. Immutable once evaluated.
type PredictionOutcome struct {
	ID            string    `json:"id"`
	SignalID      string    `json:"signal_id"`
	GeneratorName string    `json:"generator_name"`
	Symbol        string    `json:"symbol"`
	Horizon       string    `json:"horizon"`
	PredictedAt   time.Time `json:"predicted_at"`
	EntryPrice    float64   `json:"entry_price"`
	RealizedPrice float64   `json:"realized_price"`
	Direction     Direction `json:"direction"`
	Correct       bool      `json:"correct"`
	PnLPercent    float64   `json:"pnl_percent"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Accuracy is a correct/total tally of matured predictions in a window.
type Accuracy struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Rate returns the hit rate, or 0 with no samples.
func (a Accuracy) Rate() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total)
}

// StoredSignal is a persisted BotSignal plus its storage identity, handed
// back to the outcome evaluator once the prediction matures.
type StoredSignal struct {
	ID          string    `json:"id"`
	PredictedAt time.Time `json:"predicted_at"`
	BotSignal
}

// Scan run completion statuses.
const (
	ScanStatusRunning          = "running"
	ScanStatusCompleted        = "completed"
	ScanStatusCompletedTimeout = "completed_timeout"
	ScanStatusFailed           = "failed"
)

// ScanRun is the ledger row for one scan cycle.
type ScanRun struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Status          string    `json:"status"`
	AssetsScanned   int       `json:"assets_scanned"`
	Recommendations int       `json:"recommendations"`
}

// Correlation is the pairwise close-price correlation between two scanned
// assets over a window, recomputed by the learner's correlation job.
type Correlation struct {
	BaseSymbol   string    `json:"base_symbol"`
	QuoteSymbol  string    `json:"quote_symbol"`
	Window       string    `json:"window"` // e.g. "30d"
	Coefficient  float64   `json:"coefficient"`
	SampleSize   int       `json:"sample_size"`
	CalculatedAt time.Time `json:"calculated_at"`
}
