package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crypto-consensus-bot/internal/market"
)

// BinanceFutures serves the derivatives snapshot: funding, open interest,
// long/short positioning, and mark price. The snapshot needs several
// endpoints; a fixed pacing delay sits between the calls to stay inside
// the vendor's rate limits.
type BinanceFutures struct {
	http    *httpClient
	baseURL string
	pace    time.Duration
}

// NewBinanceFutures creates a Binance USD-M futures client.
func NewBinanceFutures(baseURL string, pace time.Duration) *BinanceFutures {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	return &BinanceFutures{
		http:    newHTTPClient(nil),
		baseURL: baseURL,
		pace:    pace,
	}
}

// Name returns the provider identifier.
func (c *BinanceFutures) Name() string { return "binance-futures" }

type premiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
}

type openInterestHist struct {
	SumOpenInterest string `json:"sumOpenInterest"`
	Timestamp       int64  `json:"timestamp"`
}

type longShortRatio struct {
	LongShortRatio string `json:"longShortRatio"`
	Timestamp      int64  `json:"timestamp"`
}

// Derivatives assembles the full futures snapshot for one asset.
func (c *BinanceFutures) Derivatives(ctx context.Context, symbol string) (*market.DerivativesSnapshot, error) {
	pair := symbol + "USDT"

	var prem premiumIndex
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", c.baseURL, pair)
	if err := c.http.getJSON(ctx, url, &prem); err != nil {
		return nil, fmt.Errorf("futures premium %s: %w", symbol, err)
	}
	markPrice, err1 := strconv.ParseFloat(prem.MarkPrice, 64)
	funding, err2 := strconv.ParseFloat(prem.LastFundingRate, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("futures premium %s: %w: bad payload", symbol, ErrProviderUnavailable)
	}

	c.sleep(ctx)

	// Two daily buckets give the current OI and the 24h-ago reference.
	var oiRows []openInterestHist
	url = fmt.Sprintf("%s/futures/data/openInterestHist?symbol=%s&period=1d&limit=2", c.baseURL, pair)
	if err := c.http.getJSON(ctx, url, &oiRows); err != nil {
		return nil, fmt.Errorf("futures oi %s: %w", symbol, err)
	}
	if len(oiRows) == 0 {
		return nil, fmt.Errorf("futures oi %s: %w", symbol, ErrEmptyResult)
	}
	oiNow, _ := strconv.ParseFloat(oiRows[len(oiRows)-1].SumOpenInterest, 64)
	oiPrev := oiNow
	if len(oiRows) > 1 {
		oiPrev, _ = strconv.ParseFloat(oiRows[0].SumOpenInterest, 64)
	}

	c.sleep(ctx)

	var lsRows []longShortRatio
	url = fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=1h&limit=1", c.baseURL, pair)
	if err := c.http.getJSON(ctx, url, &lsRows); err != nil {
		return nil, fmt.Errorf("futures long/short %s: %w", symbol, err)
	}
	ratio := 0.0
	if len(lsRows) > 0 {
		ratio, _ = strconv.ParseFloat(lsRows[0].LongShortRatio, 64)
	}

	return &market.DerivativesSnapshot{
		Symbol:         symbol,
		FundingRate:    funding,
		OpenInterest:   oiNow,
		OpenInterest24: oiPrev,
		LongShortRatio: ratio,
		MarkPrice:      markPrice,
		FetchedAt:      time.Now().UTC(),
	}, nil
}

// sleep applies the inter-call pacing delay, bailing out early when the
// context is done.
func (c *BinanceFutures) sleep(ctx context.Context) {
	if c.pace <= 0 {
		return
	}
	select {
	case <-time.After(c.pace):
	case <-ctx.Done():
	}
}
