package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-consensus-bot/internal/market"
)

// CoinPaprika is the fallback for both the universe list and OHLCV series.
// Paprika addresses coins by ids like "btc-bitcoin"; the resolution from
// bare symbols is memoized in the id cache.
type CoinPaprika struct {
	http    *httpClient
	baseURL string
	ids     *IDCache
}

// NewCoinPaprika creates a CoinPaprika client.
func NewCoinPaprika(ids *IDCache) *CoinPaprika {
	return &CoinPaprika{
		http:    newHTTPClient(nil),
		baseURL: "https://api.coinpaprika.com/v1",
		ids:     ids,
	}
}

// Name returns the provider identifier.
func (c *CoinPaprika) Name() string { return "coinpaprika" }

type paprikaTicker struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Quotes struct {
		USD struct {
			Price     float64 `json:"price"`
			Volume24h float64 `json:"volume_24h"`
			MarketCap float64 `json:"market_cap"`
		} `json:"USD"`
	} `json:"quotes"`
}

// TopAssets returns the universe list ordered by rank.
func (c *CoinPaprika) TopAssets(ctx context.Context, limit int) ([]market.Asset, error) {
	var rows []paprikaTicker
	if err := c.http.getJSON(ctx, c.baseURL+"/tickers", &rows); err != nil {
		return nil, fmt.Errorf("coinpaprika tickers: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coinpaprika tickers: %w", ErrEmptyResult)
	}

	assets := make([]market.Asset, 0, limit)
	for _, r := range rows {
		if r.Rank == 0 {
			continue
		}
		// Seed the id cache while we are here; saves a coins/list call.
		c.ids.Put(ctx, c.Name(), strings.ToUpper(r.Symbol), r.ID)
		assets = append(assets, market.Asset{
			Symbol:    strings.ToUpper(r.Symbol),
			Name:      r.Name,
			Price:     r.Quotes.USD.Price,
			Volume24h: r.Quotes.USD.Volume24h,
			MarketCap: r.Quotes.USD.MarketCap,
		})
		if len(assets) >= limit {
			break
		}
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("coinpaprika tickers: %w", ErrEmptyResult)
	}
	return assets, nil
}

type paprikaCandle struct {
	TimeOpen string  `json:"time_open"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Series fetches historical daily OHLCV. Paprika's free tier only serves
// daily candles, so this fallback ignores sub-daily timeframes.
func (c *CoinPaprika) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	id, err := c.resolveID(ctx, symbol)
	if err != nil {
		return market.Series{}, err
	}

	start := time.Now().UTC().AddDate(0, 0, -limit).Format("2006-01-02")
	url := fmt.Sprintf("%s/coins/%s/ohlcv/historical?start=%s&limit=%d", c.baseURL, id, start, limit)

	var rows []paprikaCandle
	if err := c.http.getJSON(ctx, url, &rows); err != nil {
		return market.Series{}, fmt.Errorf("coinpaprika ohlcv %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return market.Series{}, fmt.Errorf("coinpaprika ohlcv %s: %w", symbol, ErrEmptyResult)
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339, r.TimeOpen)
		if err != nil {
			return market.Series{}, fmt.Errorf("coinpaprika ohlcv %s: %w: bad timestamp", symbol, ErrProviderUnavailable)
		}
		candles = append(candles, market.Candle{
			OpenTime: ts.UnixMilli(),
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
		})
	}
	return market.Series{Symbol: symbol, Timeframe: "1d", Candles: candles}, nil
}

type paprikaCoin struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Rank     int    `json:"rank"`
	IsActive bool   `json:"is_active"`
}

// resolveID maps a bare symbol to the paprika coin id, memoized in the id
// cache for the process lifetime.
func (c *CoinPaprika) resolveID(ctx context.Context, symbol string) (string, error) {
	if id, ok := c.ids.Get(ctx, c.Name(), symbol); ok {
		return id, nil
	}

	var coins []paprikaCoin
	if err := c.http.getJSON(ctx, c.baseURL+"/coins", &coins); err != nil {
		return "", fmt.Errorf("coinpaprika coins: %w", err)
	}

	// The list includes inactive duplicates; prefer the ranked active coin.
	best := ""
	bestRank := 0
	for _, coin := range coins {
		if !coin.IsActive || !strings.EqualFold(coin.Symbol, symbol) {
			continue
		}
		if best == "" || (coin.Rank > 0 && (bestRank == 0 || coin.Rank < bestRank)) {
			best = coin.ID
			bestRank = coin.Rank
		}
	}
	if best == "" {
		return "", fmt.Errorf("coinpaprika coins %s: %w", symbol, ErrEmptyResult)
	}
	c.ids.Put(ctx, c.Name(), symbol, best)
	return best, nil
}
