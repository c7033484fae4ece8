package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"crypto-consensus-bot/internal/market"
)

// BinanceSpot serves OHLCV series from the Binance spot API. Assets are
// addressed by their bare symbol; the USDT pair is derived here.
type BinanceSpot struct {
	http    *httpClient
	baseURL string
}

// NewBinanceSpot creates a Binance spot market-data client. No key needed
// for public market data.
func NewBinanceSpot(baseURL string) *BinanceSpot {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceSpot{
		http:    newHTTPClient(nil),
		baseURL: baseURL,
	}
}

// Name returns the provider identifier.
func (c *BinanceSpot) Name() string { return "binance" }

// Series fetches klines for symbol, oldest first.
func (c *BinanceSpot) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	params := url.Values{}
	params.Set("symbol", symbol+"USDT")
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	// Binance klines arrive as positional arrays of mixed types.
	var raw [][]interface{}
	if err := c.http.getJSON(ctx, endpoint, &raw); err != nil {
		return market.Series{}, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return market.Series{}, fmt.Errorf("binance klines %s: %w", symbol, ErrEmptyResult)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			return market.Series{}, fmt.Errorf("binance klines %s: %w: short row", symbol, ErrProviderUnavailable)
		}
		openTime, ok := row[0].(float64)
		if !ok {
			return market.Series{}, fmt.Errorf("binance klines %s: %w: bad open time", symbol, ErrProviderUnavailable)
		}
		c := market.Candle{OpenTime: int64(openTime)}
		var err error
		if c.Open, err = parseField(row[1]); err == nil {
			if c.High, err = parseField(row[2]); err == nil {
				if c.Low, err = parseField(row[3]); err == nil {
					if c.Close, err = parseField(row[4]); err == nil {
						c.Volume, err = parseField(row[5])
					}
				}
			}
		}
		if err != nil {
			return market.Series{}, fmt.Errorf("binance klines %s: %w: %v", symbol, ErrProviderUnavailable, err)
		}
		candles = append(candles, c)
	}

	return market.Series{Symbol: symbol, Timeframe: timeframe, Candles: candles}, nil
}

func parseField(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("expected string field, got %T", v)
	}
	return strconv.ParseFloat(s, 64)
}
