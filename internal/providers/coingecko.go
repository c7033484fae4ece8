package providers

import (
	"context"
	"fmt"
	"strings"

	"crypto-consensus-bot/internal/market"
)

// CoinGecko serves the top-coins universe list. Works without an API key;
// a pro key is attached when configured.
type CoinGecko struct {
	http    *httpClient
	baseURL string
}

// NewCoinGecko creates a CoinGecko client.
func NewCoinGecko(apiKey string) *CoinGecko {
	headers := map[string]string{}
	if apiKey != "" {
		headers["x-cg-pro-api-key"] = apiKey
	}
	return &CoinGecko{
		http:    newHTTPClient(headers),
		baseURL: "https://api.coingecko.com/api/v3",
	}
}

// Name returns the provider identifier.
func (c *CoinGecko) Name() string { return "coingecko" }

type geckoMarket struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	TotalVolume  float64 `json:"total_volume"`
}

// TopAssets returns the universe list ordered by market cap.
func (c *CoinGecko) TopAssets(ctx context.Context, limit int) ([]market.Asset, error) {
	if limit <= 0 || limit > 250 {
		limit = 250
	}
	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=1", c.baseURL, limit)

	var rows []geckoMarket
	if err := c.http.getJSON(ctx, url, &rows); err != nil {
		return nil, fmt.Errorf("coingecko markets: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coingecko markets: %w", ErrEmptyResult)
	}

	assets := make([]market.Asset, 0, len(rows))
	for _, r := range rows {
		assets = append(assets, market.Asset{
			Symbol:    strings.ToUpper(r.Symbol),
			Name:      r.Name,
			Price:     r.CurrentPrice,
			Volume24h: r.TotalVolume,
			MarketCap: r.MarketCap,
		})
	}
	return assets, nil
}
