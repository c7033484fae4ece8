package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crypto-consensus-bot/internal/market"
)

// AlternativeMe serves the market-wide Fear & Greed index. The score is
// not per-asset; the acquisition layer fetches it once per scan and shares
// it across assets.
type AlternativeMe struct {
	http    *httpClient
	baseURL string
}

// NewAlternativeMe creates an alternative.me client.
func NewAlternativeMe() *AlternativeMe {
	return &AlternativeMe{
		http:    newHTTPClient(nil),
		baseURL: "https://api.alternative.me",
	}
}

// Name returns the provider identifier.
func (c *AlternativeMe) Name() string { return "alternative.me" }

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// Sentiment fetches the latest Fear & Greed reading.
func (c *AlternativeMe) Sentiment(ctx context.Context) (*market.SentimentSnapshot, error) {
	var resp fngResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/fng/?limit=1", &resp); err != nil {
		return nil, fmt.Errorf("fear-greed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("fear-greed: %w", ErrEmptyResult)
	}

	value, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("fear-greed: %w: bad value", ErrProviderUnavailable)
	}

	return &market.SentimentSnapshot{
		FearGreedIndex: value,
		Classification: resp.Data[0].Classification,
		FetchedAt:      time.Now().UTC(),
	}, nil
}
