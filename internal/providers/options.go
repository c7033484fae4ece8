package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-consensus-bot/internal/market"
)

// Deribit serves options aggregates. Only the currencies Deribit lists are
// supported; anything else reports an empty result and the caller treats
// the options snapshot as absent for that asset.
type Deribit struct {
	http       *httpClient
	baseURL    string
	currencies map[string]bool
}

// NewDeribit creates a Deribit public-API client.
func NewDeribit() *Deribit {
	return &Deribit{
		http:    newHTTPClient(nil),
		baseURL: "https://www.deribit.com/api/v2",
		currencies: map[string]bool{
			"BTC": true, "ETH": true, "SOL": true, "XRP": true,
		},
	}
}

// Name returns the provider identifier.
func (c *Deribit) Name() string { return "deribit" }

type deribitBookSummary struct {
	Result []struct {
		InstrumentName string  `json:"instrument_name"`
		OpenInterest   float64 `json:"open_interest"`
		MarkIV         float64 `json:"mark_iv"`
	} `json:"result"`
}

// Options aggregates the live option book into a put/call snapshot.
func (c *Deribit) Options(ctx context.Context, symbol string) (*market.OptionsSnapshot, error) {
	if !c.currencies[symbol] {
		return nil, fmt.Errorf("deribit %s: %w", symbol, ErrEmptyResult)
	}

	url := fmt.Sprintf("%s/public/get_book_summary_by_currency?currency=%s&kind=option", c.baseURL, symbol)
	var resp deribitBookSummary
	if err := c.http.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("deribit book %s: %w", symbol, err)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("deribit book %s: %w", symbol, ErrEmptyResult)
	}

	var putOI, callOI, ivSum float64
	ivCount := 0
	for _, row := range resp.Result {
		switch {
		case strings.HasSuffix(row.InstrumentName, "-P"):
			putOI += row.OpenInterest
		case strings.HasSuffix(row.InstrumentName, "-C"):
			callOI += row.OpenInterest
		}
		if row.MarkIV > 0 {
			ivSum += row.MarkIV
			ivCount++
		}
	}

	putCall := 0.0
	if callOI > 0 {
		putCall = putOI / callOI
	}
	// Mark IV arrives as a percentage; a crude 0..1 rank against 150 vol.
	ivRank := 0.0
	if ivCount > 0 {
		ivRank = ivSum / float64(ivCount) / 150
		if ivRank > 1 {
			ivRank = 1
		}
	}

	return &market.OptionsSnapshot{
		Symbol:       symbol,
		PutCallRatio: putCall,
		TotalOI:      putOI + callOI,
		IVRank:       ivRank,
		FetchedAt:    time.Now().UTC(),
	}, nil
}
