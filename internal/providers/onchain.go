package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-consensus-bot/internal/market"
)

// CryptoQuant serves exchange-flow estimates. It requires an API key; an
// unconfigured client reports ErrNotConfigured and the chain advances to
// the keyless Blockchair fallback.
type CryptoQuant struct {
	http    *httpClient
	baseURL string
	apiKey  string
}

// NewCryptoQuant creates a CryptoQuant client. An empty key is allowed;
// the client then always advances the chain.
func NewCryptoQuant(apiKey string) *CryptoQuant {
	return &CryptoQuant{
		http:    newHTTPClient(map[string]string{"Authorization": "Bearer " + apiKey}),
		baseURL: "https://api.cryptoquant.com/v1",
		apiKey:  apiKey,
	}
}

// Name returns the provider identifier.
func (c *CryptoQuant) Name() string { return "cryptoquant" }

type cryptoQuantFlow struct {
	Result struct {
		Data []struct {
			NetFlow float64 `json:"netflow_total"`
		} `json:"data"`
	} `json:"result"`
}

// OnChain fetches the exchange netflow estimate for one asset.
func (c *CryptoQuant) OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("cryptoquant: %w", ErrNotConfigured)
	}

	url := fmt.Sprintf("%s/%s/exchange-flows/netflow?exchange=all_exchange&window=day&limit=1", c.baseURL, strings.ToLower(symbol))
	var resp cryptoQuantFlow
	if err := c.http.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("cryptoquant netflow %s: %w", symbol, err)
	}
	if len(resp.Result.Data) == 0 {
		return nil, fmt.Errorf("cryptoquant netflow %s: %w", symbol, ErrEmptyResult)
	}

	return &market.OnChainSnapshot{
		Symbol:          symbol,
		NetExchangeFlow: resp.Result.Data[0].NetFlow,
		FetchedAt:       time.Now().UTC(),
	}, nil
}

// Blockchair serves keyless on-chain activity stats for the major chains.
// It has no exchange-flow series, so the netflow estimate stays zero and
// flow-sensitive generators abstain.
type Blockchair struct {
	http    *httpClient
	baseURL string
	chains  map[string]string
}

// NewBlockchair creates a Blockchair stats client.
func NewBlockchair() *Blockchair {
	return &Blockchair{
		http:    newHTTPClient(nil),
		baseURL: "https://api.blockchair.com",
		chains: map[string]string{
			"BTC":  "bitcoin",
			"ETH":  "ethereum",
			"LTC":  "litecoin",
			"DOGE": "dogecoin",
			"BCH":  "bitcoin-cash",
			"XRP":  "ripple",
		},
	}
}

// Name returns the provider identifier.
func (c *Blockchair) Name() string { return "blockchair" }

type blockchairStats struct {
	Data struct {
		Transactions24h   int64   `json:"transactions_24h"`
		Volume24h         float64 `json:"volume_24h"`
		HodlingAddresses  int64   `json:"hodling_addresses"`
	} `json:"data"`
}

// OnChain fetches chain activity stats for one asset.
func (c *Blockchair) OnChain(ctx context.Context, symbol string) (*market.OnChainSnapshot, error) {
	chain, ok := c.chains[symbol]
	if !ok {
		return nil, fmt.Errorf("blockchair %s: %w", symbol, ErrEmptyResult)
	}

	var resp blockchairStats
	if err := c.http.getJSON(ctx, fmt.Sprintf("%s/%s/stats", c.baseURL, chain), &resp); err != nil {
		return nil, fmt.Errorf("blockchair stats %s: %w", symbol, err)
	}
	if resp.Data.Transactions24h == 0 {
		return nil, fmt.Errorf("blockchair stats %s: %w", symbol, ErrEmptyResult)
	}

	return &market.OnChainSnapshot{
		Symbol:          symbol,
		ActiveAddresses: resp.Data.HodlingAddresses,
		TxVolume:        resp.Data.Volume24h,
		FetchedAt:       time.Now().UTC(),
	}, nil
}
