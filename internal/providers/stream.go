package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crypto-consensus-bot/internal/logging"
)

const (
	markPriceStreamURL = "wss://fstream.binance.com/ws/!markPrice@arr@1s"
	streamReadTimeout  = 90 * time.Second
	reconnectDelay     = 5 * time.Second
)

// PriceFeed keeps a live mark-price table from the Binance futures stream.
// The outcome evaluator prefers it over REST polling; when the feed is
// cold for a symbol the caller falls back to the series chain.
type PriceFeed struct {
	mu      sync.RWMutex
	prices  map[string]float64 // bare symbol -> latest mark price
	updated map[string]time.Time

	logger *logging.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPriceFeed creates a price feed. Call Start to begin streaming.
func NewPriceFeed(logger *logging.Logger) *PriceFeed {
	return &PriceFeed{
		prices:  make(map[string]float64),
		updated: make(map[string]time.Time),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start launches the background stream loop with automatic reconnect.
func (f *PriceFeed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	go f.run(ctx)
}

// Stop shuts the stream down and waits for the loop to exit.
func (f *PriceFeed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	<-f.done
}

// Latest returns the most recent mark price for a symbol and whether the
// reading is fresh enough to use.
func (f *PriceFeed) Latest(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.prices[symbol]
	if !ok {
		return 0, false
	}
	if time.Since(f.updated[symbol]) > 2*time.Minute {
		return 0, false
	}
	return price, true
}

func (f *PriceFeed) run(ctx context.Context) {
	defer close(f.done)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.consume(ctx); err != nil && ctx.Err() == nil {
			f.logger.WithError(err).Warn("mark price stream dropped, reconnecting")
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

type markPriceEvent struct {
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
}

func (f *PriceFeed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, markPriceStreamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the context dies so ReadMessage unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	f.logger.Info("mark price stream connected")

	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var events []markPriceEvent
		if err := json.Unmarshal(payload, &events); err != nil {
			continue // tolerate the occasional non-array frame
		}

		now := time.Now()
		f.mu.Lock()
		for _, ev := range events {
			sym, ok := strings.CutSuffix(ev.Symbol, "USDT")
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(ev.MarkPrice, 64)
			if err != nil || price <= 0 {
				continue
			}
			f.prices[sym] = price
			f.updated[sym] = now
		}
		f.mu.Unlock()
	}
}
