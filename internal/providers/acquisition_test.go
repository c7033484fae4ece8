package providers

import (
	"context"
	"errors"
	"testing"

	"crypto-consensus-bot/internal/market"
)

var errUpstream = errors.New("upstream unavailable")

type stubUniverse struct {
	name   string
	assets []market.Asset
	err    error
	calls  int
}

func (s *stubUniverse) Name() string { return s.name }
func (s *stubUniverse) TopAssets(ctx context.Context, limit int) ([]market.Asset, error) {
	s.calls++
	return s.assets, s.err
}

type stubSeries struct {
	name   string
	series market.Series
	err    error
}

func (s *stubSeries) Name() string { return s.name }
func (s *stubSeries) Series(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	return s.series, s.err
}

type stubSentiment struct {
	name string
	snap *market.SentimentSnapshot
	err  error
}

func (s *stubSentiment) Name() string { return s.name }
func (s *stubSentiment) Sentiment(ctx context.Context) (*market.SentimentSnapshot, error) {
	return s.snap, s.err
}

type recordingSink struct {
	fallbacks []string
	exhausted []string
}

func (r *recordingSink) ProviderFallback(kind, provider string) {
	r.fallbacks = append(r.fallbacks, kind+"/"+provider)
}
func (r *recordingSink) ChainExhausted(kind string) {
	r.exhausted = append(r.exhausted, kind)
}

func TestUniverseFallsBackToSecondProvider(t *testing.T) {
	sink := &recordingSink{}
	l := NewLayer(nil, sink)
	broken := &stubUniverse{name: "primary", err: errUpstream}
	working := &stubUniverse{name: "secondary", assets: []market.Asset{{Symbol: "BTC", Price: 50000}}}
	l.AddUniverse(broken)
	l.AddUniverse(working)

	assets, err := l.Universe(context.Background(), 10)
	if err != nil {
		t.Fatalf("Universe: %v", err)
	}
	if len(assets) != 1 || assets[0].Symbol != "BTC" {
		t.Errorf("assets = %v, want the secondary provider's result", assets)
	}
	if broken.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", broken.calls, working.calls)
	}
	if got := l.LastSource(KindUniverse); got != "secondary" {
		t.Errorf("LastSource = %q, want secondary", got)
	}
	if len(sink.fallbacks) != 1 || sink.fallbacks[0] != "universe/primary" {
		t.Errorf("fallback events = %v, want [universe/primary]", sink.fallbacks)
	}
}

func TestUniversePrimarySuccessSkipsChain(t *testing.T) {
	l := NewLayer(nil, nil)
	primary := &stubUniverse{name: "primary", assets: []market.Asset{{Symbol: "ETH"}}}
	fallback := &stubUniverse{name: "fallback"}
	l.AddUniverse(primary)
	l.AddUniverse(fallback)

	if _, err := l.Universe(context.Background(), 10); err != nil {
		t.Fatalf("Universe: %v", err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on primary success", fallback.calls)
	}
	if got := l.LastSource(KindUniverse); got != "primary" {
		t.Errorf("LastSource = %q, want primary", got)
	}
}

func TestSeriesChainExhausted(t *testing.T) {
	sink := &recordingSink{}
	l := NewLayer(nil, sink)
	l.AddSeries(&stubSeries{name: "a", err: errUpstream})
	l.AddSeries(&stubSeries{name: "b", err: errUpstream})

	_, err := l.Series(context.Background(), "BTC", "1h", 250)
	if !errors.Is(err, ErrDataKindUnavailable) {
		t.Fatalf("err = %v, want ErrDataKindUnavailable", err)
	}
	if len(sink.fallbacks) != 2 {
		t.Errorf("fallback events = %v, want one per failed provider", sink.fallbacks)
	}
	if len(sink.exhausted) != 1 || sink.exhausted[0] != KindSeries {
		t.Errorf("exhausted events = %v, want [series]", sink.exhausted)
	}
}

func TestEmptyChainIsExhausted(t *testing.T) {
	l := NewLayer(nil, nil)
	if _, err := l.Derivatives(context.Background(), "BTC"); !errors.Is(err, ErrDataKindUnavailable) {
		t.Errorf("err = %v, want ErrDataKindUnavailable on an empty chain", err)
	}
}

func TestSentimentFallback(t *testing.T) {
	l := NewLayer(nil, nil)
	l.AddSentiment(&stubSentiment{name: "down", err: errUpstream})
	l.AddSentiment(&stubSentiment{name: "up", snap: &market.SentimentSnapshot{FearGreedIndex: 61}})

	snap, err := l.Sentiment(context.Background())
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if snap == nil || snap.FearGreedIndex != 61 {
		t.Errorf("snap = %+v, want the fallback's value", snap)
	}
	if got := l.LastSource(KindSentiment); got != "up" {
		t.Errorf("LastSource = %q, want up", got)
	}
}

func TestValidateRequiresCoreChains(t *testing.T) {
	l := NewLayer(nil, nil)
	if err := l.Validate(); err == nil {
		t.Error("Validate passed with no providers at all")
	}

	l.AddUniverse(&stubUniverse{name: "u"})
	if err := l.Validate(); err == nil {
		t.Error("Validate passed without a series chain")
	}

	l.AddSeries(&stubSeries{name: "s"})
	if err := l.Validate(); err != nil {
		t.Errorf("Validate with both core chains: %v", err)
	}
}
