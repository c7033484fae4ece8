package generators

import (
	"math"
	"reflect"
	"testing"

	"crypto-consensus-bot/internal/indicators"
	"crypto-consensus-bot/internal/market"
)

func testInput() Input {
	candles := make([]market.Candle, 250)
	price := 100.0
	for i := range candles {
		price *= 1.004
		candles[i] = market.Candle{
			OpenTime: 1700000000000 + int64(i)*3600000,
			Open:     price / 1.004,
			High:     price * 1.001,
			Low:      price * 0.995,
			Close:    price,
			Volume:   1000,
		}
	}
	series := market.Series{Symbol: "BTC", Timeframe: "1h", Candles: candles}
	return Input{
		Asset:      market.Asset{Symbol: "BTC", Price: series.LastClose()},
		Series:     series,
		Indicators: indicators.Compute(candles),
	}
}

func TestDefaultRegistryPool(t *testing.T) {
	r := DefaultRegistry(nil, nil)
	if r.Len() != 58 {
		t.Errorf("pool size = %d, want 58", r.Len())
	}

	seen := map[string]bool{}
	philosophies := map[Philosophy]int{}
	for _, g := range r.Generators() {
		if g.Name == "" {
			t.Error("generator with empty name")
		}
		if seen[g.Name] {
			t.Errorf("duplicate generator name %q", g.Name)
		}
		seen[g.Name] = true
		if g.Eval == nil {
			t.Errorf("generator %q has nil Eval", g.Name)
		}
		philosophies[g.Philosophy]++
	}

	for _, p := range []Philosophy{
		PhilosophyTrend, PhilosophyMeanReversion, PhilosophyVolatility,
		PhilosophyDerivatives, PhilosophyContrarian, PhilosophyNoise,
	} {
		if philosophies[p] == 0 {
			t.Errorf("no generators tagged %s", p)
		}
	}
}

func TestPhilosophiesMatchesPool(t *testing.T) {
	r := DefaultRegistry(nil, nil)
	phil := r.Philosophies()
	if len(phil) != r.Len() {
		t.Fatalf("Philosophies() has %d entries, pool has %d", len(phil), r.Len())
	}
	for _, g := range r.Generators() {
		if phil[g.Name] != g.Philosophy {
			t.Errorf("%s: philosophy %s, declared %s", g.Name, phil[g.Name], g.Philosophy)
		}
	}
}

type faultCounter struct {
	faults []string
}

func (f *faultCounter) GeneratorFault(generator string) {
	f.faults = append(f.faults, generator)
}

func TestEvaluateAllPanicIsolation(t *testing.T) {
	sink := &faultCounter{}
	r := NewRegistry([]Generator{
		{
			Name:       "panics",
			Philosophy: PhilosophyTrend,
			Eval:       func(Input) *market.BotSignal { panic("boom") },
		},
		{
			Name:       "works",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				return longSignal(in, 0.8, 3)
			},
		},
	}, nil, sink)

	got := r.EvaluateAll(testInput())
	if len(got) != 1 {
		t.Fatalf("got %d signals, want 1 surviving the panic", len(got))
	}
	if got[0].GeneratorName != "works" {
		t.Errorf("survivor = %q, want works", got[0].GeneratorName)
	}
	if len(sink.faults) != 1 || sink.faults[0] != "panics" {
		t.Errorf("fault events = %v, want one for the panicking generator", sink.faults)
	}
}

func TestEvaluateAllRejectsInvalidConfidence(t *testing.T) {
	mk := func(name string, confidence float64) Generator {
		return Generator{
			Name:       name,
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				return &market.BotSignal{
					Direction:  market.DirectionLong,
					Confidence: confidence,
					Entry:      in.Indicators.LastClose,
				}
			},
		}
	}
	r := NewRegistry([]Generator{
		mk("too-high", 1.5),
		mk("negative", -0.1),
		mk("not-a-number", math.NaN()),
		mk("valid", 0.7),
	}, nil, nil)

	got := r.EvaluateAll(testInput())
	if len(got) != 1 || got[0].GeneratorName != "valid" {
		t.Errorf("got %d signals %v, want only the valid one", len(got), got)
	}
}

func TestEvaluateAllStampsIdentity(t *testing.T) {
	r := NewRegistry([]Generator{{
		Name:       "stamped",
		Philosophy: PhilosophyVolatility,
		Eval: func(in Input) *market.BotSignal {
			// Deliberately left blank by the heuristic; the registry owns it.
			return shortSignal(in, 0.7, 2)
		},
	}}, nil, nil)

	got := r.EvaluateAll(testInput())
	if len(got) != 1 {
		t.Fatal("expected one signal")
	}
	if got[0].GeneratorName != "stamped" || got[0].Symbol != "BTC" {
		t.Errorf("identity = %q/%q, want stamped/BTC", got[0].GeneratorName, got[0].Symbol)
	}
}

func TestEvaluateAllAbstainsWithoutIndicators(t *testing.T) {
	in := testInput()
	in.Indicators = indicators.Set{}
	got := DefaultRegistry(nil, nil).EvaluateAll(in)
	if len(got) != 0 {
		t.Errorf("got %d signals on an unavailable indicator set, want 0", len(got))
	}
}

func TestEvaluateAllIsDeterministic(t *testing.T) {
	r := DefaultRegistry(nil, nil)
	in := testInput()
	first := r.EvaluateAll(in)
	for i := 0; i < 3; i++ {
		if got := r.EvaluateAll(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced different signals", i)
		}
	}
	if len(first) == 0 {
		t.Error("steady uptrend produced no signals at all")
	}
}

func TestSignalHelpersDeriveExitsFromATR(t *testing.T) {
	in := testInput()
	entry := in.Indicators.LastClose
	atr := in.Indicators.ATR

	long := longSignal(in, 0.7, 3)
	if long.TakeProfit != entry+atr*3 || long.StopLoss != entry-atr*1.5 {
		t.Errorf("long exits = %v/%v, want ATR-derived", long.TakeProfit, long.StopLoss)
	}

	short := shortSignal(in, 0.7, 3)
	if short.TakeProfit != entry-atr*3 || short.StopLoss != entry+atr*1.5 {
		t.Errorf("short exits = %v/%v, want ATR-derived", short.TakeProfit, short.StopLoss)
	}

	// Confidence is clamped into range, never rejected, when built through
	// the helpers.
	if got := longSignal(in, 1.7, 3); got.Confidence != 1 {
		t.Errorf("helper confidence = %v, want clamped to 1", got.Confidence)
	}
}

func TestLongSignalNilOnZeroEntry(t *testing.T) {
	in := testInput()
	in.Indicators.LastClose = 0
	if got := longSignal(in, 0.7, 3); got != nil {
		t.Errorf("longSignal with zero entry = %+v, want nil", got)
	}
}
