package regime

import (
	"math"
	"testing"

	"crypto-consensus-bot/internal/indicators"
	"crypto-consensus-bot/internal/market"
)

func set(adx, atr float64) indicators.Set {
	return indicators.Set{Available: true, ADX: adx, ATR: atr}
}

func TestClassifyTrending(t *testing.T) {
	got := Classify(set(40, 0.5), 100)
	if got.Type != market.RegimeTrending {
		t.Fatalf("Type = %s, want trending", got.Type)
	}
	if got.Strength != 40.0/50 {
		t.Errorf("Strength = %v, want %v", got.Strength, 40.0/50)
	}
}

func TestClassifyTrendingStrengthCapped(t *testing.T) {
	got := Classify(set(80, 0.5), 100)
	if got.Strength != 1 {
		t.Errorf("Strength = %v, want capped at 1", got.Strength)
	}
}

func TestClassifyTrendingWinsOverVolatile(t *testing.T) {
	// ADX above the trend threshold and ATR at 10% of price: the trend
	// branch is evaluated first and must win.
	got := Classify(set(35, 10), 100)
	if got.Type != market.RegimeTrending {
		t.Errorf("Type = %s, want trending when both thresholds fire", got.Type)
	}
}

func TestClassifyVolatile(t *testing.T) {
	// ADX 20 keeps us out of the trend branch; ATR 6 on a 100 close is 6%.
	got := Classify(set(20, 6), 100)
	if got.Type != market.RegimeVolatile {
		t.Fatalf("Type = %s, want volatile", got.Type)
	}
	if math.Abs(got.Strength-6.0/8) > 1e-9 {
		t.Errorf("Strength = %v, want %v", got.Strength, 6.0/8)
	}
}

func TestClassifyVolatileStrengthCapped(t *testing.T) {
	got := Classify(set(20, 20), 100)
	if got.Strength != 1 {
		t.Errorf("Strength = %v, want capped at 1", got.Strength)
	}
}

func TestClassifyRanging(t *testing.T) {
	got := Classify(set(12, 1), 100)
	if got.Type != market.RegimeRanging {
		t.Fatalf("Type = %s, want ranging", got.Type)
	}
	want := (TrendingADX - 12) / TrendingADX
	if math.Abs(got.Strength-want) > 1e-9 {
		t.Errorf("Strength = %v, want %v", got.Strength, want)
	}
}

func TestClassifyBoundaryValuesAreNotTrending(t *testing.T) {
	// Thresholds are strict: ADX exactly 30 and ATR exactly 4% both fall
	// through to ranging.
	got := Classify(set(TrendingADX, 4), 100)
	if got.Type != market.RegimeRanging {
		t.Errorf("Type = %s at exact thresholds, want ranging", got.Type)
	}
	if got.Strength != 0 {
		t.Errorf("Strength = %v at ADX %v, want 0", got.Strength, TrendingADX)
	}
}

func TestClassifyUnavailableSet(t *testing.T) {
	got := Classify(indicators.Set{}, 100)
	if got.Type != market.RegimeRanging || got.Strength != 0 {
		t.Errorf("got %+v, want ranging with zero strength", got)
	}
}

func TestClassifyZeroClose(t *testing.T) {
	got := Classify(set(40, 1), 0)
	if got.Type != market.RegimeRanging || got.Strength != 0 {
		t.Errorf("got %+v, want ranging fallback on zero close", got)
	}
}
