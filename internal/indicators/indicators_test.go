package indicators

import (
	"math"
	"testing"

	"crypto-consensus-bot/internal/market"
)

func candle(o, h, l, c, v float64) market.Candle {
	return market.Candle{Open: o, High: h, Low: l, Close: c, Volume: v}
}

// risingCandles builds a steady uptrend where every close is the high.
func risingCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	for i := range out {
		price += 1
		out[i] = candle(price-1, price, price-1.5, price, 1000)
	}
	return out
}

// flatCandles builds a sideways series with small oscillation.
func flatCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		wobble := float64(i%2)*0.4 - 0.2
		out[i] = candle(100+wobble, 100.5+wobble, 99.5+wobble, 100+wobble, 1000)
	}
	return out
}

func TestComputeUnavailableBelowTwoCandles(t *testing.T) {
	for _, n := range []int{0, 1} {
		set := Compute(risingCandles(n))
		if set.Available {
			t.Errorf("Compute with %d candles: Available = true, want false", n)
		}
		if set.LastClose != 0 || set.RSI != 0 {
			t.Errorf("Compute with %d candles returned non-zero fields: %+v", n, set)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	candles := risingCandles(250)
	first := Compute(candles)
	for i := 0; i < 5; i++ {
		if got := Compute(candles); got != first {
			t.Fatalf("Compute run %d differs:\nfirst: %+v\ngot:   %+v", i, first, got)
		}
	}
}

func TestComputeDegradesOnShortSeries(t *testing.T) {
	// Everything below the canonical lookbacks must degrade to the candles
	// at hand. Two candles is the hard edge: a single delta feeds the
	// Wilder-smoothed indicators.
	for _, n := range []int{2, 3, 5} {
		set := Compute(risingCandles(n))
		if !set.Available {
			t.Fatalf("%d-candle series must be available", n)
		}
		values := map[string]float64{
			"RSI":   set.RSI,
			"EMA20": set.EMA20,
			"SMA20": set.SMA20,
			"ATR":   set.ATR,
			"ADX":   set.ADX,
			"CCI":   set.CCI,
			"VWAP":  set.VWAP,
		}
		for name, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s = %v on a %d-candle series", name, v, n)
			}
		}
	}
}

func TestComputeTwoCandles(t *testing.T) {
	set := Compute(risingCandles(2))
	if set.RSI != 100 {
		t.Errorf("RSI = %v over one rising delta, want 100", set.RSI)
	}
	if set.ATR <= 0 {
		t.Errorf("ATR = %v over one delta, want > 0", set.ATR)
	}
	if got := RSI(risingCandles(2), RSIPeriod); got != 100 {
		t.Errorf("RSI helper = %v on two candles, want 100", got)
	}
	if got := ATR(risingCandles(2), ATRPeriod); got <= 0 {
		t.Errorf("ATR helper = %v on two candles, want > 0", got)
	}
}

func TestRSIBounds(t *testing.T) {
	if got := RSI(risingCandles(50), RSIPeriod); got != 100 {
		t.Errorf("RSI of pure uptrend = %v, want 100", got)
	}

	falling := risingCandles(50)
	for i, j := 0, len(falling)-1; i < j; i, j = i+1, j-1 {
		falling[i], falling[j] = falling[j], falling[i]
	}
	if got := RSI(falling, RSIPeriod); got > 1 {
		t.Errorf("RSI of pure downtrend = %v, want near 0", got)
	}
}

func TestSMAKnownValue(t *testing.T) {
	candles := []market.Candle{
		candle(0, 0, 0, 10, 0),
		candle(0, 0, 0, 20, 0),
		candle(0, 0, 0, 30, 0),
	}
	if got := SMA(candles, 3); got != 20 {
		t.Errorf("SMA = %v, want 20", got)
	}
	// Period longer than the series degrades to the full series.
	if got := SMA(candles, 50); got != 20 {
		t.Errorf("SMA with oversized period = %v, want 20", got)
	}
}

func TestBollingerSymmetry(t *testing.T) {
	b := BollingerBands(flatCandles(40), BollingerPeriod, BollingerStdDev)
	upper := b.Upper - b.Middle
	lower := b.Middle - b.Lower
	if math.Abs(upper-lower) > 1e-9 {
		t.Errorf("bands asymmetric: upper span %v, lower span %v", upper, lower)
	}
	if b.Upper < b.Middle || b.Lower > b.Middle {
		t.Errorf("band ordering broken: %+v", b)
	}
}

func TestATRPositive(t *testing.T) {
	if got := ATR(risingCandles(50), ATRPeriod); got <= 0 {
		t.Errorf("ATR = %v, want > 0 for a moving series", got)
	}
}

func TestADXTrendVersusChop(t *testing.T) {
	trendADX, plusDI, minusDI := ADX(risingCandles(100), ADXPeriod)
	chopADX, _, _ := ADX(flatCandles(100), ADXPeriod)

	if trendADX <= chopADX {
		t.Errorf("ADX trend=%v chop=%v, trend must read higher", trendADX, chopADX)
	}
	if plusDI <= minusDI {
		t.Errorf("+DI=%v -DI=%v in an uptrend, +DI must dominate", plusDI, minusDI)
	}
}

func TestStochasticAtRangeTop(t *testing.T) {
	s := ComputeStochastic(risingCandles(30), StochasticK, StochasticD)
	if s.K < 90 {
		t.Errorf("%%K = %v at the top of the range, want >= 90", s.K)
	}
	if s.D < 0 || s.D > 100 {
		t.Errorf("%%D = %v outside [0,100]", s.D)
	}
}

func TestWilliamsRBounds(t *testing.T) {
	got := WilliamsR(risingCandles(30), WilliamsPeriod)
	if got < -100 || got > 0 {
		t.Errorf("Williams %%R = %v outside [-100,0]", got)
	}
	// Closing at the high of the range reads near 0.
	if got < -10 {
		t.Errorf("Williams %%R = %v at range top, want near 0", got)
	}
}

func TestOBVAccumulatesWithTrend(t *testing.T) {
	candles := risingCandles(10)
	want := 0.0
	for i := 1; i < len(candles); i++ {
		want += candles[i].Volume
	}
	if got := OBV(candles); got != want {
		t.Errorf("OBV = %v, want %v for monotone rises", got, want)
	}
}

func TestVWAPWeighting(t *testing.T) {
	candles := []market.Candle{
		candle(10, 10, 10, 10, 100),
		candle(20, 20, 20, 20, 300),
	}
	// Typical prices are 10 and 20 with weights 100 and 300.
	want := (10.0*100 + 20.0*300) / 400
	if got := VWAP(candles); math.Abs(got-want) > 1e-9 {
		t.Errorf("VWAP = %v, want %v", got, want)
	}
}

func TestMACDHistogramConsistency(t *testing.T) {
	m := ComputeMACD(risingCandles(100), MACDFast, MACDSlow, MACDSignal)
	if math.Abs(m.Histogram-(m.Line-m.Signal)) > 1e-9 {
		t.Errorf("histogram %v != line %v - signal %v", m.Histogram, m.Line, m.Signal)
	}
	if m.Line <= 0 {
		t.Errorf("MACD line = %v in a steady uptrend, want > 0", m.Line)
	}
}

func TestATRPercent(t *testing.T) {
	s := Set{ATR: 2, LastClose: 100}
	if got := s.ATRPercent(); got != 2 {
		t.Errorf("ATRPercent = %v, want 2", got)
	}
	if got := (Set{}).ATRPercent(); got != 0 {
		t.Errorf("ATRPercent on empty set = %v, want 0", got)
	}
}
