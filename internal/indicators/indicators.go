// Package indicators computes technical indicators from OHLCV series.
// Every function here is a pure function of the candle slice: no I/O, no
// clock reads, no randomness. Repeated calls over the same series must
// produce identical values.
package indicators

import (
	"math"

	"crypto-consensus-bot/internal/market"
)

// Canonical lookback windows.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	ATRPeriod       = 14
	ADXPeriod       = 14
	StochasticK     = 14
	StochasticD     = 3
	CCIPeriod       = 20
	WilliamsPeriod  = 14
	IchimokuTenkan  = 9
	IchimokuKijun   = 26
	IchimokuSenkouB = 52
	SARAccelStep    = 0.02
	SARAccelMax     = 0.2
)

// MACD holds the MACD line, its signal line, and the histogram.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger holds the three Bollinger band levels.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Stochastic holds the %K and %D oscillator values.
type Stochastic struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// Ichimoku holds the Ichimoku cloud lines for the latest candle.
type Ichimoku struct {
	Tenkan  float64 `json:"tenkan"`
	Kijun   float64 `json:"kijun"`
	SenkouA float64 `json:"senkou_a"`
	SenkouB float64 `json:"senkou_b"`
}

// Set is the full indicator snapshot derived from one series. Available is
// false when the series has fewer than two candles, in which case every
// numeric field is zero and must not be interpreted.
type Set struct {
	Available bool `json:"available"`

	LastClose float64 `json:"last_close"`

	RSI          float64    `json:"rsi"`
	MACD         MACD       `json:"macd"`
	EMA20        float64    `json:"ema_20"`
	EMA50        float64    `json:"ema_50"`
	EMA200       float64    `json:"ema_200"`
	SMA20        float64    `json:"sma_20"`
	SMA50        float64    `json:"sma_50"`
	Bollinger    Bollinger  `json:"bollinger"`
	ATR          float64    `json:"atr"`
	ADX          float64    `json:"adx"`
	PlusDI       float64    `json:"plus_di"`
	MinusDI      float64    `json:"minus_di"`
	Stochastic   Stochastic `json:"stochastic"`
	CCI          float64    `json:"cci"`
	WilliamsR    float64    `json:"williams_r"`
	VWAP         float64    `json:"vwap"`
	OBV          float64    `json:"obv"`
	Ichimoku     Ichimoku   `json:"ichimoku"`
	ParabolicSAR float64    `json:"parabolic_sar"`

	AvgVolume20 float64 `json:"avg_volume_20"`
}

// ATRPercent returns ATR as a percentage of the last close.
func (s Set) ATRPercent() float64 {
	if s.LastClose == 0 {
		return 0
	}
	return s.ATR / s.LastClose * 100
}

// Compute derives the full indicator set from a candle series. Series
// shorter than an indicator's canonical lookback degrade to using all
// available candles; fewer than two candles yields an unavailable set.
func Compute(candles []market.Candle) Set {
	if len(candles) < 2 {
		return Set{}
	}

	s := Set{
		Available: true,
		LastClose: candles[len(candles)-1].Close,
	}

	s.RSI = RSI(candles, RSIPeriod)
	s.MACD = ComputeMACD(candles, MACDFast, MACDSlow, MACDSignal)
	s.EMA20 = EMA(candles, 20)
	s.EMA50 = EMA(candles, 50)
	s.EMA200 = EMA(candles, 200)
	s.SMA20 = SMA(candles, 20)
	s.SMA50 = SMA(candles, 50)
	s.Bollinger = BollingerBands(candles, BollingerPeriod, BollingerStdDev)
	s.ATR = ATR(candles, ATRPeriod)
	s.ADX, s.PlusDI, s.MinusDI = ADX(candles, ADXPeriod)
	s.Stochastic = ComputeStochastic(candles, StochasticK, StochasticD)
	s.CCI = CCI(candles, CCIPeriod)
	s.WilliamsR = WilliamsR(candles, WilliamsPeriod)
	s.VWAP = VWAP(candles)
	s.OBV = OBV(candles)
	s.Ichimoku = ComputeIchimoku(candles)
	s.ParabolicSAR = ParabolicSAR(candles, SARAccelStep, SARAccelMax)
	s.AvgVolume20 = AvgVolume(candles, 20)

	return s
}

// effective clamps a lookback period to the series length, keeping at
// least 2 so ratios stay meaningful.
func effective(n, period int) int {
	if period > n {
		period = n
	}
	if period < 2 {
		period = 2
	}
	return period
}

// effectiveDeltas clamps a lookback measured in candle-to-candle deltas.
// A two-candle series has exactly one delta, so the minimum is 1, not 2;
// pushing it back up to 2 would index past the series.
func effectiveDeltas(n, period int) int {
	if period > n {
		period = n
	}
	if period < 1 {
		period = 1
	}
	return period
}

// SMA calculates the Simple Moving Average of closes
func SMA(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closes, seeded with the
// SMA over the first period
func EMA(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += candles[i].Close
	}
	ema := seed / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		ema = candles[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// emaSeries returns the running EMA over an arbitrary float series.
func emaSeries(values []float64, period int) []float64 {
	period = effective(len(values), period)

	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
		out = append(out, ema)
	}
	return out
}

// RSI calculates the Relative Strength Index with Wilder smoothing
func RSI(candles []market.Candle, period int) float64 {
	period = effectiveDeltas(len(candles)-1, period)

	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ComputeMACD calculates the MACD line, the signal line as an EMA of the
// MACD series, and the histogram
func ComputeMACD(candles []market.Candle, fast, slow, signal int) MACD {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	// Align the two series on their tails; the slow EMA starts later.
	n := len(slowSeries)
	if len(fastSeries) < n {
		n = len(fastSeries)
	}
	macdSeries := make([]float64, n)
	for i := 0; i < n; i++ {
		macdSeries[i] = fastSeries[len(fastSeries)-n+i] - slowSeries[len(slowSeries)-n+i]
	}

	signalSeries := emaSeries(macdSeries, signal)

	line := macdSeries[len(macdSeries)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACD{Line: line, Signal: sig, Histogram: line - sig}
}

// BollingerBands calculates the Bollinger Bands over closes
func BollingerBands(candles []market.Candle, period int, mult float64) Bollinger {
	period = effective(len(candles), period)

	middle := SMA(candles, period)
	variance := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return Bollinger{
		Upper:  middle + stdDev*mult,
		Middle: middle,
		Lower:  middle - stdDev*mult,
	}
}

func trueRange(candle, prev market.Candle) float64 {
	return math.Max(candle.High-candle.Low,
		math.Max(math.Abs(candle.High-prev.Close), math.Abs(candle.Low-prev.Close)))
}

// ATR calculates the Average True Range with Wilder smoothing
func ATR(candles []market.Candle, period int) float64 {
	period = effectiveDeltas(len(candles)-1, period)

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	atr := sum / float64(period)

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trueRange(candles[i], candles[i-1])) / float64(period)
	}
	return atr
}

// ADX calculates the Average Directional Index with full +DI/-DI Wilder
// smoothing, returning (ADX, +DI, -DI)
func ADX(candles []market.Candle, period int) (adx, plusDI, minusDI float64) {
	if len(candles) < 3 {
		return 0, 0, 0
	}
	period = effectiveDeltas(len(candles)-1, period)

	var smTR, smPlusDM, smMinusDM float64
	dxValues := make([]float64, 0, len(candles))

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(candles[i], candles[i-1])

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		plusDI = smPlusDM / smTR * 100
		minusDI = smMinusDM / smTR * 100

		diSum := plusDI + minusDI
		if diSum == 0 {
			dxValues = append(dxValues, 0)
			continue
		}
		dx := math.Abs(plusDI-minusDI) / diSum * 100
		dxValues = append(dxValues, dx)
	}

	if len(dxValues) == 0 {
		return 0, plusDI, minusDI
	}

	// ADX is the Wilder average of DX over the period.
	n := period
	if n > len(dxValues) {
		n = len(dxValues)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += dxValues[i]
	}
	adx = sum / float64(n)
	for i := n; i < len(dxValues); i++ {
		adx = (adx*float64(period-1) + dxValues[i]) / float64(period)
	}
	return adx, plusDI, minusDI
}

// ComputeStochastic calculates the Stochastic Oscillator; %D is the SMA of
// the last dPeriod %K values
func ComputeStochastic(candles []market.Candle, kPeriod, dPeriod int) Stochastic {
	kPeriod = effective(len(candles), kPeriod)

	kAt := func(end int) float64 {
		start := end - kPeriod + 1
		if start < 0 {
			start = 0
		}
		hi, lo := candles[start].High, candles[start].Low
		for i := start; i <= end; i++ {
			if candles[i].High > hi {
				hi = candles[i].High
			}
			if candles[i].Low < lo {
				lo = candles[i].Low
			}
		}
		if hi == lo {
			return 50
		}
		return (candles[end].Close - lo) / (hi - lo) * 100
	}

	k := kAt(len(candles) - 1)

	n := dPeriod
	if n > len(candles) {
		n = len(candles)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += kAt(len(candles) - 1 - i)
	}
	return Stochastic{K: k, D: sum / float64(n)}
}

// CCI calculates the Commodity Channel Index over typical prices
func CCI(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)

	tp := make([]float64, period)
	sum := 0.0
	for i := 0; i < period; i++ {
		c := candles[len(candles)-period+i]
		tp[i] = (c.High + c.Low + c.Close) / 3
		sum += tp[i]
	}
	mean := sum / float64(period)

	meanDev := 0.0
	for _, v := range tp {
		meanDev += math.Abs(v - mean)
	}
	meanDev /= float64(period)
	if meanDev == 0 {
		return 0
	}
	return (tp[period-1] - mean) / (0.015 * meanDev)
}

// WilliamsR calculates Williams %R
func WilliamsR(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)

	start := len(candles) - period
	hi, lo := candles[start].High, candles[start].Low
	for i := start; i < len(candles); i++ {
		if candles[i].High > hi {
			hi = candles[i].High
		}
		if candles[i].Low < lo {
			lo = candles[i].Low
		}
	}
	if hi == lo {
		return -50
	}
	return (hi - candles[len(candles)-1].Close) / (hi - lo) * -100
}

// VWAP calculates the Volume Weighted Average Price over the whole series
func VWAP(candles []market.Candle) float64 {
	var pv, vol float64
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return candles[len(candles)-1].Close
	}
	return pv / vol
}

// OBV calculates On-Balance Volume over the whole series
func OBV(candles []market.Candle) float64 {
	obv := 0.0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv
}

func midpoint(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)
	start := len(candles) - period
	hi, lo := candles[start].High, candles[start].Low
	for i := start; i < len(candles); i++ {
		if candles[i].High > hi {
			hi = candles[i].High
		}
		if candles[i].Low < lo {
			lo = candles[i].Low
		}
	}
	return (hi + lo) / 2
}

// ComputeIchimoku calculates the Ichimoku cloud lines for the latest candle
func ComputeIchimoku(candles []market.Candle) Ichimoku {
	tenkan := midpoint(candles, IchimokuTenkan)
	kijun := midpoint(candles, IchimokuKijun)
	return Ichimoku{
		Tenkan:  tenkan,
		Kijun:   kijun,
		SenkouA: (tenkan + kijun) / 2,
		SenkouB: midpoint(candles, IchimokuSenkouB),
	}
}

// ParabolicSAR calculates the parabolic stop-and-reverse value for the
// latest candle using the standard acceleration schedule
func ParabolicSAR(candles []market.Candle, step, maxAccel float64) float64 {
	if len(candles) < 2 {
		return 0
	}

	uptrend := candles[1].Close >= candles[0].Close
	af := step
	var sar, ep float64
	if uptrend {
		sar = candles[0].Low
		ep = candles[1].High
	} else {
		sar = candles[0].High
		ep = candles[1].Low
	}

	for i := 2; i < len(candles); i++ {
		sar = sar + af*(ep-sar)

		if uptrend {
			// SAR cannot sit above the prior two lows.
			if sar > candles[i-1].Low {
				sar = candles[i-1].Low
			}
			if sar > candles[i-2].Low {
				sar = candles[i-2].Low
			}
			if candles[i].Low < sar {
				uptrend = false
				sar = ep
				ep = candles[i].Low
				af = step
				continue
			}
			if candles[i].High > ep {
				ep = candles[i].High
				af = math.Min(af+step, maxAccel)
			}
		} else {
			if sar < candles[i-1].High {
				sar = candles[i-1].High
			}
			if sar < candles[i-2].High {
				sar = candles[i-2].High
			}
			if candles[i].High > sar {
				uptrend = true
				sar = ep
				ep = candles[i].High
				af = step
				continue
			}
			if candles[i].Low < ep {
				ep = candles[i].Low
				af = math.Min(af+step, maxAccel)
			}
		}
	}
	return sar
}

// AvgVolume calculates average volume over a period
func AvgVolume(candles []market.Candle, period int) float64 {
	period = effective(len(candles), period)
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}
