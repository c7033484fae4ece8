package generators

import (
	"crypto-consensus-bot/internal/market"
)

// volatilityGenerators trade expansion and contraction of the range.
func volatilityGenerators() []Generator {
	return []Generator{
		{
			Name:       "bollinger-squeeze-break",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				bb := ind.Bollinger
				if !ind.Available || bb.Middle == 0 {
					return nil
				}
				width := (bb.Upper - bb.Lower) / bb.Middle * 100
				if width > 4 {
					return nil // band not squeezed
				}
				if ind.LastClose > bb.Upper {
					return longSignal(in, 0.7, 6)
				}
				if ind.LastClose < bb.Lower {
					return shortSignal(in, 0.7, 6)
				}
				return nil
			},
		},
		{
			Name:       "atr-expansion",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 2 {
					return nil
				}
				atrPct := ind.ATRPercent()
				if atrPct < 3 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				if last.Close > last.Open {
					return longSignal(in, 0.6+min(atrPct/40, 0.15), 3)
				}
				return shortSignal(in, 0.6+min(atrPct/40, 0.15), 3)
			},
		},
		{
			Name:       "volume-spike-break",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.AvgVolume20 == 0 || len(in.Series.Candles) == 0 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				if last.Volume < ind.AvgVolume20*2.5 {
					return nil
				}
				body := last.Close - last.Open
				span := last.High - last.Low
				if span == 0 {
					return nil
				}
				// Only act on conviction candles, not wicks.
				if body/span > 0.6 {
					return longSignal(in, 0.72, 5)
				}
				if body/span < -0.6 {
					return shortSignal(in, 0.72, 5)
				}
				return nil
			},
		},
		{
			Name:       "wide-range-followthrough",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.ATR == 0 || len(in.Series.Candles) == 0 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				if last.High-last.Low < ind.ATR*2 {
					return nil
				}
				if last.Close > last.Open {
					return longSignal(in, 0.64, 4)
				}
				return shortSignal(in, 0.64, 4)
			},
		},
		{
			Name:       "gap-and-go",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 2 {
					return nil
				}
				c := in.Series.Candles
				prev, last := c[len(c)-2], c[len(c)-1]
				if prev.Close == 0 {
					return nil
				}
				gap := (last.Open - prev.Close) / prev.Close * 100
				if gap > 1.5 && last.Close > last.Open {
					return longSignal(in, 0.66, 5)
				}
				if gap < -1.5 && last.Close < last.Open {
					return shortSignal(in, 0.66, 5)
				}
				return nil
			},
		},
		{
			Name:       "keltner-style-break",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.ATR == 0 {
					return nil
				}
				upper := ind.EMA20 + ind.ATR*2
				lower := ind.EMA20 - ind.ATR*2
				if ind.LastClose > upper {
					return longSignal(in, 0.67, 5)
				}
				if ind.LastClose < lower {
					return shortSignal(in, 0.67, 5)
				}
				return nil
			},
		},
		{
			Name:       "low-vol-drift",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.ATRPercent() > 1.5 {
					return nil
				}
				// Quiet tape drifts with the slow trend.
				if ind.LastClose > ind.SMA50 {
					return longSignal(in, 0.6, 2)
				}
				if ind.LastClose < ind.SMA50 {
					return shortSignal(in, 0.6, 2)
				}
				return nil
			},
		},
		{
			Name:       "consecutive-expansion",
			Philosophy: PhilosophyVolatility,
			Eval: func(in Input) *market.BotSignal {
				if !in.Indicators.Available || len(in.Series.Candles) < 4 {
					return nil
				}
				c := in.Series.Candles
				n := len(c)
				r := func(k market.Candle) float64 { return k.High - k.Low }
				if r(c[n-1]) > r(c[n-2]) && r(c[n-2]) > r(c[n-3]) {
					if c[n-1].Close > c[n-1].Open {
						return longSignal(in, 0.62, 3)
					}
					return shortSignal(in, 0.62, 3)
				}
				return nil
			},
		},
	}
}
