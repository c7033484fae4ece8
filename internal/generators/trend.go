package generators

import (
	"crypto-consensus-bot/internal/market"
)

// trendGenerators are the trend-following heuristics. They do best in
// trending regimes and get boosted there by the aggregation engine.
func trendGenerators() []Generator {
	return []Generator{
		{
			Name:       "ema-golden-cross",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.EMA20 > ind.EMA50 && ind.EMA50 > ind.EMA200 {
					return longSignal(in, 0.75, 5)
				}
				if ind.EMA20 < ind.EMA50 && ind.EMA50 < ind.EMA200 {
					return shortSignal(in, 0.75, 5)
				}
				return nil
			},
		},
		{
			Name:       "ema-fast-cross",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				spread := (ind.EMA20 - ind.EMA50) / ind.LastClose * 100
				if spread > 0.5 {
					return longSignal(in, 0.6+min(spread/10, 0.2), 5)
				}
				if spread < -0.5 {
					return shortSignal(in, 0.6+min(-spread/10, 0.2), 5)
				}
				return nil
			},
		},
		{
			Name:       "macd-momentum",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.MACD.Line > ind.MACD.Signal && ind.MACD.Histogram > 0 {
					return longSignal(in, 0.68, 5)
				}
				if ind.MACD.Line < ind.MACD.Signal && ind.MACD.Histogram < 0 {
					return shortSignal(in, 0.68, 5)
				}
				return nil
			},
		},
		{
			Name:       "macd-zero-line",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.MACD.Line > 0 && ind.MACD.Signal > 0 {
					return longSignal(in, 0.62, 4)
				}
				if ind.MACD.Line < 0 && ind.MACD.Signal < 0 {
					return shortSignal(in, 0.62, 4)
				}
				return nil
			},
		},
		{
			Name:       "adx-directional",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.ADX < 25 {
					return nil
				}
				conf := 0.6 + min(ind.ADX/100, 0.25)
				if ind.PlusDI > ind.MinusDI {
					return longSignal(in, conf, 6)
				}
				if ind.MinusDI > ind.PlusDI {
					return shortSignal(in, conf, 6)
				}
				return nil
			},
		},
		{
			Name:       "price-above-vwap",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.VWAP == 0 {
					return nil
				}
				dev := (ind.LastClose - ind.VWAP) / ind.VWAP * 100
				if dev > 1 && dev < 8 {
					return longSignal(in, 0.63, 4)
				}
				if dev < -1 && dev > -8 {
					return shortSignal(in, 0.63, 4)
				}
				return nil
			},
		},
		{
			Name:       "obv-confirmation",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.OBV > 0 && ind.LastClose > ind.EMA20 {
					return longSignal(in, 0.61, 4)
				}
				if ind.OBV < 0 && ind.LastClose < ind.EMA20 {
					return shortSignal(in, 0.61, 4)
				}
				return nil
			},
		},
		{
			Name:       "ichimoku-cloud",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				ich := ind.Ichimoku
				above := ind.LastClose > ich.SenkouA && ind.LastClose > ich.SenkouB
				below := ind.LastClose < ich.SenkouA && ind.LastClose < ich.SenkouB
				if above && ich.Tenkan > ich.Kijun {
					return longSignal(in, 0.72, 5)
				}
				if below && ich.Tenkan < ich.Kijun {
					return shortSignal(in, 0.72, 5)
				}
				return nil
			},
		},
		{
			Name:       "ichimoku-tk-cross",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				ich := ind.Ichimoku
				if ich.Tenkan > ich.Kijun && ind.LastClose > ich.Kijun {
					return longSignal(in, 0.64, 4)
				}
				if ich.Tenkan < ich.Kijun && ind.LastClose < ich.Kijun {
					return shortSignal(in, 0.64, 4)
				}
				return nil
			},
		},
		{
			Name:       "parabolic-sar-ride",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.ParabolicSAR == 0 {
					return nil
				}
				if ind.LastClose > ind.ParabolicSAR {
					return longSignal(in, 0.65, 5)
				}
				return shortSignal(in, 0.65, 5)
			},
		},
		{
			Name:       "sma-trend-stack",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.LastClose > ind.SMA20 && ind.SMA20 > ind.SMA50 {
					return longSignal(in, 0.66, 4)
				}
				if ind.LastClose < ind.SMA20 && ind.SMA20 < ind.SMA50 {
					return shortSignal(in, 0.66, 4)
				}
				return nil
			},
		},
		{
			Name:       "momentum-breakout",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 20 {
					return nil
				}
				candles := in.Series.Candles
				hi := candles[len(candles)-20].High
				for _, c := range candles[len(candles)-20 : len(candles)-1] {
					if c.High > hi {
						hi = c.High
					}
				}
				if ind.LastClose > hi {
					return longSignal(in, 0.7, 6)
				}
				lo := candles[len(candles)-20].Low
				for _, c := range candles[len(candles)-20 : len(candles)-1] {
					if c.Low < lo {
						lo = c.Low
					}
				}
				if ind.LastClose < lo {
					return shortSignal(in, 0.7, 6)
				}
				return nil
			},
		},
		{
			Name:       "higher-highs",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				if !in.Indicators.Available || len(in.Series.Candles) < 6 {
					return nil
				}
				c := in.Series.Candles
				n := len(c)
				hh := c[n-1].High > c[n-3].High && c[n-3].High > c[n-5].High
				hl := c[n-1].Low > c[n-3].Low && c[n-3].Low > c[n-5].Low
				if hh && hl {
					return longSignal(in, 0.67, 5)
				}
				lh := c[n-1].High < c[n-3].High && c[n-3].High < c[n-5].High
				ll := c[n-1].Low < c[n-3].Low && c[n-3].Low < c[n-5].Low
				if lh && ll {
					return shortSignal(in, 0.67, 5)
				}
				return nil
			},
		},
		{
			Name:       "volume-trend-confirm",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.AvgVolume20 == 0 || len(in.Series.Candles) == 0 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				if last.Volume < ind.AvgVolume20*1.5 {
					return nil
				}
				if last.Close > last.Open && ind.LastClose > ind.EMA20 {
					return longSignal(in, 0.69, 5)
				}
				if last.Close < last.Open && ind.LastClose < ind.EMA20 {
					return shortSignal(in, 0.69, 5)
				}
				return nil
			},
		},
		{
			Name:       "ema200-regime-filter",
			Philosophy: PhilosophyTrend,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.EMA200 == 0 {
					return nil
				}
				dev := (ind.LastClose - ind.EMA200) / ind.EMA200 * 100
				if dev > 3 && ind.RSI > 50 {
					return longSignal(in, 0.6+min(dev/50, 0.15), 3)
				}
				if dev < -3 && ind.RSI < 50 {
					return shortSignal(in, 0.6+min(-dev/50, 0.15), 3)
				}
				return nil
			},
		},
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
