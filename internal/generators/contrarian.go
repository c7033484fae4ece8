package generators

import (
	"crypto-consensus-bot/internal/market"
)

// contrarianGenerators bet against the crowd at sentiment and positioning
// extremes. The aggregation engine pays a bonus when several of these agree
// with the dominant direction at high consensus.
func contrarianGenerators() []Generator {
	return []Generator{
		{
			Name:       "fear-greed-fade",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				s := in.Sentiment
				if s == nil || !in.Indicators.Available {
					return nil
				}
				if s.FearGreedIndex <= 20 {
					return longSignal(in, 0.6+min(float64(20-s.FearGreedIndex)/50, 0.2), 3)
				}
				if s.FearGreedIndex >= 80 {
					return shortSignal(in, 0.6+min(float64(s.FearGreedIndex-80)/50, 0.2), 3)
				}
				return nil
			},
		},
		{
			Name:       "capitulation-wick",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.ATR == 0 || len(in.Series.Candles) == 0 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				lowerWick := min(last.Open, last.Close) - last.Low
				upperWick := last.High - max(last.Open, last.Close)
				if lowerWick > ind.ATR*1.5 && last.Close > last.Open {
					return longSignal(in, 0.7, 4)
				}
				if upperWick > ind.ATR*1.5 && last.Close < last.Open {
					return shortSignal(in, 0.7, 4)
				}
				return nil
			},
		},
		{
			Name:       "exchange-flow-fade",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				oc := in.OnChain
				if oc == nil || !in.Indicators.Available {
					return nil
				}
				// Heavy exchange inflow reads as distribution, outflow as accumulation.
				if oc.NetExchangeFlow < 0 && in.Indicators.RSI < 45 {
					return longSignal(in, 0.64, 3)
				}
				if oc.NetExchangeFlow > 0 && in.Indicators.RSI > 55 {
					return shortSignal(in, 0.64, 3)
				}
				return nil
			},
		},
		{
			Name:       "crowded-funding-fade",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				if d.FundingRate > 0.0008 && in.Indicators.RSI > 70 {
					return shortSignal(in, 0.72, 4)
				}
				if d.FundingRate < -0.0008 && in.Indicators.RSI < 30 {
					return longSignal(in, 0.72, 4)
				}
				return nil
			},
		},
		{
			Name:       "overextension-fade",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.EMA20 == 0 || ind.ATR == 0 {
					return nil
				}
				stretch := (ind.LastClose - ind.EMA20) / ind.ATR
				if stretch > 3.5 {
					return shortSignal(in, 0.68, 3)
				}
				if stretch < -3.5 {
					return longSignal(in, 0.68, 3)
				}
				return nil
			},
		},
		{
			Name:       "consecutive-candle-fade",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				if !in.Indicators.Available || len(in.Series.Candles) < 7 {
					return nil
				}
				c := in.Series.Candles
				up, down := 0, 0
				for i := len(c) - 6; i < len(c); i++ {
					if c[i].Close > c[i].Open {
						up++
					} else if c[i].Close < c[i].Open {
						down++
					}
				}
				if up >= 6 {
					return shortSignal(in, 0.62, 3)
				}
				if down >= 6 {
					return longSignal(in, 0.62, 3)
				}
				return nil
			},
		},
		{
			Name:       "sentiment-divergence",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				s := in.Sentiment
				ind := in.Indicators
				if s == nil || !ind.Available {
					return nil
				}
				// Fearful crowd while the tape holds above trend.
				if s.FearGreedIndex < 35 && ind.LastClose > ind.EMA50 {
					return longSignal(in, 0.65, 3)
				}
				if s.FearGreedIndex > 65 && ind.LastClose < ind.EMA50 {
					return shortSignal(in, 0.65, 3)
				}
				return nil
			},
		},
		{
			Name:       "volume-climax-reverse",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.AvgVolume20 == 0 || len(in.Series.Candles) == 0 {
					return nil
				}
				last := in.Series.Candles[len(in.Series.Candles)-1]
				if last.Volume < ind.AvgVolume20*4 {
					return nil
				}
				// Climactic volume at an RSI extreme marks exhaustion.
				if ind.RSI > 75 {
					return shortSignal(in, 0.69, 4)
				}
				if ind.RSI < 25 {
					return longSignal(in, 0.69, 4)
				}
				return nil
			},
		},
		{
			Name:       "bollinger-fakeout",
			Philosophy: PhilosophyContrarian,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 2 {
					return nil
				}
				c := in.Series.Candles
				prev, last := c[len(c)-2], c[len(c)-1]
				bb := ind.Bollinger
				// Pierced a band last bar and closed back inside this bar.
				if prev.Low < bb.Lower && last.Close > bb.Lower {
					return longSignal(in, 0.67, 4)
				}
				if prev.High > bb.Upper && last.Close < bb.Upper {
					return shortSignal(in, 0.67, 4)
				}
				return nil
			},
		},
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
