package generators

import (
	"math"

	"crypto-consensus-bot/internal/market"
)

// meanReversionGenerators fade extremes back toward the mean. They carry
// the ranging philosophy tag and get boosted in ranging regimes.
func meanReversionGenerators() []Generator {
	return []Generator{
		{
			Name:       "rsi-oversold",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.RSI < 30 {
					return longSignal(in, 0.6+min((30-ind.RSI)/50, 0.25), 4)
				}
				if ind.RSI > 70 {
					return shortSignal(in, 0.6+min((ind.RSI-70)/50, 0.25), 4)
				}
				return nil
			},
		},
		{
			Name:       "rsi-extreme",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.RSI < 20 {
					return longSignal(in, 0.8, 5)
				}
				if ind.RSI > 80 {
					return shortSignal(in, 0.8, 5)
				}
				return nil
			},
		},
		{
			Name:       "bollinger-reversion",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.Bollinger.Upper == ind.Bollinger.Lower {
					return nil
				}
				if ind.LastClose <= ind.Bollinger.Lower {
					return longSignal(in, 0.7, 4)
				}
				if ind.LastClose >= ind.Bollinger.Upper {
					return shortSignal(in, 0.7, 4)
				}
				return nil
			},
		},
		{
			Name:       "bollinger-band-walk",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				bb := ind.Bollinger
				if !ind.Available || bb.Upper == bb.Lower {
					return nil
				}
				// Position inside the band, 0 at lower, 1 at upper.
				pos := (ind.LastClose - bb.Lower) / (bb.Upper - bb.Lower)
				if pos < 0.1 {
					return longSignal(in, 0.64, 3)
				}
				if pos > 0.9 {
					return shortSignal(in, 0.64, 3)
				}
				return nil
			},
		},
		{
			Name:       "stochastic-reversal",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				st := ind.Stochastic
				if st.K < 20 && st.K > st.D {
					return longSignal(in, 0.66, 4)
				}
				if st.K > 80 && st.K < st.D {
					return shortSignal(in, 0.66, 4)
				}
				return nil
			},
		},
		{
			Name:       "stochastic-extreme",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.Stochastic.K < 10 {
					return longSignal(in, 0.72, 4)
				}
				if ind.Stochastic.K > 90 {
					return shortSignal(in, 0.72, 4)
				}
				return nil
			},
		},
		{
			Name:       "cci-reversion",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.CCI < -100 {
					return longSignal(in, 0.6+min((-100-ind.CCI)/400, 0.2), 4)
				}
				if ind.CCI > 100 {
					return shortSignal(in, 0.6+min((ind.CCI-100)/400, 0.2), 4)
				}
				return nil
			},
		},
		{
			Name:       "williams-r-bounce",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.WilliamsR < -80 {
					return longSignal(in, 0.65, 4)
				}
				if ind.WilliamsR > -20 {
					return shortSignal(in, 0.65, 4)
				}
				return nil
			},
		},
		{
			Name:       "vwap-reversion",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.VWAP == 0 {
					return nil
				}
				dev := (ind.LastClose - ind.VWAP) / ind.VWAP * 100
				if dev < -5 {
					return longSignal(in, 0.63, 3)
				}
				if dev > 5 {
					return shortSignal(in, 0.63, 3)
				}
				return nil
			},
		},
		{
			Name:       "sma20-stretch",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || ind.SMA20 == 0 || ind.ATR == 0 {
					return nil
				}
				stretch := (ind.LastClose - ind.SMA20) / ind.ATR
				if stretch < -2 {
					return longSignal(in, 0.62+min(-stretch/20, 0.1), 3)
				}
				if stretch > 2 {
					return shortSignal(in, 0.62+min(stretch/20, 0.1), 3)
				}
				return nil
			},
		},
		{
			Name:       "range-support-bounce",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 20 {
					return nil
				}
				c := in.Series.Candles
				lo, hi := c[len(c)-20].Low, c[len(c)-20].High
				for _, k := range c[len(c)-20:] {
					if k.Low < lo {
						lo = k.Low
					}
					if k.High > hi {
						hi = k.High
					}
				}
				if hi == lo {
					return nil
				}
				pos := (ind.LastClose - lo) / (hi - lo)
				if pos < 0.1 {
					return longSignal(in, 0.68, 4)
				}
				if pos > 0.9 {
					return shortSignal(in, 0.68, 4)
				}
				return nil
			},
		},
		{
			Name:       "rsi-stoch-confluence",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available {
					return nil
				}
				if ind.RSI < 35 && ind.Stochastic.K < 25 {
					return longSignal(in, 0.74, 5)
				}
				if ind.RSI > 65 && ind.Stochastic.K > 75 {
					return shortSignal(in, 0.74, 5)
				}
				return nil
			},
		},
		{
			Name:       "pivot-magnet",
			Philosophy: PhilosophyMeanReversion,
			Eval: func(in Input) *market.BotSignal {
				ind := in.Indicators
				if !ind.Available || len(in.Series.Candles) < 2 {
					return nil
				}
				prev := in.Series.Candles[len(in.Series.Candles)-2]
				pivot := (prev.High + prev.Low + prev.Close) / 3
				if pivot == 0 {
					return nil
				}
				dev := (ind.LastClose - pivot) / pivot * 100
				if math.Abs(dev) < 0.5 {
					return nil
				}
				if dev < -3 {
					return longSignal(in, 0.6, 3)
				}
				if dev > 3 {
					return shortSignal(in, 0.6, 3)
				}
				return nil
			},
		},
	}
}
