package generators

import (
	"math"

	"crypto-consensus-bot/internal/market"
)

// derivativesGenerators read the futures and options tape. All of them
// abstain when the relevant snapshot was not fetched this cycle.
func derivativesGenerators() []Generator {
	return []Generator{
		{
			Name:       "funding-rate-momentum",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				// Mildly positive funding with an uptrend: longs paying but winning.
				if d.FundingRate > 0.0001 && d.FundingRate < 0.0005 && in.Indicators.LastClose > in.Indicators.EMA50 {
					return longSignal(in, 0.64, 5)
				}
				if d.FundingRate < -0.0001 && d.FundingRate > -0.0005 && in.Indicators.LastClose < in.Indicators.EMA50 {
					return shortSignal(in, 0.64, 5)
				}
				return nil
			},
		},
		{
			Name:       "funding-extreme-squeeze",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				// Overheated funding tends to squeeze the crowded side.
				if d.FundingRate > 0.001 {
					return shortSignal(in, 0.6+min(d.FundingRate*200, 0.2), 4)
				}
				if d.FundingRate < -0.001 {
					return longSignal(in, 0.6+min(-d.FundingRate*200, 0.2), 4)
				}
				return nil
			},
		},
		{
			Name:       "oi-price-confirm",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				oiChg := d.OIChangePercent()
				if math.Abs(oiChg) < 3 {
					return nil
				}
				rising := in.Indicators.LastClose > in.Indicators.EMA20
				if oiChg > 3 && rising {
					return longSignal(in, 0.68, 6)
				}
				if oiChg > 3 && !rising {
					return shortSignal(in, 0.68, 6)
				}
				return nil
			},
		},
		{
			Name:       "oi-flush",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				// Sharp OI drop after a downtrend is a deleveraging flush.
				if d.OIChangePercent() < -10 && in.Indicators.RSI < 40 {
					return longSignal(in, 0.66, 4)
				}
				return nil
			},
		},
		{
			Name:       "long-short-ratio-fade",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || d.LongShortRatio == 0 || !in.Indicators.Available {
					return nil
				}
				if d.LongShortRatio > 2.5 {
					return shortSignal(in, 0.65, 4)
				}
				if d.LongShortRatio < 0.4 {
					return longSignal(in, 0.65, 4)
				}
				return nil
			},
		},
		{
			Name:       "long-short-ratio-follow",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || d.LongShortRatio == 0 || !in.Indicators.Available {
					return nil
				}
				if d.LongShortRatio > 1.2 && d.LongShortRatio < 2.0 && in.Indicators.ADX > 25 {
					return longSignal(in, 0.61, 4)
				}
				if d.LongShortRatio < 0.8 && d.LongShortRatio > 0.5 && in.Indicators.ADX > 25 {
					return shortSignal(in, 0.61, 4)
				}
				return nil
			},
		},
		{
			Name:       "basis-premium",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || d.MarkPrice == 0 || !in.Indicators.Available || in.Indicators.LastClose == 0 {
					return nil
				}
				premium := (d.MarkPrice - in.Indicators.LastClose) / in.Indicators.LastClose * 100
				if premium > 0.5 {
					return longSignal(in, 0.62, 4)
				}
				if premium < -0.5 {
					return shortSignal(in, 0.62, 4)
				}
				return nil
			},
		},
		{
			Name:       "put-call-skew",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				o := in.Options
				if o == nil || o.PutCallRatio == 0 || !in.Indicators.Available {
					return nil
				}
				if o.PutCallRatio > 1.3 {
					return shortSignal(in, 0.63, 3)
				}
				if o.PutCallRatio < 0.6 {
					return longSignal(in, 0.63, 3)
				}
				return nil
			},
		},
		{
			Name:       "iv-rank-crush",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				o := in.Options
				if o == nil || o.IVRank == 0 || !in.Indicators.Available {
					return nil
				}
				// High IV rank with an oversold tape: fear is priced in.
				if o.IVRank > 0.8 && in.Indicators.RSI < 35 {
					return longSignal(in, 0.66, 3)
				}
				if o.IVRank > 0.8 && in.Indicators.RSI > 65 {
					return shortSignal(in, 0.66, 3)
				}
				return nil
			},
		},
		{
			Name:       "oi-momentum-combo",
			Philosophy: PhilosophyDerivatives,
			Eval: func(in Input) *market.BotSignal {
				d := in.Derivatives
				if d == nil || !in.Indicators.Available {
					return nil
				}
				if d.OIChangePercent() > 5 && d.FundingRate > 0 && in.Indicators.MACD.Histogram > 0 {
					return longSignal(in, 0.71, 6)
				}
				if d.OIChangePercent() > 5 && d.FundingRate < 0 && in.Indicators.MACD.Histogram < 0 {
					return shortSignal(in, 0.71, 6)
				}
				return nil
			},
		},
	}
}
