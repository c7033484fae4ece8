// Package regime classifies the current market condition for one asset so
// the aggregation engine can reweight generators by trading philosophy.
package regime

import (
	"math"

	"crypto-consensus-bot/internal/indicators"
	"crypto-consensus-bot/internal/market"
)

// Classification thresholds. The decision tree is order-sensitive:
// trending is checked first, then volatility, else ranging.
const (
	TrendingADX   = 30.0
	VolatileATRPc = 4.0
)

// Classify labels the market condition from the indicator snapshot. With an
// unavailable indicator set it falls back to ranging with zero strength.
func Classify(ind indicators.Set, lastClose float64) market.Regime {
	if !ind.Available || lastClose <= 0 {
		return market.Regime{Type: market.RegimeRanging, Strength: 0}
	}

	if ind.ADX > TrendingADX {
		return market.Regime{
			Type:     market.RegimeTrending,
			Strength: math.Min(ind.ADX/50, 1),
		}
	}

	atrPct := ind.ATR / lastClose * 100
	if atrPct > VolatileATRPc {
		return market.Regime{
			Type:     market.RegimeVolatile,
			Strength: math.Min(atrPct/8, 1),
		}
	}

	return market.Regime{
		Type:     market.RegimeRanging,
		Strength: math.Min((TrendingADX-ind.ADX)/TrendingADX, 1),
	}
}
