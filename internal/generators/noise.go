package generators

import (
	"hash/fnv"

	"crypto-consensus-bot/internal/market"
)

// noiseGenerators are placeholder predictors that carry no market logic.
// They exist to give the adaptive learner known-noise members whose
// disable/probation path gets exercised in production, and to test
// ensemble diversity. Unlike their upstream ancestors they are seeded
// from the candle series, so a fixed series yields a fixed answer and
// scan results stay reproducible.
func noiseGenerators() []Generator {
	mk := func(name string, salt uint64) Generator {
		return Generator{
			Name:       name,
			Philosophy: PhilosophyNoise,
			Eval: func(in Input) *market.BotSignal {
				if !in.Indicators.Available || len(in.Series.Candles) == 0 {
					return nil
				}
				roll := seriesHash(in.Series, salt)
				// Abstain a third of the time so participation varies.
				switch roll % 3 {
				case 0:
					return nil
				case 1:
					return longSignal(in, 0.6+float64(roll%20)/100, 2)
				default:
					return shortSignal(in, 0.6+float64(roll%20)/100, 2)
				}
			},
		}
	}
	return []Generator{
		mk("noise-alpha", 0x9e3779b9),
		mk("noise-beta", 0x85ebca6b),
		mk("noise-gamma", 0xc2b2ae35),
	}
}

// seriesHash folds the series identity and last candle into a stable seed.
func seriesHash(s market.Series, salt uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.Symbol))
	h.Write([]byte(s.Timeframe))
	last := s.Candles[len(s.Candles)-1]
	var buf [8]byte
	v := uint64(last.OpenTime) ^ salt
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}
