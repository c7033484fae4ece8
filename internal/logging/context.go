package logging

// Domain-scoped logger constructors. Each returns a child of the default
// logger carrying the fields downstream log queries key on.

// ScanContext creates a logger for one scan cycle
func ScanContext(scanID string, coinLimit int) *Logger {
	return Default().WithScanID(scanID).
		WithField("coin_limit", coinLimit).
		WithComponent("scanner")
}

// AssetContext creates a logger for one asset's pipeline run
func AssetContext(scanID, symbol string) *Logger {
	return Default().WithScanID(scanID).
		WithField("symbol", symbol).
		WithComponent("pipeline")
}

// ProviderContext creates a logger for provider fetches
func ProviderContext(provider, kind, symbol string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"provider": provider,
		"kind":     kind,
		"symbol":   symbol,
	}).WithComponent("providers")
}

// GeneratorContext creates a logger for signal generator evaluation
func GeneratorContext(generator, symbol string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"generator": generator,
		"symbol":    symbol,
	}).WithComponent("generators")
}

// ConsensusContext creates a logger for aggregation decisions
func ConsensusContext(symbol, regime string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol": symbol,
		"regime": regime,
	}).WithComponent("aggregation")
}
