package database

import (
	"context"
	"fmt"
)

// migrations run in order at startup; every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scan_runs (
		id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'running',
		assets_scanned INT NOT NULL DEFAULT 0,
		recommendations INT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS recommendations (
		id UUID PRIMARY KEY,
		scan_id UUID NOT NULL REFERENCES scan_runs(id),
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		consensus_percent DOUBLE PRECISION NOT NULL,
		participating_bots INT NOT NULL,
		long_count INT NOT NULL,
		short_count INT NOT NULL,
		avg_entry DOUBLE PRECISION NOT NULL,
		avg_take_profit DOUBLE PRECISION NOT NULL,
		avg_stop_loss DOUBLE PRECISION NOT NULL,
		regime TEXT NOT NULL,
		regime_strength DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_symbol_created
		ON recommendations(symbol, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS bot_signals (
		id UUID PRIMARY KEY,
		recommendation_id UUID REFERENCES recommendations(id),
		scan_id UUID NOT NULL REFERENCES scan_runs(id),
		generator_name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		entry DOUBLE PRECISION NOT NULL,
		take_profit DOUBLE PRECISION NOT NULL,
		stop_loss DOUBLE PRECISION NOT NULL,
		leverage INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bot_signals_created
		ON bot_signals(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bot_signals_generator
		ON bot_signals(generator_name, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS generator_weights (
		generator_name TEXT PRIMARY KEY,
		philosophy TEXT NOT NULL DEFAULT '',
		current_weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		disable_count INT NOT NULL DEFAULT 0,
		disabled_at TIMESTAMPTZ,
		probation_until TIMESTAMPTZ,
		probation_start TIMESTAMPTZ,
		accuracy_7d DOUBLE PRECISION NOT NULL DEFAULT 0,
		accuracy_30d DOUBLE PRECISION NOT NULL DEFAULT 0,
		accuracy_90d DOUBLE PRECISION NOT NULL DEFAULT 0,
		sample_count INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS prediction_outcomes (
		id UUID PRIMARY KEY,
		signal_id UUID NOT NULL REFERENCES bot_signals(id),
		horizon TEXT NOT NULL,
		generator_name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		predicted_at TIMESTAMPTZ NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		realized_price DOUBLE PRECISION NOT NULL,
		direction TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		pnl_percent DOUBLE PRECISION NOT NULL,
		evaluated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(signal_id, horizon)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_generator_evaluated
		ON prediction_outcomes(generator_name, evaluated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS asset_correlations (
		base_symbol TEXT NOT NULL,
		quote_symbol TEXT NOT NULL,
		time_window TEXT NOT NULL,
		coefficient DOUBLE PRECISION NOT NULL,
		sample_size INT NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY(base_symbol, quote_symbol, time_window)
	)`,

	`CREATE TABLE IF NOT EXISTS engine_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
