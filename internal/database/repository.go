package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crypto-consensus-bot/internal/market"
)

// Repository provides data access methods over the pool.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// SCAN RUNS
// ============================================================================

// CreateScanRun inserts the ledger row for a starting scan.
func (r *Repository) CreateScanRun(ctx context.Context, run *market.ScanRun) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO scan_runs (id, started_at, status) VALUES ($1, $2, $3)`,
		run.ID, run.StartedAt, market.ScanStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("create scan run: %w", err)
	}
	return nil
}

// FinishScanRun records a scan's completion status and totals.
func (r *Repository) FinishScanRun(ctx context.Context, run *market.ScanRun) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE scan_runs SET finished_at = $2, status = $3, assets_scanned = $4, recommendations = $5
		 WHERE id = $1`,
		run.ID, run.FinishedAt, run.Status, run.AssetsScanned, run.Recommendations,
	)
	if err != nil {
		return fmt.Errorf("finish scan run: %w", err)
	}
	return nil
}

// ============================================================================
// RECOMMENDATIONS + BOT SIGNALS
// ============================================================================

// SaveRecommendation persists a consensus recommendation together with its
// constituent bot signals in one transaction.
func (r *Repository) SaveRecommendation(ctx context.Context, scanID string, agg *market.AggregatedSignal, signals []market.BotSignal) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	recID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO recommendations
			(id, scan_id, symbol, direction, confidence, consensus_percent,
			 participating_bots, long_count, short_count,
			 avg_entry, avg_take_profit, avg_stop_loss, regime, regime_strength, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		recID, scanID, agg.Symbol, string(agg.Direction), agg.Confidence, agg.ConsensusPercent,
		agg.ParticipatingBots, agg.LongCount, agg.ShortCount,
		agg.AvgEntry, agg.AvgTakeProfit, agg.AvgStopLoss, string(agg.Regime.Type), agg.Regime.Strength,
		agg.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}

	if err := insertSignals(ctx, tx, scanID, recID, signals); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveSignals persists bot signals for an asset that produced no consensus
// recommendation. The predictions still feed the performance tracker.
func (r *Repository) SaveSignals(ctx context.Context, scanID string, signals []market.BotSignal) error {
	if len(signals) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertSignals(ctx, tx, scanID, "", signals); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSignals(ctx context.Context, tx pgx.Tx, scanID, recID string, signals []market.BotSignal) error {
	var recRef interface{}
	if recID != "" {
		recRef = recID
	}
	for _, sig := range signals {
		_, err := tx.Exec(ctx,
			`INSERT INTO bot_signals
				(id, recommendation_id, scan_id, generator_name, symbol, direction,
				 confidence, entry, take_profit, stop_loss, leverage)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			uuid.New().String(), recRef, scanID, sig.GeneratorName, sig.Symbol, string(sig.Direction),
			sig.Confidence, sig.Entry, sig.TakeProfit, sig.StopLoss, sig.Leverage,
		)
		if err != nil {
			return fmt.Errorf("insert bot signal: %w", err)
		}
	}
	return nil
}

// ============================================================================
// PREDICTION OUTCOMES
// ============================================================================

// MatureSignals returns persisted signals older than the cutoff that have
// no outcome recorded yet at the given horizon.
func (r *Repository) MatureSignals(ctx context.Context, horizon string, before time.Time, limit int) ([]market.StoredSignal, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.id, s.generator_name, s.symbol, s.direction, s.confidence,
		        s.entry, s.take_profit, s.stop_loss, s.leverage, s.created_at
		 FROM bot_signals s
		 LEFT JOIN prediction_outcomes o ON o.signal_id = s.id AND o.horizon = $1
		 WHERE o.id IS NULL AND s.created_at <= $2
		 ORDER BY s.created_at
		 LIMIT $3`,
		horizon, before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query mature signals: %w", err)
	}
	defer rows.Close()

	var out []market.StoredSignal
	for rows.Next() {
		var s market.StoredSignal
		var direction string
		if err := rows.Scan(&s.ID, &s.GeneratorName, &s.Symbol, &direction, &s.Confidence,
			&s.Entry, &s.TakeProfit, &s.StopLoss, &s.Leverage, &s.PredictedAt); err != nil {
			return nil, fmt.Errorf("scan mature signal: %w", err)
		}
		s.Direction = market.Direction(direction)
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertOutcome records an evaluated prediction outcome. Returns false
// when the (signal, horizon) pair was already evaluated, which keeps
// outcome evaluation idempotent under re-runs.
func (r *Repository) InsertOutcome(ctx context.Context, o *market.PredictionOutcome) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO prediction_outcomes
			(id, signal_id, horizon, generator_name, symbol, predicted_at,
			 entry_price, realized_price, direction, correct, pnl_percent, evaluated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (signal_id, horizon) DO NOTHING`,
		o.ID, o.SignalID, o.Horizon, o.GeneratorName, o.Symbol, o.PredictedAt,
		o.EntryPrice, o.RealizedPrice, string(o.Direction), o.Correct, o.PnLPercent, o.EvaluatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert outcome: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AccuracySince tallies directional correctness per generator over
// outcomes evaluated after the cutoff.
func (r *Repository) AccuracySince(ctx context.Context, since time.Time) (map[string]market.Accuracy, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT generator_name,
		        COUNT(*) FILTER (WHERE correct) AS correct,
		        COUNT(*) AS total
		 FROM prediction_outcomes
		 WHERE evaluated_at >= $1
		 GROUP BY generator_name`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query accuracy: %w", err)
	}
	defer rows.Close()

	out := make(map[string]market.Accuracy)
	for rows.Next() {
		var name string
		var acc market.Accuracy
		if err := rows.Scan(&name, &acc.Correct, &acc.Total); err != nil {
			return nil, fmt.Errorf("scan accuracy: %w", err)
		}
		out[name] = acc
	}
	return out, rows.Err()
}

// GeneratorAccuracySince tallies one generator's accuracy over outcomes
// evaluated after the cutoff, used for probation verdicts.
func (r *Repository) GeneratorAccuracySince(ctx context.Context, generator string, since time.Time) (market.Accuracy, error) {
	var acc market.Accuracy
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE correct), COUNT(*)
		 FROM prediction_outcomes
		 WHERE generator_name = $1 AND evaluated_at >= $2`,
		generator, since,
	).Scan(&acc.Correct, &acc.Total)
	if err != nil {
		return acc, fmt.Errorf("query generator accuracy: %w", err)
	}
	return acc, nil
}

// ============================================================================
// GENERATOR WEIGHT STATE
// ============================================================================

// WeightStates loads every generator's trust record.
func (r *Repository) WeightStates(ctx context.Context) (map[string]*market.WeightState, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT generator_name, philosophy, current_weight, status, disable_count,
		        disabled_at, probation_until, probation_start,
		        accuracy_7d, accuracy_30d, accuracy_90d, sample_count, updated_at
		 FROM generator_weights`,
	)
	if err != nil {
		return nil, fmt.Errorf("query weight states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*market.WeightState)
	for rows.Next() {
		w := &market.WeightState{}
		if err := rows.Scan(&w.GeneratorName, &w.Philosophy, &w.CurrentWeight, &w.Status, &w.DisableCount,
			&w.DisabledAt, &w.ProbationUntil, &w.ProbationStart,
			&w.Accuracy7d, &w.Accuracy30d, &w.Accuracy90d, &w.SampleCount, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan weight state: %w", err)
		}
		out[w.GeneratorName] = w
	}
	return out, rows.Err()
}

// UpsertWeightState writes one generator's trust record.
func (r *Repository) UpsertWeightState(ctx context.Context, w *market.WeightState) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO generator_weights
			(generator_name, philosophy, current_weight, status, disable_count,
			 disabled_at, probation_until, probation_start,
			 accuracy_7d, accuracy_30d, accuracy_90d, sample_count, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (generator_name) DO UPDATE SET
			philosophy = EXCLUDED.philosophy,
			current_weight = EXCLUDED.current_weight,
			status = EXCLUDED.status,
			disable_count = EXCLUDED.disable_count,
			disabled_at = EXCLUDED.disabled_at,
			probation_until = EXCLUDED.probation_until,
			probation_start = EXCLUDED.probation_start,
			accuracy_7d = EXCLUDED.accuracy_7d,
			accuracy_30d = EXCLUDED.accuracy_30d,
			accuracy_90d = EXCLUDED.accuracy_90d,
			sample_count = EXCLUDED.sample_count,
			updated_at = EXCLUDED.updated_at`,
		w.GeneratorName, w.Philosophy, w.CurrentWeight, w.Status, w.DisableCount,
		w.DisabledAt, w.ProbationUntil, w.ProbationStart,
		w.Accuracy7d, w.Accuracy30d, w.Accuracy90d, w.SampleCount, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert weight state: %w", err)
	}
	return nil
}

// ============================================================================
// CORRELATIONS + SETTINGS
// ============================================================================

// UpsertCorrelation writes one pairwise correlation row.
func (r *Repository) UpsertCorrelation(ctx context.Context, c *market.Correlation) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO asset_correlations
			(base_symbol, quote_symbol, time_window, coefficient, sample_size, calculated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (base_symbol, quote_symbol, time_window) DO UPDATE SET
			coefficient = EXCLUDED.coefficient,
			sample_size = EXCLUDED.sample_size,
			calculated_at = EXCLUDED.calculated_at`,
		c.BaseSymbol, c.QuoteSymbol, c.Window, c.Coefficient, c.SampleSize, c.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert correlation: %w", err)
	}
	return nil
}

// Setting reads an engine setting; empty string when unset.
func (r *Repository) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT value FROM engine_settings WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting writes an engine setting.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO engine_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
