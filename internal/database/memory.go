package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto-consensus-bot/internal/market"
)

// MemoryStore is an in-memory stand-in for Repository, used in tests and
// when running without Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	scanRuns     map[string]*market.ScanRun
	signals      []storedRow
	outcomes     []market.PredictionOutcome
	outcomeKeys  map[string]bool // signal_id + "|" + horizon
	weights      map[string]*market.WeightState
	correlations map[string]*market.Correlation
	settings     map[string]string
}

type storedRow struct {
	market.StoredSignal
	scanID string
	recID  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scanRuns:     make(map[string]*market.ScanRun),
		outcomeKeys:  make(map[string]bool),
		weights:      make(map[string]*market.WeightState),
		correlations: make(map[string]*market.Correlation),
		settings:     make(map[string]string),
	}
}

func (m *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

func (m *MemoryStore) CreateScanRun(ctx context.Context, run *market.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.scanRuns[run.ID] = &cp
	return nil
}

func (m *MemoryStore) FinishScanRun(ctx context.Context, run *market.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.scanRuns[run.ID] = &cp
	return nil
}

// ScanRun returns a stored run by id, or nil. Test helper.
func (m *MemoryStore) ScanRun(id string) *market.ScanRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scanRuns[id]
}

// ScanRuns returns every stored run. Test helper.
func (m *MemoryStore) ScanRuns() []*market.ScanRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*market.ScanRun, 0, len(m.scanRuns))
	for _, run := range m.scanRuns {
		out = append(out, run)
	}
	return out
}

func (m *MemoryStore) SaveRecommendation(ctx context.Context, scanID string, agg *market.AggregatedSignal, signals []market.BotSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recID := uuid.New().String()
	for _, sig := range signals {
		m.signals = append(m.signals, storedRow{
			StoredSignal: market.StoredSignal{
				ID:          uuid.New().String(),
				PredictedAt: agg.GeneratedAt,
				BotSignal:   sig,
			},
			scanID: scanID,
			recID:  recID,
		})
	}
	return nil
}

func (m *MemoryStore) SaveSignals(ctx context.Context, scanID string, signals []market.BotSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, sig := range signals {
		m.signals = append(m.signals, storedRow{
			StoredSignal: market.StoredSignal{
				ID:          uuid.New().String(),
				PredictedAt: now,
				BotSignal:   sig,
			},
			scanID: scanID,
		})
	}
	return nil
}

// AddSignal inserts a pre-built stored signal. Test helper.
func (m *MemoryStore) AddSignal(s market.StoredSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, storedRow{StoredSignal: s})
}

// SignalCount reports the number of stored signals. Test helper.
func (m *MemoryStore) SignalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signals)
}

func (m *MemoryStore) MatureSignals(ctx context.Context, horizon string, before time.Time, limit int) ([]market.StoredSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []market.StoredSignal
	for _, row := range m.signals {
		if len(out) >= limit {
			break
		}
		if row.PredictedAt.After(before) {
			continue
		}
		if m.outcomeKeys[row.ID+"|"+horizon] {
			continue
		}
		out = append(out, row.StoredSignal)
	}
	return out, nil
}

func (m *MemoryStore) InsertOutcome(ctx context.Context, o *market.PredictionOutcome) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := o.SignalID + "|" + o.Horizon
	if m.outcomeKeys[key] {
		return false, nil
	}
	m.outcomeKeys[key] = true
	m.outcomes = append(m.outcomes, *o)
	return true, nil
}

// AddOutcome inserts an outcome row directly. Test helper.
func (m *MemoryStore) AddOutcome(o market.PredictionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomeKeys[o.SignalID+"|"+o.Horizon] = true
	m.outcomes = append(m.outcomes, o)
}

func (m *MemoryStore) AccuracySince(ctx context.Context, since time.Time) (map[string]market.Accuracy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]market.Accuracy)
	for _, o := range m.outcomes {
		if o.EvaluatedAt.Before(since) {
			continue
		}
		acc := out[o.GeneratorName]
		acc.Total++
		if o.Correct {
			acc.Correct++
		}
		out[o.GeneratorName] = acc
	}
	return out, nil
}

func (m *MemoryStore) GeneratorAccuracySince(ctx context.Context, generator string, since time.Time) (market.Accuracy, error) {
	all, _ := m.AccuracySince(ctx, since)
	return all[generator], nil
}

func (m *MemoryStore) WeightStates(ctx context.Context) (map[string]*market.WeightState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*market.WeightState, len(m.weights))
	for name, w := range m.weights {
		cp := *w
		out[name] = &cp
	}
	return out, nil
}

func (m *MemoryStore) UpsertWeightState(ctx context.Context, w *market.WeightState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.weights[w.GeneratorName] = &cp
	return nil
}

func (m *MemoryStore) UpsertCorrelation(ctx context.Context, c *market.Correlation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.correlations[c.BaseSymbol+"|"+c.QuoteSymbol+"|"+c.Window] = &cp
	return nil
}

// CorrelationCount reports the number of stored correlations. Test helper.
func (m *MemoryStore) CorrelationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.correlations)
}

func (m *MemoryStore) Setting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}
