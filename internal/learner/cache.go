package learner

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"crypto-consensus-bot/internal/market"
)

// WeightCache is the read path the aggregation engine sees: an in-memory
// snapshot of weight state plus the tuned confidence floor, refreshed at
// the top of each scan. Many readers, one refresher.
type WeightCache struct {
	store Store

	mu     sync.RWMutex
	states map[string]*market.WeightState
	floor  float64
}

// NewWeightCache creates an empty cache; call Refresh before the first scan.
func NewWeightCache(store Store) *WeightCache {
	return &WeightCache{
		store:  store,
		states: make(map[string]*market.WeightState),
		floor:  floorDefault,
	}
}

// Refresh reloads weight state and the confidence floor from storage.
func (c *WeightCache) Refresh(ctx context.Context) error {
	states, err := c.store.WeightStates(ctx)
	if err != nil {
		return fmt.Errorf("refresh weight cache: %w", err)
	}

	floor := floorDefault
	if raw, err := c.store.Setting(ctx, SettingConfidenceFloor); err != nil {
		return fmt.Errorf("refresh confidence floor: %w", err)
	} else if raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= floorMin && parsed <= floorMax {
			floor = parsed
		}
	}

	c.mu.Lock()
	c.states = states
	c.floor = floor
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current weight state map. Callers must treat the
// returned states as read-only.
func (c *WeightCache) Snapshot() map[string]*market.WeightState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states
}

// ConfidenceFloor returns the current auto-tuned global floor.
func (c *WeightCache) ConfidenceFloor() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.floor
}
