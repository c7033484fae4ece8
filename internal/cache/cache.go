// Package cache provides Redis-backed caching for scan results with
// graceful degradation: when Redis is down the cache reports misses and
// the rest of the system keeps working off the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto-consensus-bot/internal/logging"
)

// ErrMiss is returned when the key is absent or Redis is unavailable.
var ErrMiss = errors.New("cache miss")

const (
	keyLatestScan = "consensus:scan:latest"
	keyScanByID   = "consensus:scan:%s"

	latestScanTTL = 24 * time.Hour
	scanByIDTTL   = 7 * 24 * time.Hour

	maxFailures = 3
	opTimeout   = 3 * time.Second
)

// Service wraps the Redis client with health tracking. A nil client is
// allowed and behaves as a permanently-missing cache.
type Service struct {
	client *redis.Client
	logger *logging.Logger

	mu           sync.Mutex
	healthy      bool
	failureCount int
}

// NewService creates the cache. Connectivity is verified once; failure
// leaves the service in degraded mode rather than erroring.
func NewService(client *redis.Client, logger *logging.Logger) *Service {
	s := &Service{
		client: client,
		logger: logger.WithComponent("cache"),
	}
	if client == nil {
		s.logger.Info("redis not configured, scan cache disabled")
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("redis unreachable, scan cache degraded", "error", err.Error())
		return s
	}
	s.healthy = true
	return s
}

// Healthy reports whether Redis is currently usable.
func (s *Service) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

func (s *Service) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount++
	if s.failureCount >= maxFailures && s.healthy {
		s.healthy = false
		s.logger.Warn("redis marked unhealthy", "failures", s.failureCount, "error", err.Error())
	}
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount = 0
	s.healthy = true
}

// StoreScan caches a scan snapshot both as the latest scan and under its id.
func (s *Service) StoreScan(ctx context.Context, scanID string, snapshot interface{}) error {
	if s.client == nil {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal scan snapshot: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Set(opCtx, keyLatestScan, payload, latestScanTTL)
	pipe.Set(opCtx, fmt.Sprintf(keyScanByID, scanID), payload, scanByIDTTL)
	if _, err := pipe.Exec(opCtx); err != nil {
		s.recordFailure(err)
		return fmt.Errorf("cache scan %s: %w", scanID, err)
	}
	s.recordSuccess()
	return nil
}

// LatestScan loads the most recent cached scan snapshot into out.
func (s *Service) LatestScan(ctx context.Context, out interface{}) error {
	return s.get(ctx, keyLatestScan, out)
}

// ScanByID loads one cached scan snapshot into out.
func (s *Service) ScanByID(ctx context.Context, scanID string, out interface{}) error {
	return s.get(ctx, fmt.Sprintf(keyScanByID, scanID), out)
}

func (s *Service) get(ctx context.Context, key string, out interface{}) error {
	if s.client == nil {
		return ErrMiss
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := s.client.Get(opCtx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		s.recordFailure(err)
		return ErrMiss
	}
	s.recordSuccess()
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode cached scan: %w", err)
	}
	return nil
}
