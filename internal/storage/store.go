package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-monitor/internal/alert"
	"github.com/ignite/affiliate-monitor/internal/config"
	"github.com/ignite/affiliate-monitor/internal/pipeline"
)

const (
	latestReportKey = "analysis:latest"
	readAlertsKey   = "alerts:read"
	dismissedAlerts = "alerts:dismissed"
)

// Store caches the latest analysis report and holds alert read/dismissed
// flags. Reports expire; flags outlive them so a re-run does not resurface
// alerts the operator already handled.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg config.StorageConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewWithClient(client, time.Duration(cfg.ResultTTLHours)*time.Hour), nil
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// SaveReport caches the report as the latest analysis result.
func (s *Store) SaveReport(ctx context.Context, report *pipeline.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := s.client.Set(ctx, latestReportKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// LatestReport returns the cached report, or (nil, nil) when none exists.
func (s *Store) LatestReport(ctx context.Context) (*pipeline.Report, error) {
	data, err := s.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}

	var report pipeline.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

// MarkAlertRead flags one alert as read.
func (s *Store) MarkAlertRead(ctx context.Context, alertID string) error {
	return s.client.SAdd(ctx, readAlertsKey, alertID).Err()
}

// DismissAlert flags one alert as dismissed.
func (s *Store) DismissAlert(ctx context.Context, alertID string) error {
	return s.client.SAdd(ctx, dismissedAlerts, alertID).Err()
}

// ApplyAlertFlags overlays the stored read/dismissed flags onto freshly
// generated alerts. The generator always emits alerts unread; the flags are
// operator state, not analysis state.
func (s *Store) ApplyAlertFlags(ctx context.Context, alerts []alert.Alert) ([]alert.Alert, error) {
	if len(alerts) == 0 {
		return alerts, nil
	}

	read, err := s.client.SMembers(ctx, readAlertsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch read flags: %w", err)
	}
	dismissed, err := s.client.SMembers(ctx, dismissedAlerts).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch dismissed flags: %w", err)
	}

	readSet := make(map[string]bool, len(read))
	for _, id := range read {
		readSet[id] = true
	}
	dismissedSet := make(map[string]bool, len(dismissed))
	for _, id := range dismissed {
		dismissedSet[id] = true
	}

	out := make([]alert.Alert, len(alerts))
	copy(out, alerts)
	for i := range out {
		out[i].IsRead = readSet[out[i].ID]
		out[i].IsDismissed = dismissedSet[out[i].ID]
	}
	return out, nil
}
