package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-monitor/internal/alert"
	"github.com/ignite/affiliate-monitor/internal/pipeline"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewWithClient(client, time.Hour)
	ctx := context.Background()

	// Nothing cached yields nil without an error.
	report, err := store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Nil(t, report)

	original := pipeline.New(pipeline.Options{}).Analyze(pipeline.Input{})
	require.NoError(t, store.SaveReport(ctx, original))

	loaded, err := store.LatestReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original.AggregationStats.DataQualityScore, loaded.AggregationStats.DataQualityScore)
	assert.Equal(t, original.Errors, loaded.Errors)
	require.NotNil(t, loaded.AIData)
	assert.Equal(t, original.AIData.Metadata.ModelVersion, loaded.AIData.Metadata.ModelVersion)
}

func TestAlertFlags(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewWithClient(client, time.Hour)
	ctx := context.Background()

	alerts := []alert.Alert{
		{ID: "a-1", Type: alert.TypeOpportunity},
		{ID: "a-2", Type: alert.TypeWarning},
		{ID: "a-3", Type: alert.TypeCritical},
	}

	require.NoError(t, store.MarkAlertRead(ctx, "a-1"))
	require.NoError(t, store.DismissAlert(ctx, "a-2"))

	flagged, err := store.ApplyAlertFlags(ctx, alerts)
	require.NoError(t, err)

	assert.True(t, flagged[0].IsRead)
	assert.False(t, flagged[0].IsDismissed)
	assert.True(t, flagged[1].IsDismissed)
	assert.False(t, flagged[1].IsRead)
	assert.False(t, flagged[2].IsRead)
	assert.False(t, flagged[2].IsDismissed)

	// Input slice is not mutated.
	assert.False(t, alerts[0].IsRead)
}

func TestApplyAlertFlagsEmpty(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewWithClient(client, time.Hour)
	flagged, err := store.ApplyAlertFlags(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}
