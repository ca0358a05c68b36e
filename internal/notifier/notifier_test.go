package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"jobcenter/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestStream(t *testing.T) (*miniredis.Miniredis, *redis.Client, *StreamPublisher) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	pub := NewStreamPublisher(client, "jobcenter:notifications", zap.NewNop())

	return mr, client, pub
}

func sampleNotification() *domain.Notification {
	return &domain.Notification{
		ID:         201,
		Text:       "Machine Breakdown - motor fault",
		Target:     domain.TargetMaintenance,
		SourceType: domain.SourceTypeOperations,
		SourceID:   42,
		Category:   "breakdown",
		Priority:   domain.PriorityHigh,
		CreatedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestStreamPublisher_PublishAppendsEvent(t *testing.T) {
	_, client, pub := setupTestStream(t)
	ctx := context.Background()

	err := pub.Publish(ctx, sampleNotification())
	require.NoError(t, err)

	entries, err := client.XRange(ctx, "jobcenter:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, ok := entries[0].Values["data"].(string)
	require.True(t, ok)

	var event streamEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "Machine Breakdown - motor fault", event.Text)
	assert.Equal(t, domain.TargetMaintenance, event.Target)
	assert.Equal(t, int64(42), event.SourceID)
	assert.Equal(t, "breakdown", event.Category)
	assert.Equal(t, domain.PriorityHigh, event.Priority)
	assert.Equal(t, int64(1741944600000), event.CreatedAtMs)
}

func TestStreamPublisher_RedisDownReturnsError(t *testing.T) {
	mr, _, pub := setupTestStream(t)
	mr.Close()

	err := pub.Publish(context.Background(), sampleNotification())
	assert.Error(t, err)
}

// sinkSpy 记录扇出调用
type sinkSpy struct {
	calls int
	err   error
}

func (s *sinkSpy) Publish(context.Context, *domain.Notification) error {
	s.calls++
	return s.err
}

func TestMultiPublisher_FanOutContinuesPastFailure(t *testing.T) {
	failing := &sinkSpy{err: assert.AnError}
	healthy := &sinkSpy{}

	pub := NewMultiPublisher(zap.NewNop(), failing, healthy)

	err := pub.Publish(context.Background(), sampleNotification())

	assert.NoError(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, healthy.calls)
}
