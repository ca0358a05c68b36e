package notifier

import (
	"context"
	"encoding/json"

	"jobcenter/internal/domain"
	"jobcenter/internal/metrics"

	commonmqtt "jobcenter/internal/common/mqtt"
	commonredis "jobcenter/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 通知的实时推送面：事务内已落库的 notifications 行，在提交后再尽力而为地
// 推给告警 UI（Redis Stream）和车间安灯屏（MQTT）。推送失败不回滚、不重试，
// 轮询接口兜底。

// streamEvent Redis Stream 载荷
type streamEvent struct {
	EventID     string `json:"event_id"`
	Text        string `json:"text"`
	Target      int    `json:"target"`
	SourceType  string `json:"source_type"`
	SourceID    int64  `json:"source_id"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// StreamPublisher 推送到 Redis Stream
type StreamPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

func NewStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, logger: logger}
}

func (p *StreamPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	event := streamEvent{
		EventID:     uuid.NewString(),
		Text:        n.Text,
		Target:      n.Target,
		SourceType:  n.SourceType,
		SourceID:    n.SourceID,
		Category:    n.Category,
		Priority:    n.Priority,
		CreatedAtMs: n.CreatedAt.UnixMilli(),
	}
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, event); err != nil {
		return err
	}
	metrics.NotificationsPublished.WithLabelValues("redis_stream").Inc()
	return nil
}

// AndonPublisher 推送到车间安灯屏（MQTT 主题按受众分流）
type AndonPublisher struct {
	client *commonmqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

func NewAndonPublisher(client *commonmqtt.Client, topic string, qos byte, logger *zap.Logger) *AndonPublisher {
	return &AndonPublisher{client: client, topic: topic, qos: qos, logger: logger}
}

func (p *AndonPublisher) Publish(_ context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := p.client.Publish(p.topic, p.qos, false, payload); err != nil {
		return err
	}
	metrics.NotificationsPublished.WithLabelValues("mqtt").Inc()
	return nil
}

// MultiPublisher 扇出到多个推送面，单个失败不阻断其余
type MultiPublisher struct {
	sinks  []Sink
	logger *zap.Logger
}

// Sink 与 service.NotificationPublisher 同形，避免反向依赖
type Sink interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

func NewMultiPublisher(logger *zap.Logger, sinks ...Sink) *MultiPublisher {
	return &MultiPublisher{sinks: sinks, logger: logger}
}

func (p *MultiPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, n); err != nil {
			p.logger.Warn("notification sink failed",
				zap.Int64("source_id", n.SourceID),
				zap.String("category", n.Category),
				zap.Error(err),
			)
		}
	}
	return nil
}
