package kafka

import (
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// SwipeMetricsConsumer 消费滑动事件，维护按天聚合的滑动指标
type SwipeMetricsConsumer struct {
	metricRepo repository.SwipeMetricRepo
}

func NewSwipeMetricsConsumer(metricRepo repository.SwipeMetricRepo) *SwipeMetricsConsumer {
	return &SwipeMetricsConsumer{metricRepo: metricRepo}
}

func (c *SwipeMetricsConsumer) Setup(sarama.ConsumerGroupSession) error {
	log.Info("swipe metrics consumer setup")
	return nil
}

func (c *SwipeMetricsConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("swipe metrics consumer cleanup")
	return nil
}

func (c *SwipeMetricsConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		c.handleMessage(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *SwipeMetricsConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event SwipeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("unmarshal swipe event error", "err", err)
		return
	}

	day := event.OccurredAt.Format("2006-01-02")
	if event.OccurredAt.IsZero() {
		day = time.Now().Format("2006-01-02")
	}

	switch event.Type {
	case SwipeEventLike:
		c.incr(ctx, event.ActorID, day, "likes_sent")
		c.incr(ctx, event.TargetID, day, "likes_received")
	case SwipeEventPass:
		c.incr(ctx, event.ActorID, day, "passes_sent")
	case SwipeEventMatch:
		// 双方都计入匹配数
		c.incr(ctx, event.ActorID, day, "matches")
		c.incr(ctx, event.TargetID, day, "matches")
	default:
		log.Warn("unknown swipe event type", "type", event.Type)
	}
}

func (c *SwipeMetricsConsumer) incr(ctx context.Context, userID uint64, day string, column string) {
	if err := c.metricRepo.IncrField(ctx, userID, day, column); err != nil {
		log.Error("incr swipe metric failed", "userID", userID, "column", column, "err", err)
	}
}
