package kafka

import (
	"DevTinder/internal/api/config"
	"DevTinder/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	swipeConsumer sarama.ConsumerGroup
	swipeHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, metricRepo repository.SwipeMetricRepo) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	swipeConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaSwipeConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		swipeConsumer: swipeConsumer,
		swipeHandler:  NewSwipeMetricsConsumer(metricRepo),
	}, nil
}

// Start 阻塞式消费循环，ctx 取消后退出
func (s *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	defer func() {
		if err := s.swipeConsumer.Close(); err != nil {
			log.Error("close swipe consumer failed", "err", err)
		}
	}()

	topics := []string{cfg.KafkaSwipeConsumer.Topic}
	for {
		if err := s.swipeConsumer.Consume(ctx, topics, s.swipeHandler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Error("swipe consumer error", "err", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
