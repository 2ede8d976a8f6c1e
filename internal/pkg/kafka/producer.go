package kafka

import (
	"DevTinder/internal/api/config"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// SwipeProducer 滑动事件生产者。事件投递是尽力而为的旁路，
// 失败只记录日志，绝不影响触发它的数据写入
type SwipeProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSwipeProducer(cfg *config.Config) (*SwipeProducer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &SwipeProducer{
		producer: producer,
		topic:    cfg.Kafka.SwipeTopic,
	}, nil
}

// Emit 投递一条滑动事件
func (s *SwipeProducer) Emit(eventType string, actorID, targetID uint64) {
	event := &SwipeEvent{
		Type:       eventType,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error("marshal swipe event failed", "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.Type),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err = s.producer.SendMessage(msg); err != nil {
		log.Error("emit swipe event failed", "type", eventType, "err", err)
	}
}

func (s *SwipeProducer) Close() error {
	return s.producer.Close()
}
