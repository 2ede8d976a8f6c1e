package kafka

import "time"

// 滑动事件类型
const (
	SwipeEventLike  = "like"
	SwipeEventPass  = "pass"
	SwipeEventMatch = "match"
)

// SwipeEvent 交互服务在状态机转换成功后投递的领域事件
type SwipeEvent struct {
	Type       string    `json:"type"`
	ActorID    uint64    `json:"actor_id"`
	TargetID   uint64    `json:"target_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
