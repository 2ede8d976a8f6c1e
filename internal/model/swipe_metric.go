package model

import "time"

// SwipeDailyMetric 按天聚合的滑动指标，由 Kafka 消费者维护
type SwipeDailyMetric struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64    `gorm:"uniqueIndex:idx_user_day;not null" json:"userId"`
	Day           string    `gorm:"uniqueIndex:idx_user_day;type:varchar(10);not null" json:"day"` // YYYY-MM-DD
	LikesSent     uint64    `gorm:"not null;default:0" json:"likesSent"`
	LikesReceived uint64    `gorm:"not null;default:0" json:"likesReceived"`
	PassesSent    uint64    `gorm:"not null;default:0" json:"passesSent"`
	Matches       uint64    `gorm:"not null;default:0" json:"matches"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (SwipeDailyMetric) TableName() string { return "swipe_daily_metrics" }
