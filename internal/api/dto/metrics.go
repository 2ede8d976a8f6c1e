package dto

// SwipeMetricDTO 按天滑动指标点
type SwipeMetricDTO struct {
	Date          string `json:"date"` // 2026-08-31
	LikesSent     int    `json:"likes_sent"`
	LikesReceived int    `json:"likes_received"`
	PassesSent    int    `json:"passes_sent"`
	Matches       int    `json:"matches"`
}

// SwipeTrendDTO 滑动趋势返回包装
type SwipeTrendDTO struct {
	UserID uint64            `json:"user_id"`
	Days   int               `json:"days"`
	List   []*SwipeMetricDTO `json:"list"`
}
