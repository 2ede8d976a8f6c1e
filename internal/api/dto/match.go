package dto

import "time"

// SwipeResultDTO 滑动操作结果
type SwipeResultDTO struct {
	IsMatch        bool   `json:"is_match"`
	MatchID        uint64 `json:"match_id,omitempty"`
	ConversationID uint64 `json:"conversation_id,omitempty"`
}

// MatchDTO 配对列表项
type MatchDTO struct {
	MatchID        uint64         `json:"match_id"`
	OtherUser      *UserSimpleDTO `json:"other_user"`
	Status         string         `json:"status"` // pending | matched | rejected
	IsBookmarked   bool           `json:"is_bookmarked"`
	ConversationID uint64         `json:"conversation_id,omitempty"`
	UnreadCount    uint64         `json:"unread_count"`
	LastMessage    string         `json:"last_message,omitempty"`
	LastMessageAt  *time.Time     `json:"last_message_at,omitempty"`
	MatchedAt      *time.Time     `json:"matched_at,omitempty"`
}

// MatchCreatedDTO 匹配成功的实时推送
type MatchCreatedDTO struct {
	Type           string         `json:"type"`
	MatchID        uint64         `json:"match_id"`
	ConversationID uint64         `json:"conversation_id"`
	OtherUser      *UserSimpleDTO `json:"other_user"`
	MatchedAt      time.Time      `json:"matched_at"`
}
