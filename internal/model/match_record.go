package model

import "time"

// 配对状态，只允许向前流转: pending -> matched / rejected
const (
	MatchStatusPending  int8 = 1
	MatchStatusMatched  int8 = 2
	MatchStatusRejected int8 = 3
)

// MatchRecord 一对用户的滑动交互状态，每个无序对至多一行
type MatchRecord struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserLowID  uint64 `gorm:"uniqueIndex:idx_pair;not null" json:"userLowId"`  // 规范序较小的一方
	UserHighID uint64 `gorm:"uniqueIndex:idx_pair;not null" json:"userHighId"` // 规范序较大的一方

	// InitiatorID 显式记录首个操作者，不从规范排序推断
	InitiatorID uint64 `gorm:"not null" json:"initiatorId"`

	Status int8 `gorm:"not null;default:1;index" json:"status"` // 1-pending, 2-matched, 3-rejected

	// ConversationID 配对成功后懒创建的会话，未匹配时为 0
	ConversationID uint64 `gorm:"not null;default:0" json:"conversationId"`

	// 书签按规范序两侧各自独立
	LowBookmarked  int8 `gorm:"not null;default:0" json:"lowBookmarked"`
	HighBookmarked int8 `gorm:"not null;default:0" json:"highBookmarked"`

	MatchedAt *time.Time `json:"matchedAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (MatchRecord) TableName() string { return "match_records" }

// OtherUser 返回相对 userID 的对手方
func (m *MatchRecord) OtherUser(userID uint64) uint64 {
	if m.UserLowID == userID {
		return m.UserHighID
	}
	return m.UserLowID
}

// HasMember 判断用户是否属于该配对
func (m *MatchRecord) HasMember(userID uint64) bool {
	return m.UserLowID == userID || m.UserHighID == userID
}

// BookmarkedBy 返回 userID 一侧的书签状态
func (m *MatchRecord) BookmarkedBy(userID uint64) bool {
	if m.UserLowID == userID {
		return m.LowBookmarked == 1
	}
	return m.HighBookmarked == 1
}
