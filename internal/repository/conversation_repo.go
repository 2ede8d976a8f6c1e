package repository

import (
	"DevTinder/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepo interface {
	// CreateConversation 基于 peer_key 唯一索引创建会话及成员；竞争失败时返回 false，由调用方回读
	CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []uint64) (bool, error)
	GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error)
	GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error)
	IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error)

	// IncrMaxSeq 利用行锁原子推进序列号并更新预览，返回新 Seq
	IncrMaxSeq(ctx context.Context, convID uint64, preview string, senderID uint64) (uint64, error)
	// AdvanceReadSeq 推进已读进度，只前进不回退
	AdvanceReadSeq(ctx context.Context, convID, userID, seq uint64) error
	// UpdatePreview 消息删除后的预览重算
	UpdatePreview(ctx context.Context, convID uint64, content string, senderID uint64, seq uint64, at time.Time) error

	GetUserConversationMemList(ctx context.Context, userID uint64) ([]*model.ConversationMember, error)
	GetMembersByConvIDs(ctx context.Context, convIDs []uint64, userID uint64) (map[uint64]*model.ConversationMember, error)
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

// CreateConversation 开启事务创建会话及初始成员
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []uint64) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(conv)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// peer_key 冲突，另一请求已创建
			return nil
		}
		created = true
		for _, uid := range memberIDs {
			m := &model.ConversationMember{
				ConversationID: conv.ID,
				UserID:         uid,
				JoinedAt:       time.Now(),
			}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

// GetConversation 根据会话 ID 获取会话，不存在返回 nil
func (s *conversationRepoImpl) GetConversation(ctx context.Context, convID uint64) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).First(&conv, convID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetConversationByPeerKey 根据会话标识获取会话
func (s *conversationRepoImpl) GetConversationByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("peer_key = ?", peerKey).First(&conv).Error
	return &conv, err
}

// IsMember 检查用户是否是会话成员
func (s *conversationRepoImpl) IsMember(ctx context.Context, convID uint64, userID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	return count > 0, err
}

// IncrMaxSeq 核心定序逻辑：利用 MySQL 行锁确保 Seq 绝对递增，未读数由 Seq 差值派生
func (s *conversationRepoImpl) IncrMaxSeq(ctx context.Context, convID uint64, preview string, senderID uint64) (uint64, error) {
	var maxSeq uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Conversation{}).Where("id = ?", convID).
			Updates(map[string]interface{}{
				"max_msg_seq":      gorm.Expr("max_msg_seq + 1"),
				"last_msg_content": preview,
				"last_sender_id":   senderID,
				"last_message_at":  time.Now(),
			}).Error
		if err != nil {
			return err
		}

		// 读取自增后的最新 Seq，并落到预览指针上
		if err = tx.Model(&model.Conversation{}).Select("max_msg_seq").Where("id = ?", convID).Scan(&maxSeq).Error; err != nil {
			return err
		}
		if err = tx.Model(&model.Conversation{}).Where("id = ?", convID).
			Update("last_msg_seq", maxSeq).Error; err != nil {
			return err
		}

		// 发送者对自己的消息永远是已读的，同事务推进避免未读数虚增
		return tx.Model(&model.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ? AND read_msg_seq < ?", convID, senderID, maxSeq).
			Update("read_msg_seq", maxSeq).Error
	})
	return maxSeq, err
}

// AdvanceReadSeq 更新用户已读进度 (已读回执)，守卫条件保证幂等且不回退
func (s *conversationRepoImpl) AdvanceReadSeq(ctx context.Context, convID, userID, seq uint64) error {
	return s.db.WithContext(ctx).Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ? AND read_msg_seq < ?", convID, userID, seq).
		Update("read_msg_seq", seq).Error
}

// UpdatePreview 删除消息后用现存最新消息重写预览；会话清空时 seq 为 0
func (s *conversationRepoImpl) UpdatePreview(ctx context.Context, convID uint64, content string, senderID uint64, seq uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_msg_content": content,
			"last_sender_id":   senderID,
			"last_msg_seq":     seq,
			"last_message_at":  at,
		}).Error
}

// GetUserConversationMemList 联表查询，利用嵌套 Model 自动装配
func (s *conversationRepoImpl) GetUserConversationMemList(ctx context.Context, userID uint64) ([]*model.ConversationMember, error) {
	var members []*model.ConversationMember
	// 使用 Conversation__ 别名配合 GORM 的嵌套填充特性
	err := s.db.WithContext(ctx).Table("conversation_members m").
		Select("m.*, "+
			"c.id AS `Conversation__id`, "+
			"c.peer_key AS `Conversation__peer_key`, "+
			"c.max_msg_seq AS `Conversation__max_msg_seq`, "+
			"c.last_msg_content AS `Conversation__last_msg_content`, "+
			"c.last_sender_id AS `Conversation__last_sender_id`, "+
			"c.last_msg_seq AS `Conversation__last_msg_seq`, "+
			"c.last_message_at AS `Conversation__last_message_at`, "+
			"(c.max_msg_seq - m.read_msg_seq) AS unread_count").
		Joins("JOIN conversations c ON m.conversation_id = c.id").
		Where("m.user_id = ?", userID).
		Order("c.last_message_at DESC").
		Find(&members).Error
	return members, err
}

// GetMembersByConvIDs 批量获取用户在指定会话中的成员行（含未读数），用于配对列表装配
func (s *conversationRepoImpl) GetMembersByConvIDs(ctx context.Context, convIDs []uint64, userID uint64) (map[uint64]*model.ConversationMember, error) {
	if len(convIDs) == 0 {
		return map[uint64]*model.ConversationMember{}, nil
	}
	var members []*model.ConversationMember
	err := s.db.WithContext(ctx).Table("conversation_members m").
		Select("m.*, "+
			"c.id AS `Conversation__id`, "+
			"c.peer_key AS `Conversation__peer_key`, "+
			"c.max_msg_seq AS `Conversation__max_msg_seq`, "+
			"c.last_msg_content AS `Conversation__last_msg_content`, "+
			"c.last_sender_id AS `Conversation__last_sender_id`, "+
			"c.last_msg_seq AS `Conversation__last_msg_seq`, "+
			"c.last_message_at AS `Conversation__last_message_at`, "+
			"(c.max_msg_seq - m.read_msg_seq) AS unread_count").
		Joins("JOIN conversations c ON m.conversation_id = c.id").
		Where("m.conversation_id IN ? AND m.user_id = ?", convIDs, userID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	resMap := make(map[uint64]*model.ConversationMember, len(members))
	for _, m := range members {
		resMap[m.ConversationID] = m
	}
	return resMap, nil
}
