package repository

import (
	"DevTinder/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MatchRepo interface {
	// CreateIfAbsent 基于规范对唯一索引创建记录；并发竞争时仅一方成功，返回是否真正写入
	CreateIfAbsent(ctx context.Context, rec *model.MatchRecord) (bool, error)
	GetByPair(ctx context.Context, lowID, highID uint64) (*model.MatchRecord, error)
	GetByID(ctx context.Context, id uint64) (*model.MatchRecord, error)
	// MarkMatched 条件更新: 仅当仍为 pending 且发起者为 expectInitiator 时生效
	MarkMatched(ctx context.Context, id uint64, expectInitiator uint64, matchedAt time.Time) (bool, error)
	// MarkRejected 条件更新: 仅当仍为 pending 时生效
	MarkRejected(ctx context.Context, id uint64) (bool, error)
	SetConversation(ctx context.Context, id uint64, convID uint64) error
	ToggleBookmark(ctx context.Context, id uint64, lowSide bool) error
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.MatchRecord, error)
	DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type MatchRepoImpl struct {
	db *gorm.DB
}

func NewMatchRepo(db *gorm.DB) MatchRepo {
	return &MatchRepoImpl{db: db}
}

func (s *MatchRepoImpl) CreateIfAbsent(ctx context.Context, rec *model.MatchRecord) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			DoNothing: true,
		}).
		Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *MatchRepoImpl) GetByPair(ctx context.Context, lowID, highID uint64) (*model.MatchRecord, error) {
	var rec model.MatchRecord
	result := s.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", lowID, highID).
		First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &rec, nil
}

func (s *MatchRepoImpl) GetByID(ctx context.Context, id uint64) (*model.MatchRecord, error) {
	var rec model.MatchRecord
	result := s.db.WithContext(ctx).First(&rec, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &rec, nil
}

// MarkMatched 状态推进带守卫条件，竞态下 RowsAffected 为 0 时由调用方回读重判
func (s *MatchRepoImpl) MarkMatched(ctx context.Context, id uint64, expectInitiator uint64, matchedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.MatchRecord{}).
		Where("id = ? AND status = ? AND initiator_id = ?", id, model.MatchStatusPending, expectInitiator).
		Updates(map[string]interface{}{
			"status":     model.MatchStatusMatched,
			"matched_at": matchedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *MatchRepoImpl) MarkRejected(ctx context.Context, id uint64) (bool, error) {
	result := s.db.WithContext(ctx).Model(&model.MatchRecord{}).
		Where("id = ? AND status = ?", id, model.MatchStatusPending).
		Update("status", model.MatchStatusRejected)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *MatchRepoImpl) SetConversation(ctx context.Context, id uint64, convID uint64) error {
	return s.db.WithContext(ctx).Model(&model.MatchRecord{}).
		Where("id = ? AND status = ?", id, model.MatchStatusMatched).
		Update("conversation_id", convID).Error
}

// ToggleBookmark 翻转操作方一侧的书签，与状态机正交
func (s *MatchRepoImpl) ToggleBookmark(ctx context.Context, id uint64, lowSide bool) error {
	column := "high_bookmarked"
	if lowSide {
		column = "low_bookmarked"
	}
	return s.db.WithContext(ctx).Model(&model.MatchRecord{}).
		Where("id = ?", id).
		Update(column, gorm.Expr("1 - "+column)).Error
}

func (s *MatchRepoImpl) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.MatchRecord, error) {
	var recs []*model.MatchRecord
	result := s.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	return recs, nil
}

// DeleteRejectedBefore 维护脚本专用：正常业务路径从不删除配对记录
func (s *MatchRepoImpl) DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.MatchStatusRejected, cutoff).
		Delete(&model.MatchRecord{})
	return result.RowsAffected, result.Error
}
