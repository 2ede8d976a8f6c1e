package repository

import (
	"DevTinder/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SwipeMetricRepo interface {
	// IncrField 对某用户某天的单个计数列做 upsert 自增
	IncrField(ctx context.Context, userID uint64, day string, column string) error
	GetRange(ctx context.Context, userID uint64, fromDay, toDay string) ([]*model.SwipeDailyMetric, error)
	DeleteBefore(ctx context.Context, day string) (int64, error)
}

type SwipeMetricRepoImpl struct {
	db *gorm.DB
}

func NewSwipeMetricRepo(db *gorm.DB) SwipeMetricRepo {
	return &SwipeMetricRepoImpl{db: db}
}

// IncrField 利用 idx_user_day 唯一索引做原子累加，避免读改写竞态
func (s *SwipeMetricRepoImpl) IncrField(ctx context.Context, userID uint64, day string, column string) error {
	rec := &model.SwipeDailyMetric{UserID: userID, Day: day}
	switch column {
	case "likes_sent":
		rec.LikesSent = 1
	case "likes_received":
		rec.LikesReceived = 1
	case "passes_sent":
		rec.PassesSent = 1
	case "matches":
		rec.Matches = 1
	default:
		return gorm.ErrInvalidField
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{column: gorm.Expr(column + " + 1")}),
		}).
		Create(rec).Error
}

func (s *SwipeMetricRepoImpl) GetRange(ctx context.Context, userID uint64, fromDay, toDay string) ([]*model.SwipeDailyMetric, error) {
	var metrics []*model.SwipeDailyMetric
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND day >= ? AND day <= ?", userID, fromDay, toDay).
		Order("day ASC").
		Find(&metrics)
	if result.Error != nil {
		return nil, result.Error
	}
	return metrics, nil
}

// DeleteBefore 指标归档清理，由定时任务触发
func (s *SwipeMetricRepoImpl) DeleteBefore(ctx context.Context, day string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("day < ?", day).
		Delete(&model.SwipeDailyMetric{})
	return result.RowsAffected, result.Error
}
