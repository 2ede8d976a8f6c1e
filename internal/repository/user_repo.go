package repository

import (
	"DevTinder/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User, detail *model.UserDetail) error
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint64) ([]*model.User, error)
	UpdateUserDetail(ctx context.Context, detail *model.UserDetail) error
	ListCandidates(ctx context.Context, userID uint64, limit, offset int) ([]*model.User, error)
	MarkDeleted(ctx context.Context, id uint64) error
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

// CreateUser 事务内创建用户及资料
func (s *UserRepoImpl) CreateUser(ctx context.Context, user *model.User, detail *model.UserDetail) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		detail.UserID = user.ID
		return tx.Create(detail).Error
	})
}

func (s *UserRepoImpl) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	result := s.db.WithContext(ctx).Preload("UserDetail").First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	result := s.db.WithContext(ctx).Preload("UserDetail").
		Where("username = ?", username).
		First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserRepoImpl) GetUsersByIDs(ctx context.Context, ids []uint64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	var users []*model.User
	result := s.db.WithContext(ctx).Preload("UserDetail").
		Where("id IN ?", ids).
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *UserRepoImpl) UpdateUserDetail(ctx context.Context, detail *model.UserDetail) error {
	return s.db.WithContext(ctx).Save(detail).Error
}

// ListCandidates 推荐候选：排除自己、已注销/封禁用户，以及任何已产生过滑动记录的配对
func (s *UserRepoImpl) ListCandidates(ctx context.Context, userID uint64, limit, offset int) ([]*model.User, error) {
	var users []*model.User
	result := s.db.WithContext(ctx).Preload("UserDetail").
		Where("id != ? AND is_ban = 0 AND is_delete = 0", userID).
		Where(`NOT EXISTS (
			SELECT 1 FROM match_records mr
			WHERE mr.user_low_id = LEAST(users.id, ?) AND mr.user_high_id = GREATEST(users.id, ?)
		)`, userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

func (s *UserRepoImpl) MarkDeleted(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("is_delete", true).Error
}
