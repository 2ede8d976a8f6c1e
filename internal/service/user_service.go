package service

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/model"
	"DevTinder/internal/pkg/consts"
	"DevTinder/internal/pkg/security"
	"DevTinder/internal/repository"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

// UserService 用户服务接口定义
type UserService interface {
	Register(ctx context.Context, regDTO *dto.RegisterDTO) error
	Login(ctx context.Context, loginDTO *dto.LoginDTO) (string, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error)
	UpdateUserInfo(ctx context.Context, id uint64, userDTO *dto.UserDTO) error
	Discover(ctx context.Context, userID uint64, limit, offset int) ([]*dto.UserDTO, error)
	CancelUser(ctx context.Context, id uint64) error
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &UserServiceImpl{userRepo: userRepo}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) error {
	findUser, err := s.userRepo.GetUserByUsername(ctx, regDTO.Username)
	if err != nil {
		return err
	}
	if findUser != nil {
		return ErrUserUsernameExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return err
	}

	user := &model.User{
		Username: &regDTO.Username,
		Password: &passwordHash,
	}

	detail := &model.UserDetail{}
	if err = copier.Copy(detail, regDTO); err != nil {
		return err
	}
	if detail.AvatarURL == "" {
		detail.AvatarURL = consts.DefaultAvatarURL
	}

	return s.userRepo.CreateUser(ctx, user, detail)
}

func (s *UserServiceImpl) Login(ctx context.Context, loginDTO *dto.LoginDTO) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, loginDTO.Username)
	if err != nil {
		return "", err
	}
	if user == nil || user.IsDelete {
		return "", ErrUserNotFound
	}
	if user.IsBan {
		return "", ErrUserBan
	}
	if user.Password == nil {
		return "", ErrPasswordIncorrect
	}
	if err = security.CheckPasswordHash(loginDTO.Password, *user.Password); err != nil {
		return "", ErrPasswordIncorrect
	}
	return security.GenerateToken(user.ID)
}

// Logout 将 token 签名放入黑名单，有效期覆盖 token 剩余寿命
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return cacheSet(ctx, signature, true, security.JWTExpirationTime)
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	key := consts.UserInfoKey + strconv.FormatUint(id, 10)
	if value, err := cacheGet(ctx, key); err == nil && value != "" {
		userDTO := &dto.UserDTO{}
		if err = json.Unmarshal([]byte(value), userDTO); err == nil {
			return userDTO, nil
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}

	userDTO := &dto.UserDTO{}
	if err = copier.Copy(userDTO, user.UserDetail); err != nil {
		return nil, err
	}
	userDTO.UserID = &user.ID
	userDTO.Username = user.Username
	userDTO.CreatedAt = &user.CreatedAt

	if data, err := json.Marshal(userDTO); err == nil {
		if err = cacheSet(ctx, key, data, 10*time.Minute); err != nil {
			log.Error("cache user info failed", "key", key, "err", err)
		}
	}
	return userDTO, nil
}

// UpdateUserInfo 非空字段覆盖更新，缓存失效
func (s *UserServiceImpl) UpdateUserInfo(ctx context.Context, id uint64, userDTO *dto.UserDTO) error {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err = copier.CopyWithOption(&user.UserDetail, userDTO, copier.Option{IgnoreEmpty: true}); err != nil {
		return err
	}
	if err = s.userRepo.UpdateUserDetail(ctx, &user.UserDetail); err != nil {
		return err
	}

	_ = cacheDel(ctx, consts.UserInfoKey+strconv.FormatUint(id, 10))
	return nil
}

// Discover 候选推荐：排除自己以及所有已滑动过的配对
func (s *UserServiceImpl) Discover(ctx context.Context, userID uint64, limit, offset int) ([]*dto.UserDTO, error) {
	users, err := s.userRepo.ListCandidates(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.UserDTO, 0, len(users))
	for _, user := range users {
		userDTO := &dto.UserDTO{}
		if err = copier.Copy(userDTO, user.UserDetail); err != nil {
			return nil, err
		}
		userDTO.UserID = &user.ID
		res = append(res, userDTO)
	}
	return res, nil
}

func (s *UserServiceImpl) CancelUser(ctx context.Context, id uint64) error {
	if err := s.userRepo.MarkDeleted(ctx, id); err != nil {
		return err
	}
	_ = cacheDel(ctx, consts.UserInfoKey+strconv.FormatUint(id, 10))
	return nil
}

// toUserSimpleDTO 配对/会话场景的用户摘要
func toUserSimpleDTO(u *model.User) *dto.UserSimpleDTO {
	if u == nil {
		return nil
	}
	return &dto.UserSimpleDTO{
		UserID:    u.ID,
		Nickname:  u.UserDetail.Nickname,
		AvatarURL: u.UserDetail.AvatarURL,
		Skills:    u.UserDetail.Skills,
		Location:  u.UserDetail.Location,
	}
}
