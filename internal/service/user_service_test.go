package service

import (
	"DevTinder/internal/api/dto"
	"DevTinder/internal/pkg/consts"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (UserService, *fakeUserRepo) {
	t.Helper()
	stubRedis(t)
	repo := newFakeUserRepo()
	return NewUserService(repo), repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	skills := "go,mysql"
	reg := &dto.RegisterDTO{
		Username: "gopher",
		Password: "s3cret!",
		Nickname: "Gopher",
		Skills:   &skills,
	}
	require.NoError(t, svc.Register(ctx, reg))

	t.Run("duplicate username", func(t *testing.T) {
		assert.ErrorIs(t, svc.Register(ctx, reg), ErrUserUsernameExist)
	})

	t.Run("login ok", func(t *testing.T) {
		token, err := svc.Login(ctx, &dto.LoginDTO{Username: "gopher", Password: "s3cret!"})
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &dto.LoginDTO{Username: "gopher", Password: "nope"})
		assert.ErrorIs(t, err, ErrPasswordIncorrect)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, &dto.LoginDTO{Username: "nobody", Password: "x"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestRegisterFillsDefaultAvatar(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, &dto.RegisterDTO{
		Username: "noavatar",
		Password: "pw",
		Nickname: "NoAvatar",
	}))

	u, err := repo.GetUserByUsername(ctx, "noavatar")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, consts.DefaultAvatarURL, u.UserDetail.AvatarURL)
}

func TestLoginBlockedAccounts(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, &dto.RegisterDTO{Username: "u1", Password: "pw", Nickname: "U1"}))
	u, _ := repo.GetUserByUsername(ctx, "u1")

	t.Run("banned", func(t *testing.T) {
		repo.users[u.ID].IsBan = true
		_, err := svc.Login(ctx, &dto.LoginDTO{Username: "u1", Password: "pw"})
		assert.ErrorIs(t, err, ErrUserBan)
		repo.users[u.ID].IsBan = false
	})

	t.Run("cancelled", func(t *testing.T) {
		require.NoError(t, svc.CancelUser(ctx, u.ID))
		_, err := svc.Login(ctx, &dto.LoginDTO{Username: "u1", Password: "pw"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestGetAndUpdateUserInfo(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, &dto.RegisterDTO{
		Username: "dev",
		Password: "pw",
		Nickname: "Dev",
	}))
	u, _ := repo.GetUserByUsername(ctx, "dev")

	info, err := svc.GetUserInfo(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, info.Nickname)
	assert.Equal(t, "Dev", *info.Nickname)

	bio := "likes concurrency"
	location := "Shenzhen"
	require.NoError(t, svc.UpdateUserInfo(ctx, u.ID, &dto.UserDTO{Bio: &bio, Location: &location}))

	info, err = svc.GetUserInfo(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, info.Bio)
	assert.Equal(t, bio, *info.Bio)
	// 未提交的字段不被清空
	require.NotNil(t, info.Nickname)
	assert.Equal(t, "Dev", *info.Nickname)

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.GetUserInfo(ctx, 999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDiscoverExcludesSelf(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	a := repo.addUser("a")
	repo.addUser("b")
	repo.addUser("c")

	list, err := svc.Discover(ctx, a, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, d := range list {
		require.NotNil(t, d.UserID)
		assert.NotEqual(t, a, *d.UserID)
	}
}
