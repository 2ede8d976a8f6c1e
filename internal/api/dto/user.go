package dto

import "time"

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6,max=64"`

	Nickname  string  `json:"nickname" binding:"required,min=1,max=30"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Gender    int8    `json:"gender,omitempty" validate:"omitempty,min=0,max=2"`
	Age       int     `json:"age,omitempty" validate:"omitempty,min=0,max=150"`
	Skills    *string `json:"skills,omitempty"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserDTO 用户资料视图，更新接口复用同一结构，指针字段缺省表示不修改
type UserDTO struct {
	UserID       *uint64    `json:"user_id,omitempty"`
	Username     *string    `json:"username,omitempty"`
	Nickname     *string    `json:"nickname,omitempty" validate:"omitempty,min=1,max=30"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	Bio          *string    `json:"bio,omitempty" validate:"omitempty,max=500"`
	Gender       *int8      `json:"gender,omitempty" validate:"omitempty,min=0,max=2"`
	Age          *int       `json:"age,omitempty" validate:"omitempty,min=0,max=150"`
	Skills       *string    `json:"skills,omitempty"`
	GithubURL    *string    `json:"github_url,omitempty" validate:"omitempty,url"`
	PortfolioURL *string    `json:"portfolio_url,omitempty" validate:"omitempty,url"`
	Location     *string    `json:"location,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// UserSimpleDTO 配对/会话列表里内嵌的对方用户摘要
type UserSimpleDTO struct {
	UserID    uint64 `json:"user_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Skills    string `json:"skills"`
	Location  string `json:"location"`
}
