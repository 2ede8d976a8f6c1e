package model

import "time"

// UserDetail 开发者资料页信息
type UserDetail struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint64  `gorm:"uniqueIndex:idx_user_id;not null" json:"userId"`
	Nickname     string  `gorm:"type:varchar(50)" json:"nickname"`
	AvatarURL    string  `gorm:"type:varchar(255)" json:"avatarUrl"`
	Bio          string  `gorm:"type:varchar(500)" json:"bio"`
	Gender       int8    `gorm:"not null;default:0" json:"gender"` // 0-未填写, 1-男, 2-女
	Age          int     `gorm:"not null;default:0" json:"age"`
	Skills       string  `gorm:"type:varchar(500)" json:"skills"` // 逗号分隔的技术栈标签
	GithubURL    string  `gorm:"type:varchar(255)" json:"githubUrl"`
	PortfolioURL string  `gorm:"type:varchar(255)" json:"portfolioUrl"`
	Location     string  `gorm:"type:varchar(100)" json:"location"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (UserDetail) TableName() string {
	return "user_details"
}
