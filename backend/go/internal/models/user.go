package models

import (
	"gorm.io/gorm"
)

// User 代表系统中的一个用户账户。
// 每个用户持有自己的 Gemini API Key，Worker 在处理该用户的任务时读取它。
type User struct {
	gorm.Model

	Username string `gorm:"unique;not null"`
	Password string `gorm:"size:255" json:"-"` // 存储 bcrypt 哈希后的密码，json中忽略

	// GeminiAPIKey 以明文形式按用户存储。为空时该用户的任务会直接进入
	// error 状态，不会调用外部服务。
	GeminiAPIKey string `gorm:"size:512" json:"-"`
}

// HasAPIKey 判断用户是否配置了 Gemini API Key。
func (u *User) HasAPIKey() bool {
	return u != nil && u.GeminiAPIKey != ""
}

func (User) TableName() string {
	return "users"
}
