package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 用户模型
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`                       // 主键
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"` // 邮箱
	Password  string         `gorm:"size:255;not null" json:"-"`                 // 密码(bcrypt)
	Nickname  string         `gorm:"size:50;default:''" json:"nickname"`         // 昵称
	Integral  int64          `gorm:"not null;default:0" json:"integral"`         // 可用积分
	Status    int            `gorm:"default:1" json:"status"`                    // 状态(1正常,0禁用)
	CreatedAt time.Time      `json:"created_at"`                                 // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                 // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                             // 删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
