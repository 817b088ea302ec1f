package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Admin 管理员模型
type Admin struct {
	ID          uint           `gorm:"primarykey" json:"id"`                       // 主键
	Username    string         `gorm:"uniqueIndex;size:50;not null" json:"username"` // 用户名
	Password    string         `gorm:"size:255;not null" json:"-"`                 // 密码(bcrypt)
	Nickname    string         `gorm:"size:50;default:''" json:"nickname"`         // 昵称
	Status      int            `gorm:"default:1" json:"status"`                    // 状态(1正常,0禁用)
	LastLoginAt *time.Time     `json:"last_login_at"`                              // 最后登录时间
	LastLoginIP string         `gorm:"size:45;default:''" json:"last_login_ip"`    // 最后登录IP
	CreatedAt   time.Time      `json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                 // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                             // 删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// SetPassword 设置密码
func (a *Admin) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hash)
	return nil
}

// CheckPassword 校验密码
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
}
