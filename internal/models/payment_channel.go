package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentChannel 支付通道配置
type PaymentChannel struct {
	ID        uint           `gorm:"primarykey" json:"id"`                    // 主键
	Type      string         `gorm:"index;size:50;not null" json:"type"`      // 通道类型（empty/balance/integral/voucher/epay）
	Code      string         `gorm:"uniqueIndex;size:20;not null" json:"code"` // 通道编号
	Name      string         `gorm:"size:100;default:''" json:"name"`         // 通道名称
	Cover     string         `gorm:"size:500;default:''" json:"cover"`        // 通道图标
	Remark    string         `gorm:"size:500;default:''" json:"remark"`       // 通道说明
	Params    JSON           `gorm:"type:json" json:"params"`                 // 通道参数（网关密钥等）
	Sort      int64          `gorm:"index;not null;default:0" json:"sort"`    // 排序权重
	Status    int            `gorm:"index;not null;default:1" json:"status"`  // 通道状态(1启用,0禁用)
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                 // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                          // 软删除时间
}

// TableName 指定表名
func (PaymentChannel) TableName() string {
	return "payment_channels"
}

// Enabled 通道是否可用
func (c *PaymentChannel) Enabled() bool {
	return c != nil && c.Status == 1
}
