package models

import "time"

// BalanceFlow 用户余额流水
// 锁定流水以负数金额入账，解锁表示消费完成，作废表示退回；
// 可用余额 = 未作废流水之和，锁定余额 = 未作废且仍锁定的负数流水绝对值之和。
type BalanceFlow struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                 // 主键
	Unid      uint      `gorm:"index;not null" json:"unid"`                           // 用户编号
	Code      string    `gorm:"uniqueIndex;size:100;not null" json:"code"`            // 业务单号
	Name      string    `gorm:"size:200;default:''" json:"name"`                      // 流水名称
	Amount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`  // 变动金额（入账为正，扣减为负）
	Remark    string    `gorm:"size:500;default:''" json:"remark"`                    // 流水备注
	Locked    int       `gorm:"index;not null;default:0" json:"locked"`               // 锁定状态(1锁定,0已解锁)
	Cancelled int       `gorm:"index;not null;default:0" json:"cancelled"`            // 作废状态(1已作废,0有效)
	CreatedAt time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                           // 更新时间
}

// TableName 指定表名
func (BalanceFlow) TableName() string {
	return "balance_flows"
}
