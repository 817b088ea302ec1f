package models

import (
	"time"

	"github.com/payhub-next/internal/constants"
)

// PaymentRecord 支付行为记录
// 一条记录对应一次针对订单的支付尝试，终态通过状态位表示，永不物理删除。
type PaymentRecord struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                          // 主键
	Unid          uint       `gorm:"index;not null;default:0" json:"unid"`                          // 主账号编号
	Usid          uint       `gorm:"index;not null;default:0" json:"usid"`                          // 子账号编号
	Code          string     `gorm:"uniqueIndex;size:20;not null" json:"code"`                      // 发起支付号
	OrderNo       string     `gorm:"index;size:20;not null" json:"order_no"`                        // 原订单编号
	OrderName     string     `gorm:"size:255;default:''" json:"order_name"`                         // 原订单标题
	OrderAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`     // 原订单金额
	ChannelType   string     `gorm:"index;size:50;not null" json:"channel_type"`                    // 支付通道类型
	ChannelCode   string     `gorm:"index;size:20;not null" json:"channel_code"`                    // 支付通道编号
	PaymentTime   *time.Time `json:"payment_time"`                                                  // 支付完成时间
	PaymentTrade  string     `gorm:"index;size:100;default:''" json:"payment_trade"`                // 平台交易编号
	PaymentStatus int        `gorm:"index;not null;default:0" json:"payment_status"`                // 支付状态(0未付,1已付,2取消)
	PaymentAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"payment_amount"`   // 实际到账金额
	PaymentImages string     `gorm:"size:999;default:''" json:"payment_images"`                     // 凭证支付图片
	PaymentRemark string     `gorm:"size:999;default:''" json:"payment_remark"`                     // 支付状态备注
	AuditUser     uint       `gorm:"not null;default:0" json:"audit_user"`                          // 审核用户(系统用户ID)
	AuditTime     *time.Time `json:"audit_time"`                                                    // 审核时间
	AuditStatus   int        `gorm:"index;not null;default:1" json:"audit_status"`                  // 审核状态(0已拒,1待审,2已审)
	AuditRemark   string     `gorm:"size:999;default:''" json:"audit_remark"`                       // 审核描述
	RefundStatus  int        `gorm:"not null;default:0" json:"refund_status"`                       // 退款状态(0未退,1已退)
	RefundAmount  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"`    // 累计退款金额
	UsedPayment   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_payment"`     // 本次交易金额
	UsedBalance   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_balance"`     // 扣除余额
	UsedIntegral  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_integral"`    // 扣除积分
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// IsPaid 是否已完成支付
func (r *PaymentRecord) IsPaid() bool {
	return r != nil && r.PaymentStatus == constants.PaymentStatusPaid
}

// ChannelTypeName 通道类型名称
func (r *PaymentRecord) ChannelTypeName() string {
	if r == nil {
		return ""
	}
	if name, ok := constants.ChannelTypeNames[r.ChannelType]; ok {
		return name
	}
	return r.ChannelType
}
