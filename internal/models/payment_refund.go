package models

import "time"

// PaymentRefund 支付退款记录
// 通过 record_code 关联支付行为记录，状态进入终态后不再改写。
type PaymentRefund struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                        // 主键
	Unid          uint       `gorm:"index;not null;default:0" json:"unid"`                        // 主账号编号
	Usid          uint       `gorm:"index;not null;default:0" json:"usid"`                        // 子账号编号
	Code          string     `gorm:"uniqueIndex;size:20;not null" json:"code"`                    // 退款单号
	RecordCode    string     `gorm:"index;size:20;not null" json:"record_code"`                   // 关联支付单号
	RefundTime    *time.Time `json:"refund_time"`                                                 // 退款完成时间
	RefundTrade   string     `gorm:"index;size:100;default:''" json:"refund_trade"`               // 交易编号
	RefundStatus  int        `gorm:"index;not null;default:0" json:"refund_status"`               // 退款状态(0处理中,1已退款,2已取消)
	RefundAmount  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"`  // 退款金额
	RefundAccount string     `gorm:"size:180;default:''" json:"refund_account"`                   // 退回账号
	RefundScode   string     `gorm:"size:50;default:''" json:"refund_scode"`                      // 通道状态编码
	RefundRemark  string     `gorm:"size:999;default:''" json:"refund_remark"`                    // 退款备注
	RefundNotify  string     `gorm:"type:text" json:"refund_notify"`                              // 通道通知内容
	UsedPayment   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_payment"`   // 退回金额
	UsedBalance   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_balance"`   // 退回余额
	UsedIntegral  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"used_integral"`  // 退回积分
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (PaymentRefund) TableName() string {
	return "payment_refunds"
}
