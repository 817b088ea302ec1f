package models

import (
	"time"

	"github.com/payhub-next/internal/constants"
)

// PaymentTransfer 用户提现记录
// 提现在 status ∈ {1,2,3} 期间始终占用一条余额锁定，解锁由取消或确认收款二选一完成。
type PaymentTransfer struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                        // 主键
	Unid         uint       `gorm:"index;not null" json:"unid"`                                  // 用户编号
	Type         string     `gorm:"index;size:30;not null" json:"type"`                          // 提现方式
	Date         string     `gorm:"index;size:20;not null" json:"date"`                          // 提现日期（按日限次）
	Code         string     `gorm:"uniqueIndex;size:100;not null" json:"code"`                   // 提现单号
	Appid        string     `gorm:"index;size:100;default:''" json:"appid"`                      // 公众号 APPID
	Openid       string     `gorm:"index;size:100;default:''" json:"openid"`                     // 公众号 OPENID
	ChargeRate   Money      `gorm:"type:decimal(20,4);not null;default:0" json:"charge_rate"`    // 手续费比例（百分比）
	ChargeAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"charge_amount"`  // 手续费金额
	Amount       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 提现转账金额
	Qrcode       string     `gorm:"size:999;default:''" json:"qrcode"`                           // 收款码图片地址
	BankWseq     string     `gorm:"size:20;default:''" json:"bank_wseq"`                         // 微信银行编号
	BankName     string     `gorm:"size:100;default:''" json:"bank_name"`                        // 开户银行名称
	BankBran     string     `gorm:"size:100;default:''" json:"bank_bran"`                        // 开户分行名称
	BankUser     string     `gorm:"size:100;default:''" json:"bank_user"`                        // 开户账号姓名
	BankCode     string     `gorm:"size:100;default:''" json:"bank_code"`                        // 开户银行卡号
	AlipayUser   string     `gorm:"size:100;default:''" json:"alipay_user"`                      // 支付宝姓名
	AlipayCode   string     `gorm:"size:100;default:''" json:"alipay_code"`                      // 支付宝账号
	Remark       string     `gorm:"size:200;default:''" json:"remark"`                           // 提现描述
	TradeNo      string     `gorm:"size:100;default:''" json:"trade_no"`                         // 打款交易单号
	TradeTime    *time.Time `json:"trade_time"`                                                  // 打款时间
	ChangeTime   *time.Time `json:"change_time"`                                                 // 处理时间
	ChangeDesc   string     `gorm:"size:500;default:''" json:"change_desc"`                      // 处理描述
	AuditTime    *time.Time `json:"audit_time"`                                                  // 审核时间
	AuditStatus  int        `gorm:"index;not null;default:0" json:"audit_status"`                // 审核状态(0已拒,1待审,2已审)
	AuditRemark  string     `gorm:"size:500;default:''" json:"audit_remark"`                     // 审核描述
	Status       int        `gorm:"index;not null;default:1" json:"status"`                      // 提现状态(0已拒,1待审,2已审,3打款中,4已打款,5已收款)
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (PaymentTransfer) TableName() string {
	return "payment_transfers"
}

// TypeName 提现方式名称
func (t *PaymentTransfer) TypeName() string {
	if t == nil {
		return ""
	}
	if name, ok := constants.TransferTypeNames[t.Type]; ok {
		return name
	}
	return t.Type
}

// Locking 当前状态是否仍占用余额锁定
func (t *PaymentTransfer) Locking() bool {
	if t == nil {
		return false
	}
	return t.Status >= constants.TransferStatusPending && t.Status <= constants.TransferStatusDisbursing
}
