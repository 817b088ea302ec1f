package constants

// 支付通道类型常量
const (
	ChannelTypeEmpty    = "empty"    // 免支付（0 元单）
	ChannelTypeBalance  = "balance"  // 余额扣减
	ChannelTypeIntegral = "integral" // 积分扣减
	ChannelTypeVoucher  = "voucher"  // 凭证上传（线下转账）
	ChannelTypeEpay     = "epay"     // 易支付网关
)

// SelfSettledChannelTypes 无需外部网关确认、退款即时完成的通道类型
var SelfSettledChannelTypes = []string{
	ChannelTypeEmpty,
	ChannelTypeBalance,
	ChannelTypeIntegral,
	ChannelTypeVoucher,
}

// ChannelTypeNames 通道类型名称表
var ChannelTypeNames = map[string]string{
	ChannelTypeEmpty:    "免支付",
	ChannelTypeBalance:  "余额支付",
	ChannelTypeIntegral: "积分支付",
	ChannelTypeVoucher:  "凭证支付",
	ChannelTypeEpay:     "易支付",
}

// 支付记录审核状态（凭证人工审核）
const (
	AuditStatusRejected = 0 // 已拒
	AuditStatusPending  = 1 // 待审
	AuditStatusApproved = 2 // 已审
)

// 支付记录支付状态
const (
	PaymentStatusUnpaid    = 0 // 未付
	PaymentStatusPaid      = 1 // 已付
	PaymentStatusCancelled = 2 // 取消
)

// 支付记录退款状态
const (
	RecordRefundNone = 0 // 未退
	RecordRefundDone = 1 // 已退
)

// 退款单状态
const (
	RefundStatusPending   = 0 // 处理中
	RefundStatusSucceeded = 1 // 已退款
	RefundStatusCancelled = 2 // 已取消
)

// 提现单状态
const (
	TransferStatusRejected   = 0 // 已拒绝/已取消
	TransferStatusPending    = 1 // 待审核
	TransferStatusApproved   = 2 // 已审核
	TransferStatusDisbursing = 3 // 打款中
	TransferStatusPaid       = 4 // 已打款
	TransferStatusConfirmed  = 5 // 已收款
)

// 提现单审核状态
const (
	TransferAuditRejected = 0 // 已拒/免审
	TransferAuditPending  = 1 // 待审核
	TransferAuditApproved = 2 // 已审核
)

// 提现方式常量
const (
	TransferTypeWechatWallet  = "wechat_wallet"  // 微信零钱（线上）
	TransferTypeWechatBanks   = "wechat_banks"   // 银行卡（微信线上）
	TransferTypeWechatQrcode  = "wechat_qrcode"  // 微信收款码（线下）
	TransferTypeAlipayQrcode  = "alipay_qrcode"  // 支付宝收款码（线下）
	TransferTypeAlipayAccount = "alipay_account" // 支付宝账户（线下）
	TransferTypeBankAccount   = "transfer_banks" // 银行卡账户（线下）
)

// TransferTypeNames 提现方式名称表
var TransferTypeNames = map[string]string{
	TransferTypeWechatWallet:  "转账到微信零钱（线上）",
	TransferTypeWechatBanks:   "转账到银行卡账户（线上）",
	TransferTypeWechatQrcode:  "转账到微信收款码（线下）",
	TransferTypeAlipayQrcode:  "转账到支付宝收款码（线下）",
	TransferTypeAlipayAccount: "转账到支付宝账户（线下）",
	TransferTypeBankAccount:   "转账到银行卡账户（线下）",
}

// 回调场景与应答常量
const (
	NotifySceneOrder    = "order"   // 订单支付
	NotifyTokenVersion  = "v1"      // 回调令牌版本
	NotifyResponseOK    = "SUCCESS" // 手工通道回调应答
	NotifyResponseError = "Error: " // 失败应答前缀
)

// 领域事件与后台任务类型
const (
	TaskPaymentAudit   = "payment:audit"   // 凭证待审核
	TaskPaymentSuccess = "payment:success" // 支付完成
	TaskPaymentRefuse  = "payment:refuse"  // 凭证已驳回
	TaskPaymentCancel  = "payment:cancel"  // 支付已取消
	TaskPaymentConfirm = "payment:confirm" // 订单确认
	TaskTransferPayout = "transfer:payout" // 提现线上打款
	QueueDefault       = "default"         // 默认队列
)

// 授权对象与操作（casbin）
const (
	AuthzObjectRecord   = "payment.record"
	AuthzObjectRefund   = "payment.refund"
	AuthzObjectTransfer = "payment.transfer"
	AuthzObjectChannel  = "payment.channel"

	AuthzActionView  = "view"
	AuthzActionAudit = "audit"
	AuthzActionWrite = "write"
)

// 业务单号前缀
const (
	CodePrefixPayment  = "P"   // 支付单
	CodePrefixRefund   = "RT"  // 退款单
	CodePrefixTransfer = "TX"  // 提现单
	CodePrefixAudit    = "AUD" // 凭证审核交易号
)
