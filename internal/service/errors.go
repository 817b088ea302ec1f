package service

import "errors"

// 业务错误定义，用户可见错误直接以提示语为错误文案
var (
	// 支付单据
	ErrProofRequired     = errors.New("支付凭证不能为空")
	ErrOrderAuditPending = errors.New("订单存在待审核的支付凭证")
	ErrAmountOverflow    = errors.New("支付金额超出订单剩余可付金额")
	ErrAlreadyPaid       = errors.New("订单已完成支付")
	ErrRecordExists      = errors.New("支付单已存在")
	ErrRecordNotFound    = errors.New("支付单不存在")
	ErrRecordNotPaid     = errors.New("支付单未完成支付")
	ErrRecordNotPending  = errors.New("支付单不在待审核状态")
	ErrRefundOverflow    = errors.New("退款金额超出支付单剩余可退金额")
	ErrRefundAmountBad   = errors.New("退款金额无效")

	// 支付通道
	ErrChannelNotFound = errors.New("支付通道不存在")
	ErrChannelDisabled = errors.New("支付通道已停用")
	ErrChannelConfig   = errors.New("支付通道配置无效")

	// 回调令牌
	ErrNotifyTokenInvalid = errors.New("回调令牌无效")

	// 余额与积分
	ErrBalanceInsufficient  = errors.New("账户余额不足")
	ErrIntegralInsufficient = errors.New("账户积分不足")

	// 提现
	ErrTransferNotFound     = errors.New("提现单不存在")
	ErrTransferDisabled     = errors.New("提现功能未开启")
	ErrTransferTypeDisabled = errors.New("该提现方式未开启")
	ErrTransferAmountRange  = errors.New("提现金额超出允许范围")
	ErrTransferDailyLimit   = errors.New("今日提现次数已达上限")
	ErrTransferFieldMissing = errors.New("提现收款信息不完整")

	// 账号与权限
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrAuditDenied        = errors.New("无权执行该审核操作")
)
