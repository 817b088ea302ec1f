package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService 结算编排服务，支付账本的唯一写入方。
// 所有多步账本变更都在单事务内完成，通道实现只能通过它请求状态迁移。
type SettlementService struct {
	db          *gorm.DB
	records     repository.RecordRepository
	refunds     repository.RefundRepository
	users       repository.UserRepository
	balances    ledger.BalanceLedger
	queueClient *queue.Client
	tokens      *NotifyTokenCodec
	notifyBase  string
}

// NewSettlementService 创建结算编排服务
func NewSettlementService(
	db *gorm.DB,
	records repository.RecordRepository,
	refunds repository.RefundRepository,
	users repository.UserRepository,
	balances ledger.BalanceLedger,
	queueClient *queue.Client,
	tokens *NotifyTokenCodec,
	notifyBase string,
) *SettlementService {
	return &SettlementService{
		db:          db,
		records:     records,
		refunds:     refunds,
		users:       users,
		balances:    balances,
		queueClient: queueClient,
		tokens:      tokens,
		notifyBase:  strings.TrimRight(strings.TrimSpace(notifyBase), "/"),
	}
}

// IsSelfSettled 判断通道类型是否为即时结算（退款即时完成）
func IsSelfSettled(channelType string) bool {
	for _, t := range constants.SelfSettledChannelTypes {
		if t == channelType {
			return true
		}
	}
	return false
}

// CheckLeaveAmount 校验订单剩余可付金额。
// 订单存在待审核凭证时强制先完成人工审核；已付累计加本次超过订单金额时拒绝。
func (s *SettlementService) CheckLeaveAmount(ctx context.Context, orderNo string, payAmount, orderAmount decimal.Decimal) error {
	records := s.records.WithTx(s.db.WithContext(ctx))
	pending, err := records.CountPendingAudit(orderNo)
	if err != nil {
		return err
	}
	if pending > 0 {
		return ErrOrderAuditPending
	}
	paid, err := records.SumPaidAmount(orderNo)
	if err != nil {
		return err
	}
	if paid.Add(payAmount).GreaterThan(orderAmount) {
		return ErrAmountOverflow
	}
	return nil
}

// CreateAction 幂等创建支付单。
// 订单已付满或单号已存在时拒绝，落库成功后按通道初始状态发出事件。
func (s *SettlementService) CreateAction(
	ctx context.Context,
	account channel.Account,
	ch *models.PaymentChannel,
	payCode string,
	input channel.CreateInput,
	opts channel.CreateOptions,
) (*models.PaymentRecord, error) {
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	payCode = strings.TrimSpace(payCode)
	if payCode == "" {
		payCode = GenerateCode(constants.CodePrefixPayment)
	}

	var record *models.PaymentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := s.records.WithTx(tx)

		paid, err := records.SumPaidAmount(input.OrderNo)
		if err != nil {
			return err
		}
		if paid.GreaterThanOrEqual(input.OrderAmount) && input.OrderAmount.GreaterThan(decimal.Zero) {
			return ErrAlreadyPaid
		}
		existing, err := records.GetByCode(payCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrRecordExists
		}

		record = &models.PaymentRecord{
			Unid:          account.Unid,
			Usid:          account.Usid,
			Code:          payCode,
			OrderNo:       input.OrderNo,
			OrderName:     input.OrderTitle,
			OrderAmount:   models.NewMoneyFromDecimal(input.OrderAmount),
			ChannelType:   ch.Type,
			ChannelCode:   ch.Code,
			PaymentAmount: models.NewMoneyFromDecimal(input.PayAmount.Round(2)),
			PaymentImages: input.ProofImage,
			PaymentRemark: input.Remark,
			AuditStatus:   opts.AuditStatus,
			UsedBalance:   models.NewMoneyFromDecimal(opts.UsedBalance.Round(2)),
			UsedIntegral:  models.NewMoneyFromDecimal(opts.UsedIntegral.Round(2)),
			UsedPayment:   models.NewMoneyFromDecimal(input.PayAmount.Round(2)),
		}
		// code 唯一索引兜底并发重复提交，第二次插入失败关闭而非覆盖
		return records.Create(record)
	})
	if err != nil {
		return nil, err
	}

	if record.AuditStatus == constants.AuditStatusPending {
		s.emitEvent(queue.TaskPaymentAudit, record)
	}
	logger.Infow("payment_record_created",
		"code", record.Code,
		"order_no", record.OrderNo,
		"channel_type", record.ChannelType,
		"channel_code", record.ChannelCode,
		"amount", record.PaymentAmount.String(),
	)
	return record, nil
}

// UpdateAction 幂等结算支付单。
// 仅迁移仍处于未付状态的记录，未命中时返回 updated=false 而非错误，
// 重复或乱序的网关回调因此静默通过。
func (s *SettlementService) UpdateAction(ctx context.Context, payCode, tradeID string, amount decimal.Decimal, remark string) (*models.PaymentRecord, bool, error) {
	var record *models.PaymentRecord
	var updated bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		values := map[string]interface{}{
			"payment_status": constants.PaymentStatusPaid,
			"payment_trade":  tradeID,
			"payment_time":   now,
			"payment_remark": remark,
		}
		if amount.GreaterThan(decimal.Zero) {
			values["payment_amount"] = models.NewMoneyFromDecimal(amount.Round(2))
		}
		result := tx.Model(&models.PaymentRecord{}).
			Where("code = ? AND payment_status = ?", payCode, constants.PaymentStatusUnpaid).
			Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		updated = true
		var err error
		record, err = s.records.WithTx(tx).GetByCode(payCode)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if !updated {
		logger.Debugw("payment_settle_noop", "code", payCode, "trade", tradeID)
		return nil, false, nil
	}

	s.emitEvent(queue.TaskPaymentSuccess, record)
	logger.Infow("payment_record_settled",
		"code", record.Code,
		"order_no", record.OrderNo,
		"trade", tradeID,
	)
	return record, true, nil
}

// SyncRefund 退款对账。
// 在同一事务内可选开立退款单并重算退款聚合，完成后将审核状态
// 重置为已拒并发出取消事件。即时结算通道退款立即成功并返还余额与积分，
// 网关通道退款保持处理中，由通道自身退款流程结算。
func (s *SettlementService) SyncRefund(ctx context.Context, paymentCode, reason string, amount *decimal.Decimal, refundAccount string) (*models.PaymentRecord, error) {
	var record *models.PaymentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := s.records.WithTx(tx)
		refunds := s.refunds.WithTx(tx)

		var err error
		record, err = records.GetByCode(paymentCode)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrRecordNotFound
		}
		if record.PaymentStatus != constants.PaymentStatusPaid {
			return ErrRecordNotPaid
		}

		if amount != nil {
			if err := s.createRefund(ctx, tx, record, amount.Round(2), reason, refundAccount); err != nil {
				return err
			}
		}

		// 事务内重算退款聚合，避免并发部分退款丢失更新
		total, err := refunds.SumSucceededAmount(record.Code)
		if err != nil {
			return err
		}
		now := time.Now()
		record.RefundAmount = models.NewMoneyFromDecimal(total)
		if total.GreaterThan(decimal.Zero) {
			record.RefundStatus = constants.RecordRefundDone
		}
		record.AuditStatus = constants.AuditStatusRejected
		record.AuditTime = &now
		record.AuditRemark = fmt.Sprintf("已申请取消支付，%s", reason)
		return records.Update(record)
	})
	if err != nil {
		return nil, err
	}

	s.emitEvent(queue.TaskPaymentCancel, record)
	logger.Infow("payment_refund_synced",
		"code", record.Code,
		"order_no", record.OrderNo,
		"refund_amount", record.RefundAmount.String(),
	)
	return record, nil
}

func (s *SettlementService) createRefund(ctx context.Context, tx *gorm.DB, record *models.PaymentRecord, amount decimal.Decimal, reason, refundAccount string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrRefundAmountBad
	}
	refunds := s.refunds.WithTx(tx)
	succeeded, err := refunds.SumSucceededAmount(record.Code)
	if err != nil {
		return err
	}
	if succeeded.Add(amount).GreaterThan(record.PaymentAmount.Decimal) {
		return ErrRefundOverflow
	}

	// 退回的余额与积分按本次退款占实付金额的比例分摊
	ratio := decimal.Zero
	if record.PaymentAmount.Decimal.GreaterThan(decimal.Zero) {
		ratio = amount.Div(record.PaymentAmount.Decimal)
	}
	usedBalance := record.UsedBalance.Decimal.Mul(ratio).Round(2)
	usedIntegral := record.UsedIntegral.Decimal.Mul(ratio).Round(0)
	usedPayment := record.UsedPayment.Decimal.Mul(ratio).Round(2)

	refund := &models.PaymentRefund{
		Unid:          record.Unid,
		Usid:          record.Usid,
		Code:          GenerateCode(constants.CodePrefixRefund),
		RecordCode:    record.Code,
		RefundAmount:  models.NewMoneyFromDecimal(amount),
		RefundAccount: refundAccount,
		RefundRemark:  reason,
		UsedBalance:   models.NewMoneyFromDecimal(usedBalance),
		UsedIntegral:  models.NewMoneyFromDecimal(usedIntegral),
		UsedPayment:   models.NewMoneyFromDecimal(usedPayment),
	}

	if IsSelfSettled(record.ChannelType) {
		now := time.Now()
		refund.RefundStatus = constants.RefundStatusSucceeded
		refund.RefundTime = &now
		refund.RefundTrade = uuid.NewString()

		if usedBalance.GreaterThan(decimal.Zero) {
			if err := s.balances.WithTx(tx).Credit(ctx, record.Unid, refund.Code, "退款返还余额", usedBalance); err != nil {
				return err
			}
		}
		if usedIntegral.GreaterThan(decimal.Zero) {
			if err := s.users.WithTx(tx).AddIntegral(record.Unid, usedIntegral.IntPart()); err != nil {
				return err
			}
		}
	} else {
		refund.RefundStatus = constants.RefundStatusPending
	}

	return refunds.Create(refund)
}

// SettleRefund 结算处理中的退款单。
// 仅迁移仍处于处理中状态的退款，命中后在同一事务内重算所属支付单聚合。
func (s *SettlementService) SettleRefund(ctx context.Context, refundCode, trade, statusCode string, succeeded bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refunds := s.refunds.WithTx(tx)
		refund, err := refunds.GetByCode(refundCode)
		if err != nil {
			return err
		}
		if refund == nil {
			return ErrRecordNotFound
		}
		if refund.RefundStatus != constants.RefundStatusPending {
			return nil
		}

		now := time.Now()
		refund.RefundTime = &now
		refund.RefundTrade = trade
		refund.RefundScode = statusCode
		if succeeded {
			refund.RefundStatus = constants.RefundStatusSucceeded
		} else {
			refund.RefundStatus = constants.RefundStatusCancelled
		}
		if err := refunds.Update(refund); err != nil {
			return err
		}

		records := s.records.WithTx(tx)
		record, err := records.GetByCode(refund.RecordCode)
		if err != nil || record == nil {
			return err
		}
		total, err := refunds.SumSucceededAmount(record.Code)
		if err != nil {
			return err
		}
		record.RefundAmount = models.NewMoneyFromDecimal(total)
		if total.GreaterThan(decimal.Zero) {
			record.RefundStatus = constants.RecordRefundDone
		}
		return records.Update(record)
	})
}

// NotifyURL 构造带签名令牌的回调地址
func (s *SettlementService) NotifyURL(scene, orderNo, channelCode string, extra map[string]string) (string, error) {
	token, err := s.tokens.Encode(scene, orderNo, channelCode, extra)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/notify/%s", s.notifyBase, token), nil
}

// Tokens 回调令牌编解码器
func (s *SettlementService) Tokens() *NotifyTokenCodec {
	return s.tokens
}

func (s *SettlementService) emitEvent(taskType string, record *models.PaymentRecord) {
	if record == nil {
		return
	}
	if err := s.queueClient.EnqueuePaymentEvent(taskType, record); err != nil {
		logger.Warnw("payment_event_enqueue_failed",
			"task", taskType,
			"code", record.Code,
			"error", err,
		)
	}
}

// EmitRefuse 发出凭证驳回事件
func (s *SettlementService) EmitRefuse(record *models.PaymentRecord) {
	s.emitEvent(queue.TaskPaymentRefuse, record)
}

// EmitSuccess 重发支付完成事件，用于下游消费失败后的人工补发
func (s *SettlementService) EmitSuccess(record *models.PaymentRecord) {
	s.emitEvent(queue.TaskPaymentSuccess, record)
}

// EmitConfirm 发出订单确认事件
func (s *SettlementService) EmitConfirm(orderNo string, data map[string]interface{}) {
	if err := s.queueClient.EnqueuePaymentConfirm(queue.PaymentConfirmPayload{OrderNo: orderNo, Data: data}); err != nil {
		logger.Warnw("payment_event_enqueue_failed",
			"task", queue.TaskPaymentConfirm,
			"order_no", orderNo,
			"error", err,
		)
	}
}
