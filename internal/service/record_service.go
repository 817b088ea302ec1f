package service

import (
	"context"
	"time"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"

	"gorm.io/gorm"
)

// RecordService 支付单管理服务，承载人工审核与订单级取消
type RecordService struct {
	db         *gorm.DB
	records    repository.RecordRepository
	refunds    repository.RefundRepository
	channels   repository.ChannelRepository
	registry   *channel.Registry
	settlement *SettlementService
}

// NewRecordService 创建支付单管理服务
func NewRecordService(
	db *gorm.DB,
	records repository.RecordRepository,
	refunds repository.RefundRepository,
	channels repository.ChannelRepository,
	registry *channel.Registry,
	settlement *SettlementService,
) *RecordService {
	return &RecordService{
		db:         db,
		records:    records,
		refunds:    refunds,
		channels:   channels,
		registry:   registry,
		settlement: settlement,
	}
}

// GetByCode 按单号查询支付单
func (s *RecordService) GetByCode(code string) (*models.PaymentRecord, error) {
	record, err := s.records.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// ListAdmin 管理端支付单列表
func (s *RecordService) ListAdmin(filter repository.RecordListFilter) ([]models.PaymentRecord, int64, error) {
	return s.records.ListAdmin(filter)
}

// ListRefundsAdmin 管理端退款单列表
func (s *RecordService) ListRefundsAdmin(filter repository.RefundListFilter) ([]models.PaymentRefund, int64, error) {
	return s.refunds.ListAdmin(filter)
}

// ListByOrder 按订单查询支付单
func (s *RecordService) ListByOrder(orderNo string) ([]models.PaymentRecord, error) {
	return s.records.ListByOrder(orderNo)
}

// ResendSuccess 对已支付单重发支付完成事件，下游消费失败后人工补发
func (s *RecordService) ResendSuccess(ctx context.Context, payCode string) (*models.PaymentRecord, error) {
	record, err := s.GetByCode(payCode)
	if err != nil {
		return nil, err
	}
	if !record.IsPaid() {
		return nil, ErrRecordNotPaid
	}
	s.settlement.EmitSuccess(record)
	logger.Infow("payment_success_resent", "code", record.Code, "order_no", record.OrderNo)
	return record, nil
}

// Audit 人工审核凭证支付单。
// 通过时以审核交易号走幂等结算；驳回时仅重置审核状态并发出驳回事件。
func (s *RecordService) Audit(ctx context.Context, operator uint, payCode string, approve bool, remark string) (*models.PaymentRecord, error) {
	record, err := s.records.GetByCode(payCode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	if record.ChannelType != constants.ChannelTypeVoucher {
		return nil, ErrAuditDenied
	}
	if record.AuditStatus != constants.AuditStatusPending {
		return nil, ErrRecordNotPending
	}

	now := time.Now()
	if approve {
		settled, updated, err := s.settlement.UpdateAction(ctx, payCode,
			GenerateCode(constants.CodePrefixAudit), record.PaymentAmount.Decimal, "支付凭证审核通过")
		if err != nil {
			return nil, err
		}
		if updated {
			record = settled
		}
		record.AuditUser = operator
		record.AuditTime = &now
		record.AuditStatus = constants.AuditStatusApproved
		record.AuditRemark = remark
		if err := s.records.Update(record); err != nil {
			return nil, err
		}
		logger.Infow("payment_audit_approved", "code", payCode, "operator", operator)
		return record, nil
	}

	record.AuditUser = operator
	record.AuditTime = &now
	record.AuditStatus = constants.AuditStatusRejected
	record.AuditRemark = remark
	if err := s.records.Update(record); err != nil {
		return nil, err
	}
	s.settlement.EmitRefuse(record)
	logger.Infow("payment_audit_rejected", "code", payCode, "operator", operator)
	return record, nil
}

// CancelResult 订单取消中单条支付单的退款结果
type CancelResult struct {
	Code    string `json:"code"`    // 支付单号
	Result  int    `json:"result"`  // 退款结果码，0 成功
	Message string `json:"message"` // 结果描述
}

// CancelOrder 取消订单的全部已付支付单。
// 单笔退款失败不中断整体流程，逐条返回结果。
func (s *RecordService) CancelOrder(ctx context.Context, orderNo, reason string) ([]CancelResult, error) {
	records, err := s.records.ListByOrder(orderNo)
	if err != nil {
		return nil, err
	}

	results := make([]CancelResult, 0, len(records))
	for i := range records {
		record := &records[i]
		if !record.IsPaid() || record.PaymentStatus == constants.PaymentStatusCancelled {
			continue
		}
		remaining := record.PaymentAmount.Decimal.Sub(record.RefundAmount.Decimal)
		if remaining.Sign() <= 0 {
			continue
		}

		strategy, err := s.resolveStrategy(record.ChannelCode)
		if err != nil {
			results = append(results, CancelResult{Code: record.Code, Result: -1, Message: err.Error()})
			continue
		}
		code, message := strategy.Refund(ctx, record.Code, remaining, reason)
		if code != 0 {
			logger.Warnw("payment_cancel_refund_failed",
				"order_no", orderNo,
				"code", record.Code,
				"message", message,
			)
		}
		results = append(results, CancelResult{Code: record.Code, Result: code, Message: message})
	}
	return results, nil
}

// Confirm 订单确认收货，向订单模块发出确认事件
func (s *RecordService) Confirm(ctx context.Context, orderNo string, data map[string]interface{}) {
	s.settlement.EmitConfirm(orderNo, data)
}

func (s *RecordService) resolveStrategy(channelCode string) (channel.Strategy, error) {
	ch, err := s.channels.GetByCode(channelCode)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	return s.registry.Resolve(ch)
}
