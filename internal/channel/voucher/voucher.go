// Package voucher 实现凭证支付通道（线下转账后上传凭证，人工审核确认）。
package voucher

import (
	"context"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/shopspring/decimal"
)

// Strategy 凭证支付通道
type Strategy struct {
	ch         *models.PaymentChannel
	settlement channel.Settlement
	records    repository.RecordRepository
}

// New 创建凭证支付通道
func New(ch *models.PaymentChannel, settlement channel.Settlement, records repository.RecordRepository) *Strategy {
	return &Strategy{ch: ch, settlement: settlement, records: records}
}

// Config 通道配置，收款账户信息随配置下发
func (s *Strategy) Config(ctx context.Context) (map[string]interface{}, error) {
	cfg := map[string]interface{}{
		"channel_type": s.ch.Type,
		"channel_code": s.ch.Code,
		"name":         s.ch.Name,
	}
	for key, value := range s.ch.Params {
		cfg[key] = value
	}
	return cfg, nil
}

// Create 提交支付凭证，支付单进入待审核状态
func (s *Strategy) Create(ctx context.Context, account channel.Account, input channel.CreateInput) (*channel.Response, error) {
	if input.ProofImage == "" {
		return nil, service.ErrProofRequired
	}
	if err := s.settlement.CheckLeaveAmount(ctx, input.OrderNo, input.PayAmount, input.OrderAmount); err != nil {
		return nil, err
	}
	record, err := s.settlement.CreateAction(ctx, account, s.ch, "", input, channel.CreateOptions{
		AuditStatus: constants.AuditStatusPending,
	})
	if err != nil {
		return nil, err
	}
	return channel.Ok("凭证已提交，等待审核", record), nil
}

// Query 查询支付单审核与结算状态
func (s *Strategy) Query(ctx context.Context, paymentCode string) (*channel.Response, error) {
	record, err := s.records.GetByCode(paymentCode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return channel.Fail(service.ErrRecordNotFound.Error()), nil
	}
	if record.IsPaid() {
		return channel.Ok("已支付", record), nil
	}
	if record.AuditStatus == constants.AuditStatusPending {
		return channel.OkData("待审核", record, nil), nil
	}
	return channel.OkData("未支付", record, nil), nil
}

// Notify 凭证通道的回调只做幂等确认：已结算返回成功，未结算不改写任何状态
func (s *Strategy) Notify(ctx context.Context, payload channel.NotifyPayload) (*channel.Response, error) {
	code := payload.Extra["code"]
	if code == "" {
		return channel.Ok(constants.NotifyResponseOK, nil), nil
	}
	record, err := s.records.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if record != nil && record.IsPaid() {
		return channel.Ok(constants.NotifyResponseOK, record), nil
	}
	return channel.Ok(constants.NotifyResponseOK, nil), nil
}

// Refund 凭证支付退款即时完成
func (s *Strategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	if _, err := s.settlement.SyncRefund(ctx, paymentCode, reason, &amount, ""); err != nil {
		return -1, err.Error()
	}
	return 0, "退款已完成"
}
