package epay

import (
	"context"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/shopspring/decimal"
)

// Strategy 易支付网关通道
type Strategy struct {
	ch         *models.PaymentChannel
	cfg        *Config
	client     *Client
	settlement channel.Settlement
	records    repository.RecordRepository
	refunds    repository.RefundRepository
}

// New 创建易支付通道，配置不完整时返回错误
func New(ch *models.PaymentChannel, settlement channel.Settlement, records repository.RecordRepository, refunds repository.RefundRepository) (*Strategy, error) {
	cfg, err := ParseConfig(ch.Params)
	if err != nil {
		return nil, err
	}
	return &Strategy{
		ch:         ch,
		cfg:        cfg,
		client:     NewClient(cfg),
		settlement: settlement,
		records:    records,
		refunds:    refunds,
	}, nil
}

// Config 通道配置，商户密钥不下发
func (s *Strategy) Config(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"channel_type": s.ch.Type,
		"channel_code": s.ch.Code,
		"name":         s.ch.Name,
		"gateway_url":  s.cfg.GatewayURL,
		"pay_type":     s.cfg.PayType,
	}, nil
}

// Create 创建支付单并向网关下单，返回支付链接或收款码
func (s *Strategy) Create(ctx context.Context, account channel.Account, input channel.CreateInput) (*channel.Response, error) {
	if err := s.settlement.CheckLeaveAmount(ctx, input.OrderNo, input.PayAmount, input.OrderAmount); err != nil {
		return nil, err
	}
	record, err := s.settlement.CreateAction(ctx, account, s.ch, "", input, channel.CreateOptions{
		AuditStatus: constants.AuditStatusApproved,
	})
	if err != nil {
		return nil, err
	}

	notifyURL, err := s.settlement.NotifyURL(constants.NotifySceneOrder, input.OrderNo, s.ch.Code, map[string]string{
		"code": record.Code,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.client.CreatePayment(ctx, CreateInput{
		OutTradeNo: record.Code,
		Amount:     input.PayAmount.StringFixed(2),
		Subject:    input.OrderTitle,
		NotifyURL:  notifyURL,
		ReturnURL:  input.ReturnURL,
	})
	if err != nil {
		logger.Warnw("epay_create_failed", "code", record.Code, "error", err)
		return nil, err
	}

	return channel.OkData("请完成支付", record, map[string]interface{}{
		"pay_url":  result.PayURL,
		"qr_code":  result.QRCode,
		"trade_no": result.TradeNo,
	}), nil
}

// Query 主动向网关查单，已支付则触发一次幂等结算
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

	result, err := s.client.QueryOrder(ctx, paymentCode)
	if err != nil {
		return nil, err
	}
	if !result.Paid {
		return channel.OkData("未支付", record, nil), nil
	}

	amount, err := decimal.NewFromString(result.Amount)
	if err != nil {
		amount = record.PaymentAmount.Decimal
	}
	settled, updated, err := s.settlement.UpdateAction(ctx, paymentCode, result.TradeNo, amount, "网关查单确认")
	if err != nil {
		return nil, err
	}
	if !updated {
		return channel.Ok("已支付", record), nil
	}
	return channel.Ok("已支付", settled), nil
}

// Notify 处理网关异步回调：验签后幂等结算，重复通知直接返回成功
func (s *Strategy) Notify(ctx context.Context, payload channel.NotifyPayload) (*channel.Response, error) {
	if err := s.client.VerifyCallback(payload.Form); err != nil {
		return nil, err
	}
	if payload.Form.Get("trade_status") != "TRADE_SUCCESS" {
		return channel.Ok("success", nil), nil
	}

	payCode := payload.Form.Get("out_trade_no")
	if payCode == "" {
		payCode = payload.Extra["code"]
	}
	tradeNo := payload.Form.Get("trade_no")
	amount, err := decimal.NewFromString(payload.Form.Get("money"))
	if err != nil {
		amount = decimal.Zero
	}

	record, updated, err := s.settlement.UpdateAction(ctx, payCode, tradeNo, amount, "易支付回调")
	if err != nil {
		return nil, err
	}
	if !updated {
		// 已结算或未知单号的重复回调静默通过
		return channel.Ok("success", nil), nil
	}
	return channel.Ok("success", record), nil
}

// Refund 开立处理中退款单并请求网关退款，网关受理成功后立即结算退款单
func (s *Strategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	record, err := s.settlement.SyncRefund(ctx, paymentCode, reason, &amount, "")
	if err != nil {
		return -1, err.Error()
	}

	refunds, err := s.refunds.ListByRecord(record.Code)
	if err != nil {
		return -1, err.Error()
	}
	var pending *models.PaymentRefund
	for i := range refunds {
		if refunds[i].RefundStatus == constants.RefundStatusPending {
			pending = &refunds[i]
			break
		}
	}
	if pending == nil {
		return 0, "退款已完成"
	}

	if err := s.client.RefundOrder(ctx, record.PaymentTrade, amount.StringFixed(2)); err != nil {
		logger.Warnw("epay_refund_failed", "code", record.Code, "refund_code", pending.Code, "error", err)
		return -1, err.Error()
	}
	if err := s.settlement.SettleRefund(ctx, pending.Code, record.PaymentTrade, "REFUND_SUCCESS", true); err != nil {
		return -1, err.Error()
	}
	return 0, "退款已受理"
}
