// Package ledger 实现即时结算的内部账户通道：免支付、余额支付与积分支付。
// 三种通道不经过外部网关，创建即结算，退款即时完成。
package ledger

import (
	"context"
	"strconv"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/shopspring/decimal"
)

// Deps 内部账户通道共享依赖
type Deps struct {
	Settlement channel.Settlement
	Balances   ledger.BalanceLedger
	Users      repository.UserRepository
	Records    repository.RecordRepository
}

func baseConfig(ch *models.PaymentChannel) map[string]interface{} {
	cfg := map[string]interface{}{
		"channel_type": ch.Type,
		"channel_code": ch.Code,
		"name":         ch.Name,
	}
	for key, value := range ch.Params {
		cfg[key] = value
	}
	return cfg
}

func queryRecord(ctx context.Context, records repository.RecordRepository, paymentCode string) (*channel.Response, error) {
	record, err := records.GetByCode(paymentCode)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return channel.Fail(service.ErrRecordNotFound.Error()), nil
	}
	if record.IsPaid() {
		return channel.Ok("已支付", record), nil
	}
	return channel.OkData("未支付", record, nil), nil
}

func refundVia(ctx context.Context, settlement channel.Settlement, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	if _, err := settlement.SyncRefund(ctx, paymentCode, reason, &amount, ""); err != nil {
		return -1, err.Error()
	}
	return 0, "退款已完成"
}

// EmptyStrategy 免支付通道，仅接受零元订单
type EmptyStrategy struct {
	ch   *models.PaymentChannel
	deps Deps
}

// NewEmptyStrategy 创建免支付通道
func NewEmptyStrategy(ch *models.PaymentChannel, deps Deps) *EmptyStrategy {
	return &EmptyStrategy{ch: ch, deps: deps}
}

// Config 通道配置
func (s *EmptyStrategy) Config(ctx context.Context) (map[string]interface{}, error) {
	return baseConfig(s.ch), nil
}

// Create 零元订单直接创建并结算
func (s *EmptyStrategy) Create(ctx context.Context, account channel.Account, input channel.CreateInput) (*channel.Response, error) {
	if !input.PayAmount.IsZero() {
		return channel.Fail("免支付通道仅支持零元订单"), nil
	}
	if err := s.deps.Settlement.CheckLeaveAmount(ctx, input.OrderNo, input.PayAmount, input.OrderAmount); err != nil {
		return nil, err
	}
	record, err := s.deps.Settlement.CreateAction(ctx, account, s.ch, "", input, channel.CreateOptions{
		AuditStatus: constants.AuditStatusApproved,
	})
	if err != nil {
		return nil, err
	}
	settled, _, err := s.deps.Settlement.UpdateAction(ctx, record.Code, service.GenerateCode(constants.CodePrefixAudit), input.PayAmount, "零元订单免支付")
	if err != nil {
		return nil, err
	}
	return channel.Ok("支付完成", settled), nil
}

// Query 查询支付单状态
func (s *EmptyStrategy) Query(ctx context.Context, paymentCode string) (*channel.Response, error) {
	return queryRecord(ctx, s.deps.Records, paymentCode)
}

// Notify 免支付通道无异步确认
func (s *EmptyStrategy) Notify(ctx context.Context, payload channel.NotifyPayload) (*channel.Response, error) {
	return channel.Ok(constants.NotifyResponseOK, nil), nil
}

// Refund 即时退款
func (s *EmptyStrategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	return refundVia(ctx, s.deps.Settlement, paymentCode, amount, reason)
}

// BalanceStrategy 余额支付通道
type BalanceStrategy struct {
	ch   *models.PaymentChannel
	deps Deps
}

// NewBalanceStrategy 创建余额支付通道
func NewBalanceStrategy(ch *models.PaymentChannel, deps Deps) *BalanceStrategy {
	return &BalanceStrategy{ch: ch, deps: deps}
}

// Config 通道配置
func (s *BalanceStrategy) Config(ctx context.Context) (map[string]interface{}, error) {
	return baseConfig(s.ch), nil
}

// Create 锁定余额后立即消费并结算
func (s *BalanceStrategy) Create(ctx context.Context, account channel.Account, input channel.CreateInput) (*channel.Response, error) {
	if err := s.deps.Settlement.CheckLeaveAmount(ctx, input.OrderNo, input.PayAmount, input.OrderAmount); err != nil {
		return nil, err
	}
	record, err := s.deps.Settlement.CreateAction(ctx, account, s.ch, "", input, channel.CreateOptions{
		AuditStatus: constants.AuditStatusApproved,
		UsedBalance: input.PayAmount,
	})
	if err != nil {
		return nil, err
	}

	// 锁定校验余额充足，随后立即解锁完成消费
	if err := s.deps.Balances.Lock(ctx, account.Unid, record.Code, "余额支付 "+input.OrderNo, input.PayAmount); err != nil {
		return nil, err
	}
	if err := s.deps.Balances.Unlock(ctx, record.Code); err != nil {
		return nil, err
	}

	settled, _, err := s.deps.Settlement.UpdateAction(ctx, record.Code, service.GenerateCode(constants.CodePrefixAudit), input.PayAmount, "余额支付")
	if err != nil {
		return nil, err
	}
	return channel.Ok("支付完成", settled), nil
}

// Query 查询支付单状态
func (s *BalanceStrategy) Query(ctx context.Context, paymentCode string) (*channel.Response, error) {
	return queryRecord(ctx, s.deps.Records, paymentCode)
}

// Notify 余额通道无异步确认
func (s *BalanceStrategy) Notify(ctx context.Context, payload channel.NotifyPayload) (*channel.Response, error) {
	return channel.Ok(constants.NotifyResponseOK, nil), nil
}

// Refund 即时退款并返还余额
func (s *BalanceStrategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	return refundVia(ctx, s.deps.Settlement, paymentCode, amount, reason)
}

// IntegralStrategy 积分支付通道
// 通道参数 rate 表示一元对应的积分数，默认 100。
type IntegralStrategy struct {
	ch   *models.PaymentChannel
	deps Deps
}

// NewIntegralStrategy 创建积分支付通道
func NewIntegralStrategy(ch *models.PaymentChannel, deps Deps) *IntegralStrategy {
	return &IntegralStrategy{ch: ch, deps: deps}
}

// Config 通道配置
func (s *IntegralStrategy) Config(ctx context.Context) (map[string]interface{}, error) {
	cfg := baseConfig(s.ch)
	cfg["rate"] = s.rate().String()
	return cfg, nil
}

func (s *IntegralStrategy) rate() decimal.Decimal {
	if raw := s.ch.Params.GetString("rate"); raw != "" {
		if rate, err := decimal.NewFromString(raw); err == nil && rate.GreaterThan(decimal.Zero) {
			return rate
		}
	}
	return decimal.NewFromInt(100)
}

// Create 扣减积分后立即结算
func (s *IntegralStrategy) Create(ctx context.Context, account channel.Account, input channel.CreateInput) (*channel.Response, error) {
	if err := s.deps.Settlement.CheckLeaveAmount(ctx, input.OrderNo, input.PayAmount, input.OrderAmount); err != nil {
		return nil, err
	}

	required := input.PayAmount.Mul(s.rate()).Ceil()
	user, err := s.deps.Users.GetByID(account.Unid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, service.ErrUserNotFound
	}
	if decimal.NewFromInt(user.Integral).LessThan(required) {
		return nil, service.ErrIntegralInsufficient
	}

	record, err := s.deps.Settlement.CreateAction(ctx, account, s.ch, "", input, channel.CreateOptions{
		AuditStatus:  constants.AuditStatusApproved,
		UsedIntegral: required,
	})
	if err != nil {
		return nil, err
	}
	if err := s.deps.Users.AddIntegral(account.Unid, -required.IntPart()); err != nil {
		return nil, err
	}

	settled, _, err := s.deps.Settlement.UpdateAction(ctx, record.Code, service.GenerateCode(constants.CodePrefixAudit), input.PayAmount,
		"积分支付 "+strconv.FormatInt(required.IntPart(), 10))
	if err != nil {
		return nil, err
	}
	return channel.Ok("支付完成", settled), nil
}

// Query 查询支付单状态
func (s *IntegralStrategy) Query(ctx context.Context, paymentCode string) (*channel.Response, error) {
	return queryRecord(ctx, s.deps.Records, paymentCode)
}

// Notify 积分通道无异步确认
func (s *IntegralStrategy) Notify(ctx context.Context, payload channel.NotifyPayload) (*channel.Response, error) {
	return channel.Ok(constants.NotifyResponseOK, nil), nil
}

// Refund 即时退款并返还积分
func (s *IntegralStrategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	return refundVia(ctx, s.deps.Settlement, paymentCode, amount, reason)
}
