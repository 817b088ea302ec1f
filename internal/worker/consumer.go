package worker

import (
	"context"
	"encoding/json"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/service"
	"github.com/payhub-next/internal/transferpay"

	"github.com/hibiken/asynq"
)

// OrderHook 订单系统挂接点。
// 支付事件经队列送达，订单侧实现按事件推进自身状态机。
type OrderHook interface {
	OnPaymentAudit(ctx context.Context, record *models.PaymentRecord) error
	OnPaymentSuccess(ctx context.Context, record *models.PaymentRecord) error
	OnPaymentRefuse(ctx context.Context, record *models.PaymentRecord) error
	OnPaymentCancel(ctx context.Context, record *models.PaymentRecord) error
	OnOrderConfirm(ctx context.Context, orderNo string, data map[string]interface{}) error
}

// LogOrderHook 默认挂接实现，仅记录事件
type LogOrderHook struct{}

func (LogOrderHook) OnPaymentAudit(_ context.Context, record *models.PaymentRecord) error {
	logger.Infow("order_hook_payment_audit", "code", record.Code, "order_no", record.OrderNo)
	return nil
}

func (LogOrderHook) OnPaymentSuccess(_ context.Context, record *models.PaymentRecord) error {
	logger.Infow("order_hook_payment_success", "code", record.Code, "order_no", record.OrderNo)
	return nil
}

func (LogOrderHook) OnPaymentRefuse(_ context.Context, record *models.PaymentRecord) error {
	logger.Infow("order_hook_payment_refuse", "code", record.Code, "order_no", record.OrderNo)
	return nil
}

func (LogOrderHook) OnPaymentCancel(_ context.Context, record *models.PaymentRecord) error {
	logger.Infow("order_hook_payment_cancel", "code", record.Code, "order_no", record.OrderNo)
	return nil
}

func (LogOrderHook) OnOrderConfirm(_ context.Context, orderNo string, _ map[string]interface{}) error {
	logger.Infow("order_hook_order_confirm", "order_no", orderNo)
	return nil
}

// Consumer 异步任务消费者
type Consumer struct {
	hook      OrderHook
	transfers *service.TransferService
	wechat    *transferpay.WechatClient
}

// NewConsumer 创建消费者。
// wechat 为 nil 时线上打款任务降级为仅推进状态，等待人工处理。
func NewConsumer(hook OrderHook, transfers *service.TransferService, wechat *transferpay.WechatClient) *Consumer {
	if hook == nil {
		hook = LogOrderHook{}
	}
	return &Consumer{
		hook:      hook,
		transfers: transfers,
		wechat:    wechat,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentAudit, c.handlePaymentEvent)
	mux.HandleFunc(queue.TaskPaymentSuccess, c.handlePaymentEvent)
	mux.HandleFunc(queue.TaskPaymentRefuse, c.handlePaymentEvent)
	mux.HandleFunc(queue.TaskPaymentCancel, c.handlePaymentEvent)
	mux.HandleFunc(queue.TaskPaymentConfirm, c.handlePaymentConfirm)
	mux.HandleFunc(queue.TaskTransferPayout, c.handleTransferPayout)
}

func (c *Consumer) handlePaymentEvent(ctx context.Context, task *asynq.Task) error {
	var payload queue.PaymentEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_event_unmarshal_failed", "task", task.Type(), "error", err)
		return err
	}
	record := &payload.Record
	if record.Code == "" {
		logger.Debugw("worker_payment_event_skip_invalid_payload", "task", task.Type())
		return nil
	}

	switch task.Type() {
	case queue.TaskPaymentAudit:
		return c.hook.OnPaymentAudit(ctx, record)
	case queue.TaskPaymentSuccess:
		return c.hook.OnPaymentSuccess(ctx, record)
	case queue.TaskPaymentRefuse:
		return c.hook.OnPaymentRefuse(ctx, record)
	case queue.TaskPaymentCancel:
		return c.hook.OnPaymentCancel(ctx, record)
	}
	logger.Debugw("worker_payment_event_skip_unknown", "task", task.Type(), "code", record.Code)
	return nil
}

func (c *Consumer) handlePaymentConfirm(ctx context.Context, task *asynq.Task) error {
	var payload queue.PaymentConfirmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_confirm_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderNo == "" {
		return nil
	}
	return c.hook.OnOrderConfirm(ctx, payload.OrderNo, payload.Data)
}

func (c *Consumer) handleTransferPayout(ctx context.Context, task *asynq.Task) error {
	var payload queue.TransferPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_transfer_payout_unmarshal_failed", "error", err)
		return err
	}
	if payload.Code == "" || c.transfers == nil {
		return nil
	}

	transfer, err := c.transfers.GetByCode(payload.Code)
	if err != nil {
		if err == service.ErrTransferNotFound {
			logger.Warnw("worker_transfer_payout_skip_not_found", "code", payload.Code)
			return nil
		}
		return err
	}
	if transfer.Status != constants.TransferStatusApproved {
		logger.Debugw("worker_transfer_payout_skip_status", "code", transfer.Code, "status", transfer.Status)
		return nil
	}
	if transfer.Type != constants.TransferTypeWechatWallet {
		logger.Infow("worker_transfer_payout_skip_manual_type", "code", transfer.Code, "type", transfer.Type)
		return nil
	}
	if c.wechat == nil {
		logger.Warnw("worker_transfer_payout_skip_no_client", "code", transfer.Code)
		return nil
	}

	changed, err := c.transfers.MarkDisbursing(ctx, transfer.Code)
	if err != nil {
		return err
	}
	if !changed {
		logger.Debugw("worker_transfer_payout_skip_raced", "code", transfer.Code)
		return nil
	}

	result, err := c.wechat.Payout(ctx, transferpay.PayoutInput{
		BatchNo: transfer.Code,
		Openid:  transfer.Openid,
		Amount:  transfer.Amount.Decimal.Sub(transfer.ChargeAmount.Decimal),
		Remark:  transfer.Remark,
	})
	if err != nil {
		if _, markErr := c.transfers.MarkPayoutFailed(ctx, transfer.Code, err.Error()); markErr != nil {
			logger.Errorw("worker_transfer_payout_mark_failed", "code", transfer.Code, "error", markErr)
		}
		logger.Errorw("worker_transfer_payout_failed", "code", transfer.Code, "error", err)
		return err
	}

	if _, err := c.transfers.MarkPaid(ctx, transfer.Code, result.BatchID); err != nil {
		return err
	}
	logger.Infow("worker_transfer_payout_done", "code", transfer.Code, "batch_id", result.BatchID)
	return nil
}
