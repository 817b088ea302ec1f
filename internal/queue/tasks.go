package queue

import (
	"encoding/json"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentAudit 凭证待审核事件
	TaskPaymentAudit = constants.TaskPaymentAudit
	// TaskPaymentSuccess 支付完成事件
	TaskPaymentSuccess = constants.TaskPaymentSuccess
	// TaskPaymentRefuse 凭证驳回事件
	TaskPaymentRefuse = constants.TaskPaymentRefuse
	// TaskPaymentCancel 支付取消事件
	TaskPaymentCancel = constants.TaskPaymentCancel
	// TaskPaymentConfirm 订单确认事件
	TaskPaymentConfirm = constants.TaskPaymentConfirm
	// TaskTransferPayout 提现线上打款任务
	TaskTransferPayout = constants.TaskTransferPayout
)

// PaymentEventPayload 支付事件载荷，携带支付单当前完整快照
type PaymentEventPayload struct {
	Record models.PaymentRecord `json:"record"`
}

// PaymentConfirmPayload 订单确认事件载荷
type PaymentConfirmPayload struct {
	OrderNo string                 `json:"order_no"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// TransferPayoutPayload 提现打款任务载荷
type TransferPayoutPayload struct {
	Code string `json:"code"`
}

// NewPaymentEventTask 创建支付事件任务
func NewPaymentEventTask(taskType string, payload PaymentEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewPaymentConfirmTask 创建订单确认任务
func NewPaymentConfirmTask(payload PaymentConfirmPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentConfirm, body), nil
}

// NewTransferPayoutTask 创建提现打款任务
func NewTransferPayoutTask(payload TransferPayoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransferPayout, body), nil
}
