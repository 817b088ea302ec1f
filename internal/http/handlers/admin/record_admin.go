package admin

import (
	"errors"

	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListRecords 分页查询支付单
func (h *Handler) ListRecords(c *gin.Context) {
	page, pageSize := pageParams(c)
	records, total, err := h.RecordService.ListAdmin(repository.RecordListFilter{
		Page:          page,
		PageSize:      pageSize,
		OrderNo:       c.Query("order_no"),
		Code:          c.Query("code"),
		ChannelType:   c.Query("channel_type"),
		ChannelCode:   c.Query("channel_code"),
		PaymentStatus: intFilter(c, "payment_status"),
		AuditStatus:   intFilter(c, "audit_status"),
		RefundStatus:  intFilter(c, "refund_status"),
		CreatedFrom:   timeFilter(c, "created_from"),
		CreatedTo:     timeFilter(c, "created_to"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付单失败", err)
		return
	}
	response.Success(c, gin.H{
		"list":  records,
		"total": total,
	})
}

// GetRecord 查询单条支付单与其退款单
func (h *Handler) GetRecord(c *gin.Context) {
	code := c.Param("code")
	record, err := h.RecordService.GetByCode(code)
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付单失败", err)
		return
	}
	if record == nil {
		respondError(c, response.CodeNotFound, "支付单不存在", nil)
		return
	}

	refunds, err := h.RefundRepo.ListByRecord(code)
	if err != nil {
		respondError(c, response.CodeInternal, "查询退款单失败", err)
		return
	}
	response.Success(c, gin.H{
		"record":  record,
		"refunds": refunds,
	})
}

// AuditRecordRequest 支付凭证审核请求
type AuditRecordRequest struct {
	Approve bool   `json:"approve"`
	Remark  string `json:"remark"`
}

// AuditRecord 审核凭证支付单
func (h *Handler) AuditRecord(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AuditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	record, err := h.RecordService.Audit(c.Request.Context(), adminID, c.Param("code"), req.Approve, req.Remark)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondError(c, response.CodeNotFound, err.Error(), nil)
		case errors.Is(err, service.ErrAuditDenied), errors.Is(err, service.ErrRecordNotPending):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrAlreadyPaid):
			respondError(c, response.CodeConflict, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "审核失败", err)
		}
		return
	}
	response.Success(c, record)
}

// ResendSuccess 对已支付单补发支付完成事件
func (h *Handler) ResendSuccess(c *gin.Context) {
	record, err := h.RecordService.ResendSuccess(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondError(c, response.CodeNotFound, err.Error(), nil)
		case errors.Is(err, service.ErrRecordNotPaid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "补发事件失败", err)
		}
		return
	}
	response.Success(c, record)
}

// CancelOrderRequest 取消订单支付请求
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder 取消订单下全部已付支付单的剩余金额
func (h *Handler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	results, err := h.RecordService.CancelOrder(c.Request.Context(), c.Param("order_no"), req.Reason)
	if err != nil {
		respondError(c, response.CodeInternal, "取消支付失败", err)
		return
	}
	response.Success(c, results)
}

// CreateRefundRequest 发起退款请求
type CreateRefundRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Reason  string          `json:"reason"`
	Account string          `json:"account"`
}

// CreateRefund 对支付单发起退款
func (h *Handler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	record, err := h.SettlementService.SyncRefund(c.Request.Context(), c.Param("code"), req.Reason, &req.Amount, req.Account)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondError(c, response.CodeNotFound, err.Error(), nil)
		case errors.Is(err, service.ErrRecordNotPaid),
			errors.Is(err, service.ErrRefundOverflow),
			errors.Is(err, service.ErrRefundAmountBad):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "发起退款失败", err)
		}
		return
	}
	response.Success(c, record)
}

// ListRefunds 分页查询退款单
func (h *Handler) ListRefunds(c *gin.Context) {
	page, pageSize := pageParams(c)
	refunds, total, err := h.RecordService.ListRefundsAdmin(repository.RefundListFilter{
		Page:        page,
		PageSize:    pageSize,
		RecordCode:  c.Query("record_code"),
		Status:      intFilter(c, "status"),
		CreatedFrom: timeFilter(c, "created_from"),
		CreatedTo:   timeFilter(c, "created_to"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询退款单失败", err)
		return
	}
	response.Success(c, gin.H{
		"list":  refunds,
		"total": total,
	})
}

// SettleRefundRequest 人工确认退款结果请求
type SettleRefundRequest struct {
	Trade      string `json:"trade"`
	StatusCode string `json:"status_code"`
	Succeeded  bool   `json:"succeeded"`
}

// SettleRefund 人工确认网关退款单的终态
func (h *Handler) SettleRefund(c *gin.Context) {
	var req SettleRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	if err := h.SettlementService.SettleRefund(c.Request.Context(), c.Param("code"), req.Trade, req.StatusCode, req.Succeeded); err != nil {
		respondError(c, response.CodeInternal, "确认退款结果失败", err)
		return
	}
	response.Success(c, nil)
}
