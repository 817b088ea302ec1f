package admin

import (
	"errors"

	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListTransfers 分页查询提现单
func (h *Handler) ListTransfers(c *gin.Context) {
	page, pageSize := pageParams(c)
	transfers, total, err := h.TransferService.ListAdmin(repository.TransferListFilter{
		Page:        page,
		PageSize:    pageSize,
		Type:        c.Query("type"),
		Code:        c.Query("code"),
		Status:      intFilter(c, "status"),
		AuditStatus: intFilter(c, "audit_status"),
		CreatedFrom: timeFilter(c, "created_from"),
		CreatedTo:   timeFilter(c, "created_to"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询提现单失败", err)
		return
	}
	response.Success(c, gin.H{
		"list":  transfers,
		"total": total,
	})
}

// AuditTransferRequest 提现审核请求
type AuditTransferRequest struct {
	Approve bool   `json:"approve"`
	Remark  string `json:"remark"`
}

// AuditTransfer 审核提现申请。
// 拒绝会作废余额锁定，通过后线上方式进入自动打款队列。
func (h *Handler) AuditTransfer(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AuditTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	transfer, err := h.TransferService.AdminAudit(c.Request.Context(), adminID, c.Param("code"), req.Approve, req.Remark)
	if err != nil {
		if errors.Is(err, service.ErrTransferNotFound) {
			respondError(c, response.CodeNotFound, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "提现审核失败", err)
		return
	}
	response.Success(c, transfer)
}

// MarkTransferPaidRequest 人工打款确认请求
type MarkTransferPaidRequest struct {
	TradeNo string `json:"trade_no"`
}

// MarkTransferPaid 线下方式人工确认已打款
func (h *Handler) MarkTransferPaid(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req MarkTransferPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	transfer, err := h.TransferService.AdminMarkPaid(c.Request.Context(), adminID, c.Param("code"), req.TradeNo)
	if err != nil {
		if errors.Is(err, service.ErrTransferNotFound) {
			respondError(c, response.CodeNotFound, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "确认打款失败", err)
		return
	}
	response.Success(c, transfer)
}

// GetTransferSettings 查询提现配置
func (h *Handler) GetTransferSettings(c *gin.Context) {
	response.Success(c, h.TransferService.Settings(c.Request.Context()))
}

// UpdateTransferSettings 更新提现配置
func (h *Handler) UpdateTransferSettings(c *gin.Context) {
	var req service.TransferSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	if err := h.TransferService.UpdateSettings(c.Request.Context(), &req); err != nil {
		respondError(c, response.CodeInternal, "更新提现配置失败", err)
		return
	}
	response.Success(c, h.TransferService.Settings(c.Request.Context()))
}

// SyncPayouts 手动触发待打款提现的重新入队
func (h *Handler) SyncPayouts(c *gin.Context) {
	count, err := h.TransferService.SyncPayouts(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "同步打款任务失败", err)
		return
	}
	response.Success(c, gin.H{"count": count})
}
