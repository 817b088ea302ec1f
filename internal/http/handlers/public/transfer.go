package public

import (
	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// TransferSettings 返回提现配置（方式开关与额度限制）
func (h *Handler) TransferSettings(c *gin.Context) {
	response.Success(c, h.TransferService.Settings(c.Request.Context()))
}

// SubmitTransfer 用户发起提现申请
func (h *Handler) SubmitTransfer(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req service.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	transfer, err := h.TransferService.Submit(c.Request.Context(), uid, req)
	if err != nil {
		respondTransferSubmitError(c, err)
		return
	}
	response.Success(c, transfer)
}

// CancelTransfer 用户撤销未完成的提现申请
func (h *Handler) CancelTransfer(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	transfer, err := h.TransferService.UserCancel(c.Request.Context(), uid, c.Param("code"))
	if err != nil {
		respondTransferActionError(c, err)
		return
	}
	response.Success(c, transfer)
}

// ConfirmTransfer 用户确认已收到打款
func (h *Handler) ConfirmTransfer(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	transfer, err := h.TransferService.UserConfirm(c.Request.Context(), uid, c.Param("code"))
	if err != nil {
		respondTransferActionError(c, err)
		return
	}
	response.Success(c, transfer)
}

// TransferAmounts 返回本人提现金额汇总与余额快照
func (h *Handler) TransferAmounts(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	amounts, snapshot, err := h.TransferService.Amounts(c.Request.Context(), uid)
	if err != nil {
		respondError(c, response.CodeInternal, "查询提现汇总失败", err)
		return
	}
	response.Success(c, gin.H{
		"amounts": amounts,
		"balance": snapshot,
	})
}

// ListMyTransfers 返回本人提现单列表
func (h *Handler) ListMyTransfers(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)

	transfers, total, err := h.TransferService.ListAdmin(repository.TransferListFilter{
		Page:     page,
		PageSize: pageSize,
		Unid:     uid,
		Type:     c.Query("type"),
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
