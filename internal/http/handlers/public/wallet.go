package public

import (
	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// Wallet 返回本人余额快照与积分
func (h *Handler) Wallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	snapshot, err := h.BalanceLedger.Recount(c.Request.Context(), uid)
	if err != nil {
		respondError(c, response.CodeInternal, "查询余额失败", err)
		return
	}

	user, err := h.UserRepo.GetByID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "查询账户失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "用户不存在", nil)
		return
	}

	response.Success(c, gin.H{
		"usable":   snapshot.Usable,
		"locked":   snapshot.Locked,
		"integral": user.Integral,
	})
}

// WalletFlows 返回本人余额流水
func (h *Handler) WalletFlows(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	flows, total, err := h.BalanceRepo.List(repository.BalanceFlowListFilter{
		Page:     page,
		PageSize: pageSize,
		Unid:     uid,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询余额流水失败", err)
		return
	}
	response.Success(c, gin.H{
		"list":  flows,
		"total": total,
	})
}
