package public

import (
	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListChannels 返回启用中的支付通道（配置已脱敏）
func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.ChannelService.ListEnabled(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "获取支付通道失败", err)
		return
	}
	response.Success(c, channels)
}

// CreatePaymentRequest 发起支付请求
type CreatePaymentRequest struct {
	OrderNo     string          `json:"order_no" binding:"required"`
	OrderTitle  string          `json:"order_title"`
	OrderAmount decimal.Decimal `json:"order_amount" binding:"required"`
	PayAmount   decimal.Decimal `json:"pay_amount"`
	ChannelCode string          `json:"channel_code" binding:"required"`
	Remark      string          `json:"remark"`
	ReturnURL   string          `json:"return_url"`
	ProofImage  string          `json:"proof_image"`
}

// CreatePayment 对订单发起一次支付尝试
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if req.OrderAmount.LessThanOrEqual(decimal.Zero) {
		respondError(c, response.CodeBadRequest, "订单金额无效", nil)
		return
	}

	payAmount := req.PayAmount
	if payAmount.LessThanOrEqual(decimal.Zero) {
		payAmount = req.OrderAmount
	}

	_, strategy, err := h.ChannelService.Resolve(req.ChannelCode)
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}

	resp, err := strategy.Create(c.Request.Context(), channel.Account{Unid: uid}, channel.CreateInput{
		OrderNo:     req.OrderNo,
		OrderTitle:  req.OrderTitle,
		OrderAmount: req.OrderAmount,
		PayAmount:   payAmount,
		Remark:      req.Remark,
		ReturnURL:   req.ReturnURL,
		ProofImage:  req.ProofImage,
	})
	if err != nil {
		respondPaymentCreateError(c, err)
		return
	}
	if !resp.Status {
		respondError(c, response.CodeBadRequest, resp.Message, nil)
		return
	}
	response.Success(c, resp)
}

// QueryPayment 查询本人支付单
func (h *Handler) QueryPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	code := c.Param("code")
	record, err := h.RecordService.GetByCode(code)
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付单失败", err)
		return
	}
	if record == nil || record.Unid != uid {
		respondError(c, response.CodeNotFound, "支付单不存在", nil)
		return
	}
	response.Success(c, record)
}

// ListPaymentsByOrder 查询本人订单下的全部支付单
func (h *Handler) ListPaymentsByOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderNo := c.Param("order_no")
	records, err := h.RecordService.ListByOrder(orderNo)
	if err != nil {
		respondError(c, response.CodeInternal, "查询支付单失败", err)
		return
	}

	owned := records[:0]
	for _, record := range records {
		if record.Unid == uid {
			owned = append(owned, record)
		}
	}
	response.Success(c, owned)
}

// ListMyPayments 分页查询本人的支付单
func (h *Handler) ListMyPayments(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	records, total, err := h.RecordService.ListAdmin(repository.RecordListFilter{
		Page:        page,
		PageSize:    pageSize,
		Unid:        uid,
		ChannelCode: c.Query("channel_code"),
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
