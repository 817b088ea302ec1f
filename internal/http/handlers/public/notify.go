package public

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// PaymentNotify 支付通道异步回调入口。
// 应答为纯文本：成功返回 SUCCESS，失败返回 Error: 前缀加原因，
// 令牌不合法与业务失败同样以应答文本表达，不抛 HTTP 错误码。
func (h *Handler) PaymentNotify(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			requestLog(c).Errorw("payment_notify_panic", "panic", r)
			c.String(http.StatusOK, constants.NotifyResponseError+"internal error")
		}
	}()

	requestLog(c).Infow("payment_notify_received",
		"method", c.Request.Method,
		"client_ip", c.ClientIP(),
		"content_type", strings.TrimSpace(c.GetHeader("Content-Type")),
	)

	token, err := h.SettlementService.Tokens().Decode(c.Param("token"))
	if err != nil {
		requestLog(c).Warnw("payment_notify_token_invalid", "error", err)
		c.String(http.StatusOK, constants.NotifyResponseError+"invalid token")
		return
	}
	if token.Scene != constants.NotifySceneOrder {
		requestLog(c).Warnw("payment_notify_scene_unsupported", "scene", token.Scene)
		c.String(http.StatusOK, constants.NotifyResponseError+"unsupported scene")
		return
	}

	_, strategy, err := h.ChannelService.Resolve(token.Channel)
	if err != nil {
		requestLog(c).Warnw("payment_notify_channel_unresolved",
			"channel_code", token.Channel,
			"error", err,
		)
		c.String(http.StatusOK, constants.NotifyResponseError+"channel unavailable")
		return
	}

	form, err := collectNotifyForm(c)
	if err != nil {
		requestLog(c).Warnw("payment_notify_form_invalid", "error", err)
		c.String(http.StatusOK, constants.NotifyResponseError+"invalid form")
		return
	}

	resp, err := strategy.Notify(c.Request.Context(), channel.NotifyPayload{
		Scene:   token.Scene,
		OrderNo: token.OrderNo,
		Extra:   token.Extra,
		Form:    form,
	})
	if err != nil {
		requestLog(c).Errorw("payment_notify_failed",
			"order_no", token.OrderNo,
			"channel_code", token.Channel,
			"error", err,
		)
		c.String(http.StatusOK, constants.NotifyResponseError+err.Error())
		return
	}
	if resp == nil || !resp.Status {
		message := "notify rejected"
		if resp != nil && resp.Message != "" {
			message = resp.Message
		}
		requestLog(c).Warnw("payment_notify_rejected",
			"order_no", token.OrderNo,
			"channel_code", token.Channel,
			"message", message,
		)
		c.String(http.StatusOK, constants.NotifyResponseError+message)
		return
	}

	requestLog(c).Infow("payment_notify_ok",
		"order_no", token.OrderNo,
		"channel_code", token.Channel,
	)
	c.String(http.StatusOK, constants.NotifyResponseOK)
}

// collectNotifyForm 合并查询参数与表单参数，网关验签需要完整字段
func collectNotifyForm(c *gin.Context) (url.Values, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	form := url.Values{}
	for key, values := range c.Request.Form {
		form[key] = values
	}
	for key, values := range c.Request.PostForm {
		if _, ok := form[key]; !ok {
			form[key] = values
		}
	}
	return form, nil
}
