package public

import (
	"errors"

	"github.com/payhub-next/internal/http/response"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
// 业务错误文案本身即用户提示语，映射只决定响应码。
type mappedHandlerError struct {
	target error
	code   int
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.target.Error(), nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrChannelNotFound, code: response.CodeNotFound},
	{target: service.ErrChannelDisabled, code: response.CodeBadRequest},
	{target: service.ErrChannelConfig, code: response.CodeBadRequest},
	{target: service.ErrProofRequired, code: response.CodeBadRequest},
	{target: service.ErrOrderAuditPending, code: response.CodeConflict},
	{target: service.ErrAmountOverflow, code: response.CodeBadRequest},
	{target: service.ErrAlreadyPaid, code: response.CodeConflict},
	{target: service.ErrRecordExists, code: response.CodeConflict},
	{target: service.ErrBalanceInsufficient, code: response.CodeBadRequest},
	{target: service.ErrIntegralInsufficient, code: response.CodeBadRequest},
	{target: service.ErrUserNotFound, code: response.CodeNotFound},
}

var transferSubmitErrorRules = []mappedHandlerError{
	{target: service.ErrTransferDisabled, code: response.CodeBadRequest},
	{target: service.ErrTransferTypeDisabled, code: response.CodeBadRequest},
	{target: service.ErrTransferAmountRange, code: response.CodeBadRequest},
	{target: service.ErrTransferDailyLimit, code: response.CodeTooManyRequests},
	{target: service.ErrTransferFieldMissing, code: response.CodeBadRequest},
	{target: service.ErrBalanceInsufficient, code: response.CodeBadRequest},
}

var transferActionErrorRules = []mappedHandlerError{
	{target: service.ErrTransferNotFound, code: response.CodeNotFound},
}

func respondPaymentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "发起支付失败")
}

func respondTransferSubmitError(c *gin.Context, err error) {
	respondWithMappedError(c, err, transferSubmitErrorRules, response.CodeInternal, "提交提现申请失败")
}

func respondTransferActionError(c *gin.Context, err error) {
	respondWithMappedError(c, err, transferActionErrorRules, response.CodeInternal, "提现操作失败")
}
