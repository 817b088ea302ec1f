package channel

import (
	"context"
	"net/url"

	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
)

// Account 当前操作账号，由调用方显式传入，不依赖进程级共享状态
type Account struct {
	Unid uint // 主账号编号
	Usid uint // 子账号编号
}

// CreateInput 发起支付输入
type CreateInput struct {
	OrderNo     string          // 原订单编号
	OrderTitle  string          // 原订单标题
	OrderAmount decimal.Decimal // 原订单金额
	PayAmount   decimal.Decimal // 本次支付金额
	Remark      string          // 支付备注
	ReturnURL   string          // 支付完成跳转地址
	ProofImage  string          // 凭证支付图片（凭证通道必填）
}

// NotifyPayload 回调分发输入，令牌字段加上原始表单
type NotifyPayload struct {
	Scene   string            // 业务场景
	OrderNo string            // 订单编号
	Extra   map[string]string // 通道附加字段
	Form    url.Values        // 原始回调表单（网关验签用）
}

// Response 通道操作统一结果
type Response struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Record  *models.PaymentRecord  `json:"record,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Ok 构造成功结果
func Ok(message string, record *models.PaymentRecord) *Response {
	return &Response{Status: true, Message: message, Record: record}
}

// OkData 构造带附加数据的成功结果
func OkData(message string, record *models.PaymentRecord, data map[string]interface{}) *Response {
	return &Response{Status: true, Message: message, Record: record, Data: data}
}

// Fail 构造失败结果
func Fail(message string) *Response {
	return &Response{Status: false, Message: message}
}

// Strategy 支付通道契约，每种通道类型实现一份
type Strategy interface {
	// Config 返回合并了通道标识的非敏感配置
	Config(ctx context.Context) (map[string]interface{}, error)
	// Create 发起一次支付尝试
	Create(ctx context.Context, account Account, input CreateInput) (*Response, error)
	// Query 主动查询通道侧支付状态，手工通道可为空实现
	Query(ctx context.Context, paymentCode string) (*Response, error)
	// Notify 处理异步确认，重复通知必须幂等返回成功
	Notify(ctx context.Context, payload NotifyPayload) (*Response, error)
	// Refund 发起退款，失败以结果码返回，不向上抛出
	Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string)
}

// CreateOptions 落库初始状态，由具体通道决定
type CreateOptions struct {
	AuditStatus  int             // 初始审核状态，凭证通道为待审
	UsedBalance  decimal.Decimal // 扣减余额
	UsedIntegral decimal.Decimal // 扣减积分
}

// Settlement 结算编排契约，通道实现通过它请求账本变更
type Settlement interface {
	// CheckLeaveAmount 校验剩余可付金额，存在待审凭证或金额溢出则拒绝
	CheckLeaveAmount(ctx context.Context, orderNo string, payAmount, orderAmount decimal.Decimal) error
	// CreateAction 幂等创建支付单，payCode 重复时拒绝
	CreateAction(ctx context.Context, account Account, ch *models.PaymentChannel, payCode string, input CreateInput, opts CreateOptions) (*models.PaymentRecord, error)
	// UpdateAction 幂等结算支付单，无匹配未付记录时返回 updated=false
	UpdateAction(ctx context.Context, payCode, tradeID string, amount decimal.Decimal, remark string) (record *models.PaymentRecord, updated bool, err error)
	// SyncRefund 重算退款聚合，amount 非空时同时开立退款单
	SyncRefund(ctx context.Context, paymentCode, reason string, amount *decimal.Decimal, refundAccount string) (*models.PaymentRecord, error)
	// SettleRefund 结算处理中的退款单并重算所属支付单聚合，重复结算不生效
	SettleRefund(ctx context.Context, refundCode, trade, statusCode string, succeeded bool) error
	// NotifyURL 构造带签名令牌的回调地址
	NotifyURL(scene, orderNo, channelCode string, extra map[string]string) (string, error)
}
