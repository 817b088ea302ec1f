package transferpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/payhub-next/internal/config"

	"github.com/shopspring/decimal"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

var (
	ErrDisabled        = errors.New("wechatpay transfer disabled")
	ErrConfigInvalid   = errors.New("wechatpay transfer config invalid")
	ErrRequestFailed   = errors.New("wechatpay transfer request failed")
	ErrResponseInvalid = errors.New("wechatpay transfer response invalid")
)

const baseURL = "https://api.mch.weixin.qq.com"

// PayoutInput 商家转账单笔打款输入
type PayoutInput struct {
	BatchNo  string          // 商户批次号（提现单号）
	DetailNo string          // 商户明细号
	Openid   string          // 收款用户 openid
	Amount   decimal.Decimal // 打款金额（元）
	Remark   string          // 转账备注
}

// PayoutResult 打款受理结果
type PayoutResult struct {
	BatchID string                 // 微信批次单号
	Raw     map[string]interface{} // 原始应答
}

// BatchStatus 批次查询结果
type BatchStatus struct {
	BatchID    string
	Status     string // ACCEPTED/PROCESSING/FINISHED/CLOSED
	SuccessNum int64
	FailNum    int64
	Raw        map[string]interface{}
}

// WechatClient 微信商家转账客户端
type WechatClient struct {
	cfg    config.WechatPayConfig
	client *core.Client
}

// NewWechatClient 创建商家转账客户端
func NewWechatClient(ctx context.Context, cfg config.WechatPayConfig) (*WechatClient, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.MchID == "" || cfg.Appid == "" || cfg.CertSerialNo == "" || cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: mchid/appid/cert_serial_no/private_key_path are required", ErrConfigInvalid)
	}
	privateKey, err := utils.LoadPrivateKeyWithPath(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load private key failed: %v", ErrConfigInvalid, err)
	}
	client, err := core.NewClient(ctx,
		option.WithMerchantCredential(cfg.MchID, cfg.CertSerialNo, privateKey),
		option.WithoutValidator(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: init client failed", ErrConfigInvalid)
	}
	return &WechatClient{cfg: cfg, client: client}, nil
}

// Payout 发起单笔转账到零钱。
// 以提现单号作为商户批次号，重复提交同一单号会被微信侧幂等受理。
func (c *WechatClient) Payout(ctx context.Context, input PayoutInput) (*PayoutResult, error) {
	if input.Openid == "" || input.BatchNo == "" {
		return nil, fmt.Errorf("%w: openid and batch_no are required", ErrConfigInvalid)
	}
	amountFen := input.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	if amountFen <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	detailNo := input.DetailNo
	if detailNo == "" {
		detailNo = input.BatchNo + "-1"
	}
	remark := input.Remark
	if remark == "" {
		remark = "余额提现"
	}

	payload := map[string]interface{}{
		"appid":        c.cfg.Appid,
		"out_batch_no": input.BatchNo,
		"batch_name":   remark,
		"batch_remark": remark,
		"total_amount": amountFen,
		"total_num":    1,
		"transfer_detail_list": []map[string]interface{}{
			{
				"out_detail_no":   detailNo,
				"transfer_amount": amountFen,
				"transfer_remark": remark,
				"openid":          input.Openid,
			},
		},
	}
	raw, err := c.postJSON(ctx, baseURL+"/v3/transfer/batches", payload)
	if err != nil {
		return nil, err
	}
	batchID := readString(raw, "batch_id")
	if batchID == "" {
		return nil, fmt.Errorf("%w: missing batch_id", ErrResponseInvalid)
	}
	return &PayoutResult{BatchID: batchID, Raw: raw}, nil
}

// QueryBatch 按商户批次号查询转账批次
func (c *WechatClient) QueryBatch(ctx context.Context, batchNo string) (*BatchStatus, error) {
	requestURL := fmt.Sprintf("%s/v3/transfer/batches/out-batch-no/%s?need_query_detail=false", baseURL, batchNo)
	raw, err := c.getJSON(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	batch, _ := raw["transfer_batch"].(map[string]interface{})
	if batch == nil {
		batch = raw
	}
	return &BatchStatus{
		BatchID:    readString(batch, "batch_id"),
		Status:     readString(batch, "batch_status"),
		SuccessNum: readInt64(batch, "success_num"),
		FailNum:    readInt64(batch, "fail_num"),
		Raw:        raw,
	}, nil
}

func (c *WechatClient) postJSON(ctx context.Context, requestURL string, payload map[string]interface{}) (map[string]interface{}, error) {
	result, err := c.client.Post(ctx, requestURL, payload)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	return parseAPIResult(result)
}

func (c *WechatClient) getJSON(ctx context.Context, requestURL string) (map[string]interface{}, error) {
	result, err := c.client.Get(ctx, requestURL)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	return parseAPIResult(result)
}

func wrapRequestError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrResponseInvalid, strings.TrimSpace(apiErr.Message))
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func parseAPIResult(result *core.APIResult) (map[string]interface{}, error) {
	if result == nil || result.Response == nil || result.Response.Body == nil {
		return nil, fmt.Errorf("%w: empty response", ErrResponseInvalid)
	}
	defer result.Response.Body.Close()

	respBody, err := io.ReadAll(result.Response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if result.Response.StatusCode < 200 || result.Response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d body %s", ErrResponseInvalid, result.Response.StatusCode, strings.TrimSpace(string(respBody)))
	}
	raw := map[string]interface{}{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
		}
	}
	return raw, nil
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func readInt64(raw map[string]interface{}, key string) int64 {
	if raw == nil {
		return 0
	}
	switch v := raw[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
