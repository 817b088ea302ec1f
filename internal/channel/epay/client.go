// Package epay 实现易支付协议网关通道，MD5 表单签名，异步回调确认。
package epay

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("epay config invalid")
	ErrRequestFailed    = errors.New("epay request failed")
	ErrResponseInvalid  = errors.New("epay response invalid")
	ErrSignatureInvalid = errors.New("epay signature invalid")
)

// Config 易支付网关配置
type Config struct {
	GatewayURL  string `json:"gateway_url"`  // 网关地址
	MerchantID  string `json:"merchant_id"`  // 商户号
	MerchantKey string `json:"merchant_key"` // 商户密钥
	PayType     string `json:"pay_type"`     // 支付方式（alipay/wxpay/qqpay）
	Device      string `json:"device"`       // 设备类型
	APIPath     string `json:"api_path"`     // 下单接口路径
	QueryPath   string `json:"query_path"`   // 查单接口路径
	RefundPath  string `json:"refund_path"`  // 退款接口路径
}

// ParseConfig 从通道参数解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return nil, fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, fmt.Errorf("%w: merchant_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MerchantKey) == "" {
		return nil, fmt.Errorf("%w: merchant_key is required", ErrConfigInvalid)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.PayType == "" {
		c.PayType = "alipay"
	}
	if c.Device == "" {
		c.Device = "pc"
	}
	if c.APIPath == "" {
		c.APIPath = "/mapi.php"
	}
	if c.QueryPath == "" {
		c.QueryPath = "/api.php"
	}
	if c.RefundPath == "" {
		c.RefundPath = "/api.php"
	}
}

// CreateInput 网关下单输入
type CreateInput struct {
	OutTradeNo string // 商户侧支付单号
	Amount     string // 金额（两位小数）
	Subject    string // 商品名称
	ClientIP   string // 用户 IP
	NotifyURL  string // 异步通知地址
	ReturnURL  string // 同步跳转地址
}

// CreateResult 网关下单结果
type CreateResult struct {
	PayURL  string
	QRCode  string
	TradeNo string
	Raw     map[string]interface{}
}

// QueryResult 网关查单结果
type QueryResult struct {
	Paid    bool
	TradeNo string
	Amount  string
	Raw     map[string]interface{}
}

// Client 易支付网关客户端
type Client struct {
	cfg  *Config
	http *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg *Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// CreatePayment 发起支付
func (c *Client) CreatePayment(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if input.OutTradeNo == "" || input.Amount == "" || input.NotifyURL == "" {
		return nil, ErrConfigInvalid
	}
	if input.Subject == "" {
		input.Subject = input.OutTradeNo
	}
	params := map[string]string{
		"pid":          c.cfg.MerchantID,
		"type":         c.cfg.PayType,
		"out_trade_no": input.OutTradeNo,
		"notify_url":   input.NotifyURL,
		"return_url":   input.ReturnURL,
		"name":         input.Subject,
		"money":        input.Amount,
		"clientip":     input.ClientIP,
		"device":       c.cfg.Device,
	}
	c.sign(params)

	respBytes, err := c.postForm(ctx, c.endpoint(c.cfg.APIPath), params)
	if err != nil {
		return nil, ErrRequestFailed
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		TradeNo string `json:"trade_no"`
		PayURL  string `json:"payurl"`
		QRCode  string `json:"qrcode"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Msg)
	}
	return &CreateResult{
		PayURL:  strings.TrimSpace(resp.PayURL),
		QRCode:  strings.TrimSpace(resp.QRCode),
		TradeNo: strings.TrimSpace(resp.TradeNo),
		Raw:     raw,
	}, nil
}

// QueryOrder 主动查单
func (c *Client) QueryOrder(ctx context.Context, outTradeNo string) (*QueryResult, error) {
	query := url.Values{}
	query.Set("act", "order")
	query.Set("pid", c.cfg.MerchantID)
	query.Set("key", c.cfg.MerchantKey)
	query.Set("out_trade_no", outTradeNo)

	endpoint := c.endpoint(c.cfg.QueryPath) + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	respBytes, err := c.doRequest(req)
	if err != nil {
		return nil, ErrRequestFailed
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)
	var resp struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		Status  int    `json:"status"`
		TradeNo string `json:"trade_no"`
		Money   string `json:"money"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, ErrResponseInvalid
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Msg)
	}
	return &QueryResult{
		Paid:    resp.Status == 1,
		TradeNo: strings.TrimSpace(resp.TradeNo),
		Amount:  strings.TrimSpace(resp.Money),
		Raw:     raw,
	}, nil
}

// RefundOrder 发起网关退款
func (c *Client) RefundOrder(ctx context.Context, tradeNo, amount string) error {
	params := map[string]string{
		"act":      "refund",
		"pid":      c.cfg.MerchantID,
		"key":      c.cfg.MerchantKey,
		"trade_no": tradeNo,
		"money":    amount,
	}
	respBytes, err := c.postForm(ctx, c.endpoint(c.cfg.RefundPath), params)
	if err != nil {
		return ErrRequestFailed
	}
	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return ErrResponseInvalid
	}
	if resp.Code != 1 {
		return fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Msg)
	}
	return nil
}

// VerifyCallback 验证回调表单签名
func (c *Client) VerifyCallback(form url.Values) error {
	sign := strings.TrimSpace(form.Get("sign"))
	if sign == "" {
		return ErrSignatureInvalid
	}
	params := make(map[string]string, len(form))
	for key := range form {
		params[key] = form.Get(key)
	}
	expected := signMD5(buildSignContent(params) + c.cfg.MerchantKey)
	if !strings.EqualFold(expected, sign) {
		return ErrSignatureInvalid
	}
	return nil
}

func (c *Client) sign(params map[string]string) {
	params["sign"] = signMD5(buildSignContent(params) + c.cfg.MerchantKey)
	params["sign_type"] = "MD5"
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(strings.TrimSpace(c.cfg.GatewayURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (c *Client) postForm(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrRequestFailed
	}
	return io.ReadAll(resp.Body)
}

func buildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == "sign" || k == "sign_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, "&")
}

func signMD5(content string) string {
	sum := md5.Sum([]byte(content))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}
