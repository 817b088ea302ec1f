package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/payhub-next/internal/constants"
)

// NotifyToken 回调令牌明文字段
type NotifyToken struct {
	Version string            `json:"v"`               // 令牌版本
	Scene   string            `json:"scene"`           // 业务场景
	OrderNo string            `json:"order"`           // 订单编号
	Channel string            `json:"channel"`         // 通道编号
	Extra   map[string]string `json:"extra,omitempty"` // 通道附加字段
}

// NotifyTokenCodec 回调令牌编解码器
// 令牌 = base64url(payload) + "." + base64url(HMAC-SHA256(payload))，
// 签名校验失败或版本不符一律视为无效令牌，不触发任何账本动作。
type NotifyTokenCodec struct {
	secret []byte
}

// NewNotifyTokenCodec 创建令牌编解码器
func NewNotifyTokenCodec(secret string) *NotifyTokenCodec {
	return &NotifyTokenCodec{secret: []byte(secret)}
}

// Encode 生成签名令牌
func (c *NotifyTokenCodec) Encode(scene, orderNo, channelCode string, extra map[string]string) (string, error) {
	token := NotifyToken{
		Version: constants.NotifyTokenVersion,
		Scene:   scene,
		OrderNo: orderNo,
		Channel: channelCode,
		Extra:   extra,
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	signature := c.sign(payload)
	return fmt.Sprintf("%s.%s",
		base64.RawURLEncoding.EncodeToString(payload),
		base64.RawURLEncoding.EncodeToString(signature),
	), nil
}

// Decode 解析并校验令牌
func (c *NotifyTokenCodec) Decode(raw string) (*NotifyToken, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 {
		return nil, ErrNotifyTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrNotifyTokenInvalid
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrNotifyTokenInvalid
	}
	if !hmac.Equal(signature, c.sign(payload)) {
		return nil, ErrNotifyTokenInvalid
	}

	var token NotifyToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, ErrNotifyTokenInvalid
	}
	if token.Version != constants.NotifyTokenVersion {
		return nil, ErrNotifyTokenInvalid
	}
	if token.Scene == "" || token.OrderNo == "" || token.Channel == "" {
		return nil, ErrNotifyTokenInvalid
	}
	return &token, nil
}

func (c *NotifyTokenCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
