package service

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/payhub-next/internal/constants"
)

func TestNotifyTokenRoundTrip(t *testing.T) {
	codec := NewNotifyTokenCodec("token-test-secret")

	raw, err := codec.Encode(constants.NotifySceneOrder, "O2001", "epay-1", map[string]string{"code": "P1001"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	token, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if token.Version != constants.NotifyTokenVersion {
		t.Fatalf("version = %s", token.Version)
	}
	if token.Scene != constants.NotifySceneOrder || token.OrderNo != "O2001" || token.Channel != "epay-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if token.Extra["code"] != "P1001" {
		t.Fatalf("extra = %v", token.Extra)
	}
}

func TestNotifyTokenRejectsTampering(t *testing.T) {
	codec := NewNotifyTokenCodec("token-test-secret")
	raw, err := codec.Encode(constants.NotifySceneOrder, "O2001", "epay-1", nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	parts := strings.SplitN(raw, ".", 2)
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"v":"v1","scene":"order","order":"O9999","channel":"epay-1"}`))
	if _, err := codec.Decode(forged + "." + parts[1]); err != ErrNotifyTokenInvalid {
		t.Fatalf("expected ErrNotifyTokenInvalid for payload swap, got %v", err)
	}

	cases := []string{
		"",
		"not-a-token",
		parts[0],
		parts[0] + "." + parts[1] + "x",
		"!!!." + parts[1],
	}
	for _, c := range cases {
		if _, err := codec.Decode(c); err != ErrNotifyTokenInvalid {
			t.Fatalf("expected ErrNotifyTokenInvalid for %q, got %v", c, err)
		}
	}
}

func TestNotifyTokenRejectsWrongSecret(t *testing.T) {
	raw, err := NewNotifyTokenCodec("secret-a").Encode(constants.NotifySceneOrder, "O2001", "epay-1", nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := NewNotifyTokenCodec("secret-b").Decode(raw); err != ErrNotifyTokenInvalid {
		t.Fatalf("expected ErrNotifyTokenInvalid, got %v", err)
	}
}
