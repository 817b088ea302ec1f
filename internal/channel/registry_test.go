package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
)

type stubStrategy struct {
	code string
}

func (s *stubStrategy) Config(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"code": s.code}, nil
}

func (s *stubStrategy) Create(ctx context.Context, account Account, input CreateInput) (*Response, error) {
	return Ok("创建成功", nil), nil
}

func (s *stubStrategy) Query(ctx context.Context, paymentCode string) (*Response, error) {
	return Fail("不支持查询"), nil
}

func (s *stubStrategy) Notify(ctx context.Context, payload NotifyPayload) (*Response, error) {
	return Ok("确认成功", nil), nil
}

func (s *stubStrategy) Refund(ctx context.Context, paymentCode string, amount decimal.Decimal, reason string) (int, string) {
	return 0, ""
}

func testChannel(chType, code string, status int) *models.PaymentChannel {
	return &models.PaymentChannel{
		Type:   chType,
		Code:   code,
		Name:   "测试通道",
		Status: status,
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()
	created := 0
	registry.Register("stub", func(ch *models.PaymentChannel) (Strategy, error) {
		created++
		return &stubStrategy{code: ch.Code}, nil
	})

	ch := testChannel("stub", "CH-A", 1)
	first, err := registry.Resolve(ch)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := registry.Resolve(ch)
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if first != second {
		t.Fatal("同一通道编号应复用缓存实例")
	}
	if created != 1 {
		t.Fatalf("工厂调用次数 = %d, want 1", created)
	}
}

func TestRegistryResolveDisabled(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func(ch *models.PaymentChannel) (Strategy, error) {
		return &stubStrategy{code: ch.Code}, nil
	})

	_, err := registry.Resolve(testChannel("stub", "CH-OFF", 0))
	if !errors.Is(err, ErrChannelDisabled) {
		t.Fatalf("err = %v, want ErrChannelDisabled", err)
	}
}

func TestRegistryResolveUnknownType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve(testChannel("ghost", "CH-GHOST", 1))
	if !errors.Is(err, ErrTypeNotRegistered) {
		t.Fatalf("err = %v, want ErrTypeNotRegistered", err)
	}
	if _, err := registry.Resolve(nil); !errors.Is(err, ErrTypeNotRegistered) {
		t.Fatalf("nil channel err = %v, want ErrTypeNotRegistered", err)
	}
}

func TestRegistryResolveFactoryError(t *testing.T) {
	registry := NewRegistry()
	wantErr := errors.New("配置缺失")
	registry.Register("broken", func(ch *models.PaymentChannel) (Strategy, error) {
		return nil, wantErr
	})

	if _, err := registry.Resolve(testChannel("broken", "CH-BROKEN", 1)); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRegistryInvalidate(t *testing.T) {
	registry := NewRegistry()
	created := 0
	registry.Register("stub", func(ch *models.PaymentChannel) (Strategy, error) {
		created++
		return &stubStrategy{code: ch.Code}, nil
	})

	ch := testChannel("stub", "CH-A", 1)
	if _, err := registry.Resolve(ch); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	registry.Invalidate("CH-A")
	if _, err := registry.Resolve(ch); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if created != 2 {
		t.Fatalf("失效后应重建实例, 工厂调用次数 = %d", created)
	}
}
