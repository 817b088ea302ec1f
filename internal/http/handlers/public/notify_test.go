package public

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/payhub-next/internal/channel"
	channelledger "github.com/payhub-next/internal/channel/ledger"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/provider"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupNotifyTest(t *testing.T) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:notify_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.PaymentChannel{},
		&models.PaymentRecord{},
		&models.PaymentRefund{},
		&models.BalanceFlow{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	records := repository.NewRecordRepository(db)
	refunds := repository.NewRefundRepository(db)
	users := repository.NewUserRepository(db)
	channels := repository.NewChannelRepository(db)
	balances := ledger.NewBalanceLedger(db, repository.NewBalanceRepository(db))
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}

	settlement := service.NewSettlementService(
		db,
		records,
		refunds,
		users,
		balances,
		queueClient,
		service.NewNotifyTokenCodec("notify-handler-test-secret"),
		"https://pay.example.com",
	)

	ch := &models.PaymentChannel{
		Type:   constants.ChannelTypeBalance,
		Code:   "CH-BALANCE",
		Name:   "余额支付",
		Status: 1,
	}
	if err := channels.Create(ch); err != nil {
		t.Fatalf("create channel failed: %v", err)
	}

	registry := channel.NewRegistry()
	deps := channelledger.Deps{
		Settlement: settlement,
		Balances:   balances,
		Users:      users,
		Records:    records,
	}
	registry.Register(constants.ChannelTypeBalance, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelledger.NewBalanceStrategy(ch, deps), nil
	})

	return New(&provider.Container{
		SettlementService: settlement,
		ChannelService:    service.NewChannelService(channels, registry),
	})
}

func performNotify(h *Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notify/"+token, strings.NewReader("trade_status=TRADE_SUCCESS"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: token}}
	h.PaymentNotify(c)
	return w
}

func TestPaymentNotifyRejectsInvalidToken(t *testing.T) {
	h := setupNotifyTest(t)

	w := performNotify(h, "not-a-valid-token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got := w.Body.String(); !strings.HasPrefix(got, constants.NotifyResponseError) {
		t.Fatalf("expected error response, got %q", got)
	}
}

func TestPaymentNotifyRejectsWrongScene(t *testing.T) {
	h := setupNotifyTest(t)

	token, err := h.SettlementService.Tokens().Encode("refund", "ORD-1", "CH-BALANCE", nil)
	if err != nil {
		t.Fatalf("encode token failed: %v", err)
	}

	w := performNotify(h, token)
	if got := w.Body.String(); !strings.HasPrefix(got, constants.NotifyResponseError) {
		t.Fatalf("expected error response, got %q", got)
	}
}

func TestPaymentNotifyAcceptsValidToken(t *testing.T) {
	h := setupNotifyTest(t)

	token, err := h.SettlementService.Tokens().Encode(constants.NotifySceneOrder, "ORD-1", "CH-BALANCE", nil)
	if err != nil {
		t.Fatalf("encode token failed: %v", err)
	}

	w := performNotify(h, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if got := w.Body.String(); got != constants.NotifyResponseOK {
		t.Fatalf("expected %q, got %q", constants.NotifyResponseOK, got)
	}
}

func TestPaymentNotifyRejectsUnknownChannel(t *testing.T) {
	h := setupNotifyTest(t)

	token, err := h.SettlementService.Tokens().Encode(constants.NotifySceneOrder, "ORD-1", "CH-MISSING", nil)
	if err != nil {
		t.Fatalf("encode token failed: %v", err)
	}

	w := performNotify(h, token)
	if got := w.Body.String(); !strings.HasPrefix(got, constants.NotifyResponseError) {
		t.Fatalf("expected error response, got %q", got)
	}
}
