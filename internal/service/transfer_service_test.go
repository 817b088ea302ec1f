package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTransferTest(t *testing.T) (*TransferService, ledger.BalanceLedger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:transfer_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentTransfer{}, &models.BalanceFlow{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	balances := ledger.NewBalanceLedger(db, repository.NewBalanceRepository(db))
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	svc := NewTransferService(db, repository.NewTransferRepository(db), balances, queueClient)
	return svc, balances, db
}

func creditBalance(t *testing.T, balances ledger.BalanceLedger, unid uint, amount string) {
	t.Helper()
	code := GenerateCode("C")
	if err := balances.Credit(context.Background(), unid, code, "测试入账", decimal.RequireFromString(amount)); err != nil {
		t.Fatalf("credit balance failed: %v", err)
	}
}

func submitAlipay(t *testing.T, svc *TransferService, unid uint, amount string) *models.PaymentTransfer {
	t.Helper()
	transfer, err := svc.Submit(context.Background(), unid, SubmitInput{
		Type:       constants.TransferTypeAlipayAccount,
		Amount:     decimal.RequireFromString(amount),
		AlipayUser: "张三",
		AlipayCode: "zhangsan@example.com",
	})
	if err != nil {
		t.Fatalf("submit transfer failed: %v", err)
	}
	return transfer
}

func TestSubmitRejectsInsufficientBalance(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "50.00")

	_, err := svc.Submit(context.Background(), 1, SubmitInput{
		Type:       constants.TransferTypeAlipayAccount,
		Amount:     decimal.RequireFromString("50.01"),
		AlipayUser: "张三",
		AlipayCode: "zhangsan@example.com",
	})
	if err != ErrBalanceInsufficient {
		t.Fatalf("expected ErrBalanceInsufficient, got %v", err)
	}

	// 锁定失败时申请不落库
	var count int64
	svc.db.Model(&models.PaymentTransfer{}).Count(&count)
	if count != 0 {
		t.Fatalf("transfer persisted despite lock failure: %d", count)
	}
}

func TestSubmitLocksBalance(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100.00")

	transfer := submitAlipay(t, svc, 1, "60.00")
	if transfer.Status != constants.TransferStatusPending {
		t.Fatalf("status = %d, want pending", transfer.Status)
	}

	snapshot, err := balances.Recount(context.Background(), 1)
	if err != nil {
		t.Fatalf("recount failed: %v", err)
	}
	if !snapshot.Usable.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("usable = %s, want 40.00", snapshot.Usable)
	}
	if !snapshot.Locked.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("locked = %s, want 60.00", snapshot.Locked)
	}
}

func TestSubmitValidations(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100000.00")

	if _, err := svc.Submit(context.Background(), 1, SubmitInput{
		Type:   constants.TransferTypeAlipayAccount,
		Amount: decimal.RequireFromString("10.00"),
	}); err != ErrTransferFieldMissing {
		t.Fatalf("expected ErrTransferFieldMissing, got %v", err)
	}

	if _, err := svc.Submit(context.Background(), 1, SubmitInput{
		Type:       constants.TransferTypeAlipayAccount,
		Amount:     decimal.RequireFromString("0.50"),
		AlipayUser: "张三",
		AlipayCode: "zhangsan@example.com",
	}); err != ErrTransferAmountRange {
		t.Fatalf("expected ErrTransferAmountRange for low amount, got %v", err)
	}

	if _, err := svc.Submit(context.Background(), 1, SubmitInput{
		Type:   "paypal",
		Amount: decimal.RequireFromString("10.00"),
	}); err != ErrTransferTypeDisabled {
		t.Fatalf("expected ErrTransferTypeDisabled, got %v", err)
	}
}

func TestSubmitDailyLimit(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100000.00")

	settings := DefaultTransferSettings()
	typeSetting := settings.Types[constants.TransferTypeAlipayAccount]
	typeSetting.DailyLimit = 2
	settings.Types[constants.TransferTypeAlipayAccount] = typeSetting
	svc.settings = settings

	submitAlipay(t, svc, 1, "10.00")
	submitAlipay(t, svc, 1, "10.00")
	if _, err := svc.Submit(context.Background(), 1, SubmitInput{
		Type:       constants.TransferTypeAlipayAccount,
		Amount:     decimal.RequireFromString("10.00"),
		AlipayUser: "张三",
		AlipayCode: "zhangsan@example.com",
	}); err != ErrTransferDailyLimit {
		t.Fatalf("expected ErrTransferDailyLimit, got %v", err)
	}
}

func TestUserCancelReleasesLock(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100.00")
	transfer := submitAlipay(t, svc, 1, "60.00")

	cancelled, err := svc.UserCancel(context.Background(), 1, transfer.Code)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.TransferStatusRejected {
		t.Fatalf("status = %d, want rejected", cancelled.Status)
	}

	snapshot, err := balances.Recount(context.Background(), 1)
	if err != nil {
		t.Fatalf("recount failed: %v", err)
	}
	if !snapshot.Usable.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("usable = %s, want 100.00 after cancel", snapshot.Usable)
	}
	if !snapshot.Locked.IsZero() {
		t.Fatalf("locked = %s, want 0 after cancel", snapshot.Locked)
	}

	// 已取消的提现不可再确认
	confirmed, err := svc.UserConfirm(context.Background(), 1, transfer.Code)
	if err != nil {
		t.Fatalf("confirm after cancel errored: %v", err)
	}
	if confirmed.Status != constants.TransferStatusRejected {
		t.Fatalf("confirm after cancel changed status: %d", confirmed.Status)
	}
}

func TestUserConfirmConsumesLock(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100.00")
	transfer := submitAlipay(t, svc, 1, "60.00")

	if _, err := svc.AdminAudit(context.Background(), 9, transfer.Code, true, "审核通过"); err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if _, err := svc.AdminMarkPaid(context.Background(), 9, transfer.Code, "TRADE-1"); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	confirmed, err := svc.UserConfirm(context.Background(), 1, transfer.Code)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != constants.TransferStatusConfirmed {
		t.Fatalf("status = %d, want confirmed", confirmed.Status)
	}

	snapshot, err := balances.Recount(context.Background(), 1)
	if err != nil {
		t.Fatalf("recount failed: %v", err)
	}
	if !snapshot.Usable.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("usable = %s, want 40.00 after confirm", snapshot.Usable)
	}
	if !snapshot.Locked.IsZero() {
		t.Fatalf("locked = %s, want 0 after confirm", snapshot.Locked)
	}

	// 重复确认静默不变
	again, err := svc.UserConfirm(context.Background(), 1, transfer.Code)
	if err != nil {
		t.Fatalf("duplicate confirm errored: %v", err)
	}
	if again.Status != constants.TransferStatusConfirmed {
		t.Fatalf("duplicate confirm changed status: %d", again.Status)
	}

	// 已确认的提现不可再取消
	after, err := svc.UserCancel(context.Background(), 1, transfer.Code)
	if err != nil {
		t.Fatalf("cancel after confirm errored: %v", err)
	}
	if after.Status != constants.TransferStatusConfirmed {
		t.Fatalf("cancel after confirm changed status: %d", after.Status)
	}
	snapshot, _ = balances.Recount(context.Background(), 1)
	if !snapshot.Usable.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("usable = %s, want unchanged 40.00", snapshot.Usable)
	}
}

func TestAdminAuditReject(t *testing.T) {
	svc, balances, _ := setupTransferTest(t)
	creditBalance(t, balances, 1, "100.00")
	transfer := submitAlipay(t, svc, 1, "60.00")

	rejected, err := svc.AdminAudit(context.Background(), 9, transfer.Code, false, "信息不符")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.TransferStatusRejected {
		t.Fatalf("status = %d, want rejected", rejected.Status)
	}
	if rejected.AuditRemark != "信息不符" {
		t.Fatalf("audit remark = %s", rejected.AuditRemark)
	}

	snapshot, err := balances.Recount(context.Background(), 1)
	if err != nil {
		t.Fatalf("recount failed: %v", err)
	}
	if !snapshot.Usable.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("usable = %s, want 100.00 after reject", snapshot.Usable)
	}
}
