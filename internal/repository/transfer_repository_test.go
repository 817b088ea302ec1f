package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTransferRepositoryTest(t *testing.T) (*GormTransferRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:transfer_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentTransfer{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewTransferRepository(db), db
}

func TestTransferRepositoryUpdateGuarded(t *testing.T) {
	repo, _ := setupTransferRepositoryTest(t)

	transfer := models.PaymentTransfer{
		Unid:   3,
		Type:   constants.TransferTypeAlipayAccount,
		Date:   "2026-08-31",
		Code:   "TX1001",
		Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("80.00")),
		Status: constants.TransferStatusPending,
	}
	if err := repo.Create(&transfer); err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}

	ok, err := repo.UpdateGuarded("TX1001",
		[]int{constants.TransferStatusPending},
		map[string]interface{}{"status": constants.TransferStatusApproved})
	if err != nil {
		t.Fatalf("guarded update failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected guarded update to take effect")
	}

	// 状态已前进，重复的同一迁移应静默不生效
	ok, err = repo.UpdateGuarded("TX1001",
		[]int{constants.TransferStatusPending},
		map[string]interface{}{"status": constants.TransferStatusApproved})
	if err != nil {
		t.Fatalf("repeat guarded update failed: %v", err)
	}
	if ok {
		t.Fatalf("expected repeated transition to be a no-op")
	}

	got, err := repo.GetByCode("TX1001")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if got == nil || got.Status != constants.TransferStatusApproved {
		t.Fatalf("unexpected transfer state: %+v", got)
	}
}

func TestTransferRepositorySumAmounts(t *testing.T) {
	repo, db := setupTransferRepositoryTest(t)

	transfers := []models.PaymentTransfer{
		{Unid: 5, Type: constants.TransferTypeAlipayAccount, Date: "2026-08-30", Code: "TX2001",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("10.00")), Status: constants.TransferStatusPending},
		{Unid: 5, Type: constants.TransferTypeAlipayAccount, Date: "2026-08-30", Code: "TX2002",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("20.00")), Status: constants.TransferStatusApproved},
		{Unid: 5, Type: constants.TransferTypeWechatWallet, Date: "2026-08-30", Code: "TX2003",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("30.00")), Status: constants.TransferStatusDisbursing},
		{Unid: 5, Type: constants.TransferTypeWechatWallet, Date: "2026-08-30", Code: "TX2004",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("40.00")), Status: constants.TransferStatusConfirmed},
		{Unid: 5, Type: constants.TransferTypeWechatWallet, Date: "2026-08-30", Code: "TX2005",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("99.00")), Status: constants.TransferStatusRejected},
		{Unid: 6, Type: constants.TransferTypeWechatWallet, Date: "2026-08-30", Code: "TX2006",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("77.00")), Status: constants.TransferStatusPending},
	}
	for i := range transfers {
		if err := db.Create(&transfers[i]).Error; err != nil {
			t.Fatalf("create transfer failed: %v", err)
		}
	}

	amounts, err := repo.SumAmounts(5)
	if err != nil {
		t.Fatalf("sum amounts failed: %v", err)
	}
	if !amounts.Total.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected total 100.00, got %s", amounts.Total.String())
	}
	if !amounts.Audit.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected audit 10.00, got %s", amounts.Audit.String())
	}
	if !amounts.Locked.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected locked 50.00, got %s", amounts.Locked.String())
	}
	if !amounts.Settled.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected settled 40.00, got %s", amounts.Settled.String())
	}
	if !amounts.Month.Equal(amounts.Total) || !amounts.Year.Equal(amounts.Total) {
		t.Fatalf("expected current period sums to cover all rows, got month %s year %s",
			amounts.Month.String(), amounts.Year.String())
	}
}

func TestTransferRepositoryCountByUserDate(t *testing.T) {
	repo, db := setupTransferRepositoryTest(t)

	transfers := []models.PaymentTransfer{
		{Unid: 9, Type: constants.TransferTypeAlipayAccount, Date: "2026-08-31", Code: "TX3001",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")), Status: constants.TransferStatusPending},
		{Unid: 9, Type: constants.TransferTypeAlipayAccount, Date: "2026-08-31", Code: "TX3002",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")), Status: constants.TransferStatusRejected},
		{Unid: 9, Type: constants.TransferTypeAlipayAccount, Date: "2026-08-30", Code: "TX3003",
			Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")), Status: constants.TransferStatusPending},
	}
	for i := range transfers {
		if err := db.Create(&transfers[i]).Error; err != nil {
			t.Fatalf("create transfer failed: %v", err)
		}
	}

	count, err := repo.CountByUserDate(9, "2026-08-31")
	if err != nil {
		t.Fatalf("count by user date failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 valid transfer today, got %d", count)
	}
}
