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

func setupRecordRepositoryTest(t *testing.T) (*GormRecordRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:record_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PaymentRecord{},
		&models.PaymentRefund{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRecordRepository(db), db
}

func TestRecordRepositoryGetByCode(t *testing.T) {
	repo, _ := setupRecordRepositoryTest(t)

	record := models.PaymentRecord{
		Unid:        7,
		Code:        "P1001",
		OrderNo:     "O2001",
		OrderAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
		ChannelType: constants.ChannelTypeBalance,
		ChannelCode: "balance-1",
		AuditStatus: constants.AuditStatusApproved,
	}
	if err := repo.Create(&record); err != nil {
		t.Fatalf("create record failed: %v", err)
	}

	got, err := repo.GetByCode("P1001")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if got == nil || got.OrderNo != "O2001" {
		t.Fatalf("unexpected record: %+v", got)
	}

	missing, err := repo.GetByCode("P9999")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown code, got %+v", missing)
	}
}

func TestRecordRepositoryCountPendingAudit(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)

	records := []models.PaymentRecord{
		{
			Code: "P2001", OrderNo: "O3001",
			ChannelType: constants.ChannelTypeVoucher, ChannelCode: "voucher-1",
			AuditStatus: constants.AuditStatusPending,
		},
		{
			Code: "P2002", OrderNo: "O3001",
			ChannelType: constants.ChannelTypeVoucher, ChannelCode: "voucher-1",
			AuditStatus: constants.AuditStatusApproved,
		},
		{
			Code: "P2003", OrderNo: "O3001",
			ChannelType: constants.ChannelTypeBalance, ChannelCode: "balance-1",
			AuditStatus: constants.AuditStatusApproved,
		},
		{
			Code: "P2004", OrderNo: "O3002",
			ChannelType: constants.ChannelTypeVoucher, ChannelCode: "voucher-1",
			AuditStatus: constants.AuditStatusPending,
		},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create record failed: %v", err)
		}
	}

	count, err := repo.CountPendingAudit("O3001")
	if err != nil {
		t.Fatalf("count pending audit failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pending voucher record, got %d", count)
	}
}

func TestRecordRepositorySumPaidAmount(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)

	records := []models.PaymentRecord{
		{
			Code: "P3001", OrderNo: "O4001",
			ChannelType: constants.ChannelTypeBalance, ChannelCode: "balance-1",
			PaymentStatus: constants.PaymentStatusPaid,
			PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("30.00")),
		},
		{
			Code: "P3002", OrderNo: "O4001",
			ChannelType: constants.ChannelTypeEpay, ChannelCode: "epay-1",
			PaymentStatus: constants.PaymentStatusPaid,
			PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("50.00")),
			RefundAmount:  models.NewMoneyFromDecimal(decimal.RequireFromString("20.00")),
		},
		{
			Code: "P3003", OrderNo: "O4001",
			ChannelType: constants.ChannelTypeEpay, ChannelCode: "epay-1",
			PaymentStatus: constants.PaymentStatusUnpaid,
			PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("99.00")),
		},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create record failed: %v", err)
		}
	}

	total, err := repo.SumPaidAmount("O4001")
	if err != nil {
		t.Fatalf("sum paid amount failed: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected paid total 60.00, got %s", total.String())
	}
}

func TestRecordRepositoryListAdminFilters(t *testing.T) {
	repo, db := setupRecordRepositoryTest(t)

	paid := constants.PaymentStatusPaid
	records := []models.PaymentRecord{
		{Code: "P4001", OrderNo: "O5001", Unid: 1, ChannelType: constants.ChannelTypeBalance, ChannelCode: "balance-1", PaymentStatus: constants.PaymentStatusPaid},
		{Code: "P4002", OrderNo: "O5001", Unid: 1, ChannelType: constants.ChannelTypeEpay, ChannelCode: "epay-1", PaymentStatus: constants.PaymentStatusUnpaid},
		{Code: "P4003", OrderNo: "O5002", Unid: 2, ChannelType: constants.ChannelTypeEpay, ChannelCode: "epay-1", PaymentStatus: constants.PaymentStatusPaid},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("create record failed: %v", err)
		}
	}

	list, total, err := repo.ListAdmin(RecordListFilter{
		Page:          1,
		PageSize:      10,
		Unid:          1,
		PaymentStatus: &paid,
	})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Code != "P4001" {
		t.Fatalf("unexpected list result: total=%d list=%+v", total, list)
	}
}
