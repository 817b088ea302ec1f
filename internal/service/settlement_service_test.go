package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSettlementTest(t *testing.T) (*SettlementService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.PaymentRecord{},
		&models.PaymentRefund{},
		&models.BalanceFlow{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	balances := ledger.NewBalanceLedger(db, repository.NewBalanceRepository(db))
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	svc := NewSettlementService(
		db,
		repository.NewRecordRepository(db),
		repository.NewRefundRepository(db),
		repository.NewUserRepository(db),
		balances,
		queueClient,
		NewNotifyTokenCodec("settlement-test-secret"),
		"https://pay.example.com",
	)
	return svc, db
}

func testChannel(channelType, code string) *models.PaymentChannel {
	return &models.PaymentChannel{
		Type:   channelType,
		Code:   code,
		Name:   "测试通道",
		Status: 1,
	}
}

func mustCreateRecord(t *testing.T, svc *SettlementService, ch *models.PaymentChannel, payCode, orderNo string, amount decimal.Decimal, opts channel.CreateOptions) *models.PaymentRecord {
	t.Helper()
	record, err := svc.CreateAction(context.Background(), channel.Account{Unid: 1}, ch, payCode, channel.CreateInput{
		OrderNo:     orderNo,
		OrderTitle:  "测试订单",
		OrderAmount: amount,
		PayAmount:   amount,
	}, opts)
	if err != nil {
		t.Fatalf("create action failed: %v", err)
	}
	return record
}

func TestCreateActionRejectsDuplicateCode(t *testing.T) {
	svc, _ := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeVoucher, "voucher-1")
	amount := decimal.RequireFromString("100.00")

	mustCreateRecord(t, svc, ch, "P1001", "O2001", amount, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})

	_, err := svc.CreateAction(context.Background(), channel.Account{Unid: 1}, ch, "P1001", channel.CreateInput{
		OrderNo:     "O2002",
		OrderAmount: amount,
		PayAmount:   amount,
	}, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})
	if err != ErrRecordExists {
		t.Fatalf("expected ErrRecordExists, got %v", err)
	}
}

func TestCreateActionRejectsPaidOrder(t *testing.T) {
	svc, _ := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeEpay, "epay-1")
	amount := decimal.RequireFromString("50.00")

	mustCreateRecord(t, svc, ch, "P1001", "O2001", amount, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})
	if _, updated, err := svc.UpdateAction(context.Background(), "P1001", "T9001", amount, "支付成功"); err != nil || !updated {
		t.Fatalf("settle record failed: updated=%v err=%v", updated, err)
	}

	_, err := svc.CreateAction(context.Background(), channel.Account{Unid: 1}, ch, "", channel.CreateInput{
		OrderNo:     "O2001",
		OrderAmount: amount,
		PayAmount:   amount,
	}, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})
	if err != ErrAlreadyPaid {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCheckLeaveAmount(t *testing.T) {
	svc, _ := setupSettlementTest(t)
	orderAmount := decimal.RequireFromString("100.00")

	voucher := testChannel(constants.ChannelTypeVoucher, "voucher-1")
	mustCreateRecord(t, svc, voucher, "P1001", "O2001", decimal.RequireFromString("40.00"), channel.CreateOptions{AuditStatus: constants.AuditStatusPending})

	err := svc.CheckLeaveAmount(context.Background(), "O2001", decimal.RequireFromString("10.00"), orderAmount)
	if err != ErrOrderAuditPending {
		t.Fatalf("expected ErrOrderAuditPending, got %v", err)
	}

	if _, updated, err := svc.UpdateAction(context.Background(), "P1001", "AUD1", decimal.Zero, "凭证审核通过"); err != nil || !updated {
		t.Fatalf("settle voucher failed: updated=%v err=%v", updated, err)
	}

	if err := svc.CheckLeaveAmount(context.Background(), "O2001", decimal.RequireFromString("60.00"), orderAmount); err != nil {
		t.Fatalf("expected leave amount ok, got %v", err)
	}
	err = svc.CheckLeaveAmount(context.Background(), "O2001", decimal.RequireFromString("60.01"), orderAmount)
	if err != ErrAmountOverflow {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestUpdateActionIdempotent(t *testing.T) {
	svc, _ := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeEpay, "epay-1")
	amount := decimal.RequireFromString("80.00")

	mustCreateRecord(t, svc, ch, "P1001", "O2001", amount, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})

	first, updated, err := svc.UpdateAction(context.Background(), "P1001", "T9001", amount, "支付成功")
	if err != nil || !updated {
		t.Fatalf("first settle failed: updated=%v err=%v", updated, err)
	}
	if first.PaymentTrade != "T9001" || first.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("unexpected settled record: %+v", first)
	}

	second, updated, err := svc.UpdateAction(context.Background(), "P1001", "T9002", amount, "重复回调")
	if err != nil {
		t.Fatalf("second settle errored: %v", err)
	}
	if updated || second != nil {
		t.Fatalf("expected silent no-op on duplicate settle, got updated=%v record=%+v", updated, second)
	}

	got, err := svc.records.GetByCode("P1001")
	if err != nil {
		t.Fatalf("get record failed: %v", err)
	}
	if got.PaymentTrade != "T9001" {
		t.Fatalf("duplicate settle overwrote trade: %s", got.PaymentTrade)
	}
}

func TestSyncRefundSelfSettled(t *testing.T) {
	svc, db := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeBalance, "balance-1")
	amount := decimal.RequireFromString("100.00")

	record, err := svc.CreateAction(context.Background(), channel.Account{Unid: 1}, ch, "", channel.CreateInput{
		OrderNo:     "O2001",
		OrderAmount: amount,
		PayAmount:   amount,
	}, channel.CreateOptions{
		AuditStatus: constants.AuditStatusApproved,
		UsedBalance: amount,
	})
	if err != nil {
		t.Fatalf("create action failed: %v", err)
	}
	if _, updated, err := svc.UpdateAction(context.Background(), record.Code, "T9001", amount, "余额支付"); err != nil || !updated {
		t.Fatalf("settle failed: updated=%v err=%v", updated, err)
	}

	part := decimal.RequireFromString("30.00")
	refunded, err := svc.SyncRefund(context.Background(), record.Code, "用户取消", &part, "")
	if err != nil {
		t.Fatalf("sync refund failed: %v", err)
	}
	if !refunded.RefundAmount.Decimal.Equal(part) {
		t.Fatalf("refund amount = %s, want 30.00", refunded.RefundAmount.String())
	}
	if refunded.AuditStatus != constants.AuditStatusRejected {
		t.Fatalf("audit status = %d, want rejected", refunded.AuditStatus)
	}
	if !strings.HasPrefix(refunded.AuditRemark, "已申请取消支付") {
		t.Fatalf("unexpected audit remark: %s", refunded.AuditRemark)
	}

	// 即时结算通道退款即时成功，余额按比例返还
	var refund models.PaymentRefund
	if err := db.Where("record_code = ?", record.Code).First(&refund).Error; err != nil {
		t.Fatalf("load refund failed: %v", err)
	}
	if refund.RefundStatus != constants.RefundStatusSucceeded {
		t.Fatalf("refund status = %d, want succeeded", refund.RefundStatus)
	}
	if refund.RefundTrade == "" {
		t.Fatalf("self settled refund missing trade id")
	}
	snapshot, err := svc.balances.Recount(context.Background(), 1)
	if err != nil {
		t.Fatalf("recount failed: %v", err)
	}
	if !snapshot.Usable.Equal(part) {
		t.Fatalf("usable balance = %s, want 30.00", snapshot.Usable)
	}

	// 聚合不变量：累计退款等于成功退款单之和，且不可超付
	part2 := decimal.RequireFromString("70.00")
	refunded, err = svc.SyncRefund(context.Background(), record.Code, "剩余退款", &part2, "")
	if err != nil {
		t.Fatalf("second refund failed: %v", err)
	}
	if !refunded.RefundAmount.Decimal.Equal(amount) {
		t.Fatalf("refund aggregate = %s, want 100.00", refunded.RefundAmount.String())
	}
	over := decimal.RequireFromString("0.01")
	if _, err := svc.SyncRefund(context.Background(), record.Code, "超额", &over, ""); err != ErrRefundOverflow {
		t.Fatalf("expected ErrRefundOverflow, got %v", err)
	}
}

func TestSyncRefundGatewayAndSettle(t *testing.T) {
	svc, db := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeEpay, "epay-1")
	amount := decimal.RequireFromString("60.00")

	record := mustCreateRecord(t, svc, ch, "P1001", "O2001", amount, channel.CreateOptions{AuditStatus: constants.AuditStatusApproved})
	if _, updated, err := svc.UpdateAction(context.Background(), record.Code, "T9001", amount, "支付成功"); err != nil || !updated {
		t.Fatalf("settle failed: updated=%v err=%v", updated, err)
	}

	part := decimal.RequireFromString("25.00")
	synced, err := svc.SyncRefund(context.Background(), record.Code, "部分退款", &part, "")
	if err != nil {
		t.Fatalf("sync refund failed: %v", err)
	}
	// 网关通道退款保持处理中，聚合不计入
	if !synced.RefundAmount.Decimal.IsZero() {
		t.Fatalf("pending refund counted in aggregate: %s", synced.RefundAmount.String())
	}
	var refund models.PaymentRefund
	if err := db.Where("record_code = ?", record.Code).First(&refund).Error; err != nil {
		t.Fatalf("load refund failed: %v", err)
	}
	if refund.RefundStatus != constants.RefundStatusPending {
		t.Fatalf("refund status = %d, want pending", refund.RefundStatus)
	}

	if err := svc.SettleRefund(context.Background(), refund.Code, "GW-R1", "REFUND_SUCCESS", true); err != nil {
		t.Fatalf("settle refund failed: %v", err)
	}
	got, err := svc.records.GetByCode(record.Code)
	if err != nil {
		t.Fatalf("get record failed: %v", err)
	}
	if !got.RefundAmount.Decimal.Equal(part) {
		t.Fatalf("refund aggregate = %s, want 25.00", got.RefundAmount.String())
	}

	// 重复结算静默通过，聚合不变
	if err := svc.SettleRefund(context.Background(), refund.Code, "GW-R2", "REFUND_SUCCESS", true); err != nil {
		t.Fatalf("duplicate settle refund errored: %v", err)
	}
	var settled models.PaymentRefund
	if err := db.Where("code = ?", refund.Code).First(&settled).Error; err != nil {
		t.Fatalf("reload refund failed: %v", err)
	}
	if settled.RefundTrade != "GW-R1" {
		t.Fatalf("duplicate settle overwrote trade: %s", settled.RefundTrade)
	}
}

func TestSyncRefundRequiresPaidRecord(t *testing.T) {
	svc, _ := setupSettlementTest(t)
	ch := testChannel(constants.ChannelTypeVoucher, "voucher-1")
	amount := decimal.RequireFromString("10.00")

	mustCreateRecord(t, svc, ch, "P1001", "O2001", amount, channel.CreateOptions{AuditStatus: constants.AuditStatusPending})
	if _, err := svc.SyncRefund(context.Background(), "P1001", "取消", &amount, ""); err != ErrRecordNotPaid {
		t.Fatalf("expected ErrRecordNotPaid, got %v", err)
	}
	if _, err := svc.SyncRefund(context.Background(), "missing", "取消", &amount, ""); err != ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
