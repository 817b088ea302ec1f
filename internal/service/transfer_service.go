package service

import (
	"context"
	"fmt"
	"time"

	"github.com/payhub-next/internal/cache"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const transferSettingsCacheKey = "transfer:settings"

// TransferTypeSetting 单个提现方式的配置
type TransferTypeSetting struct {
	Enabled    bool            `json:"enabled"`     // 是否开启
	AuditFree  bool            `json:"audit_free"`  // 免审核直接进入已审状态
	MinAmount  decimal.Decimal `json:"min_amount"`  // 单笔最小金额
	MaxAmount  decimal.Decimal `json:"max_amount"`  // 单笔最大金额
	ChargeRate decimal.Decimal `json:"charge_rate"` // 手续费率（百分比）
	DailyLimit int             `json:"daily_limit"` // 每日提现次数上限，0 不限
}

// TransferSettings 提现功能配置快照
type TransferSettings struct {
	Enabled bool                           `json:"enabled"` // 提现总开关
	Types   map[string]TransferTypeSetting `json:"types"`   // 按方式配置
}

// DefaultTransferSettings 默认提现配置
func DefaultTransferSettings() *TransferSettings {
	base := TransferTypeSetting{
		Enabled:    true,
		MinAmount:  decimal.NewFromInt(1),
		MaxAmount:  decimal.NewFromInt(10000),
		ChargeRate: decimal.Zero,
		DailyLimit: 10,
	}
	types := make(map[string]TransferTypeSetting, len(constants.TransferTypeNames))
	for t := range constants.TransferTypeNames {
		types[t] = base
	}
	return &TransferSettings{Enabled: true, Types: types}
}

// TransferService 提现服务，维护提现状态机与余额锁定的一致性
type TransferService struct {
	db        *gorm.DB
	transfers repository.TransferRepository
	balances  ledger.BalanceLedger
	queue     *queue.Client
	settings  *TransferSettings
}

// NewTransferService 创建提现服务
func NewTransferService(
	db *gorm.DB,
	transfers repository.TransferRepository,
	balances ledger.BalanceLedger,
	queueClient *queue.Client,
) *TransferService {
	return &TransferService{
		db:        db,
		transfers: transfers,
		balances:  balances,
		queue:     queueClient,
	}
}

// Settings 读取提现配置，优先取缓存快照
func (s *TransferService) Settings(ctx context.Context) *TransferSettings {
	if s.settings != nil {
		return s.settings
	}
	settings := &TransferSettings{}
	ok, err := cache.GetJSON(ctx, transferSettingsCacheKey, settings)
	if err != nil {
		logger.Warnw("transfer_settings_cache_read_failed", "error", err)
	}
	if !ok || settings.Types == nil {
		settings = DefaultTransferSettings()
	}
	s.settings = settings
	return settings
}

// UpdateSettings 更新提现配置并刷新缓存快照
func (s *TransferService) UpdateSettings(ctx context.Context, settings *TransferSettings) error {
	if settings == nil || settings.Types == nil {
		return fmt.Errorf("提现配置不完整")
	}
	if err := cache.SetJSON(ctx, transferSettingsCacheKey, settings, 0); err != nil {
		return err
	}
	s.settings = settings
	return nil
}

// SubmitInput 用户提现申请参数
type SubmitInput struct {
	Type       string          `json:"type" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Appid      string          `json:"appid"`
	Openid     string          `json:"openid"`
	Qrcode     string          `json:"qrcode"`
	BankName   string          `json:"bank_name"`
	BankBran   string          `json:"bank_bran"`
	BankUser   string          `json:"bank_user"`
	BankCode   string          `json:"bank_code"`
	AlipayUser string          `json:"alipay_user"`
	AlipayCode string          `json:"alipay_code"`
	Remark     string          `json:"remark"`
}

// Submit 用户发起提现申请。
// 校验通过后在同一事务内锁定余额并落库，锁定失败申请不成立。
func (s *TransferService) Submit(ctx context.Context, unid uint, input SubmitInput) (*models.PaymentTransfer, error) {
	settings := s.Settings(ctx)
	if !settings.Enabled {
		return nil, ErrTransferDisabled
	}
	typeSetting, ok := settings.Types[input.Type]
	if !ok || !typeSetting.Enabled {
		return nil, ErrTransferTypeDisabled
	}
	if err := validateTransferFields(input); err != nil {
		return nil, err
	}
	if input.Amount.LessThan(typeSetting.MinAmount) || input.Amount.GreaterThan(typeSetting.MaxAmount) {
		return nil, ErrTransferAmountRange
	}

	date := time.Now().Format("2006-01-02")
	if typeSetting.DailyLimit > 0 {
		count, err := s.transfers.CountByUserDate(unid, date)
		if err != nil {
			return nil, err
		}
		if count >= int64(typeSetting.DailyLimit) {
			return nil, ErrTransferDailyLimit
		}
	}

	charge := input.Amount.Mul(typeSetting.ChargeRate).Div(decimal.NewFromInt(100)).Round(2)
	code := GenerateCode(constants.CodePrefixTransfer)

	transfer := &models.PaymentTransfer{
		Unid:         unid,
		Type:         input.Type,
		Date:         date,
		Code:         code,
		Appid:        input.Appid,
		Openid:       input.Openid,
		ChargeRate:   models.Money{Decimal: typeSetting.ChargeRate},
		ChargeAmount: models.Money{Decimal: charge},
		Amount:       models.Money{Decimal: input.Amount},
		Qrcode:       input.Qrcode,
		BankName:     input.BankName,
		BankBran:     input.BankBran,
		BankUser:     input.BankUser,
		BankCode:     input.BankCode,
		AlipayUser:   input.AlipayUser,
		AlipayCode:   input.AlipayCode,
		Remark:       input.Remark,
		AuditStatus:  constants.TransferAuditPending,
		Status:       constants.TransferStatusPending,
	}
	if input.Type == constants.TransferTypeWechatBanks {
		count, err := s.transfers.CountByType(input.Type)
		if err != nil {
			return nil, err
		}
		transfer.BankWseq = fmt.Sprintf("W%06d", count+1)
	}
	if typeSetting.AuditFree {
		now := time.Now()
		transfer.AuditStatus = constants.TransferAuditRejected
		transfer.AuditTime = &now
		transfer.AuditRemark = "免审核"
		transfer.Status = constants.TransferStatusApproved
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		name := "提现锁定 " + transfer.TypeName()
		if err := s.balances.WithTx(tx).Lock(ctx, unid, code, name, input.Amount); err != nil {
			return err
		}
		return s.transfers.WithTx(tx).Create(transfer)
	})
	if err != nil {
		if err == ledger.ErrInsufficientBalance {
			return nil, ErrBalanceInsufficient
		}
		return nil, err
	}

	if typeSetting.AuditFree && isOnlineTransferType(transfer.Type) {
		s.enqueuePayout(ctx, transfer.Code)
	}
	logger.Infow("transfer_submitted",
		"code", code,
		"unid", unid,
		"type", input.Type,
		"amount", input.Amount.StringFixed(2),
	)
	return transfer, nil
}

// AdminAudit 管理端审核提现。
// 驳回解除余额锁定并作废流水；通过后线上方式进入打款队列。
func (s *TransferService) AdminAudit(ctx context.Context, operator uint, code string, approve bool, remark string) (*models.PaymentTransfer, error) {
	transfer, err := s.transfers.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}

	now := time.Now()
	if !approve {
		values := map[string]interface{}{
			"status":       constants.TransferStatusRejected,
			"audit_status": constants.TransferAuditRejected,
			"audit_time":   &now,
			"audit_remark": remark,
			"change_time":  &now,
			"change_desc":  fmt.Sprintf("管理员(%d)驳回提现", operator),
		}
		changed, err := s.transfers.UpdateGuarded(code, []int{
			constants.TransferStatusPending,
			constants.TransferStatusApproved,
			constants.TransferStatusDisbursing,
		}, values)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := s.balances.Cancel(ctx, code); err != nil {
				logger.Errorw("transfer_lock_cancel_failed", "code", code, "error", err)
			}
			logger.Infow("transfer_audit_rejected", "code", code, "operator", operator)
		}
		return s.transfers.GetByCode(code)
	}

	values := map[string]interface{}{
		"status":       constants.TransferStatusApproved,
		"audit_status": constants.TransferAuditApproved,
		"audit_time":   &now,
		"audit_remark": remark,
		"change_time":  &now,
		"change_desc":  fmt.Sprintf("管理员(%d)审核通过", operator),
	}
	changed, err := s.transfers.UpdateGuarded(code, []int{constants.TransferStatusPending}, values)
	if err != nil {
		return nil, err
	}
	if changed {
		if isOnlineTransferType(transfer.Type) {
			s.enqueuePayout(ctx, code)
		}
		logger.Infow("transfer_audit_approved", "code", code, "operator", operator)
	}
	return s.transfers.GetByCode(code)
}

// AdminMarkPaid 管理端线下打款完成，补记交易号
func (s *TransferService) AdminMarkPaid(ctx context.Context, operator uint, code, tradeNo string) (*models.PaymentTransfer, error) {
	if tradeNo == "" {
		tradeNo = GenerateCode(constants.CodePrefixTransfer)
	}
	now := time.Now()
	values := map[string]interface{}{
		"status":      constants.TransferStatusPaid,
		"trade_no":    tradeNo,
		"trade_time":  &now,
		"change_time": &now,
		"change_desc": fmt.Sprintf("管理员(%d)确认已打款", operator),
	}
	changed, err := s.transfers.UpdateGuarded(code, []int{
		constants.TransferStatusApproved,
		constants.TransferStatusDisbursing,
	}, values)
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Infow("transfer_marked_paid", "code", code, "operator", operator, "trade_no", tradeNo)
	}
	return s.transfers.GetByCode(code)
}

// MarkDisbursing 打款任务开始处理时推进状态
func (s *TransferService) MarkDisbursing(ctx context.Context, code string) (bool, error) {
	now := time.Now()
	return s.transfers.UpdateGuarded(code, []int{constants.TransferStatusApproved}, map[string]interface{}{
		"status":      constants.TransferStatusDisbursing,
		"change_time": &now,
		"change_desc": "线上打款处理中",
	})
}

// MarkPaid 打款成功回写交易信息
func (s *TransferService) MarkPaid(ctx context.Context, code, tradeNo string) (bool, error) {
	now := time.Now()
	return s.transfers.UpdateGuarded(code, []int{constants.TransferStatusDisbursing}, map[string]interface{}{
		"status":      constants.TransferStatusPaid,
		"trade_no":    tradeNo,
		"trade_time":  &now,
		"change_time": &now,
		"change_desc": "线上打款成功",
	})
}

// MarkPayoutFailed 打款失败退回已审状态，等待重试或人工处理
func (s *TransferService) MarkPayoutFailed(ctx context.Context, code, reason string) (bool, error) {
	now := time.Now()
	return s.transfers.UpdateGuarded(code, []int{constants.TransferStatusDisbursing}, map[string]interface{}{
		"status":      constants.TransferStatusApproved,
		"change_time": &now,
		"change_desc": "线上打款失败：" + reason,
	})
}

// UserCancel 用户撤回提现。
// 仅待审至打款中可撤回，撤回解除余额锁定；状态不匹配时静默不变。
func (s *TransferService) UserCancel(ctx context.Context, unid uint, code string) (*models.PaymentTransfer, error) {
	if _, err := s.ownedTransfer(unid, code); err != nil {
		return nil, err
	}
	now := time.Now()
	changed, err := s.transfers.UpdateGuarded(code, []int{
		constants.TransferStatusPending,
		constants.TransferStatusApproved,
		constants.TransferStatusDisbursing,
	}, map[string]interface{}{
		"status":      constants.TransferStatusRejected,
		"change_time": &now,
		"change_desc": "用户撤回提现",
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.balances.Cancel(ctx, code); err != nil {
			logger.Errorw("transfer_lock_cancel_failed", "code", code, "error", err)
		}
		logger.Infow("transfer_cancelled", "code", code, "unid", unid)
	}
	return s.transfers.GetByCode(code)
}

// UserConfirm 用户确认收款。
// 仅已打款可确认，确认消耗余额锁定；重复确认静默不变。
func (s *TransferService) UserConfirm(ctx context.Context, unid uint, code string) (*models.PaymentTransfer, error) {
	if _, err := s.ownedTransfer(unid, code); err != nil {
		return nil, err
	}
	now := time.Now()
	changed, err := s.transfers.UpdateGuarded(code, []int{constants.TransferStatusPaid}, map[string]interface{}{
		"status":      constants.TransferStatusConfirmed,
		"change_time": &now,
		"change_desc": "用户确认收款",
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.balances.Unlock(ctx, code); err != nil {
			logger.Errorw("transfer_lock_unlock_failed", "code", code, "error", err)
		}
		logger.Infow("transfer_confirmed", "code", code, "unid", unid)
	}
	return s.transfers.GetByCode(code)
}

// Amounts 用户提现金额汇总
func (s *TransferService) Amounts(ctx context.Context, unid uint) (*repository.TransferAmounts, *ledger.Snapshot, error) {
	amounts, err := s.transfers.SumAmounts(unid)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := s.balances.Recount(ctx, unid)
	if err != nil {
		return nil, nil, err
	}
	return amounts, snapshot, nil
}

// GetByCode 按单号查询提现
func (s *TransferService) GetByCode(code string) (*models.PaymentTransfer, error) {
	transfer, err := s.transfers.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

// ListAdmin 管理端提现列表
func (s *TransferService) ListAdmin(filter repository.TransferListFilter) ([]models.PaymentTransfer, int64, error) {
	return s.transfers.ListAdmin(filter)
}

// SyncPayouts 将等待打款的零钱提现重新入队，消费失败后人工补发
func (s *TransferService) SyncPayouts(ctx context.Context) (int, error) {
	transfers, err := s.transfers.ListPendingPayout(constants.TransferTypeWechatWallet, 100)
	if err != nil {
		return 0, err
	}
	for _, transfer := range transfers {
		s.enqueuePayout(ctx, transfer.Code)
	}
	if len(transfers) > 0 {
		logger.Infow("transfer_payout_sync", "count", len(transfers))
	}
	return len(transfers), nil
}

func (s *TransferService) ownedTransfer(unid uint, code string) (*models.PaymentTransfer, error) {
	transfer, err := s.transfers.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if transfer == nil || transfer.Unid != unid {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

func (s *TransferService) enqueuePayout(ctx context.Context, code string) {
	if s.queue == nil || !s.queue.Enabled() {
		return
	}
	if err := s.queue.EnqueueTransferPayout(queue.TransferPayoutPayload{Code: code}); err != nil {
		logger.Errorw("transfer_payout_enqueue_failed", "code", code, "error", err)
	}
}

// isOnlineTransferType 是否走线上自动打款
func isOnlineTransferType(transferType string) bool {
	return transferType == constants.TransferTypeWechatWallet ||
		transferType == constants.TransferTypeWechatBanks
}

func validateTransferFields(input SubmitInput) error {
	switch input.Type {
	case constants.TransferTypeWechatWallet:
		if input.Appid == "" || input.Openid == "" {
			return ErrTransferFieldMissing
		}
	case constants.TransferTypeWechatQrcode, constants.TransferTypeAlipayQrcode:
		if input.Qrcode == "" {
			return ErrTransferFieldMissing
		}
	case constants.TransferTypeWechatBanks, constants.TransferTypeBankAccount:
		if input.BankName == "" || input.BankUser == "" || input.BankCode == "" {
			return ErrTransferFieldMissing
		}
	case constants.TransferTypeAlipayAccount:
		if input.AlipayUser == "" || input.AlipayCode == "" {
			return ErrTransferFieldMissing
		}
	default:
		return ErrTransferTypeDisabled
	}
	return nil
}
