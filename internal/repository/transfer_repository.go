package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferAmounts 用户提现金额汇总
type TransferAmounts struct {
	Total   decimal.Decimal `json:"total"`   // 全部有效提现金额
	Audit   decimal.Decimal `json:"audit"`   // 待审核金额
	Locked  decimal.Decimal `json:"locked"`  // 审核通过但未到账金额
	Settled decimal.Decimal `json:"settled"` // 已到账金额
	Month   decimal.Decimal `json:"month"`   // 本月申请金额
	Year    decimal.Decimal `json:"year"`    // 本年申请金额
}

// TransferRepository 提现单数据访问接口
type TransferRepository interface {
	Create(transfer *models.PaymentTransfer) error
	Update(transfer *models.PaymentTransfer) error
	GetByCode(code string) (*models.PaymentTransfer, error)
	UpdateGuarded(code string, fromStatus []int, values map[string]interface{}) (bool, error)
	SumAmounts(unid uint) (*TransferAmounts, error)
	ListPendingPayout(transferType string, limit int) ([]models.PaymentTransfer, error)
	ListAdmin(filter TransferListFilter) ([]models.PaymentTransfer, int64, error)
	CountByType(transferType string) (int64, error)
	CountByUserDate(unid uint, date string) (int64, error)
	WithTx(tx *gorm.DB) *GormTransferRepository
}

// GormTransferRepository GORM 实现
type GormTransferRepository struct {
	db *gorm.DB
}

// NewTransferRepository 创建提现单仓库
func NewTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransferRepository) WithTx(tx *gorm.DB) *GormTransferRepository {
	if tx == nil {
		return r
	}
	return &GormTransferRepository{db: tx}
}

// Create 创建提现单
func (r *GormTransferRepository) Create(transfer *models.PaymentTransfer) error {
	return r.db.Create(transfer).Error
}

// Update 更新提现单
func (r *GormTransferRepository) Update(transfer *models.PaymentTransfer) error {
	return r.db.Save(transfer).Error
}

// GetByCode 根据提现单号获取提现单
func (r *GormTransferRepository) GetByCode(code string) (*models.PaymentTransfer, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var transfer models.PaymentTransfer
	if err := r.db.Where("code = ?", code).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

// UpdateGuarded 带状态前置条件的更新，状态不匹配时静默不生效并返回 false
func (r *GormTransferRepository) UpdateGuarded(code string, fromStatus []int, values map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.PaymentTransfer{}).
		Where("code = ? AND status IN ?", code, fromStatus).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SumAmounts 汇总用户提现金额
func (r *GormTransferRepository) SumAmounts(unid uint) (*TransferAmounts, error) {
	var transfers []models.PaymentTransfer
	err := r.db.Where("unid = ? AND status > ?", unid, constants.TransferStatusRejected).
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	amounts := &TransferAmounts{
		Total:   decimal.Zero,
		Audit:   decimal.Zero,
		Locked:  decimal.Zero,
		Settled: decimal.Zero,
		Month:   decimal.Zero,
		Year:    decimal.Zero,
	}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	for _, transfer := range transfers {
		amounts.Total = amounts.Total.Add(transfer.Amount.Decimal)
		if !transfer.CreatedAt.Before(monthStart) {
			amounts.Month = amounts.Month.Add(transfer.Amount.Decimal)
		}
		if !transfer.CreatedAt.Before(yearStart) {
			amounts.Year = amounts.Year.Add(transfer.Amount.Decimal)
		}
		switch transfer.Status {
		case constants.TransferStatusPending:
			amounts.Audit = amounts.Audit.Add(transfer.Amount.Decimal)
		case constants.TransferStatusApproved, constants.TransferStatusDisbursing:
			amounts.Locked = amounts.Locked.Add(transfer.Amount.Decimal)
		case constants.TransferStatusPaid, constants.TransferStatusConfirmed:
			amounts.Settled = amounts.Settled.Add(transfer.Amount.Decimal)
		}
	}
	return amounts, nil
}

// ListPendingPayout 获取等待打款的已审核提现单
func (r *GormTransferRepository) ListPendingPayout(transferType string, limit int) ([]models.PaymentTransfer, error) {
	query := r.db.Where("status = ?", constants.TransferStatusApproved)
	if transferType != "" {
		query = query.Where("type = ?", transferType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var transfers []models.PaymentTransfer
	if err := query.Order("id asc").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// ListAdmin 管理端提现单列表
func (r *GormTransferRepository) ListAdmin(filter TransferListFilter) ([]models.PaymentTransfer, int64, error) {
	query := r.db.Model(&models.PaymentTransfer{})

	if filter.Unid != 0 {
		query = query.Where("unid = ?", filter.Unid)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AuditStatus != nil {
		query = query.Where("audit_status = ?", *filter.AuditStatus)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var transfers []models.PaymentTransfer
	if err := query.Order("id desc").Find(&transfers).Error; err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}

// CountByType 统计指定提现方式的累计单数
func (r *GormTransferRepository) CountByType(transferType string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PaymentTransfer{}).
		Where("type = ?", transferType).
		Count(&count).Error
	return count, err
}

// CountByUserDate 统计用户当日有效提现单数
func (r *GormTransferRepository) CountByUserDate(unid uint, date string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PaymentTransfer{}).
		Where("unid = ? AND date = ? AND status > ?", unid, date, constants.TransferStatusRejected).
		Count(&count).Error
	return count, err
}
