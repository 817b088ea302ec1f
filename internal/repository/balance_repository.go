package repository

import (
	"errors"
	"strings"

	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceRepository 余额流水数据访问接口
type BalanceRepository interface {
	Create(flow *models.BalanceFlow) error
	GetByCode(code string) (*models.BalanceFlow, error)
	Unlock(code string) (bool, error)
	Cancel(code string) (bool, error)
	SumUsable(unid uint) (decimal.Decimal, error)
	SumLocked(unid uint) (decimal.Decimal, error)
	List(filter BalanceFlowListFilter) ([]models.BalanceFlow, int64, error)
	WithTx(tx *gorm.DB) *GormBalanceRepository
}

// GormBalanceRepository GORM 实现
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository 创建余额流水仓库
func NewBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBalanceRepository) WithTx(tx *gorm.DB) *GormBalanceRepository {
	if tx == nil {
		return r
	}
	return &GormBalanceRepository{db: tx}
}

// Create 创建余额流水
func (r *GormBalanceRepository) Create(flow *models.BalanceFlow) error {
	return r.db.Create(flow).Error
}

// GetByCode 根据业务单号获取余额流水
func (r *GormBalanceRepository) GetByCode(code string) (*models.BalanceFlow, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var flow models.BalanceFlow
	if err := r.db.Where("code = ?", code).First(&flow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &flow, nil
}

// Unlock 解锁流水（消费完成），重复解锁不生效并返回 false
func (r *GormBalanceRepository) Unlock(code string) (bool, error) {
	result := r.db.Model(&models.BalanceFlow{}).
		Where("code = ? AND locked = ? AND cancelled = ?", code, 1, 0).
		Update("locked", 0)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Cancel 作废流水（退回余额），重复作废不生效并返回 false
func (r *GormBalanceRepository) Cancel(code string) (bool, error) {
	result := r.db.Model(&models.BalanceFlow{}).
		Where("code = ? AND cancelled = ?", code, 0).
		Update("cancelled", 1)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SumUsable 汇总用户可用余额（全部有效流水之和）
func (r *GormBalanceRepository) SumUsable(unid uint) (decimal.Decimal, error) {
	return r.sumAmount(r.db.Model(&models.BalanceFlow{}).
		Where("unid = ? AND cancelled = ?", unid, 0))
}

// SumLocked 汇总用户锁定余额（有效锁定流水绝对值之和）
func (r *GormBalanceRepository) SumLocked(unid uint) (decimal.Decimal, error) {
	total, err := r.sumAmount(r.db.Model(&models.BalanceFlow{}).
		Where("unid = ? AND locked = ? AND cancelled = ?", unid, 1, 0))
	if err != nil {
		return decimal.Zero, err
	}
	return total.Abs(), nil
}

func (r *GormBalanceRepository) sumAmount(query *gorm.DB) (decimal.Decimal, error) {
	var flows []models.BalanceFlow
	if err := query.Find(&flows).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, flow := range flows {
		total = total.Add(flow.Amount.Decimal)
	}
	return total, nil
}

// List 余额流水列表
func (r *GormBalanceRepository) List(filter BalanceFlowListFilter) ([]models.BalanceFlow, int64, error) {
	query := r.db.Model(&models.BalanceFlow{})

	if filter.Unid != 0 {
		query = query.Where("unid = ?", filter.Unid)
	}
	if filter.Locked != nil {
		query = query.Where("locked = ?", *filter.Locked)
	}
	if filter.Cancelled != nil {
		query = query.Where("cancelled = ?", *filter.Cancelled)
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

	var flows []models.BalanceFlow
	if err := query.Order("id desc").Find(&flows).Error; err != nil {
		return nil, 0, err
	}
	return flows, total, nil
}
