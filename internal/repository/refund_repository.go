package repository

import (
	"errors"
	"strings"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundRepository 退款单数据访问接口
type RefundRepository interface {
	Create(refund *models.PaymentRefund) error
	Update(refund *models.PaymentRefund) error
	GetByCode(code string) (*models.PaymentRefund, error)
	ListByRecord(recordCode string) ([]models.PaymentRefund, error)
	SumSucceededAmount(recordCode string) (decimal.Decimal, error)
	ListAdmin(filter RefundListFilter) ([]models.PaymentRefund, int64, error)
	WithTx(tx *gorm.DB) *GormRefundRepository
}

// GormRefundRepository GORM 实现
type GormRefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退款单仓库
func NewRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRepository) WithTx(tx *gorm.DB) *GormRefundRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRepository{db: tx}
}

// Create 创建退款单
func (r *GormRefundRepository) Create(refund *models.PaymentRefund) error {
	return r.db.Create(refund).Error
}

// Update 更新退款单
func (r *GormRefundRepository) Update(refund *models.PaymentRefund) error {
	return r.db.Save(refund).Error
}

// GetByCode 根据退款单号获取退款单
func (r *GormRefundRepository) GetByCode(code string) (*models.PaymentRefund, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var refund models.PaymentRefund
	if err := r.db.Where("code = ?", code).First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ListByRecord 获取支付单全部退款单
func (r *GormRefundRepository) ListByRecord(recordCode string) ([]models.PaymentRefund, error) {
	var refunds []models.PaymentRefund
	if err := r.db.Where("record_code = ?", recordCode).Order("id desc").Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// SumSucceededAmount 汇总支付单已退款成功的金额
func (r *GormRefundRepository) SumSucceededAmount(recordCode string) (decimal.Decimal, error) {
	var refunds []models.PaymentRefund
	err := r.db.Where("record_code = ? AND refund_status = ?", recordCode, constants.RefundStatusSucceeded).
		Find(&refunds).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, refund := range refunds {
		total = total.Add(refund.RefundAmount.Decimal)
	}
	return total, nil
}

// ListAdmin 管理端退款单列表
func (r *GormRefundRepository) ListAdmin(filter RefundListFilter) ([]models.PaymentRefund, int64, error) {
	query := r.db.Model(&models.PaymentRefund{})

	if filter.RecordCode != "" {
		query = query.Where("record_code = ?", filter.RecordCode)
	}
	if filter.Status != nil {
		query = query.Where("refund_status = ?", *filter.Status)
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

	var refunds []models.PaymentRefund
	if err := query.Order("id desc").Find(&refunds).Error; err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}
