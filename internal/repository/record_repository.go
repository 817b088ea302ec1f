package repository

import (
	"errors"
	"strings"

	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordRepository 支付单数据访问接口
type RecordRepository interface {
	Create(record *models.PaymentRecord) error
	Update(record *models.PaymentRecord) error
	GetByCode(code string) (*models.PaymentRecord, error)
	GetLatestByOrderChannel(orderNo, channelCode string) (*models.PaymentRecord, error)
	ListByOrder(orderNo string) ([]models.PaymentRecord, error)
	CountPendingAudit(orderNo string) (int64, error)
	SumPaidAmount(orderNo string) (decimal.Decimal, error)
	ListAdmin(filter RecordListFilter) ([]models.PaymentRecord, int64, error)
	WithTx(tx *gorm.DB) *GormRecordRepository
}

// GormRecordRepository GORM 实现
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建支付单仓库
func NewRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRecordRepository) WithTx(tx *gorm.DB) *GormRecordRepository {
	if tx == nil {
		return r
	}
	return &GormRecordRepository{db: tx}
}

// Create 创建支付单
func (r *GormRecordRepository) Create(record *models.PaymentRecord) error {
	return r.db.Create(record).Error
}

// Update 更新支付单
func (r *GormRecordRepository) Update(record *models.PaymentRecord) error {
	return r.db.Save(record).Error
}

// GetByCode 根据单号获取支付单
func (r *GormRecordRepository) GetByCode(code string) (*models.PaymentRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var record models.PaymentRecord
	if err := r.db.Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetLatestByOrderChannel 获取订单在指定通道下最新的支付单
func (r *GormRecordRepository) GetLatestByOrderChannel(orderNo, channelCode string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	result := r.db.Where("order_no = ? AND channel_code = ?", orderNo, channelCode).
		Order("id desc").Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &record, nil
}

// ListByOrder 获取订单全部支付单
func (r *GormRecordRepository) ListByOrder(orderNo string) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	if err := r.db.Where("order_no = ?", orderNo).Order("id desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountPendingAudit 统计订单待审核的凭证支付单数量
func (r *GormRecordRepository) CountPendingAudit(orderNo string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PaymentRecord{}).
		Where("order_no = ? AND channel_type = ? AND audit_status = ?",
			orderNo, constants.ChannelTypeVoucher, constants.AuditStatusPending).
		Count(&count).Error
	return count, err
}

// SumPaidAmount 汇总订单已支付金额（含锁定余额与积分抵扣）
func (r *GormRecordRepository) SumPaidAmount(orderNo string) (decimal.Decimal, error) {
	var rows []models.PaymentRecord
	err := r.db.Where("order_no = ? AND payment_status = ?", orderNo, constants.PaymentStatusPaid).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.PaymentAmount.Decimal).Sub(row.RefundAmount.Decimal)
	}
	return total, nil
}

// ListAdmin 管理端支付单列表
func (r *GormRecordRepository) ListAdmin(filter RecordListFilter) ([]models.PaymentRecord, int64, error) {
	query := r.db.Model(&models.PaymentRecord{})

	if filter.Unid != 0 {
		query = query.Where("unid = ?", filter.Unid)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.ChannelType != "" {
		query = query.Where("channel_type = ?", filter.ChannelType)
	}
	if filter.ChannelCode != "" {
		query = query.Where("channel_code = ?", filter.ChannelCode)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.AuditStatus != nil {
		query = query.Where("audit_status = ?", *filter.AuditStatus)
	}
	if filter.RefundStatus != nil {
		query = query.Where("refund_status = ?", *filter.RefundStatus)
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

	var records []models.PaymentRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
