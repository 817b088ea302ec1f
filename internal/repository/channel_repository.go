package repository

import (
	"errors"
	"strings"

	"github.com/payhub-next/internal/models"

	"gorm.io/gorm"
)

// ChannelRepository 支付通道数据访问接口
type ChannelRepository interface {
	Create(channel *models.PaymentChannel) error
	Update(channel *models.PaymentChannel) error
	Delete(id uint) error
	GetByID(id uint) (*models.PaymentChannel, error)
	GetByCode(code string) (*models.PaymentChannel, error)
	ListEnabled() ([]models.PaymentChannel, error)
	ListAdmin(filter ChannelListFilter) ([]models.PaymentChannel, int64, error)
	WithTx(tx *gorm.DB) *GormChannelRepository
}

// GormChannelRepository GORM 实现
type GormChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建支付通道仓库
func NewChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

// WithTx 绑定事务
func (r *GormChannelRepository) WithTx(tx *gorm.DB) *GormChannelRepository {
	if tx == nil {
		return r
	}
	return &GormChannelRepository{db: tx}
}

// Create 创建支付通道
func (r *GormChannelRepository) Create(channel *models.PaymentChannel) error {
	return r.db.Create(channel).Error
}

// Update 更新支付通道
func (r *GormChannelRepository) Update(channel *models.PaymentChannel) error {
	return r.db.Save(channel).Error
}

// Delete 删除支付通道（软删除）
func (r *GormChannelRepository) Delete(id uint) error {
	return r.db.Delete(&models.PaymentChannel{}, id).Error
}

// GetByID 根据 ID 获取支付通道
func (r *GormChannelRepository) GetByID(id uint) (*models.PaymentChannel, error) {
	var channel models.PaymentChannel
	if err := r.db.First(&channel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// GetByCode 根据通道编号获取支付通道
func (r *GormChannelRepository) GetByCode(code string) (*models.PaymentChannel, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var channel models.PaymentChannel
	if err := r.db.Where("code = ?", code).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// ListEnabled 获取启用中的支付通道
func (r *GormChannelRepository) ListEnabled() ([]models.PaymentChannel, error) {
	var channels []models.PaymentChannel
	if err := r.db.Where("status = ?", 1).Order("sort asc, id asc").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// ListAdmin 管理端支付通道列表
func (r *GormChannelRepository) ListAdmin(filter ChannelListFilter) ([]models.PaymentChannel, int64, error) {
	query := r.db.Model(&models.PaymentChannel{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}
	if filter.ActiveOnly {
		query = query.Where("status = ?", 1)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var channels []models.PaymentChannel
	if err := query.Order("sort asc, id asc").Find(&channels).Error; err != nil {
		return nil, 0, err
	}
	return channels, total, nil
}
