package service

import (
	"context"

	"github.com/payhub-next/internal/cache"
	"github.com/payhub-next/internal/channel"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
)

const enabledChannelsCacheKey = "channels:enabled"

// ChannelService 支付通道管理服务
type ChannelService struct {
	channels repository.ChannelRepository
	registry *channel.Registry
}

// NewChannelService 创建通道管理服务
func NewChannelService(channels repository.ChannelRepository, registry *channel.Registry) *ChannelService {
	return &ChannelService{channels: channels, registry: registry}
}

// ChannelView 用户侧通道展示信息，配置经策略过滤后不含密钥
type ChannelView struct {
	Code   string                 `json:"code"`
	Type   string                 `json:"type"`
	Name   string                 `json:"name"`
	Cover  string                 `json:"cover"`
	Remark string                 `json:"remark"`
	Sort   int64                  `json:"sort"`
	Config map[string]interface{} `json:"config"`
}

// ListEnabled 用户可见的启用通道列表，带缓存快照
func (s *ChannelService) ListEnabled(ctx context.Context) ([]ChannelView, error) {
	var views []ChannelView
	if ok, err := cache.GetJSON(ctx, enabledChannelsCacheKey, &views); err == nil && ok {
		return views, nil
	}

	channels, err := s.channels.ListEnabled()
	if err != nil {
		return nil, err
	}
	views = make([]ChannelView, 0, len(channels))
	for i := range channels {
		ch := &channels[i]
		view := ChannelView{
			Code:   ch.Code,
			Type:   ch.Type,
			Name:   ch.Name,
			Cover:  ch.Cover,
			Remark: ch.Remark,
			Sort:   ch.Sort,
		}
		strategy, err := s.registry.Resolve(ch)
		if err != nil {
			logger.Warnw("channel_resolve_failed", "code", ch.Code, "type", ch.Type, "error", err)
			continue
		}
		cfg, err := strategy.Config(ctx)
		if err != nil {
			logger.Warnw("channel_config_failed", "code", ch.Code, "type", ch.Type, "error", err)
			continue
		}
		view.Config = cfg
		views = append(views, view)
	}
	if err := cache.SetJSON(ctx, enabledChannelsCacheKey, views, 0); err != nil {
		logger.Warnw("channel_cache_write_failed", "error", err)
	}
	return views, nil
}

// Resolve 按通道编号取启用通道与对应策略
func (s *ChannelService) Resolve(code string) (*models.PaymentChannel, channel.Strategy, error) {
	ch, err := s.channels.GetByCode(code)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil {
		return nil, nil, ErrChannelNotFound
	}
	strategy, err := s.registry.Resolve(ch)
	if err != nil {
		if err == channel.ErrChannelDisabled {
			return nil, nil, ErrChannelDisabled
		}
		return nil, nil, err
	}
	return ch, strategy, nil
}

// GetByID 管理端按主键查询通道
func (s *ChannelService) GetByID(id uint) (*models.PaymentChannel, error) {
	ch, err := s.channels.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

// ListAdmin 管理端通道列表
func (s *ChannelService) ListAdmin(filter repository.ChannelListFilter) ([]models.PaymentChannel, int64, error) {
	return s.channels.ListAdmin(filter)
}

// Create 新增通道，类型必须已注册
func (s *ChannelService) Create(ctx context.Context, ch *models.PaymentChannel) error {
	if !s.typeRegistered(ch.Type) {
		return ErrChannelConfig
	}
	if err := s.channels.Create(ch); err != nil {
		return err
	}
	s.flushCache(ctx, ch.Code)
	logger.Infow("channel_created", "code", ch.Code, "type", ch.Type)
	return nil
}

// Update 更新通道，使已缓存的策略实例失效
func (s *ChannelService) Update(ctx context.Context, ch *models.PaymentChannel) error {
	if !s.typeRegistered(ch.Type) {
		return ErrChannelConfig
	}
	if err := s.channels.Update(ch); err != nil {
		return err
	}
	s.flushCache(ctx, ch.Code)
	logger.Infow("channel_updated", "code", ch.Code, "type", ch.Type)
	return nil
}

// Delete 软删除通道
func (s *ChannelService) Delete(ctx context.Context, id uint) error {
	ch, err := s.channels.GetByID(id)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrChannelNotFound
	}
	if err := s.channels.Delete(id); err != nil {
		return err
	}
	s.flushCache(ctx, ch.Code)
	logger.Infow("channel_deleted", "code", ch.Code)
	return nil
}

// Types 已注册的通道类型
func (s *ChannelService) Types() []string {
	return s.registry.Types()
}

func (s *ChannelService) typeRegistered(channelType string) bool {
	for _, t := range s.registry.Types() {
		if t == channelType {
			return true
		}
	}
	return false
}

func (s *ChannelService) flushCache(ctx context.Context, code string) {
	s.registry.Invalidate(code)
	if err := cache.Del(ctx, enabledChannelsCacheKey); err != nil {
		logger.Warnw("channel_cache_flush_failed", "error", err)
	}
}
