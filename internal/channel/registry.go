package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/payhub-next/internal/models"
)

var (
	ErrTypeNotRegistered = errors.New("channel type not registered")
	ErrChannelDisabled   = errors.New("channel disabled")
)

// Factory 按通道配置实例化策略
type Factory func(ch *models.PaymentChannel) (Strategy, error)

// Registry 通道策略注册表，按通道类型注册工厂，按通道编号解析实例。
// 新增通道类型只需注册一个工厂，调用方永不感知具体类型。
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Strategy
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Strategy),
	}
}

// Register 注册通道类型工厂
func (r *Registry) Register(channelType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[channelType] = factory
}

// Types 已注册的通道类型
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for channelType := range r.factories {
		types = append(types, channelType)
	}
	return types
}

// Resolve 根据通道配置解析策略实例，同一通道编号复用缓存实例
func (r *Registry) Resolve(ch *models.PaymentChannel) (Strategy, error) {
	if ch == nil {
		return nil, ErrTypeNotRegistered
	}
	if !ch.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrChannelDisabled, ch.Code)
	}

	r.mu.RLock()
	if instance, ok := r.instances[ch.Code]; ok {
		r.mu.RUnlock()
		return instance, nil
	}
	factory, ok := r.factories[ch.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, ch.Type)
	}

	instance, err := factory(ch)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[ch.Code] = instance
	r.mu.Unlock()
	return instance, nil
}

// Invalidate 通道配置变更后失效缓存实例
func (r *Registry) Invalidate(channelCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, channelCode)
}
