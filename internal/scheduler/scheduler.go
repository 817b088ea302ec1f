package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"

	"github.com/robfig/cron/v3"
)

const reconcileBatchSize = 100

// reconcileWindow 只对账该时间窗内创建的未付网关单，过旧的交由人工处理
const reconcileWindow = 24 * time.Hour

// Service 定时任务服务。
// 周期性向网关查询仍处于未付状态的支付单，补偿丢失的异步回调。
type Service struct {
	name     string
	cron     *cron.Cron
	spec     string
	records  repository.RecordRepository
	channels *service.ChannelService
}

// NewService 创建定时任务服务
func NewService(cfg *config.TransferConfig, records repository.RecordRepository, channels *service.ChannelService) *Service {
	spec := "@every 5m"
	if cfg != nil && cfg.ReconcileCron != "" {
		spec = cfg.ReconcileCron
	}
	return &Service{
		name:     "scheduler",
		cron:     cron.New(),
		spec:     spec,
		records:  records,
		channels: channels,
	}
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 启动定时任务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("scheduler not initialized")
	}
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.ReconcileUnpaid(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止定时任务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	return nil
}

// ReconcileUnpaid 对账近期未付的网关支付单。
// 策略的 Query 在网关确认支付后走幂等结算，重复对账不会二次入账。
func (s *Service) ReconcileUnpaid(ctx context.Context) {
	unpaid := constants.PaymentStatusUnpaid
	from := time.Now().Add(-reconcileWindow)
	records, _, err := s.records.ListAdmin(repository.RecordListFilter{
		Page:          1,
		PageSize:      reconcileBatchSize,
		ChannelType:   constants.ChannelTypeEpay,
		PaymentStatus: &unpaid,
		CreatedFrom:   &from,
	})
	if err != nil {
		logger.Errorw("reconcile_list_failed", "error", err)
		return
	}
	if len(records) == 0 {
		return
	}

	var settled int
	for i := range records {
		record := &records[i]
		if s.queryRecord(ctx, record) {
			settled++
		}
	}
	logger.Infow("reconcile_done", "checked", len(records), "settled", settled)
}

func (s *Service) queryRecord(ctx context.Context, record *models.PaymentRecord) bool {
	_, strategy, err := s.channels.Resolve(record.ChannelCode)
	if err != nil {
		logger.Warnw("reconcile_resolve_failed", "code", record.Code, "channel_code", record.ChannelCode, "error", err)
		return false
	}
	resp, err := strategy.Query(ctx, record.Code)
	if err != nil {
		logger.Warnw("reconcile_query_failed", "code", record.Code, "error", err)
		return false
	}
	if resp == nil || !resp.Status {
		logger.Debugw("reconcile_query_pending", "code", record.Code)
		return false
	}
	if resp.Record != nil && resp.Record.IsPaid() {
		logger.Infow("reconcile_settled", "code", record.Code, "trade", resp.Record.PaymentTrade)
		return true
	}
	return false
}
