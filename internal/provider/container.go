package provider

import (
	"context"

	"github.com/payhub-next/internal/authz"
	"github.com/payhub-next/internal/cache"
	"github.com/payhub-next/internal/channel"
	channelepay "github.com/payhub-next/internal/channel/epay"
	channelledger "github.com/payhub-next/internal/channel/ledger"
	channelvoucher "github.com/payhub-next/internal/channel/voucher"
	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/ledger"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"
	"github.com/payhub-next/internal/queue"
	"github.com/payhub-next/internal/repository"
	"github.com/payhub-next/internal/service"
	"github.com/payhub-next/internal/transferpay"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo    repository.AdminRepository
	UserRepo     repository.UserRepository
	RecordRepo   repository.RecordRepository
	RefundRepo   repository.RefundRepository
	TransferRepo repository.TransferRepository
	ChannelRepo  repository.ChannelRepository
	BalanceRepo  repository.BalanceRepository

	// Domain collaborators
	BalanceLedger ledger.BalanceLedger
	Registry      *channel.Registry
	WechatPayout  *transferpay.WechatClient

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	SettlementService *service.SettlementService
	RecordService     *service.RecordService
	TransferService   *service.TransferService
	ChannelService    *service.ChannelService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	c.initRegistry()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.RecordRepo = repository.NewRecordRepository(db)
	c.RefundRepo = repository.NewRefundRepository(db)
	c.TransferRepo = repository.NewTransferRepository(db)
	c.ChannelRepo = repository.NewChannelRepository(db)
	c.BalanceRepo = repository.NewBalanceRepository(db)
	c.BalanceLedger = ledger.NewBalanceLedger(db, c.BalanceRepo)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.UserRepo)
	c.SettlementService = service.NewSettlementService(
		models.DB,
		c.RecordRepo,
		c.RefundRepo,
		c.UserRepo,
		c.BalanceLedger,
		c.QueueClient,
		service.NewNotifyTokenCodec(c.Config.Notify.TokenSecret),
		c.Config.Notify.BaseURL,
	)
	c.TransferService = service.NewTransferService(models.DB, c.TransferRepo, c.BalanceLedger, c.QueueClient)

	if c.Config.Transfer.WechatPay.Enabled {
		client, err := transferpay.NewWechatClient(context.Background(), c.Config.Transfer.WechatPay)
		if err != nil {
			logger.Errorw("provider_init_wechat_payout_failed", "error", err)
		} else {
			c.WechatPayout = client
		}
	}
}

func (c *Container) initRegistry() {
	deps := channelledger.Deps{
		Settlement: c.SettlementService,
		Balances:   c.BalanceLedger,
		Users:      c.UserRepo,
		Records:    c.RecordRepo,
	}

	registry := channel.NewRegistry()
	registry.Register(constants.ChannelTypeEmpty, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelledger.NewEmptyStrategy(ch, deps), nil
	})
	registry.Register(constants.ChannelTypeBalance, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelledger.NewBalanceStrategy(ch, deps), nil
	})
	registry.Register(constants.ChannelTypeIntegral, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelledger.NewIntegralStrategy(ch, deps), nil
	})
	registry.Register(constants.ChannelTypeVoucher, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelvoucher.New(ch, c.SettlementService, c.RecordRepo), nil
	})
	registry.Register(constants.ChannelTypeEpay, func(ch *models.PaymentChannel) (channel.Strategy, error) {
		return channelepay.New(ch, c.SettlementService, c.RecordRepo, c.RefundRepo)
	})
	c.Registry = registry

	c.ChannelService = service.NewChannelService(c.ChannelRepo, registry)
	c.RecordService = service.NewRecordService(
		models.DB,
		c.RecordRepo,
		c.RefundRepo,
		c.ChannelRepo,
		registry,
		c.SettlementService,
	)
}
