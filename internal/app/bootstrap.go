package app

import (
	"errors"

	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/provider"
	"github.com/payhub-next/internal/router"
	"github.com/payhub-next/internal/scheduler"
	"github.com/payhub-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 与对账调度服务
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(worker.LogOrderHook{}, container.TransferService, container.WechatPayout)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			logger.Warnw("worker_service_disabled", "error", err)
		} else {
			services = append(services, workerService)
		}
		services = append(services, scheduler.NewService(&cfg.Transfer, container.RecordRepo, container.ChannelService))
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
