package main

import (
	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/constants"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("admin", "admin123456"); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	} else {
		stdLog.Printf("Default admin ready: admin")
	}

	// 每种类型各一条支付通道
	channels := []models.PaymentChannel{
		{
			Type:   constants.ChannelTypeEmpty,
			Code:   "CH-EMPTY",
			Name:   "免支付",
			Remark: "零元订单自动完成",
			Sort:   10,
			Status: 1,
		},
		{
			Type:   constants.ChannelTypeBalance,
			Code:   "CH-BALANCE",
			Name:   "余额支付",
			Remark: "扣减账户可用余额",
			Sort:   20,
			Status: 1,
		},
		{
			Type:   constants.ChannelTypeIntegral,
			Code:   "CH-INTEGRAL",
			Name:   "积分支付",
			Params: models.JSON{"rate": 10},
			Remark: "按比例扣减账户积分",
			Sort:   30,
			Status: 1,
		},
		{
			Type:   constants.ChannelTypeVoucher,
			Code:   "CH-VOUCHER",
			Name:   "线下转账",
			Params: models.JSON{"bank_name": "示例银行", "bank_code": "622200000000000", "bank_user": "示例收款人"},
			Remark: "上传转账凭证后人工审核",
			Sort:   40,
			Status: 1,
		},
		{
			Type:   constants.ChannelTypeEpay,
			Code:   "CH-EPAY",
			Name:   "易支付",
			Params: models.JSON{"gateway": "https://epay.example.com", "pid": "1000", "key": "demo-epay-key", "pay_type": "alipay"},
			Remark: "易支付网关（演示配置）",
			Sort:   50,
			Status: 0,
		},
	}
	for _, ch := range channels {
		var existing models.PaymentChannel
		if err := models.DB.Where("code = ?", ch.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&ch).Error; err != nil {
				stdLog.Printf("Failed to create channel %s: %v", ch.Code, err)
			} else {
				stdLog.Printf("Created channel: %s", ch.Code)
			}
		} else {
			stdLog.Printf("Channel already exists: %s", ch.Code)
		}
	}

	// 演示用户与初始余额
	var user models.User
	if err := models.DB.Where("email = ?", "demo@example.com").First(&user).Error; err != nil {
		user = models.User{
			Email:    "demo@example.com",
			Nickname: "演示用户",
			Integral: 1000,
			Status:   1,
		}
		if err := user.SetPassword("demo123456"); err != nil {
			stdLog.Fatalf("Failed to hash demo password: %v", err)
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create demo user: %v", err)
		} else {
			stdLog.Printf("Created demo user: demo@example.com")
		}
	} else {
		stdLog.Printf("Demo user already exists: demo@example.com")
	}

	if user.ID != 0 {
		var flow models.BalanceFlow
		if err := models.DB.Where("code = ?", "SEED-INIT-1").First(&flow).Error; err != nil {
			flow = models.BalanceFlow{
				Unid:   user.ID,
				Code:   "SEED-INIT-1",
				Name:   "初始充值",
				Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
				Remark: "演示数据",
			}
			if err := models.DB.Create(&flow).Error; err != nil {
				stdLog.Printf("Failed to create initial balance flow: %v", err)
			} else {
				stdLog.Printf("Created initial balance: 500.00")
			}
		} else {
			stdLog.Printf("Initial balance already exists")
		}
	}

	stdLog.Printf("Seed finished")
}
