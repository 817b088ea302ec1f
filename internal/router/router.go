package router

import (
	"github.com/payhub-next/internal/config"
	"github.com/payhub-next/internal/constants"
	adminhandlers "github.com/payhub-next/internal/http/handlers/admin"
	publichandlers "github.com/payhub-next/internal/http/handlers/public"
	"github.com/payhub-next/internal/logger"
	"github.com/payhub-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/channels", publicHandler.ListChannels)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", publicHandler.UserLogin)
		}

		// 通道异步回调，GET/POST 均可到达
		apiV1.Any("/payments/notify/:token", publicHandler.PaymentNotify)

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTMiddleware(c.AuthService))
		{
			user.POST("/payments", publicHandler.CreatePayment)
			user.GET("/payments", publicHandler.ListMyPayments)
			user.GET("/payments/:code", publicHandler.QueryPayment)
			user.GET("/orders/:order_no/payments", publicHandler.ListPaymentsByOrder)

			user.GET("/wallet", publicHandler.Wallet)
			user.GET("/wallet/flows", publicHandler.WalletFlows)

			user.GET("/transfers/settings", publicHandler.TransferSettings)
			user.GET("/transfers/amounts", publicHandler.TransferAmounts)
			user.GET("/transfers", publicHandler.ListMyTransfers)
			user.POST("/transfers", publicHandler.SubmitTransfer)
			user.POST("/transfers/:code/cancel", publicHandler.CancelTransfer)
			user.POST("/transfers/:code/confirm", publicHandler.ConfirmTransfer)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", adminHandler.Login)

			authed := admin.Group("")
			authed.Use(AdminJWTMiddleware(c.AuthService))
			{
				authed.GET("/me", adminHandler.Me)
				authed.PUT("/password", adminHandler.ChangePassword)

				records := authed.Group("/records")
				{
					records.GET("", RequirePermission(c.AuthzService, constants.AuthzObjectRecord, constants.AuthzActionView), adminHandler.ListRecords)
					records.GET("/:code", RequirePermission(c.AuthzService, constants.AuthzObjectRecord, constants.AuthzActionView), adminHandler.GetRecord)
					records.POST("/:code/audit", RequirePermission(c.AuthzService, constants.AuthzObjectRecord, constants.AuthzActionAudit), adminHandler.AuditRecord)
					records.POST("/:code/refunds", RequirePermission(c.AuthzService, constants.AuthzObjectRefund, constants.AuthzActionWrite), adminHandler.CreateRefund)
					records.POST("/:code/resend", RequirePermission(c.AuthzService, constants.AuthzObjectRecord, constants.AuthzActionWrite), adminHandler.ResendSuccess)
				}
				authed.POST("/orders/:order_no/cancel", RequirePermission(c.AuthzService, constants.AuthzObjectRecord, constants.AuthzActionWrite), adminHandler.CancelOrder)

				refunds := authed.Group("/refunds")
				{
					refunds.GET("", RequirePermission(c.AuthzService, constants.AuthzObjectRefund, constants.AuthzActionView), adminHandler.ListRefunds)
					refunds.POST("/:code/settle", RequirePermission(c.AuthzService, constants.AuthzObjectRefund, constants.AuthzActionWrite), adminHandler.SettleRefund)
				}

				transfers := authed.Group("/transfers")
				{
					transfers.GET("", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionView), adminHandler.ListTransfers)
					transfers.POST("/:code/audit", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionAudit), adminHandler.AuditTransfer)
					transfers.POST("/:code/paid", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionWrite), adminHandler.MarkTransferPaid)
					transfers.GET("/settings", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionView), adminHandler.GetTransferSettings)
					transfers.PUT("/settings", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionWrite), adminHandler.UpdateTransferSettings)
				}
				authed.POST("/payouts/sync", RequirePermission(c.AuthzService, constants.AuthzObjectTransfer, constants.AuthzActionWrite), adminHandler.SyncPayouts)

				channels := authed.Group("/channels")
				{
					channels.GET("", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionView), adminHandler.ListChannels)
					channels.GET("/types", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionView), adminHandler.ChannelTypes)
					channels.GET("/:id", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionView), adminHandler.GetChannel)
					channels.POST("", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionWrite), adminHandler.CreateChannel)
					channels.PUT("/:id", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionWrite), adminHandler.UpdateChannel)
					channels.DELETE("/:id", RequirePermission(c.AuthzService, constants.AuthzObjectChannel, constants.AuthzActionWrite), adminHandler.DeleteChannel)
				}

				// 角色与权限管理仅开放给 super
				authzGroup := authed.Group("/authz", RequirePermission(c.AuthzService, "*", "*"))
				{
					authzGroup.GET("/roles", adminHandler.ListRoles)
					authzGroup.POST("/roles", adminHandler.CreateRole)
					authzGroup.GET("/roles/:role/policies", adminHandler.GetRolePolicies)
					authzGroup.POST("/roles/:role/policies", adminHandler.GrantRolePolicy)
					authzGroup.DELETE("/roles/:role/policies", adminHandler.RevokeRolePolicy)
					authzGroup.GET("/admins/:id/roles", adminHandler.GetAdminRoles)
					authzGroup.PUT("/admins/:id/roles", adminHandler.SetAdminRoles)
				}
			}
		}
	}

	return r
}
