package handler

import (
	"pujaledger/internal/config"
	"pujaledger/internal/logging"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	if cfg.Server.Mode == gin.DebugMode || cfg.Server.Mode == gin.TestMode {
		gin.SetMode(cfg.Server.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggerMiddleware(logger))
	r.Use(SecureHeaders(cfg.Server.Mode == gin.ReleaseMode))
	r.Use(CORSMiddleware(cfg.CORS.AllowOrigins))

	authed := AuthMiddleware(h.auth)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", LoginRateLimit(cfg.Server.LoginRateLimit), h.Login)
			auth.POST("/change-password", authed, h.ChangePassword)
			auth.POST("/create-user", authed, adminOnly, h.CreateUser)
		}

		members := api.Group("/members")
		{
			members.GET("", h.ListMembers)
			members.GET("/stats", h.GetMemberStats)
			members.POST("", authed, adminOrManager, h.CreateMember)
			members.POST("/reconcile", authed, adminOnly, h.ReconcileMembers)
			members.PUT("/:id", authed, adminOrManager, h.UpdateMember)
			members.DELETE("/:id", authed, adminOnly, h.DeleteMember)
		}

		donors := api.Group("/donors")
		{
			donors.GET("", h.ListDonors)
			donors.POST("", authed, adminOrManager, h.CreateDonor)
			donors.PUT("/:id", authed, adminOrManager, h.UpdateDonor)
		}

		txns := api.Group("/transactions")
		{
			txns.POST("/income", authed, adminOrManager, h.AddIncome)
			txns.PATCH("/income/:id", authed, adminOrManager, h.UpdateIncome)
			txns.PATCH("/income/:id/pay", authed, adminOrManager, h.MarkIncomeAsPaid)

			txns.GET("/transaction", h.ListTransactions)
			txns.DELETE("/transaction/:id", authed, adminOnly, h.DeleteTransaction)

			txns.GET("/expense", h.ListExpenses)
			txns.POST("/expense", authed, adminOrManager, h.AddExpense)
			txns.PATCH("/expense/:id", authed, adminOrManager, h.UpdateExpense)
			txns.DELETE("/expense/:id", authed, adminOnly, h.DeleteExpense)

			txns.GET("/summary", yearReport(h.reports.GetSummary))

			graphs := txns.Group("/graphs")
			{
				graphs.GET("/para", yearReport(h.reports.ParaWiseCollection))
				graphs.GET("/day", yearReport(h.reports.DayWiseCollection))
				graphs.GET("/income-expense", yearReport(h.reports.IncomeVsExpense))
				graphs.GET("/top-donors", h.TopDonors)
				graphs.GET("/donor-by-date", yearReport(h.reports.DonorByDate))
				graphs.GET("/collection-breakdown", yearReport(h.reports.CollectionBreakdown))
				graphs.GET("/expense-category", yearReport(h.reports.ExpenseByCategory))
			}
		}
	}

	// 健康检查
	r.GET("/health", h.Health)

	return r
}
