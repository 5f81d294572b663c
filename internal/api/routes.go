package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"convoy_web/internal/api/handlers"
	"convoy_web/internal/middleware"
	"convoy_web/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	convoyHandler := handlers.NewConvoyHandler(services.Convoy, services.Routing)
	wsHandler := handlers.NewWebSocketHandler(services.Tracker)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/guest", authHandler.GuestLogin)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// WebSocket 連接點
		// token 作為查詢參數傳入，在升級連接前由 handler 自行驗證
		api.GET("/convoys/:id/ws", wsHandler.HandleWebSocket)
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 車隊相關
		convoys := authorized.Group("/convoys")
		{
			convoys.POST("", convoyHandler.CreateConvoy)      // 創建車隊
			convoys.POST("/join", convoyHandler.JoinConvoy)   // 通過邀請碼加入
			convoys.GET("/mine", convoyHandler.MyConvoys)     // 我參加的車隊
			convoys.GET("/:id", convoyHandler.GetConvoy)      // 獲取車隊信息
			convoys.GET("/:id/route", convoyHandler.GetRoute) // 到目的地的路線
		}
	}
}
