package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "github.com/campusfind/backend/internal/handlers"
  "github.com/campusfind/backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler    *handlers.AuthHandler
  AuthMiddleware *middleware.AuthMiddleware
  ItemHandler    *handlers.ItemHandler
  ClaimHandler   *handlers.ClaimHandler
  TrustHandler   *handlers.TrustHandler
  SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  // ===============
  // || Public    ||
  // ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)

  // ===============
  // || Protected ||
  // ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
  protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
  protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)

  api := protected.Group("/api")
  // Items
  api.POST("/items", cfg.ItemHandler.Create)
  api.GET("/items", cfg.ItemHandler.Feed)
  api.GET("/items/mine", cfg.ItemHandler.MyActivity)
  api.GET("/items/:id", cfg.ItemHandler.Get)
  api.GET("/items/:id/matches", cfg.ItemHandler.Matches)
  api.POST("/items/:id/matches/refresh", cfg.ItemHandler.RefreshMatches)
  api.GET("/items/:id/claims", cfg.ClaimHandler.ListForItem)
  // Claims
  api.POST("/claims", cfg.ClaimHandler.Submit)
  api.GET("/claims/mine", cfg.ClaimHandler.ListMine)
  api.POST("/claims/:id/respond", cfg.ClaimHandler.Respond)
  api.POST("/claims/verify", cfg.ClaimHandler.Verify)
  // Notifications
  api.GET("/notifications", cfg.ClaimHandler.Notifications)
  api.POST("/notifications/read", cfg.ClaimHandler.MarkNotificationRead)
  // Trust
  api.GET("/trust/me", cfg.TrustHandler.Me)
  api.GET("/trust/leaderboard", cfg.TrustHandler.Leaderboard)

  return router
}
