package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/campusfind/backend/internal/db"
  "github.com/campusfind/backend/internal/handlers"
  "github.com/campusfind/backend/internal/logger"
  "github.com/campusfind/backend/internal/middleware"
  "github.com/campusfind/backend/internal/realtime/bus"
  "github.com/campusfind/backend/internal/repos"
  "github.com/campusfind/backend/internal/server"
  "github.com/campusfind/backend/internal/services"
  "github.com/campusfind/backend/internal/sse"
  "github.com/campusfind/backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  verificationTTL := utils.GetEnvAsDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour, log)
  serverPort := utils.GetEnv("SERVER_PORT", "8080", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  itemRepo := repos.NewItemRepo(thePG, log)
  claimRepo := repos.NewClaimRepo(thePG, log)
  verificationTokenRepo := repos.NewVerificationTokenRepo(thePG, log)
  trustLedgerRepo := repos.NewTrustLedgerRepo(thePG, log)
  matchCandidateRepo := repos.NewMatchCandidateRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  // Notification bus. Redis fans events out across instances; a single
  // instance falls back to the in-process loopback.
  notifyBus, err := bus.NewRedisBus(log)
  if err != nil {
    log.Warn("Redis bus init failed, falling back to loopback", "error", err)
    notifyBus = bus.NewLoopbackBus(log)
  }
  if err := notifyBus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
    sseHub.Broadcast(m)
  }); err != nil {
    log.Error("Could not start bus forwarder", "error", err)
    os.Exit(1)
  }
  defer notifyBus.Close()

  // Services
  log.Info("Setting up Services from main...")
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  notifier := services.NewClaimNotifier(log, notifyBus)
  trustService := services.NewTrustScoreService(thePG, log, trustLedgerRepo)
  verificationService := services.NewVerificationService(thePG, log, claimRepo, verificationTokenRepo, verificationTTL)
  matchProducer := services.NewFeatureMatcher(log)
  matchService := services.NewMatchService(thePG, log, itemRepo, matchCandidateRepo, matchProducer, notifier)
  itemService := services.NewItemService(thePG, log, itemRepo, claimRepo, trustService, matchService)
  claimService := services.NewClaimService(thePG, log, itemRepo, claimRepo, userRepo, verificationService, trustService, notifier)

  // Handlers
  log.Info("Setting up Handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  itemHandler := handlers.NewItemHandler(itemService, matchService)
  claimHandler := handlers.NewClaimHandler(claimService)
  trustHandler := handlers.NewTrustHandler(trustService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:    authHandler,
    AuthMiddleware: authMiddleware,
    ItemHandler:    itemHandler,
    ClaimHandler:   claimHandler,
    TrustHandler:   trustHandler,
    SSEHandler:     sseHandler,
  })

  log.Info("Starting server", "port", serverPort)
  if err := router.Run(":" + serverPort); err != nil {
    log.Error("Server exited", "error", err)
    os.Exit(1)
  }
}
