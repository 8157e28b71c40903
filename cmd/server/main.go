package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/quocanhngo/firechat/internal/bootstrap"
	"github.com/quocanhngo/firechat/internal/config"
	"github.com/quocanhngo/firechat/internal/handler"
	"github.com/quocanhngo/firechat/internal/logging"
	"github.com/quocanhngo/firechat/internal/middleware"
	"github.com/quocanhngo/firechat/internal/realtime"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/internal/service"
	"github.com/quocanhngo/firechat/internal/ws"
	"github.com/quocanhngo/firechat/pkg/auth"
	"github.com/quocanhngo/firechat/pkg/identity"
	"github.com/quocanhngo/firechat/pkg/storage"
	"github.com/quocanhngo/firechat/pkg/upload"
)

// @title           Firechat API
// @version         1.0
// @description     Real-time chat on Firestore live queries with Gin, WebSocket and Redis Pub/Sub.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@firechat.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	logger := logging.New(cfg.App.Env, cfg.App.LogLevel, os.Stderr)
	logger.Info().Str("env", cfg.App.Env).Msg("🚀 Starting Firechat API Server")

	ctx := context.Background()

	// ==================== Firebase ====================
	app, err := bootstrap.FirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to init Firebase")
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to connect to Firestore")
	}
	defer fs.Close()
	logger.Info().Str("project", cfg.Firebase.ProjectID).Msg("✅ Connected to Firestore")

	provider, err := identity.NewFirebase(ctx, app, cfg.Firebase.APIKey, cfg.Firebase.RequestURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to init identity provider")
	}

	// ==================== Redis ====================
	rdb, err := bootstrap.Redis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to connect to Redis")
	}
	defer rdb.Close()
	logger.Info().Msg("✅ Connected to Redis")

	// ==================== Upload relay ====================
	var relay upload.Relay
	switch {
	case cfg.Upload.RelayURL != "":
		relay = upload.NewHTTPRelay(cfg.Upload.RelayURL, cfg.Upload.Origin, cfg.Upload.Timeout)
		logger.Info().Str("relay", cfg.Upload.RelayURL).Msg("📦 Using external upload relay")
	default:
		minioStorage, err := storage.NewMinIO(ctx, storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			PublicURL: cfg.MinIO.PublicURL,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("⚠️  MinIO not available (file upload disabled)")
			relay = upload.Disabled{}
		} else {
			logger.Info().Str("bucket", cfg.MinIO.Bucket).Msg("✅ Connected to MinIO")
			relay = upload.NewStorageRelay(minioStorage, cfg.Upload.MaxSize)
		}
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	repos := repository.NewFirestore(fs)

	profileService := service.NewProfileService(repos.Users, logger)
	chatService := service.NewChatService(repos, logger)
	gateway := service.NewGateway(repos, relay, logger)
	authService := service.NewAuthService(provider, profileService, jwtManager, rdb, logger)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb, func(uid string, online bool) {
		profileService.SetPresence(context.Background(), uid, online)
	}, logger)
	authService.SetNotifier(hub)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	handlers := handler.Handlers{
		Auth:   handler.NewAuthHandler(authService, profileService, logger),
		Chat:   handler.NewChatHandler(chatService, gateway, cfg.Upload.MaxSize, logger),
		Upload: handler.NewUploadHandler(relay, cfg.Upload.MaxSize, logger),
		WS: handler.NewWSHandler(hub, authService, repos, gateway, realtime.Config{
			MaxSubscriptions:  cfg.Session.MaxSubscriptions,
			MaxUnreadCounters: cfg.Session.MaxUnreadCounters,
		}, cfg.CORS.Origins, logger),
	}

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORSMiddleware(cfg.CORS.Origins))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS)
	handlers.Register(router, middleware.AuthMiddleware(authService), limiter.Middleware())

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("❌ Server failed")
		}
	}()

	logger.Info().Msgf("🌐 Firechat API running on http://0.0.0.0:%s", cfg.App.Port)
	logger.Info().Msgf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	logger.Info().Msgf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("❌ Server forced to shutdown")
	}

	hubCancel()
	logger.Info().Msg("✅ Server exited gracefully")
}
