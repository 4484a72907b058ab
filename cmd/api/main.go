package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alumnihub/alumni-backend/internal/chat"
	"github.com/alumnihub/alumni-backend/internal/config"
	"github.com/alumnihub/alumni-backend/internal/domain"
	"github.com/alumnihub/alumni-backend/internal/handler"
	"github.com/alumnihub/alumni-backend/internal/middleware"
	"github.com/alumnihub/alumni-backend/internal/migration"
	"github.com/alumnihub/alumni-backend/internal/repository"
	"github.com/alumnihub/alumni-backend/internal/routes"
	"github.com/alumnihub/alumni-backend/internal/service"
	"github.com/alumnihub/alumni-backend/internal/ws"
	pkgcache "github.com/alumnihub/alumni-backend/pkg/cache"
	"github.com/alumnihub/alumni-backend/pkg/jwt"
	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	pkgmongo "github.com/alumnihub/alumni-backend/pkg/mongo"
	pkgredis "github.com/alumnihub/alumni-backend/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Alumni Backend API
// @version         1.0
// @description     Student, teacher and alumni messaging, notifications and opportunities
//
// @host            localhost:8080
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	dotenvFiles := config.LoadDotEnv(env)

	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := fmt.Sprintf("configs/config.%s.yaml", env)
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	// MySQL
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if cfg.IsDevelopment() {
		if n, err := migration.SeedDemo(db); err != nil {
			pkglogger.Warn("Demo seed failed: %v", err)
		} else if n > 0 {
			pkglogger.Info("Seeded %d demo users (password %q)", n, migration.DemoPassword)
		}
	}

	// MongoDB holds the primary copy of every chat message
	mongoClient, err := pkgmongo.NewClient(cfg.Mongo.URI, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	pkglogger.Info("Connected to MongoDB")
	messageStore := repository.NewMessageMongoRepository(
		mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection),
	)
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := messageStore.EnsureIndexes(indexCtx); err != nil {
		// queries still work without them, only slower
		pkglogger.Warn("Mongo index setup failed: %v", err)
	}
	cancelIndex()

	// Redis is optional: without it there is no live chat, no cross-instance ws and no cache
	redisClient, err := pkgredis.NewClient(pkgredis.Options{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		pkglogger.Warn("Redis unavailable: %v (continuing without live chat and cache)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}

	// Delivery router
	chatCfg := chat.Config{
		Primary: messageStore,
		Facade: chat.NewRESTBackend(chat.RESTBackendConfig{
			BaseURL:     cfg.Chat.FacadeBaseURL,
			MaxFailures: cfg.Chat.BreakerMaxFailures,
			OpenTimeout: time.Duration(cfg.Chat.BreakerTimeoutSec) * time.Second,
		}),
		Mode:        chat.ParseMode(cfg.Chat.Mode),
		StepTimeout: cfg.Chat.StepTimeout(),
	}
	if redisClient != nil {
		chatCfg.Secondary = repository.NewMessageRedisStore(redisClient)
	}
	chatRouter := chat.NewRouter(chatCfg)

	// WebSocket hub
	hub := ws.NewHub(redisClient)
	go hub.Run()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	// Services
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	conversationService := service.NewConversationService(userRepo, chatRouter, pkgcache.NewService(redisClient), hub)
	chatRouter.SetRefresher(conversationService)
	fanoutService := service.NewFanoutService(userRepo, notificationRepo, hub, cfg.Fanout.Concurrency)
	resourceService := service.NewResourceService(resourceRepo, userRepo, fanoutService)
	notificationService := service.NewNotificationService(notificationRepo, fanoutService)
	authService := service.NewAuthService(userRepo, jwtManager)

	authProvider := newAuthProvider(cfg, jwtManager)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(cfg.CORS.AllowOrigins),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.InputSanitizer())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler(db, mongoClient.Ping, redisClient))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router, routes.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Message:      handler.NewMessageHandler(chatRouter, conversationService),
		MessageDB:    handler.NewMessageDBHandler(messageStore),
		Notification: handler.NewNotificationHandler(notificationService),
		Resource:     handler.NewResourceHandler(resourceService),
		WS:           handler.NewWSHandler(hub, chatRouter, cfg.CORS.AllowOrigins),
	}, authProvider, redisClient, routes.Limits{
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
		SendPerMinute:  cfg.RateLimit.SendPerMinute,
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reportDBStats(ctx, db)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkglogger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("HTTP shutdown: %v", err)
	}
	hub.Stop()
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		pkglogger.Error("Mongo disconnect: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newAuthProvider selects the AuthProvider once from config
func newAuthProvider(cfg *config.Config, jwtManager *jwt.Manager) middleware.AuthProvider {
	if cfg.Auth.Mode == "fixed" {
		role := domain.Role(cfg.Auth.FixedRole)
		if !role.Valid() {
			role = domain.RoleStudent
		}
		pkglogger.Warn("Fixed identity auth enabled: every request is %s (%s)", cfg.Auth.FixedUID, role)
		return middleware.NewFixedIdentityAuth(cfg.Auth.FixedUID, role)
	}
	return middleware.NewTokenVerifyingAuth(jwtManager)
}

type pingFunc func(ctx context.Context, rp *readpref.ReadPref) error

// healthHandler reports the reachability of every store
func healthHandler(db *gorm.DB, mongoPing pingFunc, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["mysql"] = "down"
			healthy = false
		} else {
			checks["mysql"] = "ok"
		}
		if err := mongoPing(ctx, nil); err != nil {
			checks["mongo"] = "down"
			healthy = false
		} else {
			checks["mongo"] = "ok"
		}
		switch {
		case redisClient == nil:
			checks["redis"] = "disabled"
		case redisClient.Ping(ctx).Err() != nil:
			checks["redis"] = "down"
		default:
			checks["redis"] = "ok"
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": "alumni-backend",
			"checks":  checks,
			"time":    time.Now().Unix(),
		})
	}
}

// reportDBStats feeds the connection gauge until ctx ends
func reportDBStats(ctx context.Context, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			middleware.SetDBConnectionsOpen(sqlDB.Stats().OpenConnections)
		}
	}
}

// splitAndTrim splits a comma-separated list and drops empty entries
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:3000"}
	}
	return out
}

// initDB opens the MySQL connection pool
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+00:00'"

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}
