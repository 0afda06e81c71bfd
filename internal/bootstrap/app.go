package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/NTitterton/agorusta/internal/handler/http"
	wsHandler "github.com/NTitterton/agorusta/internal/handler/websocket"
	"github.com/NTitterton/agorusta/internal/hub"
	gormpersistence "github.com/NTitterton/agorusta/internal/infra/persistence/gorm"
	memoryregistry "github.com/NTitterton/agorusta/internal/infra/registry/memory"
	redisregistry "github.com/NTitterton/agorusta/internal/infra/registry/redis"
	"github.com/NTitterton/agorusta/internal/infra/setup"
	"github.com/NTitterton/agorusta/internal/middleware"
	"github.com/NTitterton/agorusta/internal/repository"
	"github.com/NTitterton/agorusta/internal/service"
	"github.com/NTitterton/agorusta/internal/tasks"
	"github.com/NTitterton/agorusta/internal/worker"
)

// Config 结构体存储从环境变量或 .env 文件加载的配置。
type Config struct {
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	ServerPort      string
	LogLevel        string
	JWTExpiryHours  int
	AppEnv          string // development / production
	KeyPrefix       string // Redis key 前缀
	RegistryBackend string // redis / memory
}

// LoadConfig 从环境变量加载配置。
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)，忽略错误允许只使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBName:          os.Getenv("DB_NAME"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServerPort:      os.Getenv("SERVER_PORT"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		AppEnv:          os.Getenv("APP_ENV"),
		KeyPrefix:       os.Getenv("REDIS_KEY_PREFIX"),
		RegistryBackend: os.Getenv("REGISTRY_BACKEND"),
		JWTExpiryHours:  24,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if v := os.Getenv("JWT_EXPIRY_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			cfg.JWTExpiryHours = hours
		}
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ag:"
	}
	if cfg.RegistryBackend == "" {
		cfg.RegistryBackend = "redis"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 结构体包含应用的所有组件和配置。
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqServer    *worker.WorkerServer
	Hub            *hub.Hub
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
}

// NewApp 创建并初始化应用的所有组件。
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	// 4. 初始化 Repositories 和连接注册表
	log.Info("Initializing repositories...")
	userRepo := gormpersistence.NewGormUserRepository(db)
	serverRepo := gormpersistence.NewGormServerRepository(db)
	channelRepo := gormpersistence.NewGormChannelRepository(db)
	memberRepo := gormpersistence.NewGormMemberRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	dmRepo := gormpersistence.NewGormDirectMessageRepository(db)
	convRepo := gormpersistence.NewGormConversationRepository(db)
	inviteRepo := gormpersistence.NewGormInviteRepository(db)
	passwordRepo := gormpersistence.NewGormServerPasswordRepository(db)

	var registry repository.ConnectionRegistry
	if cfg.RegistryBackend == "memory" {
		registry = memoryregistry.NewMemoryConnectionRegistry()
	} else {
		registry = redisregistry.NewRedisConnectionRegistry(redisClient, cfg.KeyPrefix)
	}
	log.Infof("Repositories initialized (registry backend: %s)", cfg.RegistryBackend)

	// 5. 初始化 Hub 与广播器
	hubInstance := hub.NewHub(registry)
	broadcaster := hub.NewBroadcaster(registry, hubInstance)
	dispatcher := worker.NewMessageDispatcher(asynqClient, broadcaster)
	log.Info("Hub and broadcaster initialized")

	// 6. 初始化 Services
	log.Info("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	serverService := service.NewServerService(serverRepo, channelRepo, memberRepo)
	messageService := service.NewMessageService(messageRepo, channelRepo, memberRepo, dispatcher)
	dmService := service.NewDMService(userRepo, convRepo, dmRepo, dispatcher)
	inviteService := service.NewInviteService(inviteRepo, serverRepo, channelRepo, memberRepo, passwordRepo)
	log.Info("Services initialized")

	// 7. 初始化 Handlers
	authHandler := httpHandler.NewAuthHandler(authService)
	serverHandler := httpHandler.NewServerHandler(serverService)
	messageHandler := httpHandler.NewMessageHandler(messageService)
	dmHandler := httpHandler.NewDMHandler(dmService)
	inviteHandler := httpHandler.NewInviteHandler(inviteService)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, registry)
	log.Info("Handlers initialized")

	// 8. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, broadcaster, inviteService, log)
	log.Info("Worker server initialized")

	// 9. 初始化 Gin Engine 和路由
	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware())

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.JWTSecret))
	{
		protected.GET("/users/me", authHandler.Me)
		protected.GET("/users/search", dmHandler.SearchUsers)

		protected.POST("/servers", serverHandler.CreateServer)
		protected.GET("/servers", serverHandler.ListServers)
		protected.POST("/servers/join", inviteHandler.JoinByName)
		protected.GET("/servers/:serverId", serverHandler.GetServer)
		protected.POST("/servers/:serverId/channels", serverHandler.CreateChannel)
		protected.GET("/servers/:serverId/channels", serverHandler.ListChannels)
		protected.GET("/servers/:serverId/members", serverHandler.ListMembers)

		protected.POST("/servers/:serverId/channels/:channelId/messages", messageHandler.SendMessage)
		protected.GET("/servers/:serverId/channels/:channelId/messages", messageHandler.ListMessages)

		protected.POST("/servers/:serverId/invites", inviteHandler.CreateInvite)
		protected.GET("/servers/:serverId/invites", inviteHandler.ListInvites)
		protected.DELETE("/servers/:serverId/invites/:code", inviteHandler.RevokeInvite)
		protected.POST("/servers/:serverId/passwords", inviteHandler.CreateServerPassword)
		protected.GET("/servers/:serverId/passwords", inviteHandler.ListServerPasswords)
		protected.DELETE("/servers/:serverId/passwords/:passwordId", inviteHandler.DeleteServerPassword)
		protected.GET("/invites/:code", inviteHandler.GetInviteInfo)
		protected.POST("/invites/:code/join", inviteHandler.JoinByCode)

		protected.GET("/dms", dmHandler.ListConversations)
		protected.POST("/dms", dmHandler.StartConversation)
		protected.GET("/dms/:conversationId", dmHandler.GetConversation)
		protected.POST("/dms/:conversationId/messages", dmHandler.SendDirectMessage)
		protected.GET("/dms/:conversationId/messages", dmHandler.ListDirectMessages)
	}

	wsRoutes := router.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("", websocketHandler.HandleConnection)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	// 10. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// 11. 组装 App 对象
	app := &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}
	log.Info("Application assembled successfully")

	return app, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器。
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// registerPeriodicTasks 注册周期任务：过期邀请清理。
func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	task := tasks.NewInviteCleanupTask()
	schedule := "@every 10m"
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("low"))
	if err != nil {
		a.Log.Errorf("Could not register periodic invite cleanup task: %v", err)
	} else {
		a.Log.Infof("Periodic invite cleanup task registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := scheduler.Run(); err != nil {
			if !errors.Is(err, asynq.ErrServerClosed) {
				a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
			} else {
				a.Log.Info("Asynq scheduler stopped.")
			}
		}
	}()
}

// Shutdown 优雅地关闭应用。
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.Hub != nil {
		a.Hub.Stop()
	}

	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	a.Log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// corsMiddleware 允许前端跨域访问，来源从环境变量读取。
func corsMiddleware() gin.HandlerFunc {
	allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志。
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
