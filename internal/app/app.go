package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hrportal_backend/database"
	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/config"
	"hrportal_backend/internal/email"
	"hrportal_backend/internal/handlers"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/middleware"
	"hrportal_backend/internal/mq"
	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/routes"
	"hrportal_backend/internal/services"
	"hrportal_backend/internal/storage"
	"hrportal_backend/internal/validator"
	"hrportal_backend/internal/workers"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App - собранное приложение; закрывается через Close
type App struct {
	Router   *gin.Engine
	Manager  *ws.WebSocketManager
	Services *services.ServiceContainer
	Repos    *repositories.Container
	Tokens   *auth.TokenManager

	closers []func()
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.InitWithFile(cfg.Server.Env, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	apperrors.Debug = cfg.Server.Env != "production"
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}
	defer application.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server startup error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}

// New собирает зависимости. Фоновые задачи (хаб, воркеры, брокер) живут до отмены ctx.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	repos, healthChecks, err := a.initializeRepositories(cfg)
	if err != nil {
		return nil, err
	}
	a.Repos = repos

	storageInstance, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	// 1. Хаб сокетов
	var broker ws.Broker
	if cfg.Redis.Addr != "" {
		redisBroker, err := ws.NewRedisBroker(ctx, ws.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize redis broker: %w", err)
		}
		broker = redisBroker
		healthChecks["redis"] = redisBroker.Ping
		logger.Info("Redis broker enabled", "channel", cfg.Redis.Channel)
	} else {
		logger.Warn("Redis is not configured, realtime delivery is local to this instance")
	}
	a.Manager = ws.NewWebSocketManager(ws.Options{SendBuffer: cfg.Realtime.SendBuffer, Broker: broker})
	go a.Manager.Run(ctx)

	// 2. Почта
	emails, err := a.initializeEmail(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 3. Сервисы
	v := validator.New()
	a.Services = services.NewServiceContainer(services.Dependencies{
		Repos:       repos,
		Broadcaster: a.Manager,
		Emails:      emails,
		Storage:     storageInstance,
		Validator:   v,
		Attachments: services.AttachmentConfig{
			MaxFileSize:  cfg.Upload.MaxSize,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		PortalURL: cfg.Email.PortalURL,
	})

	workers.NewNotificationWorker(
		a.Services.NotificationService,
		time.Duration(cfg.Notifications.CleanupIntervalMin)*time.Minute,
		time.Duration(cfg.Notifications.RetentionDays)*24*time.Hour,
	).Start(ctx)

	// 4. Хэндлеры и роутер
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	a.Tokens = tokens
	baseHandler := handlers.NewBaseHandler(v)
	appHandlers := &handlers.AppHandlers{
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, a.Services.NotificationService),
		TicketHandler:       handlers.NewTicketHandler(baseHandler, a.Services.TicketService, a.Services.AttachmentService),
		HealthHandler: handlers.NewHealthHandler(healthChecks, func() any {
			return a.Manager.Stats()
		}),
	}

	wsHandler := ws.NewWebSocketHandler(ctx, a.Manager, ws.NewDispatcher(a.Manager, a.Services.TicketService), tokens, ws.HandlerOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SendBuffer:     cfg.Realtime.SendBuffer,
		Pump: ws.PumpConfig{
			WriteWait:      cfg.WriteWait(),
			PongWait:       cfg.PongWait(),
			PingPeriod:     cfg.PingPeriod(),
			MaxMessageSize: cfg.Realtime.MaxMessageSize,
		},
	})

	a.Router = initializeGinRouter(cfg)
	if local, ok := storageInstance.(*storage.LocalStorage); ok && strings.HasPrefix(cfg.Storage.BaseURL, "/") {
		a.Router.Static(cfg.Storage.BaseURL, local.Root())
	}
	routes.RegisterRoutes(a.Router, appHandlers, wsHandler, tokens)

	return a, nil
}

func (a *App) initializeRepositories(cfg *config.Config) (*repositories.Container, map[string]handlers.HealthCheck, error) {
	checks := map[string]handlers.HealthCheck{}

	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return repositories.NewMemoryContainer(repositories.NewMemoryStore()), checks, nil
	}

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	logger.Info("Database connected")

	checks["database"] = func(ctx context.Context) error {
		return pingDB(ctx, gormDB)
	}
	a.closers = append(a.closers, func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repositories.NewGormContainer(gormDB), checks, nil
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// initializeEmail: SMTP или лог-отправитель; RabbitMQ - очередь заданий, иначе отправка сразу
func (a *App) initializeEmail(ctx context.Context, cfg *config.Config) (email.Queue, error) {
	templates := email.NewTemplateManager()

	var sender email.Sender
	if cfg.Email.Enabled {
		smtpSender, err := email.NewSMTPSender(&email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			UseTLS:    cfg.Email.UseTLS,
			Timeout:   30 * time.Second,
			PortalURL: cfg.Email.PortalURL,
		}, templates)
		if err != nil {
			return nil, fmt.Errorf("initialize smtp sender: %w", err)
		}
		sender = smtpSender
	} else {
		logger.Warn("Email is disabled, emails are only logged")
		sender = email.NewLogSender(templates)
	}

	if cfg.RabbitMQ.URL == "" {
		return email.NewInlineQueue(sender), nil
	}

	publisher, err := mq.NewPublisher(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("initialize rabbitmq publisher: %w", err)
	}
	consumer, err := mq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, email.RoutingKey, logger.GetLogger())
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("initialize rabbitmq consumer: %w", err)
	}
	a.closers = append(a.closers, publisher.Close, consumer.Close)

	workers.NewEmailWorker(consumer, sender).Start(ctx)
	logger.Info("Email queue enabled", "queue", cfg.RabbitMQ.Queue)
	return email.NewBrokerQueue(publisher), nil
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.MaxMultipartMemory = cfg.Upload.MaxSize
	return router
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
