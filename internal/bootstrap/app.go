package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ragdesk/internal/backend"
	"ragdesk/internal/cache"
	"ragdesk/internal/config"
	"ragdesk/internal/console"
	"ragdesk/internal/identity"
	"ragdesk/internal/model"
	"ragdesk/internal/pkg/logger"
	mysqlClient "ragdesk/internal/platform/mysql"
	rabbitmqClient "ragdesk/internal/platform/rabbitmq"
	redisClient "ragdesk/internal/platform/redis"
	"ragdesk/internal/repository"
	"ragdesk/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	AuditWorker *worker.IngestionAuditWorker

	Identity   *identity.LocalProvider
	Guard      *console.Guard
	Consoles   *console.Registry
	Ingestions *repository.IngestionRecordRepository

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(logger.Options{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		IsProd: cfg.IsProd(),
	})
	app := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	if err := app.connect(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	users := repository.NewUserRepository(app.MySQL)
	app.Ingestions = repository.NewIngestionRecordRepository(app.MySQL)

	app.AuditWorker = worker.NewIngestionAuditWorker(app.MQConn, app.Ingestions, cfg.RabbitMQ.AuditQueue, log.Named("audit"))
	if err := app.AuditWorker.Start(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("start audit worker failed: %w", err)
	}

	app.Identity = identity.NewLocalProvider(
		users,
		cache.NewRevocationCache(app.Redis, cfg.Redis.KeyPrefix),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		log.Named("identity"),
	)

	opts := cfg.ConsoleOptions()
	if opts.PrivilegedAddress == "" {
		log.Warn("no admin email configured, the admin view is unreachable")
	}
	backendClient := backend.NewClient(
		opts.BackendURL(),
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		log.Named("backend"),
	)
	app.Guard = console.NewGuard(app.Identity, opts.PrivilegedAddress, log.Named("guard"))
	app.Consoles = console.NewRegistry(
		backendClient,
		opts,
		rabbitmqClient.NewAuditPublisher(app.MQConn, cfg.RabbitMQ.AuditQueue),
		log.Named("console"),
	)

	log.Info("app bootstrapped", zap.String("backend", opts.BackendURL()))
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	var err error
	a.MySQL, err = mysqlClient.New(ctx, a.Config.MySQLDSN(), a.Logger, &model.User{}, &model.IngestionRecord{})
	if err != nil {
		return err
	}
	a.Redis, err = redisClient.New(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	a.MQConn, err = rabbitmqClient.New(a.Config.RabbitMQ.URL)
	if err != nil {
		return err
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		errs = append(errs, a.MQConn.Close())
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
