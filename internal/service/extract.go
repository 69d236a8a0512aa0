package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/kev129/deleton/common/database"
	rediscommon "github.com/kev129/deleton/common/redis"
	"github.com/kev129/deleton/internal/config"
	"github.com/kev129/deleton/internal/consumer"
	"github.com/kev129/deleton/internal/live"
	"github.com/kev129/deleton/internal/notify"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/source"
	"github.com/kev129/deleton/internal/store"
	"go.uber.org/zap"
)

// ExtractService 抽取服务：消息源 -> 组装器 -> 暂存库
type ExtractService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	sink        *repository.GuardedSink
	tracker     *live.Tracker
	consumer    *consumer.RideConsumer
}

// NewExtractService 创建抽取服务
func NewExtractService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ExtractService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	staging := repository.NewStagingRepository(db, cfg.Schema.Staging, logger)
	if err := staging.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare staging schema: %w", err)
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	src, err := newSource(ctx, cfg, redisClient, logger)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, err
	}

	sink := repository.NewGuardedSink(staging, repository.BreakerSettings{
		FailureThreshold: uint32(cfg.Extract.Breaker.FailureThreshold),
		OpenTimeout:      cfg.Extract.Breaker.OpenTimeout,
		OpTimeout:        cfg.Extract.SinkTimeout,
	}, logger)

	mailer := notify.NewMailer(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.Sender, logger)
	tracker := live.NewTracker(store.NewRedisKV(redisClient), staging, mailer, live.Settings{
		KeyPrefix:   cfg.Live.KeyPrefix,
		TTL:         cfg.Live.TTL,
		AlertTTL:    cfg.Live.AlertTTL,
		MailTimeout: cfg.Live.MailTimeout,
	}, logger)
	rides := consumer.NewRideConsumer(src, sink, tracker, cfg.Extract.PollTimeout, logger)
	rides.SetTrackerTimeout(cfg.Extract.SinkTimeout)

	return &ExtractService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		sink:        sink,
		tracker:     tracker,
		consumer:    rides,
	}, nil
}

// newSource 按 SOURCE_TYPE 创建消息源
func newSource(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (source.Source, error) {
	switch cfg.Extract.SourceType {
	case config.SourceKafka:
		src, err := source.NewKafkaSource(&cfg.Kafka, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka source: %w", err)
		}
		return src, nil
	case config.SourceMQTT:
		src, err := source.NewMQTTSource(&cfg.MQTT, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt source: %w", err)
		}
		return src, nil
	case config.SourceRedis:
		src, err := source.NewRedisStreamSource(ctx, redisClient,
			cfg.Extract.Stream, cfg.Extract.ConsumerGroup, cfg.Extract.ConsumerName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis stream source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Extract.SourceType)
	}
}

// Run 运行抽取循环，阻塞直到结束
// 返回非 nil 表示暂存库不可用或消息源故障
func (s *ExtractService) Run(ctx context.Context) error {
	s.logger.Info("Starting extract service",
		zap.String("source", s.config.Extract.SourceType),
		zap.String("staging_schema", s.config.Schema.Staging),
	)
	err := s.consumer.Run(ctx)
	if err != nil {
		s.logger.Error("Extract service stopped with error",
			zap.String("breaker", s.sink.State()),
			zap.Error(err),
		)
	}
	return err
}

// Stop 释放连接
func (s *ExtractService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping extract service")

	// 等待后台告警邮件发完再关闭连接
	if s.tracker != nil {
		sent := make(chan struct{})
		go func() {
			s.tracker.Wait()
			close(sent)
		}()
		select {
		case <-sent:
		case <-ctx.Done():
			s.logger.Warn("Timed out waiting for alert mail", zap.Error(ctx.Err()))
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("Extract service stopped")
	return nil
}
