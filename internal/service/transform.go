package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kev129/deleton/internal/metrics"
	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/transformer"
	"go.uber.org/zap"
)

// StagingReader 读取暂存表
type StagingReader interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUserRides(ctx context.Context) ([]models.UserRide, error)
	ListRides(ctx context.Context) ([]models.RideSecond, error)
}

// FactWriter 整表替换生产表
type FactWriter interface {
	ReplaceFacts(ctx context.Context, facts []models.RideFact) error
}

// TransformService 定时把暂存表展平写入生产表
type TransformService struct {
	staging     StagingReader
	facts       FactWriter
	transformer *transformer.FactTransformer
	interval    time.Duration
	logger      *zap.Logger
}

// NewTransformService 创建转换服务
func NewTransformService(staging StagingReader, facts FactWriter, t *transformer.FactTransformer, interval time.Duration, logger *zap.Logger) *TransformService {
	return &TransformService{
		staging:     staging,
		facts:       facts,
		transformer: t,
		interval:    interval,
		logger:      logger,
	}
}

// RunOnce 执行一次转换，返回写入的行数
func (s *TransformService) RunOnce(ctx context.Context) (int, error) {
	n, err := s.runOnce(ctx)
	if err != nil {
		metrics.TransformRunsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.TransformRunsTotal.WithLabelValues("success").Inc()
	metrics.ProductionRows.Set(float64(n))
	return n, nil
}

func (s *TransformService) runOnce(ctx context.Context) (int, error) {
	users, err := s.staging.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read users: %w", err)
	}
	links, err := s.staging.ListUserRides(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read user rides: %w", err)
	}
	rides, err := s.staging.ListRides(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read rides: %w", err)
	}

	facts := s.transformer.Transform(users, links, rides)
	if err := s.facts.ReplaceFacts(ctx, facts); err != nil {
		return 0, fmt.Errorf("failed to replace production facts: %w", err)
	}

	s.logger.Info("Transform completed",
		zap.Int("users", len(users)),
		zap.Int("user_rides", len(links)),
		zap.Int("rides", len(rides)),
		zap.Int("facts", len(facts)),
	)
	return len(facts), nil
}

// Run 立即执行一次，之后按 interval 执行，直到 ctx 取消
// 单次失败只记录日志，下个周期重试
func (s *TransformService) Run(ctx context.Context) error {
	s.logger.Info("Starting transform service", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Transform failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Transform service stopped")
			return nil
		case <-ticker.C:
		}
	}
}
