package repository

import (
	"context"
	"time"

	"github.com/kev129/deleton/internal/assembler"
	"github.com/kev129/deleton/internal/metrics"
	"github.com/kev129/deleton/internal/models"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Sink 抽取阶段使用的暂存写入接口
type Sink interface {
	CountRides(ctx context.Context) (int64, error)
	WriteSessionStart(ctx context.Context, user models.User, link models.UserRide) error
	WriteRideSecond(ctx context.Context, ride models.RideSecond) error
}

// BreakerSettings 断路器参数
type BreakerSettings struct {
	FailureThreshold uint32        // 连续失败多少次后打开
	OpenTimeout      time.Duration // 打开后多久进入半开
	OpTimeout        time.Duration // 单次操作超时
}

// GuardedSink 为暂存写入加上超时和断路器，失败统一为 SinkUnavailableError
type GuardedSink struct {
	next    Sink
	breaker *gobreaker.CircuitBreaker[int64]
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuardedSink 包装 Sink
func NewGuardedSink(next Sink, settings BreakerSettings, logger *zap.Logger) *GuardedSink {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "staging-sink",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Sink circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				metrics.SinkBreakerOpen.Set(1)
			} else {
				metrics.SinkBreakerOpen.Set(0)
			}
		},
	})
	return &GuardedSink{
		next:    next,
		breaker: breaker,
		timeout: settings.OpTimeout,
		logger:  logger,
	}
}

// State 断路器当前状态
func (s *GuardedSink) State() string {
	return s.breaker.State().String()
}

// CountRides 已持久化骑行数
func (s *GuardedSink) CountRides(ctx context.Context) (int64, error) {
	return s.run(ctx, "count rides", func(ctx context.Context) (int64, error) {
		return s.next.CountRides(ctx)
	})
}

// WriteSessionStart 写入用户和关联记录
func (s *GuardedSink) WriteSessionStart(ctx context.Context, user models.User, link models.UserRide) error {
	_, err := s.run(ctx, "write session start", func(ctx context.Context) (int64, error) {
		return 0, s.next.WriteSessionStart(ctx, user, link)
	})
	return err
}

// WriteRideSecond 写入骑行读数
func (s *GuardedSink) WriteRideSecond(ctx context.Context, ride models.RideSecond) error {
	_, err := s.run(ctx, "write ride second", func(ctx context.Context) (int64, error) {
		return 0, s.next.WriteRideSecond(ctx, ride)
	})
	return err
}

func (s *GuardedSink) run(ctx context.Context, op string, fn func(ctx context.Context) (int64, error)) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.SinkWriteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	n, err := s.breaker.Execute(func() (int64, error) {
		opCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			opCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return fn(opCtx)
	})
	if err != nil {
		return 0, &assembler.SinkUnavailableError{Op: op, Err: err}
	}
	return n, nil
}
