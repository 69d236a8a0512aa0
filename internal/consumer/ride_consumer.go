package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kev129/deleton/internal/assembler"
	"github.com/kev129/deleton/internal/metrics"
	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/source"
	"go.uber.org/zap"
)

// idleLogInterval 连续空轮询时每隔多少次打一条 Info 日志
const idleLogInterval = 20

// Tracker 实时骑行记录（可选）
type Tracker interface {
	Record(ctx context.Context, session assembler.Session, ride models.RideSecond) error
}

// RideConsumer 骑行日志流驱动：拉取、解码、组装、写入暂存库
// 单 goroutine 顺序执行，组装器不加锁
type RideConsumer struct {
	source      source.Source
	sink        repository.Sink
	assembler   *assembler.Assembler
	tracker     Tracker
	pollTimeout time.Duration
	// trackTimeout 单次实时记录的超时，0 表示不限制
	trackTimeout time.Duration
	logger       *zap.Logger
}

// NewRideConsumer 创建流驱动；tracker 可以为 nil
func NewRideConsumer(
	src source.Source,
	sink repository.Sink,
	tracker Tracker,
	pollTimeout time.Duration,
	logger *zap.Logger,
	opts ...assembler.Option,
) *RideConsumer {
	return &RideConsumer{
		source:      src,
		sink:        sink,
		assembler:   assembler.New(sink, opts...),
		tracker:     tracker,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// SetTrackerTimeout 设置单次实时记录的超时
func (c *RideConsumer) SetTrackerTimeout(d time.Duration) {
	c.trackTimeout = d
}

// State 组装器状态
func (c *RideConsumer) State() assembler.State {
	return c.assembler.State()
}

// Run 运行拉取循环直到 ctx 取消、消息源结束或暂存库不可用
// 前两种情况返回 nil；暂存库不可用返回 *assembler.SinkUnavailableError
// 退出时总会关闭消息源，进行中的会话直接丢弃
func (c *RideConsumer) Run(ctx context.Context) error {
	defer func() {
		c.assembler.Stop()
		if err := c.source.Close(); err != nil {
			c.logger.Warn("Failed to close message source", zap.Error(err))
		}
	}()

	c.logger.Info("Ride consumer started", zap.Duration("poll_timeout", c.pollTimeout))

	idle := 0
	for {
		msg, err := c.source.Poll(ctx, c.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Ride consumer interrupted", zap.String("state", c.assembler.State().String()))
				return nil
			}
			if errors.Is(err, source.ErrClosed) {
				c.logger.Info("Message source ended")
				return nil
			}
			return fmt.Errorf("failed to poll message source: %w", err)
		}

		if msg == nil {
			idle++
			metrics.IdlePollsTotal.Inc()
			if idle%idleLogInterval == 0 {
				c.logger.Info("Waiting for messages", zap.Int("idle_polls", idle))
			} else {
				c.logger.Debug("Waiting...")
			}
			continue
		}
		idle = 0

		if msg.Err != nil {
			c.logger.Error("Message source returned error",
				zap.String("message_id", msg.ID),
				zap.Error(msg.Err),
			)
			metrics.RecordMessage("unknown", "source_error")
			// 读不出内容的消息也要确认，否则会一直留在待确认列表里
			if err := msg.Ack(ctx); err != nil {
				c.logger.Warn("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
			}
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			var sinkErr *assembler.SinkUnavailableError
			if errors.As(err, &sinkErr) {
				if ctx.Err() != nil {
					c.logger.Info("Ride consumer interrupted during sink write")
					return nil
				}
				c.logger.Error("Staging sink unavailable, stopping",
					zap.String("op", sinkErr.Op),
					zap.Error(sinkErr.Err),
				)
				return err
			}
			// 单条消息错误不中断
			c.logger.Error("Failed to process message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}

		if err := msg.Ack(ctx); err != nil {
			c.logger.Warn("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

// processMessage 处理单条消息
func (c *RideConsumer) processMessage(ctx context.Context, msg *source.Message) error {
	decoded, err := models.DecodeLogMessage(msg.Value)
	if err != nil {
		metrics.RecordMessage("unknown", "decode_error")
		return fmt.Errorf("failed to decode message: %w", err)
	}

	kind, out, err := c.assembler.Handle(ctx, decoded.Log)
	if err != nil {
		metrics.RecordMessage(kind.String(), "error")
		return err
	}
	if out.Empty() {
		metrics.RecordMessage(kind.String(), "no_emission")
		return nil
	}

	if out.User != nil && out.Link != nil {
		if err := c.sink.WriteSessionStart(ctx, *out.User, *out.Link); err != nil {
			return sinkError("write session start", err)
		}
		metrics.RecordWrite("users", 1)
		metrics.RecordWrite("user_rides", 1)
		c.logger.Info("Ride session started",
			zap.Int64("ride_id", out.Link.RideID),
			zap.Int64("user_id", out.User.UserID),
		)
	}

	if out.Ride != nil {
		if err := c.sink.WriteRideSecond(ctx, *out.Ride); err != nil {
			return sinkError("write ride second", err)
		}
		metrics.RecordWrite("rides", 1)
		c.logger.Debug("Ride second written",
			zap.Int64("ride_id", out.Ride.RideID),
			zap.Float64("duration", out.Ride.Duration),
		)

		c.recordLive(ctx, *out.Ride)
	}

	metrics.RecordMessage(kind.String(), "emitted")
	return nil
}

// recordLive 记录实时骑行；失败或超时只记录日志
func (c *RideConsumer) recordLive(ctx context.Context, ride models.RideSecond) {
	if c.tracker == nil {
		return
	}
	session := c.assembler.Session()
	if session == nil {
		return
	}
	if c.trackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.trackTimeout)
		defer cancel()
	}
	if err := c.tracker.Record(ctx, *session, ride); err != nil {
		c.logger.Warn("Failed to record live ride", zap.Int64("ride_id", ride.RideID), zap.Error(err))
	}
}

func sinkError(op string, err error) error {
	var sinkErr *assembler.SinkUnavailableError
	if errors.As(err, &sinkErr) {
		return err
	}
	return &assembler.SinkUnavailableError{Op: op, Err: err}
}
