package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	commonredis "github.com/kev129/deleton/common/redis"
	"go.uber.org/zap"
)

// RedisStreamSource 以消费者组方式读取 Redis Streams（消息体在 data 字段）
type RedisStreamSource struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	logger   *zap.Logger
}

// NewRedisStreamSource 创建消费者组（已存在则忽略）
func NewRedisStreamSource(ctx context.Context, client *redis.Client, stream, group, consumer string, logger *zap.Logger) (*RedisStreamSource, error) {
	if err := commonredis.CreateConsumerGroup(ctx, client, stream, group); err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	logger.Info("Redis stream source created",
		zap.String("stream", stream),
		zap.String("group", group),
		zap.String("consumer", consumer),
	)
	return &RedisStreamSource{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		logger:   logger,
	}, nil
}

// Poll 阻塞读取一条消息，最长 timeout
func (s *RedisStreamSource) Poll(ctx context.Context, timeout time.Duration) (*Message, error) {
	messages, err := commonredis.ReadFromStream(ctx, s.client, s.stream, s.group, s.consumer, 1, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == redis.ErrClosed {
			return nil, ErrClosed
		}
		return &Message{Err: err}, nil
	}
	if len(messages) == 0 {
		return nil, nil
	}

	m := messages[0]
	msg := (&Message{ID: m.ID}).WithAck(func(ctx context.Context) error {
		return commonredis.Ack(ctx, s.client, s.stream, s.group, m.ID)
	})
	switch data := m.Values["data"].(type) {
	case string:
		msg.Value = []byte(data)
	case nil:
		msg.Err = fmt.Errorf("stream message %s has no data field", m.ID)
	default:
		msg.Err = fmt.Errorf("stream message %s has non-string data field", m.ID)
	}
	return msg, nil
}

// Close 客户端由调用方持有，这里不关闭
func (s *RedisStreamSource) Close() error {
	return nil
}
