package source

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/kev129/deleton/common/config"
	commonkafka "github.com/kev129/deleton/common/kafka"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaReader kafka.Reader 中用到的方法
type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource 从 Kafka 主题拉取日志消息（消费者组自动提交 offset）
type KafkaSource struct {
	reader kafkaReader
	logger *zap.Logger
}

// NewKafkaSource 创建 Kafka 消息源
func NewKafkaSource(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	reader, err := commonkafka.NewReader(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Kafka source created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
	)
	return &KafkaSource{reader: reader, logger: logger}, nil
}

// Poll 在 timeout 内读取一条消息
func (s *KafkaSource) Poll(ctx context.Context, timeout time.Duration) (*Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m, err := s.reader.ReadMessage(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrClosed
		}
		return &Message{Err: err}, nil
	}

	return &Message{
		Value: m.Value,
		ID:    m.Topic + "/" + strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10),
	}, nil
}

// Close 关闭消费者（离开消费者组）
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
