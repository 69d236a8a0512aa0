package source

import (
	"context"
	"sync"
	"time"

	"github.com/kev129/deleton/common/config"
	"github.com/kev129/deleton/common/mqtt"
	"go.uber.org/zap"
)

const mqttBufferSize = 1024

// subscriber common/mqtt.Client 中用到的方法
type subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
}

// MQTTSource 订阅 MQTT 主题，把推送转换为拉取
type MQTTSource struct {
	client subscriber
	topic  string
	buf    chan []byte
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewMQTTSource 连接 broker 并订阅日志主题
func NewMQTTSource(cfg *config.MQTTConfig, logger *zap.Logger) (*MQTTSource, error) {
	client, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := newMQTTSource(client, cfg.Topic, logger)
	if err := s.subscribe(); err != nil {
		client.Disconnect()
		return nil, err
	}
	return s, nil
}

func newMQTTSource(client subscriber, topic string, logger *zap.Logger) *MQTTSource {
	return &MQTTSource{
		client: client,
		topic:  topic,
		buf:    make(chan []byte, mqttBufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *MQTTSource) subscribe() error {
	return s.client.Subscribe(s.topic, 1, func(topic string, payload []byte) error {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case s.buf <- msg:
		case <-s.done:
		}
		return nil
	})
}

// Poll 在 timeout 内取出一条已接收的消息
func (s *MQTTSource) Poll(ctx context.Context, timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	case payload := <-s.buf:
		return &Message{Value: payload}, nil
	case <-timer.C:
		return nil, nil
	}
}

// Close 取消订阅并断开连接
func (s *MQTTSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.client.Unsubscribe(s.topic)
		s.client.Disconnect()
	})
	return err
}
