package source

import (
	"context"
	"errors"
	"time"
)

// ErrClosed 消息源已关闭或流已结束
var ErrClosed = errors.New("message source closed")

// Message 一次拉取的结果
// Err 非空表示该条消息读取出错（记录日志后继续拉取）
type Message struct {
	Value []byte
	Err   error
	ID    string

	ack func(ctx context.Context) error
}

// WithAck 设置确认回调
func (m *Message) WithAck(ack func(ctx context.Context) error) *Message {
	m.ack = ack
	return m
}

// Ack 确认消息已处理；不需要确认的消息源直接返回 nil
func (m *Message) Ack(ctx context.Context) error {
	if m == nil || m.ack == nil {
		return nil
	}
	return m.ack(ctx)
}

// Source 拉取式消息源
// Poll 在 timeout 内没有消息时返回 (nil, nil)；
// 只有 ctx 取消或消息源结束时返回 error
type Source interface {
	Poll(ctx context.Context, timeout time.Duration) (*Message, error)
	Close() error
}
