package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Attachment 邮件附件（Content 以 base64 编码序列化）
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Message 邮件中继请求体
type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// relayResponse 邮件中继响应
type relayResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// Sender 发送邮件
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer 通过 HTTP 邮件中继发送邮件
type Mailer struct {
	httpClient *resty.Client
	url        string
	from       string
	logger     *zap.Logger
}

// NewMailer 创建邮件客户端
func NewMailer(url, apiKey, from string, logger *zap.Logger) *Mailer {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Mailer{
		httpClient: client,
		url:        url,
		from:       from,
		logger:     logger,
	}
}

// Send 发送邮件；未填写 ID / From 时自动补全
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail has no recipients")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.From == "" {
		msg.From = m.from
	}

	var response relayResponse
	resp, err := m.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&response).
		SetError(&response).
		Post(m.url)
	if err != nil {
		m.logger.Error("Mail relay call failed",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call mail relay: %w", err)
	}

	if resp.IsError() || response.Status != 0 {
		m.logger.Error("Mail relay returned error",
			zap.String("message_id", msg.ID),
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return fmt.Errorf("mail relay error: %s (http %d, status %d)", response.Msg, resp.StatusCode(), response.Status)
	}

	m.logger.Info("Mail sent",
		zap.String("message_id", msg.ID),
		zap.String("subject", msg.Subject),
		zap.Int("recipients", len(msg.To)),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
