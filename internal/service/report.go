package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kev129/deleton/internal/metrics"
	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/notify"
	"github.com/kev129/deleton/internal/report"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FactReader 按时间读取生产表
type FactReader interface {
	ListFactsSince(ctx context.Context, since time.Time) ([]models.RideFact, error)
}

// ReportSettings 日报参数
type ReportSettings struct {
	Schedule   string        // 6 段 cron 表达式（含秒）
	Window     time.Duration // 统计最近一段时间
	Recipients []string
}

// ReportService 定时生成日报（摘要 + Excel 附件）并发送邮件
type ReportService struct {
	facts    FactReader
	mailer   notify.Sender
	settings ReportSettings
	cron     *cron.Cron
	now      func() time.Time
	logger   *zap.Logger
}

// NewReportService 创建日报服务，schedule 不合法时返回错误
func NewReportService(facts FactReader, mailer notify.Sender, settings ReportSettings, logger *zap.Logger) (*ReportService, error) {
	if _, err := cron.Parse(settings.Schedule); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", settings.Schedule, err)
	}
	return &ReportService{
		facts:    facts,
		mailer:   mailer,
		settings: settings,
		cron:     cron.New(),
		now:      time.Now,
		logger:   logger,
	}, nil
}

// SendOnce 生成并发送一次日报
func (s *ReportService) SendOnce(ctx context.Context) error {
	if err := s.sendOnce(ctx); err != nil {
		metrics.ReportsSentTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ReportsSentTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *ReportService) sendOnce(ctx context.Context) error {
	if len(s.settings.Recipients) == 0 {
		return fmt.Errorf("no report recipients configured")
	}

	to := s.now()
	from := to.Add(-s.settings.Window)
	facts, err := s.facts.ListFactsSince(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to load facts: %w", err)
	}

	summary := report.Summarize(facts, from, to)
	workbook, err := report.BuildWorkbook(summary, facts)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}

	msg := notify.Message{
		To:      s.settings.Recipients,
		Subject: summary.Subject(),
		Text:    summary.Text(),
		Attachments: []notify.Attachment{{
			Filename:    fmt.Sprintf("deloton-report-%s.xlsx", to.Format("2006-01-02")),
			ContentType: workbookContentType,
			Content:     workbook,
		}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	s.logger.Info("Daily report sent",
		zap.Int("rides", summary.Rides),
		zap.Int("readings", summary.Readings),
		zap.Strings("recipients", s.settings.Recipients),
	)
	return nil
}

// Start 按 schedule 注册任务并启动调度
func (s *ReportService) Start(ctx context.Context) error {
	err := s.cron.AddFunc(s.settings.Schedule, func() {
		if err := s.SendOnce(ctx); err != nil {
			s.logger.Error("Daily report failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Report scheduler started", zap.String("schedule", s.settings.Schedule))
	return nil
}

// Stop 停止调度（不等待正在执行的任务）
func (s *ReportService) Stop() {
	s.cron.Stop()
	s.logger.Info("Report scheduler stopped")
}
