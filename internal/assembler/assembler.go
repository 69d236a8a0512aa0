package assembler

import (
	"context"
	"time"

	"github.com/kev129/deleton/internal/models"
)

// State 驱动状态
type State int

const (
	StateNoSession State = iota
	StateSessionActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateSessionActive:
		return "SESSION_ACTIVE"
	case StateStopped:
		return "STOPPED"
	default:
		return "NO_SESSION"
	}
}

// RideCounter 读取已持久化的骑行数量，用于分配 ride_id
type RideCounter interface {
	CountRides(ctx context.Context) (int64, error)
}

// Session 一次骑行的内存状态
type Session struct {
	RideID int64
	User   models.User
}

// Emission 处理一条消息后产生的记录
type Emission struct {
	User *models.User
	Link *models.UserRide
	Ride *models.RideSecond
}

// Empty 是否没有任何记录
func (e Emission) Empty() bool {
	return e.User == nil && e.Link == nil && e.Ride == nil
}

// Assembler 会话组装器（单线程使用，不加锁）
type Assembler struct {
	counter RideCounter
	now     func() time.Time

	state   State
	session *Session
	pending *RideMetrics
}

// Option 组装器选项
type Option func(*Assembler)

// WithClock 替换墙钟（测试使用）
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// New 创建组装器
func New(counter RideCounter, opts ...Option) *Assembler {
	a := &Assembler{
		counter: counter,
		now:     time.Now,
		state:   StateNoSession,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State 当前状态
func (a *Assembler) State() State {
	return a.state
}

// Session 当前会话的副本；无会话时返回 nil
func (a *Assembler) Session() *Session {
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// Pending 当前待配对的骑行指标副本
func (a *Assembler) Pending() *RideMetrics {
	if a.pending == nil {
		return nil
	}
	p := *a.pending
	return &p
}

// Stop 进入终止状态，丢弃会话
func (a *Assembler) Stop() {
	a.state = StateStopped
	a.session = nil
	a.pending = nil
}

// Handle 分类并处理一条日志文本
func (a *Assembler) Handle(ctx context.Context, text string) (Kind, Emission, error) {
	kind := Classify(text)
	if a.state == StateStopped {
		return kind, Emission{}, nil
	}

	var (
		out Emission
		err error
	)
	switch kind {
	case KindSessionStart:
		out, err = a.startSession(ctx, text)
	case KindRide:
		err = a.recordRide(text)
	case KindTelemetry:
		out, err = a.completeSecond(text)
	}
	return kind, out, err
}

func (a *Assembler) startSession(ctx context.Context, text string) (Emission, error) {
	user, err := parseSessionStart(text)
	if err != nil {
		return Emission{}, err
	}

	// 新的会话开始即取代旧会话；旧会话的待配对指标直接丢弃
	a.session = nil
	a.pending = nil
	a.state = StateNoSession

	count, err := a.counter.CountRides(ctx)
	if err != nil {
		return Emission{}, &SinkUnavailableError{Op: "count rides", Err: err}
	}

	a.session = &Session{RideID: count + 1, User: user}
	a.state = StateSessionActive

	u := user
	return Emission{
		User: &u,
		Link: &models.UserRide{UserID: user.UserID, RideID: a.session.RideID},
	}, nil
}

func (a *Assembler) recordRide(text string) error {
	metrics, err := parseRideMetrics(text)
	if err != nil {
		return err
	}
	a.pending = &metrics
	return nil
}

func (a *Assembler) completeSecond(text string) (Emission, error) {
	telemetry, err := parseTelemetry(text)
	if err != nil {
		return Emission{}, err
	}

	// 预热阶段：没有会话或还没有骑行指标时静默丢弃
	if a.state != StateSessionActive || a.pending == nil {
		return Emission{}, nil
	}

	ride := &models.RideSecond{
		RideID:     a.session.RideID,
		Duration:   a.pending.Duration,
		Resistance: a.pending.Resistance,
		HeartRate:  telemetry.HeartRate,
		RPM:        telemetry.RPM,
		Power:      telemetry.Power,
		ObservedAt: a.now(),
	}
	// 每一秒只产出一行：下一行需要新的骑行指标
	a.pending = nil

	return Emission{Ride: ride}, nil
}
