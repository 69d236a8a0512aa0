package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kev129/deleton/internal/assembler"
	"github.com/kev129/deleton/internal/metrics"
	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/notify"
	"github.com/kev129/deleton/internal/repository"
	"github.com/kev129/deleton/internal/store"
	"go.uber.org/zap"
)

const (
	alertSubject = "Abnormal Heart Rate"
	alertBody    = "Your heart rate has fallen out of the recommended safe range.\r\n" +
		"Please take care.\r\n" +
		"This is an automated message."

	defaultMailTimeout = 30 * time.Second
)

// CurrentRideStore current_ride 表
type CurrentRideStore interface {
	ReplaceCurrentRide(ctx context.Context, ride models.CurrentRide) error
	GetCurrentRide(ctx context.Context) (*models.CurrentRide, error)
}

// Settings 实时骑行参数
type Settings struct {
	KeyPrefix   string        // Redis 键前缀
	TTL         time.Duration // 快照过期时间
	AlertTTL    time.Duration // 告警去重键过期时间
	MailTimeout time.Duration // 单封告警邮件的发送超时（含重试）
}

// Tracker 记录当前骑行快照并检查心率
type Tracker struct {
	kv       store.KV
	rides    CurrentRideStore
	mailer   notify.Sender
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
	sending  sync.WaitGroup
}

// NewTracker 创建实时骑行跟踪器；mailer 为 nil 时只记录不告警
func NewTracker(kv store.KV, rides CurrentRideStore, mailer notify.Sender, settings Settings, logger *zap.Logger) *Tracker {
	if settings.MailTimeout <= 0 {
		settings.MailTimeout = defaultMailTimeout
	}
	return &Tracker{
		kv:       kv,
		rides:    rides,
		mailer:   mailer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *Tracker) currentKey() string {
	return t.settings.KeyPrefix + "current"
}

func (t *Tracker) alertKey(rideID int64) string {
	return t.settings.KeyPrefix + "alert:" + strconv.FormatInt(rideID, 10)
}

// Record 写入最新一秒的快照；心率异常时每次骑行最多发送一封告警邮件
// 告警邮件在后台发送，Record 不等待发送结果
func (t *Tracker) Record(ctx context.Context, session assembler.Session, ride models.RideSecond) error {
	snapshot := models.CurrentRide{
		RideID:    session.RideID,
		UserID:    session.User.UserID,
		Name:      session.User.FirstName + " " + session.User.LastName,
		Gender:    session.User.Gender,
		Duration:  ride.Duration,
		HeartRate: ride.HeartRate,
		Power:     ride.Power,
		Email:     session.User.Email,
		UpdatedAt: ride.ObservedAt,
	}
	if age, ok := models.AgeFromDOB(session.User.DateOfBirth, t.now()); ok {
		snapshot.Age = &age
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal current ride: %w", err)
	}
	if err := t.kv.Set(ctx, t.currentKey(), string(data), t.settings.TTL); err != nil {
		return fmt.Errorf("failed to cache current ride: %w", err)
	}
	if err := t.rides.ReplaceCurrentRide(ctx, snapshot); err != nil {
		return err
	}

	if snapshot.Age != nil && Abnormal(ride.HeartRate, *snapshot.Age) {
		return t.alert(ctx, snapshot)
	}
	return nil
}

func (t *Tracker) alert(ctx context.Context, ride models.CurrentRide) error {
	key := t.alertKey(ride.RideID)
	first, err := t.kv.SetNX(ctx, key, strconv.Itoa(ride.HeartRate), t.settings.AlertTTL)
	if err != nil {
		return fmt.Errorf("failed to record heart rate alert: %w", err)
	}
	if !first {
		return nil
	}

	t.logger.Warn("Abnormal heart rate",
		zap.Int64("ride_id", ride.RideID),
		zap.Int64("user_id", ride.UserID),
		zap.Int("heart_rate", ride.HeartRate),
		zap.Intp("age", ride.Age),
	)
	if t.mailer == nil || ride.Email == "" {
		return nil
	}

	t.sending.Add(1)
	go func() {
		defer t.sending.Done()
		t.sendAlert(key, ride)
	}()
	return nil
}

// sendAlert 发送告警邮件；失败时释放去重键，下一次异常读数会重新发送
func (t *Tracker) sendAlert(key string, ride models.CurrentRide) {
	ctx, cancel := context.WithTimeout(context.Background(), t.settings.MailTimeout)
	defer cancel()

	err := t.mailer.Send(ctx, notify.Message{
		To:      []string{ride.Email},
		Subject: alertSubject,
		Text:    alertBody,
	})
	if err == nil {
		metrics.HeartRateAlertsTotal.Inc()
		return
	}

	t.logger.Error("Failed to send heart rate alert",
		zap.Int64("ride_id", ride.RideID),
		zap.Error(err),
	)
	delCtx, delCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer delCancel()
	if err := t.kv.Del(delCtx, key); err != nil {
		t.logger.Warn("Failed to release heart rate alert key", zap.String("key", key), zap.Error(err))
	}
}

// Wait 等待后台告警邮件发送完成
func (t *Tracker) Wait() {
	t.sending.Wait()
}

// Current 当前骑行快照；缓存失效时回退到 current_ride 表
func (t *Tracker) Current(ctx context.Context) (*models.CurrentRide, error) {
	val, err := t.kv.Get(ctx, t.currentKey())
	if err == nil {
		var ride models.CurrentRide
		if err := json.Unmarshal([]byte(val), &ride); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current ride: %w", err)
		}
		return &ride, nil
	}
	if !errors.Is(err, store.ErrMiss) {
		t.logger.Warn("Current ride cache unavailable, falling back to database", zap.Error(err))
	}
	return t.rides.GetCurrentRide(ctx)
}

// AlertedRides 告警去重键仍有效的骑行
func (t *Tracker) AlertedRides(ctx context.Context) ([]int64, error) {
	keys, err := t.kv.ScanKeys(ctx, t.settings.KeyPrefix+"alert:*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert keys: %w", err)
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(k, t.settings.KeyPrefix+"alert:"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MaxHeartRate 按年龄估算的最大心率
func MaxHeartRate(age int) float64 {
	return 207 - 0.7*float64(age)
}

// Abnormal 心率达到最大心率，或在 (0, 50] 区间
func Abnormal(heartRate, age int) bool {
	if heartRate <= 0 {
		return false
	}
	return float64(heartRate) >= MaxHeartRate(age) || heartRate <= 50
}

var _ CurrentRideStore = (*repository.StagingRepository)(nil)
