package transformer

import (
	"sort"
	"time"

	"github.com/kev129/deleton/internal/models"
	"go.uber.org/zap"
)

// FactTransformer 把暂存表展平为生产表的行
type FactTransformer struct {
	now    func() time.Time
	logger *zap.Logger
}

// NewFactTransformer 创建转换器
func NewFactTransformer(logger *zap.Logger) *FactTransformer {
	return &FactTransformer{
		now:    time.Now,
		logger: logger,
	}
}

// Transform users ⋈ user_rides ⋈ rides（内连接）
// 用户按 user_id 去重，保留第一次出现的记录；dob 换算为年龄；duration 改名 time_elapsed；
// 读数为 0 的字段置为 NULL。结果按 ride_id、time 排序
func (t *FactTransformer) Transform(users []models.User, links []models.UserRide, rides []models.RideSecond) []models.RideFact {
	now := t.now()

	byUser := make(map[int64]models.User, len(users))
	for _, u := range users {
		if _, ok := byUser[u.UserID]; !ok {
			byUser[u.UserID] = u
		}
	}

	rideOwner := make(map[int64]int64, len(links))
	for _, l := range links {
		rideOwner[l.RideID] = l.UserID
	}

	facts := make([]models.RideFact, 0, len(rides))
	dropped := 0
	for _, r := range rides {
		userID, ok := rideOwner[r.RideID]
		if !ok {
			dropped++
			continue
		}
		u, ok := byUser[userID]
		if !ok {
			dropped++
			continue
		}

		f := models.RideFact{
			Time:        r.ObservedAt,
			UserID:      u.UserID,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			Gender:      u.Gender,
			Height:      u.Height,
			Weight:      u.Weight,
			Email:       u.Email,
			RideID:      r.RideID,
			TimeElapsed: r.Duration,
			Resistance:  nonZeroInt(r.Resistance),
			HeartRate:   nonZeroInt(r.HeartRate),
			RPM:         nonZeroInt(r.RPM),
			Power:       nonZeroFloat(r.Power),
		}
		if age, ok := models.AgeFromDOB(u.DateOfBirth, now); ok {
			f.Age = &age
		}
		facts = append(facts, f)
	}

	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].RideID != facts[j].RideID {
			return facts[i].RideID < facts[j].RideID
		}
		return facts[i].Time.Before(facts[j].Time)
	})

	if dropped > 0 {
		t.logger.Warn("Ride readings without a matching user or link were dropped",
			zap.Int("dropped", dropped),
		)
	}
	return facts
}

func nonZeroInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func nonZeroFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
