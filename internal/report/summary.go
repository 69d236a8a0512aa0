package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kev129/deleton/internal/dashboard"
	"github.com/kev129/deleton/internal/models"
)

// Summary 日报汇总
type Summary struct {
	From          time.Time
	To            time.Time
	Rides         int
	Riders        int
	Readings      int
	RidesByGender map[string]int
	AvgPower      float64 // 忽略 NULL
	AvgHeartRate  float64 // 忽略 NULL
	RidesByAge    []dashboard.BracketValue
}

// Summarize 计算 [from, to] 内读数的汇总
func Summarize(facts []models.RideFact, from, to time.Time) Summary {
	s := Summary{
		From:          from,
		To:            to,
		Readings:      len(facts),
		RidesByGender: make(map[string]int),
	}

	rides := make(map[int64]models.RideFact)
	riders := make(map[int64]struct{})
	var (
		powerSum, hrSum     float64
		powerCount, hrCount int
	)
	for _, f := range facts {
		if _, ok := rides[f.RideID]; !ok {
			rides[f.RideID] = f
		}
		riders[f.UserID] = struct{}{}
		if f.Power != nil {
			powerSum += *f.Power
			powerCount++
		}
		if f.HeartRate != nil {
			hrSum += float64(*f.HeartRate)
			hrCount++
		}
	}

	ageRides := make([]int, len(dashboard.AgeBrackets))
	for _, f := range rides {
		s.RidesByGender[f.Gender]++
		if f.Age == nil {
			continue
		}
		if i, ok := dashboard.AgeBracket(*f.Age); ok {
			ageRides[i]++
		}
	}
	for i, label := range dashboard.AgeBrackets {
		s.RidesByAge = append(s.RidesByAge, dashboard.BracketValue{Bracket: label, Value: ageRides[i]})
	}

	s.Rides = len(rides)
	s.Riders = len(riders)
	if powerCount > 0 {
		s.AvgPower = round2(powerSum / float64(powerCount))
	}
	if hrCount > 0 {
		s.AvgHeartRate = round2(hrSum / float64(hrCount))
	}
	return s
}

// Subject 邮件标题
func (s Summary) Subject() string {
	return "Deloton daily report " + s.To.Format("2006-01-02")
}

// Text 邮件正文
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deloton report for %s to %s\r\n\r\n",
		s.From.Format("02/01/2006 15:04"), s.To.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "Rides: %d\r\n", s.Rides)
	fmt.Fprintf(&b, "Riders: %d\r\n", s.Riders)

	for _, g := range sortedKeys(s.RidesByGender) {
		fmt.Fprintf(&b, "Rides (%s): %d\r\n", g, s.RidesByGender[g])
	}

	fmt.Fprintf(&b, "Average power: %.2f W\r\n", s.AvgPower)
	fmt.Fprintf(&b, "Average heart rate: %.2f bpm\r\n", s.AvgHeartRate)
	b.WriteString("\r\nThe full readings are attached.\r\n")
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
