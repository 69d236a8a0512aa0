package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/kev129/deleton/internal/models"
)

// AgeBrackets 年龄段标签，区间为左开右闭
var AgeBrackets = []string{"0-18", "19-25", "26-32", "33-39", "40-45", "46-52", "53-59", "60-65", "65+"}

var bracketUpper = []int{18, 25, 32, 39, 45, 52, 59, 65}

// AgeBracket 年龄所在的年龄段；年龄 <= 0 不归入任何年龄段
func AgeBracket(age int) (int, bool) {
	if age <= 0 {
		return 0, false
	}
	for i, upper := range bracketUpper {
		if age <= upper {
			return i, true
		}
	}
	return len(bracketUpper), true
}

// BracketValue 某个年龄段的统计值
type BracketValue struct {
	Bracket string `json:"bracket"`
	Value   int    `json:"value"`
}

// HourlyPower 某个整点小时内的功率
type HourlyPower struct {
	Hour     time.Time `json:"hour"`
	Total    float64   `json:"total"`
	Average  float64   `json:"average"`
	Readings int       `json:"readings"`
}

// Dashboard 看板统计
type Dashboard struct {
	RidesByGender         map[string]int `json:"rides_by_gender"`
	DurationByGenderHours map[string]int `json:"duration_by_gender_hours"`
	RidesByAge            []BracketValue `json:"rides_by_age"`
	DurationByAgeHours    []BracketValue `json:"duration_by_age_hours"`
	HourlyPower           []HourlyPower  `json:"hourly_power"`
}

// rideSummary 一次骑行的汇总
type rideSummary struct {
	gender   string
	age      *int
	duration float64
}

// summarize 按骑行汇总（骑行时长取最大 time_elapsed）
func summarize(facts []models.RideFact) map[int64]*rideSummary {
	rides := make(map[int64]*rideSummary)
	for _, f := range facts {
		r, ok := rides[f.RideID]
		if !ok {
			r = &rideSummary{gender: f.Gender, age: f.Age}
			rides[f.RideID] = r
		}
		if f.TimeElapsed > r.duration {
			r.duration = f.TimeElapsed
		}
	}
	return rides
}

// Build 由生产表读数计算看板统计
func Build(facts []models.RideFact) Dashboard {
	rides := summarize(facts)

	d := Dashboard{
		RidesByGender:         make(map[string]int),
		DurationByGenderHours: make(map[string]int),
	}

	genderSeconds := make(map[string]float64)
	ageRides := make([]int, len(AgeBrackets))
	ageSeconds := make([]float64, len(AgeBrackets))
	for _, r := range rides {
		d.RidesByGender[r.gender]++
		genderSeconds[r.gender] += r.duration
		if r.age == nil {
			continue
		}
		if i, ok := AgeBracket(*r.age); ok {
			ageRides[i]++
			ageSeconds[i] += r.duration
		}
	}
	for g, s := range genderSeconds {
		d.DurationByGenderHours[g] = toHours(s)
	}
	for i, label := range AgeBrackets {
		d.RidesByAge = append(d.RidesByAge, BracketValue{Bracket: label, Value: ageRides[i]})
		d.DurationByAgeHours = append(d.DurationByAgeHours, BracketValue{Bracket: label, Value: toHours(ageSeconds[i])})
	}

	d.HourlyPower = hourlyPower(facts)
	return d
}

func hourlyPower(facts []models.RideFact) []HourlyPower {
	byHour := make(map[time.Time]*HourlyPower)
	for _, f := range facts {
		if f.Power == nil {
			continue
		}
		hour := f.Time.Truncate(time.Hour)
		h, ok := byHour[hour]
		if !ok {
			h = &HourlyPower{Hour: hour}
			byHour[hour] = h
		}
		h.Total += *f.Power
		h.Readings++
	}

	out := make([]HourlyPower, 0, len(byHour))
	for _, h := range byHour {
		h.Average = h.Total / float64(h.Readings)
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}

// toHours 秒换算为小时（四舍六入五成双）
func toHours(seconds float64) int {
	return int(math.RoundToEven(seconds / 3600))
}
