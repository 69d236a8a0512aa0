package dashboard

import (
	"testing"
	"time"

	"github.com/kev129/deleton/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeBracket(t *testing.T) {
	tests := []struct {
		age   int
		label string
		ok    bool
	}{
		{0, "", false},
		{1, "0-18", true},
		{18, "0-18", true},
		{19, "19-25", true},
		{32, "26-32", true},
		{45, "40-45", true},
		{65, "60-65", true},
		{66, "65+", true},
		{101, "65+", true},
	}
	for _, tt := range tests {
		i, ok := AgeBracket(tt.age)
		assert.Equal(t, tt.ok, ok, "age %d", tt.age)
		if ok {
			assert.Equal(t, tt.label, AgeBrackets[i], "age %d", tt.age)
		}
	}
}

func fact(rideID int64, gender string, age *int, elapsed float64, at time.Time, power *float64) models.RideFact {
	return models.RideFact{RideID: rideID, Gender: gender, Age: age, TimeElapsed: elapsed, Time: at, Power: power}
}

func ptr[T any](v T) *T { return &v }

func TestBuild(t *testing.T) {
	t0 := time.Date(2022, 7, 25, 10, 15, 0, 0, time.UTC)
	facts := []models.RideFact{
		fact(1, "female", ptr(32), 1, t0, ptr(100.0)),
		fact(1, "female", ptr(32), 5400, t0.Add(90*time.Minute), ptr(200.0)),
		fact(2, "male", ptr(70), 1, t0, nil),
		fact(2, "male", ptr(70), 1800, t0.Add(30*time.Minute), ptr(50.0)),
		fact(3, "female", nil, 9000, t0, nil),
	}

	d := Build(facts)

	assert.Equal(t, map[string]int{"female": 2, "male": 1}, d.RidesByGender)
	// female: 5400 + 9000 = 4h; male: 1800s = 0.5h → 0
	assert.Equal(t, map[string]int{"female": 4, "male": 0}, d.DurationByGenderHours)

	require.Len(t, d.RidesByAge, len(AgeBrackets))
	assert.Equal(t, BracketValue{Bracket: "26-32", Value: 1}, d.RidesByAge[2])
	assert.Equal(t, BracketValue{Bracket: "65+", Value: 1}, d.RidesByAge[8])
	assert.Equal(t, 0, d.RidesByAge[0].Value)
	assert.Equal(t, BracketValue{Bracket: "26-32", Value: 2}, d.DurationByAgeHours[2])

	require.Len(t, d.HourlyPower, 2)
	assert.Equal(t, time.Date(2022, 7, 25, 10, 0, 0, 0, time.UTC), d.HourlyPower[0].Hour)
	assert.Equal(t, 150.0, d.HourlyPower[0].Total)
	assert.Equal(t, 75.0, d.HourlyPower[0].Average)
	assert.Equal(t, 200.0, d.HourlyPower[1].Total)
}

func TestBuild_Empty(t *testing.T) {
	d := Build(nil)
	assert.Empty(t, d.RidesByGender)
	assert.Len(t, d.RidesByAge, len(AgeBrackets))
	assert.Empty(t, d.HourlyPower)
}
