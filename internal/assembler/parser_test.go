package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"system", "[SYSTEM] data = {}", KindSessionStart},
		{"ride", "[INFO]: Ride - duration = 1.0; resistance = 30", KindRide},
		{"telemetry", "[INFO]: Telemetry - hrt = 0; rpm = 0; power = 0.0", KindTelemetry},
		{"system wins over ride", "[SYSTEM] Ride restarted = {}", KindSessionStart},
		{"ride wins over telemetry", "Ride Telemetry", KindRide},
		{"unrelated", "[INFO]: bike online", KindUnknown},
		{"case sensitive", "[INFO]: ride - telemetry", KindUnknown},
		{"empty", "", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestSplitName(t *testing.T) {
	first, last, err := splitName("Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	first, last, err = splitName("Mrs Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "Lovelace", last)

	for _, name := range []string{"", "Ada", "Ada Byron King Lovelace"} {
		_, _, err := splitName(name)
		var nameErr *UnparseableNameError
		assert.ErrorAs(t, err, &nameErr, name)
	}
}

func TestParseSessionStart_Malformed(t *testing.T) {
	tests := map[string]string{
		"no delimiter":        "[SYSTEM] data: {'user_id': 1}",
		"not a mapping":       "[SYSTEM] data = ['user_id', 1]",
		"scalar payload":      "[SYSTEM] data = 12",
		"empty payload":       "[SYSTEM] data = ",
		"broken syntax":       "[SYSTEM] data = {'user_id': 1, 'name': 'A B'",
		"code is not run":     "[SYSTEM] data = __import__('os').system('id')",
		"missing email":       "[SYSTEM] data = {'user_id': 1, 'name': 'A B', 'gender': 'male', 'date_of_birth': 1, 'height_cm': 1, 'weight_kg': 1}",
		"null user id":        "[SYSTEM] data = {'user_id': None, 'name': 'A B', 'gender': 'male', 'date_of_birth': 1, 'height_cm': 1, 'weight_kg': 1, 'email_address': 'a@b'}",
		"non numeric height":  "[SYSTEM] data = {'user_id': 1, 'name': 'A B', 'gender': 'male', 'date_of_birth': 1, 'height_cm': 'tall', 'weight_kg': 1, 'email_address': 'a@b'}",
		"nested date of birth": "[SYSTEM] data = {'user_id': 1, 'name': 'A B', 'gender': 'male', 'date_of_birth': {'y': 1}, 'height_cm': 1, 'weight_kg': 1, 'email_address': 'a@b'}",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseSessionStart(text)
			var malformedErr *MalformedPayloadError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, KindSessionStart, malformedErr.Kind)
		})
	}
}

func TestParseSessionStart_MissingKeysAreNamed(t *testing.T) {
	_, err := parseSessionStart("[SYSTEM] data = {'user_id': 1, 'name': 'A B', 'gender': 'male'}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date_of_birth")
	assert.Contains(t, err.Error(), "email_address")
}

func TestParseSessionStart_UsesLastDelimiter(t *testing.T) {
	user, err := parseSessionStart("[SYSTEM] a = b = {'user_id': 3, 'name': \"Ms Sinead O'Brien\", " +
		"'gender': 'female', 'date_of_birth': '-336700800000', 'height_cm': 160.5, " +
		"'weight_kg': 58, 'email_address': 'sob@example.com'}")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.UserID)
	assert.Equal(t, "Sinead", user.FirstName)
	assert.Equal(t, "O'Brien", user.LastName)
	assert.Equal(t, "-336700800000", user.DateOfBirth)
	assert.Equal(t, 160.5, user.Height)
	assert.Equal(t, 58.0, user.Weight)
}

func TestParseRideMetrics(t *testing.T) {
	m, err := parseRideMetrics("x [INFO]: Ride - duration = 12.0; resistance = 40")
	require.NoError(t, err)
	assert.Equal(t, 12.0, m.Duration)
	assert.Equal(t, 40, m.Resistance)

	for _, text := range []string{
		"x Ride - duration = 12.0; resistance = 40",
		"x [INFO]: Ride - duration 12.0",
		"x [INFO]: Ride - duration = twelve; resistance = 40",
		"x [INFO]: Ride - duration = 12.0; resistance = 40.5",
	} {
		_, err := parseRideMetrics(text)
		var malformedErr *MalformedPayloadError
		assert.ErrorAs(t, err, &malformedErr, text)
	}
}

func TestParseTelemetry(t *testing.T) {
	m, err := parseTelemetry("x [INFO]: Telemetry - hrt = 131; rpm = 72.0; power = 88.7523")
	require.NoError(t, err)
	assert.Equal(t, 131, m.HeartRate)
	assert.Equal(t, 72, m.RPM)
	assert.InDelta(t, 88.7523, m.Power, 1e-9)

	for _, text := range []string{
		"x Telemetry - hrt = 131; rpm = 72; power = 88.7",
		"x [INFO]: Telemetry - hrt = 131; power = 88.7",
		"x [INFO]: Telemetry - hrt = ?; rpm = 72; power = 88.7",
		"x [INFO]: Telemetry - hrt = 131; rpm = 72; power = NaN",
	} {
		_, err := parseTelemetry(text)
		var malformedErr *MalformedPayloadError
		assert.ErrorAs(t, err, &malformedErr, text)
	}
}
