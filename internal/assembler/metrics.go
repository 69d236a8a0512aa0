package assembler

import (
	"math"
	"strconv"
	"strings"
)

const (
	infoDelimiter  = "[INFO]: "
	fieldDelimiter = "= "
)

// RideMetrics 等待遥测配对的 (阻力, 时长)
type RideMetrics struct {
	Resistance int
	Duration   float64
}

// TelemetryMetrics 一次遥测读数
type TelemetryMetrics struct {
	HeartRate int
	RPM       int
	Power     float64
}

// parseRideMetrics 解析 "...[INFO]: Ride - duration = 5.0; resistance = 10"
func parseRideMetrics(text string) (RideMetrics, error) {
	fields, err := positionalFields(KindRide, text, 3)
	if err != nil {
		return RideMetrics{}, err
	}

	duration, err := parseFloat(KindRide, "duration", untilSemicolon(fields[1]))
	if err != nil {
		return RideMetrics{}, err
	}
	resistance, err := parseInt(KindRide, "resistance", fields[len(fields)-1])
	if err != nil {
		return RideMetrics{}, err
	}

	return RideMetrics{Resistance: resistance, Duration: duration}, nil
}

// parseTelemetry 解析 "...[INFO]: Telemetry - hrt = 120; rpm = 60; power = 100.0"
func parseTelemetry(text string) (TelemetryMetrics, error) {
	fields, err := positionalFields(KindTelemetry, text, 4)
	if err != nil {
		return TelemetryMetrics{}, err
	}

	heartRate, err := parseInt(KindTelemetry, "heart_rate", untilSemicolon(fields[1]))
	if err != nil {
		return TelemetryMetrics{}, err
	}
	rpm, err := parseInt(KindTelemetry, "rotations_per_minute", untilSemicolon(fields[2]))
	if err != nil {
		return TelemetryMetrics{}, err
	}
	power, err := parseFloat(KindTelemetry, "power", fields[len(fields)-1])
	if err != nil {
		return TelemetryMetrics{}, err
	}

	return TelemetryMetrics{HeartRate: heartRate, RPM: rpm, Power: power}, nil
}

// positionalFields 先按日志前缀切分取第二段，再按字段分隔符切分
func positionalFields(kind Kind, text string, minFields int) ([]string, error) {
	parts := strings.Split(text, infoDelimiter)
	if len(parts) < 2 {
		return nil, malformed(kind, "delimiter %q not found", infoDelimiter)
	}

	fields := strings.Split(parts[1], fieldDelimiter)
	if len(fields) < minFields {
		return nil, malformed(kind, "expected at least %d fields, got %d", minFields, len(fields))
	}
	return fields, nil
}

func untilSemicolon(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	return s
}

func parseFloat(kind Kind, field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed(kind, "%s %q is not a number", field, strings.TrimSpace(s))
	}
	return v, nil
}

// parseInt 接受 "60" 和 "60.0" 两种写法
func parseInt(kind Kind, field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, malformed(kind, "%s %q is not an integer", field, s)
	}
	return int(f), nil
}
