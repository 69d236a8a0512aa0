package assembler

import "strings"

// Kind 消息类别
type Kind int

const (
	KindUnknown Kind = iota
	KindSessionStart
	KindRide
	KindTelemetry
)

func (k Kind) String() string {
	switch k {
	case KindSessionStart:
		return "session-start"
	case KindRide:
		return "ride"
	case KindTelemetry:
		return "telemetry"
	default:
		return "unknown"
	}
}

// 分类标记，按顺序匹配，先命中者优先
var markers = []struct {
	marker string
	kind   Kind
}{
	{"SYSTEM", KindSessionStart},
	{"Ride", KindRide},
	{"Telemetry", KindTelemetry},
}

// Classify 根据子串标记判断消息类别；均不命中返回 KindUnknown
func Classify(text string) Kind {
	for _, m := range markers {
		if strings.Contains(text, m.marker) {
			return m.kind
		}
	}
	return KindUnknown
}
