package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// AgeFromDOB 出生日期（epoch 毫秒字符串）换算为周岁：整天数 / 365 向下取整
func AgeFromDOB(dob string, now time.Time) (int, bool) {
	ms, err := strconv.ParseFloat(strings.TrimSpace(dob), 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, false
	}
	born := time.UnixMilli(int64(ms))
	days := math.Floor(now.Sub(born).Hours() / 24)
	return int(math.Floor(days / 365)), true
}
