package models

import "time"

// User 骑行用户（会话开始时产生，每个会话一行）
type User struct {
	UserID    int64  `db:"user_id" json:"user_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Gender    string `db:"gender" json:"gender"`
	// DateOfBirth 原样保存（毫秒时间戳字符串），由转换阶段换算为年龄
	DateOfBirth string  `db:"dob" json:"dob"`
	Height      float64 `db:"height" json:"height"`
	Weight      float64 `db:"weight" json:"weight"`
	Email       string  `db:"email" json:"email"`
}

// UserRide 用户与骑行的关联
type UserRide struct {
	UserID int64 `db:"user_id" json:"user_id"`
	RideID int64 `db:"ride_id" json:"ride_id"`
}

// RideSecond 一秒的骑行读数
type RideSecond struct {
	RideID     int64   `db:"ride_id" json:"ride_id"`
	Duration   float64 `db:"duration" json:"duration"`
	Resistance int     `db:"resistance" json:"resistance"`
	HeartRate  int     `db:"heart_rate" json:"heart_rate"`
	RPM        int     `db:"rotations_pm" json:"rotations_pm"`
	Power      float64 `db:"power" json:"power"`
	// ObservedAt 组装时的墙钟时间（非传感器时间）
	ObservedAt time.Time `db:"time" json:"time"`
}

// CurrentRide 当前骑行快照（实时页面 / 心率告警使用）
type CurrentRide struct {
	RideID    int64     `json:"ride_id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Age       *int      `json:"age"`
	Duration  float64   `json:"duration"`
	HeartRate int       `json:"heart_rate"`
	Power     float64   `json:"power"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}
