package models

import "time"

// RideFact 生产表的一行（users ⋈ user_rides ⋈ rides 展平后）
// 读数为 0 的字段在转换阶段置为 NULL
type RideFact struct {
	Time        time.Time `db:"time" json:"time"`
	UserID      int64     `db:"user_id" json:"user_id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Gender      string    `db:"gender" json:"gender"`
	Age         *int      `db:"age" json:"age"`
	Height      float64   `db:"height" json:"height"`
	Weight      float64   `db:"weight" json:"weight"`
	Email       string    `db:"email" json:"email"`
	RideID      int64     `db:"ride_id" json:"ride_id"`
	TimeElapsed float64   `db:"time_elapsed" json:"time_elapsed"`
	Resistance  *int      `db:"resistance" json:"resistance"`
	HeartRate   *int      `db:"heart_rate" json:"heart_rate"`
	RPM         *int      `db:"rotations_pm" json:"rotations_pm"`
	Power       *float64  `db:"power" json:"power"`
}
