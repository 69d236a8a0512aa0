package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kev129/deleton/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// StagingRepository 暂存 schema（users / user_rides / rides / current_ride）
type StagingRepository struct {
	db     *sql.DB
	schema string
	logger *zap.Logger
}

// NewStagingRepository 创建暂存仓库
func NewStagingRepository(db *sql.DB, schema string, logger *zap.Logger) *StagingRepository {
	return &StagingRepository{
		db:     db,
		schema: schema,
		logger: logger,
	}
}

func (r *StagingRepository) table(name string) string {
	return pq.QuoteIdentifier(r.schema) + "." + pq.QuoteIdentifier(name)
}

// EnsureSchema 目标表不存在时创建
func (r *StagingRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(r.schema),
		`CREATE TABLE IF NOT EXISTS ` + r.table("users") + ` (
			user_id    BIGINT NOT NULL,
			first_name TEXT NOT NULL,
			last_name  TEXT NOT NULL,
			gender     TEXT NOT NULL,
			dob        TEXT NOT NULL,
			height     DOUBLE PRECISION NOT NULL,
			weight     DOUBLE PRECISION NOT NULL,
			email      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + r.table("user_rides") + ` (
			user_id BIGINT NOT NULL,
			ride_id BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + r.table("rides") + ` (
			ride_id      BIGINT NOT NULL,
			duration     DOUBLE PRECISION NOT NULL,
			resistance   INTEGER NOT NULL,
			heart_rate   INTEGER NOT NULL,
			rotations_pm INTEGER NOT NULL,
			power        DOUBLE PRECISION NOT NULL,
			time         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + r.table("current_ride") + ` (
			ride_id    BIGINT NOT NULL,
			user_id    BIGINT NOT NULL,
			name       TEXT NOT NULL,
			gender     TEXT NOT NULL,
			age        INTEGER,
			duration   DOUBLE PRECISION NOT NULL,
			heart_rate INTEGER NOT NULL,
			power      DOUBLE PRECISION NOT NULL,
			email      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure staging schema: %w", err)
		}
	}
	return nil
}

// CountRides 已持久化的骑行数（user_rides 行数）
func (r *StagingRepository) CountRides(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+r.table("user_rides")).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rides: %w", err)
	}
	return count, nil
}

// WriteSessionStart 在同一事务中写入关联记录和用户记录
func (r *StagingRepository) WriteSessionStart(ctx context.Context, user models.User, link models.UserRide) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+r.table("user_rides")+` (user_id, ride_id) VALUES ($1, $2)`,
		link.UserID, link.RideID,
	); err != nil {
		return fmt.Errorf("failed to insert user_rides: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+r.table("users")+` (user_id, first_name, last_name, gender, dob, height, weight, email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.UserID, user.FirstName, user.LastName, user.Gender,
		user.DateOfBirth, user.Height, user.Weight, user.Email,
	); err != nil {
		return fmt.Errorf("failed to insert users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session start: %w", err)
	}
	return nil
}

// WriteRideSecond 追加一行骑行读数
func (r *StagingRepository) WriteRideSecond(ctx context.Context, ride models.RideSecond) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO `+r.table("rides")+` (ride_id, duration, resistance, heart_rate, rotations_pm, power, time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ride.RideID, ride.Duration, ride.Resistance, ride.HeartRate, ride.RPM, ride.Power, ride.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rides: %w", err)
	}
	return nil
}

// ReplaceCurrentRide current_ride 只保留最新一行
func (r *StagingRepository) ReplaceCurrentRide(ctx context.Context, ride models.CurrentRide) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+r.table("current_ride")); err != nil {
		return fmt.Errorf("failed to clear current_ride: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+r.table("current_ride")+` (ride_id, user_id, name, gender, age, duration, heart_rate, power, email, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ride.RideID, ride.UserID, ride.Name, ride.Gender, ride.Age,
		ride.Duration, ride.HeartRate, ride.Power, ride.Email, ride.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert current_ride: %w", err)
	}

	return tx.Commit()
}

// ListUsers 读取全部用户（按 user_id 去重，保留首次出现的一行）
func (r *StagingRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (user_id) user_id, first_name, last_name, gender, dob, height, weight, email
		 FROM `+r.table("users")+` ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Gender, &u.DateOfBirth, &u.Height, &u.Weight, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUserRides 读取全部关联记录
func (r *StagingRepository) ListUserRides(ctx context.Context) ([]models.UserRide, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, ride_id FROM `+r.table("user_rides")+` ORDER BY ride_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user_rides: %w", err)
	}
	defer rows.Close()

	var links []models.UserRide
	for rows.Next() {
		var l models.UserRide
		if err := rows.Scan(&l.UserID, &l.RideID); err != nil {
			return nil, fmt.Errorf("failed to scan user_ride: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ListRides 读取全部骑行读数
func (r *StagingRepository) ListRides(ctx context.Context) ([]models.RideSecond, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ride_id, duration, resistance, heart_rate, rotations_pm, power, time
		 FROM `+r.table("rides")+` ORDER BY ride_id, time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []models.RideSecond
	for rows.Next() {
		var s models.RideSecond
		if err := rows.Scan(&s.RideID, &s.Duration, &s.Resistance, &s.HeartRate, &s.RPM, &s.Power, &s.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		rides = append(rides, s)
	}
	return rides, rows.Err()
}

// GetCurrentRide 读取 current_ride（Redis 缓存失效时的回退）
func (r *StagingRepository) GetCurrentRide(ctx context.Context) (*models.CurrentRide, error) {
	var (
		c   models.CurrentRide
		age sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT ride_id, user_id, name, gender, age, duration, heart_rate, power, email, updated_at
		 FROM `+r.table("current_ride")+` LIMIT 1`,
	).Scan(&c.RideID, &c.UserID, &c.Name, &c.Gender, &age, &c.Duration, &c.HeartRate, &c.Power, &c.Email, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query current_ride: %w", err)
	}
	if age.Valid {
		a := int(age.Int64)
		c.Age = &a
	}
	return &c, nil
}
