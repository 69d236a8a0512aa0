package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kev129/deleton/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var factColumns = []string{
	"time", "user_id", "first_name", "last_name", "gender", "age", "height", "weight",
	"email", "ride_id", "time_elapsed", "resistance", "heart_rate", "rotations_pm", "power",
}

const factSelect = `SELECT time, user_id, first_name, last_name, gender, age, height, weight,
	email, ride_id, time_elapsed, resistance, heart_rate, rotations_pm, power FROM `

// ProductionRepository 生产表（展平后的报表表）
type ProductionRepository struct {
	db        *sql.DB
	schema    string
	tableName string
	logger    *zap.Logger
}

// NewProductionRepository 创建生产表仓库
func NewProductionRepository(db *sql.DB, schema, table string, logger *zap.Logger) *ProductionRepository {
	return &ProductionRepository{
		db:        db,
		schema:    schema,
		tableName: table,
		logger:    logger,
	}
}

func (r *ProductionRepository) table() string {
	return pq.QuoteIdentifier(r.schema) + "." + pq.QuoteIdentifier(r.tableName)
}

func (r *ProductionRepository) createStatements() []string {
	return []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(r.schema),
		`CREATE TABLE IF NOT EXISTS ` + r.table() + ` (
			time         TIMESTAMPTZ NOT NULL,
			user_id      BIGINT NOT NULL,
			first_name   TEXT NOT NULL,
			last_name    TEXT NOT NULL,
			gender       TEXT NOT NULL,
			age          INTEGER,
			height       DOUBLE PRECISION NOT NULL,
			weight       DOUBLE PRECISION NOT NULL,
			email        TEXT NOT NULL,
			ride_id      BIGINT NOT NULL,
			time_elapsed DOUBLE PRECISION NOT NULL,
			resistance   INTEGER,
			heart_rate   INTEGER,
			rotations_pm INTEGER,
			power        DOUBLE PRECISION
		)`,
	}
}

// ReplaceFacts 用新数据整体替换生产表
func (r *ProductionRepository) ReplaceFacts(ctx context.Context, facts []models.RideFact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range r.createStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure production table: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `TRUNCATE `+r.table()); err != nil {
		return fmt.Errorf("failed to truncate production table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(r.schema, r.tableName, factColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx,
			f.Time, f.UserID, f.FirstName, f.LastName, f.Gender, f.Age, f.Height, f.Weight,
			f.Email, f.RideID, f.TimeElapsed, f.Resistance, f.HeartRate, f.RPM, f.Power,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy ride fact: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit production table: %w", err)
	}

	r.logger.Info("Production table replaced",
		zap.String("table", r.tableName),
		zap.Int("rows", len(facts)),
	)
	return nil
}

// ListRideStarts 每次骑行的第一秒（time_elapsed = 1）
func (r *ProductionRepository) ListRideStarts(ctx context.Context) ([]models.RideFact, error) {
	return r.query(ctx, factSelect+r.table()+` WHERE time_elapsed = 1 ORDER BY ride_id`)
}

// ListFactsSince 某时间点之后的所有读数
func (r *ProductionRepository) ListFactsSince(ctx context.Context, since time.Time) ([]models.RideFact, error) {
	return r.query(ctx, factSelect+r.table()+` WHERE time > $1 ORDER BY time`, since)
}

// AverageHeartRates 每个用户的平均心率（忽略 NULL）
func (r *ProductionRepository) AverageHeartRates(ctx context.Context) (map[int64]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, AVG(heart_rate) FROM `+r.table()+` WHERE heart_rate IS NOT NULL GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query average heart rates: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var (
			userID int64
			avg    float64
		)
		if err := rows.Scan(&userID, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan average heart rate: %w", err)
		}
		out[userID] = avg
	}
	return out, rows.Err()
}

// DeleteRides 删除指定骑行的所有读数，返回删除行数
func (r *ProductionRepository) DeleteRides(ctx context.Context, rideIDs []int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table()+` WHERE ride_id = ANY($1)`, pq.Array(rideIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete rides: %w", err)
	}
	return res.RowsAffected()
}

func (r *ProductionRepository) query(ctx context.Context, query string, args ...any) ([]models.RideFact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ride facts: %w", err)
	}
	defer rows.Close()

	var facts []models.RideFact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func scanFact(rows *sql.Rows) (models.RideFact, error) {
	var (
		f                            models.RideFact
		age, resistance, hr, rpm     sql.NullInt64
		power                        sql.NullFloat64
	)
	err := rows.Scan(
		&f.Time, &f.UserID, &f.FirstName, &f.LastName, &f.Gender, &age, &f.Height, &f.Weight,
		&f.Email, &f.RideID, &f.TimeElapsed, &resistance, &hr, &rpm, &power,
	)
	if err != nil {
		return f, fmt.Errorf("failed to scan ride fact: %w", err)
	}
	f.Age = nullInt(age)
	f.Resistance = nullInt(resistance)
	f.HeartRate = nullInt(hr)
	f.RPM = nullInt(rpm)
	if power.Valid {
		p := power.Float64
		f.Power = &p
	}
	return f, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
