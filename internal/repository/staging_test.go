package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kev129/deleton/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *StagingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewStagingRepository(db, "deleton_staging", logger)

	return db, mock, repo
}

func TestEnsureSchema_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "deleton_staging"`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, table := range []string{"users", "user_rides", "rides", "current_ride"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "deleton_staging"."` + table + `"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRides_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "deleton_staging"."user_rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountRides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRides_Error(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, err := repo.CountRides(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count rides")
	require.NoError(t, mock.ExpectationsWereMet())
}

func testUser() models.User {
	return models.User{
		UserID:      7,
		FirstName:   "Alice",
		LastName:    "Smith",
		Gender:      "female",
		DateOfBirth: "631152000000",
		Height:      172,
		Weight:      64,
		Email:       "alice@example.com",
	}
}

func TestWriteSessionStart_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	user := testUser()
	link := models.UserRide{UserID: 7, RideID: 42}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "deleton_staging"."user_rides"`).
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "deleton_staging"."users"`).
		WithArgs(int64(7), "Alice", "Smith", "female", "631152000000", 172.0, 64.0, "alice@example.com").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.WriteSessionStart(context.Background(), user, link))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteSessionStart_RollsBackOnUserInsertFailure(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "deleton_staging"."user_rides"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO "deleton_staging"."users"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.WriteSessionStart(context.Background(), testUser(), models.UserRide{UserID: 7, RideID: 42})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert users")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRideSecond_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	at := time.Date(2022, 7, 25, 16, 14, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO "deleton_staging"."rides"`).
		WithArgs(int64(42), 5.0, 10, 120, 60, 100.0, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.WriteRideSecond(context.Background(), models.RideSecond{
		RideID: 42, Duration: 5, Resistance: 10, HeartRate: 120, RPM: 60, Power: 100, ObservedAt: at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCurrentRide_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "deleton_staging"."current_ride"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "deleton_staging"."current_ride"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	age := 32
	err := repo.ReplaceCurrentRide(context.Background(), models.CurrentRide{
		RideID: 42, UserID: 7, Name: "Alice Smith", Gender: "female", Age: &age,
		Duration: 5, HeartRate: 120, Power: 100, Email: "alice@example.com", UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_Success(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"user_id", "first_name", "last_name", "gender", "dob", "height", "weight", "email",
	}).
		AddRow(1, "Bob", "Jones", "male", "315532800000", 180.0, 80.0, "bob@example.com").
		AddRow(7, "Alice", "Smith", "female", "631152000000", 172.0, 64.0, "alice@example.com")

	mock.ExpectQuery(`SELECT DISTINCT ON \(user_id\)`).WillReturnRows(rows)

	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[0].FirstName)
	assert.Equal(t, "631152000000", users[1].DateOfBirth)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCurrentRide_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT ride_id`).WillReturnError(sql.ErrNoRows)

	ride, err := repo.GetCurrentRide(context.Background())
	assert.Nil(t, ride)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCurrentRide_NullAge(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"ride_id", "user_id", "name", "gender", "age", "duration", "heart_rate", "power", "email", "updated_at",
	}).AddRow(42, 7, "Alice Smith", "female", nil, 12.0, 130, 88.5, "alice@example.com", now)
	mock.ExpectQuery(`SELECT ride_id`).WillReturnRows(rows)

	ride, err := repo.GetCurrentRide(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), ride.RideID)
	assert.Nil(t, ride.Age)
	assert.Equal(t, 130, ride.HeartRate)
	require.NoError(t, mock.ExpectationsWereMet())
}
