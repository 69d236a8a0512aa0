package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/transformer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStaging struct {
	users []models.User
	links []models.UserRide
	rides []models.RideSecond
	err   error
}

func (f *fakeStaging) ListUsers(ctx context.Context) ([]models.User, error) {
	return f.users, f.err
}

func (f *fakeStaging) ListUserRides(ctx context.Context) ([]models.UserRide, error) {
	return f.links, nil
}

func (f *fakeStaging) ListRides(ctx context.Context) ([]models.RideSecond, error) {
	return f.rides, nil
}

type fakeFactWriter struct {
	mu    sync.Mutex
	calls int
	last  []models.RideFact
	err   error
}

func (f *fakeFactWriter) ReplaceFacts(ctx context.Context, facts []models.RideFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = facts
	return f.err
}

func (f *fakeFactWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleStaging() *fakeStaging {
	at := time.Date(2022, 7, 25, 9, 0, 0, 0, time.UTC)
	return &fakeStaging{
		users: []models.User{{UserID: 7, FirstName: "Ada", LastName: "Byron", Gender: "female", DateOfBirth: "0"}},
		links: []models.UserRide{{UserID: 7, RideID: 1}},
		rides: []models.RideSecond{
			{RideID: 1, Duration: 1, HeartRate: 120, Power: 100, ObservedAt: at},
			{RideID: 1, Duration: 2, HeartRate: 121, Power: 110, ObservedAt: at.Add(time.Second)},
			{RideID: 2, Duration: 1, HeartRate: 99, ObservedAt: at},
		},
	}
}

func TestTransformService_RunOnce(t *testing.T) {
	writer := &fakeFactWriter{}
	svc := NewTransformService(sampleStaging(), writer, transformer.NewFactTransformer(zap.NewNop()), time.Minute, zap.NewNop())

	n, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, writer.calls)
	require.Len(t, writer.last, 2)
	assert.Equal(t, int64(7), writer.last[0].UserID)
}

func TestTransformService_RunOnce_ReadError(t *testing.T) {
	writer := &fakeFactWriter{}
	svc := NewTransformService(&fakeStaging{err: errors.New("db down")}, writer, transformer.NewFactTransformer(zap.NewNop()), time.Minute, zap.NewNop())

	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read users")
	assert.Equal(t, 0, writer.calls)
}

func TestTransformService_RunOnce_WriteError(t *testing.T) {
	writer := &fakeFactWriter{err: errors.New("copy failed")}
	svc := NewTransformService(sampleStaging(), writer, transformer.NewFactTransformer(zap.NewNop()), time.Minute, zap.NewNop())

	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to replace production facts")
}

func TestTransformService_RunStopsOnCancel(t *testing.T) {
	writer := &fakeFactWriter{}
	svc := NewTransformService(sampleStaging(), writer, transformer.NewFactTransformer(zap.NewNop()), time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return writer.callCount() >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("transform service did not stop")
	}
}
