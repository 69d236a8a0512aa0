package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kev129/deleton/internal/assembler"
	"github.com/kev129/deleton/internal/models"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSink struct {
	count    int64
	err      error
	calls    int
	deadline bool
}

func (f *fakeSink) CountRides(ctx context.Context) (int64, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	return f.count, f.err
}

func (f *fakeSink) WriteSessionStart(ctx context.Context, user models.User, link models.UserRide) error {
	f.calls++
	return f.err
}

func (f *fakeSink) WriteRideSecond(ctx context.Context, ride models.RideSecond) error {
	f.calls++
	return f.err
}

func TestGuardedSink_PassesThrough(t *testing.T) {
	next := &fakeSink{count: 9}
	sink := NewGuardedSink(next, BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute, OpTimeout: time.Second}, zap.NewNop())

	n, err := sink.CountRides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.True(t, next.deadline, "operation should run under a timeout")

	require.NoError(t, sink.WriteRideSecond(context.Background(), models.RideSecond{RideID: 1}))
	assert.Equal(t, 2, next.calls)
}

func TestGuardedSink_ErrorsAreSinkUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	next := &fakeSink{err: cause}
	sink := NewGuardedSink(next, BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute}, zap.NewNop())

	err := sink.WriteSessionStart(context.Background(), models.User{}, models.UserRide{})
	var sinkErr *assembler.SinkUnavailableError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "write session start", sinkErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestGuardedSink_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &fakeSink{err: errors.New("timeout")}
	sink := NewGuardedSink(next, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.Error(t, sink.WriteRideSecond(ctx, models.RideSecond{}))
	}
	assert.Equal(t, "open", sink.State())

	err := sink.WriteRideSecond(ctx, models.RideSecond{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open breaker must not reach the database")
}
