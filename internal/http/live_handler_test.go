package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLiveReader struct {
	ride     *models.CurrentRide
	err      error
	alerted  []int64
	alertErr error
}

func (f *fakeLiveReader) Current(ctx context.Context) (*models.CurrentRide, error) {
	return f.ride, f.err
}

func (f *fakeLiveReader) AlertedRides(ctx context.Context) ([]int64, error) {
	return f.alerted, f.alertErr
}

func setupLiveRouter(reader LiveReader) *Router {
	r := NewRouter(zap.NewNop())
	r.RegisterLiveRoutes(NewLiveHandler(reader, zap.NewNop()))
	return r
}

func TestLiveCurrent(t *testing.T) {
	reader := &fakeLiveReader{
		ride:    &models.CurrentRide{RideID: 12, UserID: 7, Name: "Ada Byron", Age: ptr(30), HeartRate: 190},
		alerted: []int64{3, 12},
	}
	w, res := do(t, setupLiveRouter(reader), http.MethodGet, "/live")
	require.Equal(t, http.StatusOK, w.Code)

	var body LiveResponse
	require.NoError(t, json.Unmarshal(res.Result, &body))
	require.NotNil(t, body.Ride)
	assert.Equal(t, int64(12), body.Ride.RideID)
	require.NotNil(t, body.MaxHeartRate)
	assert.InDelta(t, 186.0, *body.MaxHeartRate, 0.001)
	assert.True(t, body.Abnormal)
	assert.True(t, body.Alerted)
}

func TestLiveCurrent_UnknownAge(t *testing.T) {
	reader := &fakeLiveReader{
		ride:     &models.CurrentRide{RideID: 12, HeartRate: 120},
		alertErr: errors.New("redis down"),
	}
	w, res := do(t, setupLiveRouter(reader), http.MethodGet, "/live")
	require.Equal(t, http.StatusOK, w.Code)

	var body LiveResponse
	require.NoError(t, json.Unmarshal(res.Result, &body))
	assert.Nil(t, body.MaxHeartRate)
	assert.False(t, body.Abnormal)
	assert.False(t, body.Alerted)
}

func TestLiveCurrent_NoRide(t *testing.T) {
	w, res := do(t, setupLiveRouter(&fakeLiveReader{err: repository.ErrNotFound}), http.MethodGet, "/live")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ResultError, res.Code)

	w, _ = do(t, setupLiveRouter(&fakeLiveReader{err: errors.New("boom")}), http.MethodGet, "/live")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
