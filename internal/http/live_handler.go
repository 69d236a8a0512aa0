package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kev129/deleton/internal/live"
	"github.com/kev129/deleton/internal/models"
	"github.com/kev129/deleton/internal/repository"
	"go.uber.org/zap"
)

// LiveReader 当前骑行快照
type LiveReader interface {
	Current(ctx context.Context) (*models.CurrentRide, error)
	AlertedRides(ctx context.Context) ([]int64, error)
}

// LiveResponse GET /live
type LiveResponse struct {
	Ride         *models.CurrentRide `json:"ride"`
	MaxHeartRate *float64            `json:"max_heart_rate"`
	Abnormal     bool                `json:"abnormal"`
	Alerted      bool                `json:"alerted"`
}

// LiveHandler 实时骑行 API
type LiveHandler struct {
	reader LiveReader
	logger *zap.Logger
}

func NewLiveHandler(reader LiveReader, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{reader: reader, logger: logger}
}

// Current GET /live
func (h *LiveHandler) Current(w http.ResponseWriter, r *http.Request) {
	ride, err := h.reader.Current(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no ride in progress"))
			return
		}
		h.logger.Error("Failed to load current ride", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load current ride"))
		return
	}

	resp := LiveResponse{Ride: ride}
	if ride.Age != nil {
		maxHR := live.MaxHeartRate(*ride.Age)
		resp.MaxHeartRate = &maxHR
		resp.Abnormal = live.Abnormal(ride.HeartRate, *ride.Age)
	}

	alerted, err := h.reader.AlertedRides(r.Context())
	if err != nil {
		h.logger.Warn("Failed to load alerted rides", zap.Error(err))
	}
	for _, id := range alerted {
		if id == ride.RideID {
			resp.Alerted = true
			break
		}
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}
