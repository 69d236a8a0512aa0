package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/kev129/deleton/internal/dashboard"
	"github.com/kev129/deleton/internal/models"
	"go.uber.org/zap"
)

// dailyDateLayout /daily?date= 的日期格式（DD/MM/YYYY）
const dailyDateLayout = "02/01/2006"

// RideStore 生产表查询
type RideStore interface {
	ListRideStarts(ctx context.Context) ([]models.RideFact, error)
	ListFactsSince(ctx context.Context, since time.Time) ([]models.RideFact, error)
	AverageHeartRates(ctx context.Context) (map[int64]float64, error)
	DeleteRides(ctx context.Context, rideIDs []int64) (int64, error)
}

// RideView 一次骑行（取骑行的第一秒）
type RideView struct {
	ID        int64     `json:"id"`
	RideID    int64     `json:"ride_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Time      time.Time `json:"time"`
	Age       *int      `json:"age"`
}

// RiderView 骑手信息
type RiderView struct {
	ID           int64     `json:"id"`
	AvgHeartRate *int      `json:"avg_heart_rate"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Time         time.Time `json:"time"`
	Age          *int      `json:"age"`
	Email        string    `json:"email"`
}

// RidesResponse GET /rides
type RidesResponse struct {
	TotalRides int        `json:"total_rides"`
	Success    bool       `json:"success"`
	Rides      []RideView `json:"rides"`
}

// RidesByIDResponse GET /rides/{ids}
type RidesByIDResponse struct {
	AllRidesAvailable bool       `json:"all_rides_available"`
	Rides             []RideView `json:"rides"`
}

// DeleteRidesResponse DELETE /rides/{ids}
type DeleteRidesResponse struct {
	RideIDs     []int64 `json:"ride_ids"`
	RowsDeleted int64   `json:"rows_deleted"`
}

// DailyResponse GET /daily
type DailyResponse struct {
	Date  string     `json:"date"`
	Count int        `json:"count"`
	Rides []RideView `json:"rides"`
}

// RideHandler 骑行查询 API
type RideHandler struct {
	store           RideStore
	dashboardWindow time.Duration
	now             func() time.Time
	logger          *zap.Logger
}

// NewRideHandler 创建骑行查询 handler
func NewRideHandler(store RideStore, dashboardWindow time.Duration, logger *zap.Logger) *RideHandler {
	return &RideHandler{
		store:           store,
		dashboardWindow: dashboardWindow,
		now:             time.Now,
		logger:          logger,
	}
}

func toRideView(f models.RideFact) RideView {
	return RideView{
		ID:        f.UserID,
		RideID:    f.RideID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Time:      f.Time,
		Age:       f.Age,
	}
}

func (h *RideHandler) rideStarts(w http.ResponseWriter, r *http.Request) ([]models.RideFact, bool) {
	starts, err := h.store.ListRideStarts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list rides", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list rides"))
		return nil, false
	}
	return starts, true
}

// Welcome GET /
func (h *RideHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok("Welcome to the Deloton API"))
}

// ListRides GET /rides
func (h *RideHandler) ListRides(w http.ResponseWriter, r *http.Request) {
	starts, ok := h.rideStarts(w, r)
	if !ok {
		return
	}
	rides := make([]RideView, 0, len(starts))
	for _, f := range starts {
		rides = append(rides, toRideView(f))
	}
	writeJSON(w, http.StatusOK, Ok(RidesResponse{TotalRides: len(rides), Success: true, Rides: rides}))
}

// GetRides GET /rides/{id[,id...]}
func (h *RideHandler) GetRides(w http.ResponseWriter, r *http.Request, rawIDs string) {
	ids, err := parseIDList(rawIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	starts, ok := h.rideStarts(w, r)
	if !ok {
		return
	}

	byRide := make(map[int64]models.RideFact, len(starts))
	for _, f := range starts {
		byRide[f.RideID] = f
	}
	rides := make([]RideView, 0, len(ids))
	for _, id := range ids {
		if f, ok := byRide[id]; ok {
			rides = append(rides, toRideView(f))
		}
	}
	writeJSON(w, http.StatusOK, Ok(RidesByIDResponse{
		AllRidesAvailable: len(rides) == len(ids),
		Rides:             rides,
	}))
}

// DeleteRides DELETE /rides/{id[,id...]}
func (h *RideHandler) DeleteRides(w http.ResponseWriter, r *http.Request, rawIDs string) {
	ids, err := parseIDList(rawIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	n, err := h.store.DeleteRides(r.Context(), ids)
	if err != nil {
		h.logger.Error("Failed to delete rides", zap.Int64s("ride_ids", ids), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to delete rides"))
		return
	}
	h.logger.Info("Rides deleted", zap.Int64s("ride_ids", ids), zap.Int64("rows", n))

	res := Ok(DeleteRidesResponse{RideIDs: ids, RowsDeleted: n})
	res.Message = fmt.Sprintf("Rides with ride ids for %v have been deleted", ids)
	writeJSON(w, http.StatusOK, res)
}

// riders 每个用户取第一次骑行，附平均心率
func (h *RideHandler) riders(w http.ResponseWriter, r *http.Request) ([]RiderView, bool) {
	starts, ok := h.rideStarts(w, r)
	if !ok {
		return nil, false
	}
	avg, err := h.store.AverageHeartRates(r.Context())
	if err != nil {
		h.logger.Error("Failed to load average heart rates", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list riders"))
		return nil, false
	}

	seen := make(map[int64]struct{})
	riders := make([]RiderView, 0)
	for _, f := range starts {
		if _, dup := seen[f.UserID]; dup {
			continue
		}
		seen[f.UserID] = struct{}{}
		v := RiderView{
			ID:        f.UserID,
			FirstName: f.FirstName,
			LastName:  f.LastName,
			Time:      f.Time,
			Age:       f.Age,
			Email:     f.Email,
		}
		if hr, ok := avg[f.UserID]; ok {
			rounded := int(math.RoundToEven(hr))
			v.AvgHeartRate = &rounded
		}
		riders = append(riders, v)
	}
	return riders, true
}

// ListRiders GET /rider
func (h *RideHandler) ListRiders(w http.ResponseWriter, r *http.Request) {
	riders, ok := h.riders(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Ok(riders))
}

// GetRiders GET /rider/{id[,id...]}
func (h *RideHandler) GetRiders(w http.ResponseWriter, r *http.Request, rawIDs string) {
	ids, err := parseIDList(rawIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	riders, ok := h.riders(w, r)
	if !ok {
		return
	}

	byID := make(map[int64]RiderView, len(riders))
	for _, v := range riders {
		byID[v.ID] = v
	}
	found := make([]RiderView, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			found = append(found, v)
		}
	}
	if len(found) == 0 {
		writeJSON(w, http.StatusNotFound, Fail("No user with that id"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(found))
}

// GetRiderRides GET /rider/{id}/rides
func (h *RideHandler) GetRiderRides(w http.ResponseWriter, r *http.Request, rawID string) {
	ids, err := parseIDList(rawID)
	if err != nil || len(ids) != 1 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid user id"))
		return
	}
	starts, ok := h.rideStarts(w, r)
	if !ok {
		return
	}

	rides := make([]RideView, 0)
	for _, f := range starts {
		if f.UserID == ids[0] {
			rides = append(rides, toRideView(f))
		}
	}
	if len(rides) == 0 {
		writeJSON(w, http.StatusNotFound, Fail("User with that id has no rides"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rides))
}

// Daily GET /daily?date=DD/MM/YYYY（默认今天）
func (h *RideHandler) Daily(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(dailyDateLayout, raw, now.Location())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("date must be DD/MM/YYYY"))
			return
		}
		day = parsed
	}

	starts, ok := h.rideStarts(w, r)
	if !ok {
		return
	}
	next := day.AddDate(0, 0, 1)
	rides := make([]RideView, 0)
	for _, f := range starts {
		t := f.Time.In(day.Location())
		if !t.Before(day) && t.Before(next) {
			rides = append(rides, toRideView(f))
		}
	}
	writeJSON(w, http.StatusOK, Ok(DailyResponse{
		Date:  day.Format(dailyDateLayout),
		Count: len(rides),
		Rides: rides,
	}))
}

// Dashboard GET /dashboard（最近一段时间的看板统计）
func (h *RideHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-h.dashboardWindow)
	facts, err := h.store.ListFactsSince(r.Context(), since)
	if err != nil {
		h.logger.Error("Failed to load dashboard data", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load dashboard data"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(dashboard.Build(facts)))
}
