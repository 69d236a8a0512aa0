package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kev129/deleton/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

// Handle 注册路由，并按路由模式统计请求数
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, req)
		metrics.HTTPRequestsTotal.WithLabelValues(req.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRideRoutes 注册骑行查询路由
func (r *Router) RegisterRideRoutes(h *RideHandler) {
	r.Handle("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Welcome(w, req)
	})

	r.Handle("/rides", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListRides(w, req)
	})

	// rides/{id[,id...]}
	r.Handle("/rides/", func(w http.ResponseWriter, req *http.Request) {
		ids := strings.TrimPrefix(req.URL.Path, "/rides/")
		if ids == "" || strings.Contains(ids, "/") {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetRides(w, req, ids)
		case http.MethodDelete:
			h.DeleteRides(w, req, ids)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/rider", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListRiders(w, req)
	})

	// rider/{id[,id...]} 与 rider/{id}/rides
	r.Handle("/rider/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/rider/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			h.GetRiders(w, req, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] == "rides":
			h.GetRiderRides(w, req, parts[0])
		default:
			writeJSON(w, http.StatusNotFound, Fail("not found"))
		}
	})

	r.Handle("/daily", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Daily(w, req)
	})

	r.Handle("/dashboard", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Dashboard(w, req)
	})
}

// RegisterLiveRoutes 注册实时骑行路由
func (r *Router) RegisterLiveRoutes(h *LiveHandler) {
	r.Handle("/live", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Current(w, req)
	})
}

// RegisterMetricsRoute 注册 Prometheus 指标
func (r *Router) RegisterMetricsRoute() {
	r.HandleHandler("/metrics", promhttp.Handler())
}
