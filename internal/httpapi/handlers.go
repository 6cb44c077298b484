// Package httpapi is the HTTP transport layer: routing, guards,
// middleware and JSON encoding around the domain services.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/attendance"
	"staffhub.org/internal/auth"
	"staffhub.org/internal/obs"
	"staffhub.org/internal/tasks"
)

// ReadyProbe reports readiness, pinging the database when one is wired.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	tokens     *auth.Issuer
	attendance *attendance.Service
	tasks      *tasks.Service
	alerts     *alerts.Service
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
	limiter    *RateLimiter
}

// Config wires the API's collaborators.
type Config struct {
	Auth       *auth.Service
	Tokens     *auth.Issuer
	Attendance *attendance.Service
	Tasks      *tasks.Service
	Alerts     *alerts.Service
	ReadyProbe ReadyProbe
	Version    string
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       cfg.Auth,
		tokens:     cfg.Tokens,
		attendance: cfg.Attendance,
		tasks:      cfg.Tasks,
		alerts:     cfg.Alerts,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth surface
	a.mux.HandleFunc("/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/google-signin", a.handleGoogleSignIn)
	a.mux.HandleFunc("/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("/auth/forgot-password", a.handleForgotPassword)
	a.mux.HandleFunc("/auth/verify-otp/", a.handleVerifyOTP)
	a.mux.HandleFunc("/auth/reset-password/", a.handleResetPassword)
	a.mux.HandleFunc("/auth/profile", a.handleProfile)
	a.mux.HandleFunc("/auth/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/auth/admin/users/", a.handleAdminUserResource)
	a.mux.HandleFunc("/auth/admin/roles", a.handleAdminRoles)

	// operations surface
	a.mux.HandleFunc("/attendance", a.handleAttendance)
	a.mux.HandleFunc("/attendance/report", a.handleAttendanceReport)
	a.mux.HandleFunc("/attendance/user/", a.handleAttendanceByUser)
	a.mux.HandleFunc("/tasks", a.handleTasks)
	a.mux.HandleFunc("/tasks/", a.handleTaskResource)
	a.mux.HandleFunc("/alerts", a.handleAlerts)
	a.mux.HandleFunc("/alerts/", a.handleAlertResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, 1<<20)
	a.limiter = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = a.limiter
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// Close releases background resources held by the handler chain.
func (a *API) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

// --- health ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "staffhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
