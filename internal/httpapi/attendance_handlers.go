package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"staffhub.org/internal/attendance"
	"staffhub.org/internal/auth"
)

const dayFormat = "2006-01-02"

func (a *API) handleAttendance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceAttendance,
			Actions:  []string{auth.ActionWrite},
		}) {
			return
		}
		var req attendance.RecordInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ev, err := a.attendance.Record(r.Context(), req)
		if err != nil {
			handleAttendanceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "attendance recorded",
			"event":   ev,
		})
	case http.MethodGet:
		if _, ok := callerID(w, r); !ok {
			return
		}
		start, end, err := rangeFromQuery(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		events, err := a.attendance.ListRange(r.Context(), start, end)
		if err != nil {
			handleAttendanceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "attendance",
			"events":  events,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAttendanceByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	parts, ok := pathTail(r, "/attendance/user/")
	if !ok || len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerUserID, ok2 := callerID(w, r)
	if !ok2 {
		return
	}
	// self-lookup passes; anything else needs the admin role
	if parts[0] != callerUserID && !auth.HasRole(r.Context(), auth.RoleAdmin) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}
	start, end, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.attendance.ListByUser(r.Context(), parts[0], start, end)
	if err != nil {
		handleAttendanceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "attendance",
		"events":  events,
	})
}

func (a *API) handleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requireRole(w, r, auth.RoleAdmin) {
		return
	}
	start, end, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := a.attendance.PresenceReport(r.Context(), start, end)
	if err != nil {
		handleAttendanceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "attendance report",
		"report":  report,
	})
}

// rangeFromQuery reads start/end day parameters, defaulting to the trailing
// 7-day window.
func rangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start := now.AddDate(0, 0, -6)
	end := now

	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		parsed, err := time.Parse(dayFormat, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("start must be in YYYY-MM-DD format")
		}
		start = parsed
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		parsed, err := time.Parse(dayFormat, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("end must be in YYYY-MM-DD format")
		}
		end = parsed
	}
	return start, end, nil
}

func handleAttendanceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrDuplicate):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
