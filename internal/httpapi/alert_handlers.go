package httpapi

import (
	"errors"
	"net/http"

	"staffhub.org/internal/alerts"
	"staffhub.org/internal/auth"
)

func (a *API) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceAlerts,
			Actions:  []string{auth.ActionWrite},
		}) {
			return
		}
		var req alerts.CreateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		alert, err := a.alerts.Create(r.Context(), req)
		if err != nil {
			handleAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "alert created",
			"alert":   alert,
		})
	case http.MethodGet:
		if _, ok := callerID(w, r); !ok {
			return
		}
		list, err := a.alerts.List(r.Context())
		if err != nil {
			handleAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "alerts",
			"alerts":  list,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAlertResource(w http.ResponseWriter, r *http.Request) {
	parts, ok := pathTail(r, "/alerts/")
	if !ok || len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]

	switch r.Method {
	case http.MethodGet:
		if _, ok := callerID(w, r); !ok {
			return
		}
		alert, err := a.alerts.Get(r.Context(), id)
		if err != nil {
			handleAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "alert",
			"alert":   alert,
		})
	case http.MethodPut:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceAlerts,
			Actions:  []string{auth.ActionWrite},
		}) {
			return
		}
		var req alerts.UpdateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		alert, err := a.alerts.Update(r.Context(), id, req)
		if err != nil {
			handleAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "alert updated",
			"alert":   alert,
		})
	case http.MethodDelete:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceAlerts,
			Actions:  []string{auth.ActionDelete},
		}) {
			return
		}
		if err := a.alerts.Delete(r.Context(), id); err != nil {
			handleAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "alert deleted",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleAlertError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, alerts.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, alerts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
