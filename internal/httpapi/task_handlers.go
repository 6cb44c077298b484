package httpapi

import (
	"errors"
	"net/http"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/tasks"
)

func (a *API) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceTasks,
			Actions:  []string{auth.ActionWrite},
		}) {
			return
		}
		var req tasks.CreateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		task, err := a.tasks.Create(r.Context(), req)
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "task created",
			"task":    task,
		})
	case http.MethodGet:
		if _, ok := callerID(w, r); !ok {
			return
		}
		list, err := a.tasks.List(r.Context())
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "tasks",
			"tasks":   list,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	parts, ok := pathTail(r, "/tasks/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if parts[0] == "assignee" {
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if _, ok := callerID(w, r); !ok {
			return
		}
		list, err := a.tasks.ListByAssignee(r.Context(), parts[1])
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "tasks",
			"tasks":   list,
		})
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]

	switch r.Method {
	case http.MethodGet:
		if _, ok := callerID(w, r); !ok {
			return
		}
		task, err := a.tasks.Get(r.Context(), id)
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "task",
			"task":    task,
		})
	case http.MethodPut:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceTasks,
			Actions:  []string{auth.ActionWrite},
		}) {
			return
		}
		var req tasks.UpdateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		task, err := a.tasks.Update(r.Context(), id, req)
		if err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "task updated",
			"task":    task,
		})
	case http.MethodDelete:
		if !a.requirePermissions(w, r, auth.Permission{
			Resource: auth.ResourceTasks,
			Actions:  []string{auth.ActionDelete},
		}) {
			return
		}
		if err := a.tasks.Delete(r.Context(), id); err != nil {
			handleTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "task deleted",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tasks.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, tasks.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
