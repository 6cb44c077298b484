package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"staffhub.org/internal/audit"
	"staffhub.org/internal/auth"
)

type adminUpdateRequest struct {
	Name       *string `json:"name"`
	Position   *string `json:"position"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	Email      *string `json:"email"`
	Active     *bool   `json:"active"`
	Password   *string `json:"password"`
}

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requireRole(w, r, auth.RoleAdmin) {
		return
	}
	callerUserID, _ := auth.UserIDFromContext(r.Context())

	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	page, err := a.auth.ListUsers(r.Context(), callerUserID, filter)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "users",
		"users":      page.Users,
		"pagination": page.Pagination,
	})
}

type assignRoleRequest struct {
	RoleName string `json:"role_name"`
}

func (a *API) handleAdminRoles(w http.ResponseWriter, r *http.Request) {
	callerUserID, ok := callerID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		roles, err := a.auth.ListRoles(r.Context(), callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "roles",
			"roles":   roles,
		})
	case http.MethodPost:
		var req auth.CreateRoleInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), callerUserID, req)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.role.create", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "role created",
			"role":    role,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	parts, ok := pathTail(r, "/auth/admin/users/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerUserID, ok2 := callerID(w, r)
	if !ok2 {
		return
	}
	userID := parts[0]

	if len(parts) == 2 && parts[1] == "toggle-status" {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		if !a.requireRole(w, r, auth.RoleAdmin) {
			return
		}
		user, err := a.auth.ToggleUserStatus(r.Context(), userID, callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.toggle_status", map[string]any{
			"user_id": user.ID,
			"active":  user.Active,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "status updated",
			"user":    user,
		})
		return
	}
	if len(parts) == 2 && parts[1] == "role" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		var req assignRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.AssignRole(r.Context(), userID, req.RoleName, callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.assign_role", map[string]any{
			"user_id": user.ID,
			"role":    req.RoleName,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "role assigned",
			"user":    user,
		})
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		// self-lookup passes without the admin role
		user, err := a.auth.GetUser(r.Context(), userID, callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "user",
			"user":    user,
		})
	case http.MethodPatch:
		var req adminUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		res, err := a.auth.UpdateUser(r.Context(), userID, auth.UserUpdate{
			Name:       req.Name,
			Position:   req.Position,
			Department: req.Department,
			Role:       req.Role,
			Email:      req.Email,
			Active:     req.Active,
			Password:   req.Password,
		}, callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.update", map[string]any{
			"user_id": res.User.ID,
			"fields":  strings.Join(res.UpdatedFields, ","),
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "user updated",
			"user":           res.User,
			"updated_fields": res.UpdatedFields,
		})
	case http.MethodDelete:
		if !a.requireRole(w, r, auth.RoleAdmin) {
			return
		}
		user, err := a.auth.DeleteUser(r.Context(), userID, callerUserID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.delete", map[string]any{
			"user_id": user.ID,
			"email":   user.Email,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "user deleted",
			"user":    user,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func listFilterFromQuery(r *http.Request) (auth.ListFilter, error) {
	q := r.URL.Query()
	filter := auth.ListFilter{
		Role:       strings.TrimSpace(q.Get("role")),
		Position:   strings.TrimSpace(q.Get("position")),
		Department: strings.TrimSpace(q.Get("department")),
		Email:      strings.TrimSpace(q.Get("email")),
		Name:       strings.TrimSpace(q.Get("name")),
	}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return auth.ListFilter{}, err
		}
		filter.Active = &active
	}
	var err error
	if filter.Page, err = queryInt(r, "page"); err != nil {
		return auth.ListFilter{}, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return auth.ListFilter{}, err
	}
	return filter, nil
}
