package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"staffhub.org/internal/auth"
)

const (
	headerAuthorization = "Authorization"
	bearer              = "Bearer "
)

var publicPaths = []string{
	"/auth/signup",
	"/auth/login",
	"/auth/google-signin",
	"/auth/forgot-password",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}
var publicPrefixes = []string{
	"/auth/verify-otp/",
	"/auth/reset-password/",
}

// withAuth is the authenticate step of the guard chain: it verifies the
// bearer token and attaches the caller's id, role and decoded claims to the
// request context. Authorization happens per-handler via requireRole or
// requirePermissions.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(headerAuthorization))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		claims, err := a.tokens.ParseAndValidate(token)
		if err != nil {
			unauthorized(w, r, "invalid or expired token")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), claims.Subject, claims.Role)
		ctx = auth.ContextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="staffhub"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

// requireRole is the coarse authorization strategy: the caller's role claim
// must match, case-insensitively.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		unauthorized(w, r, "authentication required")
		return false
	}
	if !auth.HasRole(r.Context(), role) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return false
	}
	return true
}

// requirePermissions is the fine-grained strategy: the caller's resolved
// permission set must cover every required (resource, actions) pair.
func (a *API) requirePermissions(w http.ResponseWriter, r *http.Request, required ...auth.Permission) bool {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return false
	}
	if err := a.auth.Authorize(r.Context(), userID, required); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			writeError(w, r, http.StatusForbidden, err.Error())
		} else {
			writeError(w, r, http.StatusInternalServerError, "authorization error")
		}
		return false
	}
	return true
}

// callerID returns the authenticated user id or writes a 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return "", false
	}
	return id, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
