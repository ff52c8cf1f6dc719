package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"docanchor/internal/auth"
)

const adminTokenHeader = "X-Admin-Token"

// withAuth enforces the bearer API token on every route but /health, and the
// admin token on admin routes. Both are optional; an unset token is not checked.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.apiToken != "" {
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
				s.writeErrorReq(w, r, http.StatusUnauthorized, apiError{
					status:  http.StatusUnauthorized,
					code:    "unauthorized",
					errCode: ErrCodeUnauthorized,
					err:     fmt.Errorf("missing or invalid bearer token"),
				})
				return
			}
		}

		if s.adminToken != "" && isAdminRoute(r) {
			if !auth.VerifyToken(s.adminToken, strings.TrimSpace(r.Header.Get(adminTokenHeader))) {
				s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("admin token required"), ErrCodeForbidden))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isAdminRoute(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/v1/admin/") {
		return true
	}
	return r.Method == http.MethodDelete && r.URL.Path == "/delete/"
}
