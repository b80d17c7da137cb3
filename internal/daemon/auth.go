package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireAuth wraps a handler with bearer-token validation. An empty token
// disables authentication and passes every request through. The comparison is
// constant-time so the token cannot be probed byte by byte.
func (s *apiServer) requireAuth(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
