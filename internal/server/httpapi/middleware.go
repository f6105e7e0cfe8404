package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/seabattle/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// requireAuth validates the Bearer token on the Authorization header and
// stores the authenticated user id on the request context.
func (s *HTTPServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		accessToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || accessToken == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret, s.jwtIssuer, s.jwtAudience)
		if err != nil {
			s.logger.Debug(r.Context(), "bearer token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// clientIP extracts the originating client address, honoring the first hop
// of X-Forwarded-For when a proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
