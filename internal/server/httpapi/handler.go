package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/dmitrijs2005/seabattle/internal/server/auth"
)

type registerRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type authenticateRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type revokeTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
	Reason       string `json:"reason"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	UserID             string    `json:"userId"`
	Username           string    `json:"username"`
	AccessToken        string    `json:"accessToken"`
	AccessTokenExpiry  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiresAt"`
}

func newAuthResponse(b *auth.AuthBundle) *authResponse {
	return &authResponse{
		UserID:             b.UserID,
		Username:           b.Username,
		AccessToken:        b.AccessToken,
		AccessTokenExpiry:  b.AccessTokenExpiry,
		RefreshToken:       b.RefreshToken,
		RefreshTokenExpiry: b.RefreshTokenExpiry,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ip := clientIP(r)

	if err := s.captcha.Verify(r.Context(), req.RecaptchaToken, ip); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "captcha verification failed")
			return
		}
		s.logger.Error(r.Context(), "captcha provider failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	bundle, err := s.users.Register(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			writeError(w, http.StatusConflict, "username is already taken")
			return
		}
		s.logger.Error(r.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info(r.Context(), "user registered", "username", req.Username)
	writeJSON(w, http.StatusCreated, newAuthResponse(bundle))
}

func (s *HTTPServer) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ip := clientIP(r)

	if err := s.captcha.Verify(r.Context(), req.RecaptchaToken, ip); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "captcha verification failed")
			return
		}
		s.logger.Error(r.Context(), "captcha provider failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	bundle, err := s.users.Authenticate(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.logger.Error(r.Context(), "authentication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(bundle))
}

func (s *HTTPServer) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	ip := clientIP(r)
	bundle, err := s.users.Refresh(r.Context(), req.RefreshToken, ip)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenReuseDetected):
			// The stored state change already happened; the response stays
			// indistinguishable from any other bad token.
			s.logger.Warn(r.Context(), "refresh token reuse detected, user sessions revoked", "ip", ip)
			writeError(w, http.StatusUnauthorized, "invalid token")
		case errors.Is(err, common.ErrInvalidToken),
			errors.Is(err, common.ErrTokenExpired),
			errors.Is(err, common.ErrTokenAlreadyRotated):
			writeError(w, http.StatusUnauthorized, "invalid token")
		default:
			s.logger.Error(r.Context(), "token refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(bundle))
}

func (s *HTTPServer) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	var req revokeTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	err := s.users.Revoke(r.Context(), req.RefreshToken, clientIP(r), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "token not found")
		case errors.Is(err, common.ErrTokenRevoked):
			writeError(w, http.StatusConflict, "token is already revoked")
		default:
			s.logger.Error(r.Context(), "token revocation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "newPassword is required")
		return
	}

	err := s.users.ChangePassword(r.Context(), userIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid current password")
		case errors.Is(err, common.ErrPasswordUnchanged):
			writeError(w, http.StatusBadRequest, "new password must differ from the current one")
		default:
			s.logger.Error(r.Context(), "password change failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

func (s *HTTPServer) handleIncrementWins(w http.ResponseWriter, r *http.Request) {
	s.handleIncrementCounter(w, r, s.users.IncrementWins)
}

func (s *HTTPServer) handleIncrementLosses(w http.ResponseWriter, r *http.Request) {
	s.handleIncrementCounter(w, r, s.users.IncrementLosses)
}

func (s *HTTPServer) handleIncrementCounter(w http.ResponseWriter, r *http.Request, inc func(ctx context.Context, userID string) error) {
	if err := inc(r.Context(), userIDFromContext(r.Context())); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error(r.Context(), "counter update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
