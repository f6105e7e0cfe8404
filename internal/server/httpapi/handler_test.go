package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/common"
	"github.com/dmitrijs2005/seabattle/internal/logging"
	"github.com/dmitrijs2005/seabattle/internal/server/auth"
	"github.com/dmitrijs2005/seabattle/internal/server/recaptcha"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "seabattle"
	testAudience = "seabattle-clients"
)

type fakeUserService struct {
	bundle *auth.AuthBundle
	err    error

	lastUserID   string
	lastClientIP string
	lastToken    string
	lastReason   string
	winsIncs     int
	lossesIncs   int
}

func (f *fakeUserService) Register(ctx context.Context, username, password, ip string) (*auth.AuthBundle, error) {
	f.lastClientIP = ip
	return f.bundle, f.err
}

func (f *fakeUserService) Authenticate(ctx context.Context, username, password, ip string) (*auth.AuthBundle, error) {
	f.lastClientIP = ip
	return f.bundle, f.err
}

func (f *fakeUserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	f.lastUserID = userID
	return f.err
}

func (f *fakeUserService) Refresh(ctx context.Context, token, ip string) (*auth.AuthBundle, error) {
	f.lastToken = token
	f.lastClientIP = ip
	return f.bundle, f.err
}

func (f *fakeUserService) Revoke(ctx context.Context, token, ip, reason string) error {
	f.lastToken = token
	f.lastReason = reason
	return f.err
}

func (f *fakeUserService) IncrementWins(ctx context.Context, userID string) error {
	f.lastUserID = userID
	if f.err != nil {
		return f.err
	}
	f.winsIncs++
	return nil
}

func (f *fakeUserService) IncrementLosses(ctx context.Context, userID string) error {
	f.lastUserID = userID
	if f.err != nil {
		return f.err
	}
	f.lossesIncs++
	return nil
}

type failingVerifier struct{ err error }

func (v failingVerifier) Verify(context.Context, string, string) error { return v.err }

func testBundle() *auth.AuthBundle {
	return &auth.AuthBundle{
		UserID:             "u1",
		Username:           "alice",
		AccessToken:        "access",
		AccessTokenExpiry:  time.Now().Add(15 * time.Minute),
		RefreshToken:       "refresh",
		RefreshTokenExpiry: time.Now().Add(7 * 24 * time.Hour),
	}
}

func newTestServer(t *testing.T, us UserService, captcha recaptcha.Verifier) *HTTPServer {
	t.Helper()
	if captcha == nil {
		captcha = recaptcha.NoopVerifier{}
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return NewHTTPServer(":0", logger, us, captcha, nil,
		testSecret, testIssuer, testAudience)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearerFor(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, _, err := auth.GenerateToken(userID, "alice", []byte(testSecret),
		time.Minute, testIssuer, testAudience, nil)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHandleRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		us := &fakeUserService{bundle: testBundle()}
		h := newTestServer(t, us, nil).Handler()

		rec := doJSON(t, h, http.MethodPost, "/api/auth/register",
			registerRequest{Username: "alice", Password: "pw"},
			map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp authResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "u1", resp.UserID)
		assert.Equal(t, "access", resp.AccessToken)
		assert.Equal(t, "refresh", resp.RefreshToken)
		assert.Equal(t, "203.0.113.7", us.lastClientIP)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newTestServer(t, &fakeUserService{}, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/register",
			registerRequest{Username: "alice"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("username taken", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrorConflict}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/register",
			registerRequest{Username: "alice", Password: "pw"}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("captcha rejected", func(t *testing.T) {
		h := newTestServer(t, &fakeUserService{},
			failingVerifier{err: common.ErrorUnauthorized}).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/register",
			registerRequest{Username: "alice", Password: "pw"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleAuthenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		us := &fakeUserService{bundle: testBundle()}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/authenticate",
			authenticateRequest{Username: "alice", Password: "pw"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrorUnauthorized}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/authenticate",
			authenticateRequest{Username: "alice", Password: "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("captcha rejected", func(t *testing.T) {
		// a valid password must not get a bundle past a failed captcha
		us := &fakeUserService{bundle: testBundle()}
		h := newTestServer(t, us,
			failingVerifier{err: common.ErrorUnauthorized}).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/authenticate",
			authenticateRequest{Username: "alice", Password: "pw", RecaptchaToken: "bad"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"captcha verification failed"}`, rec.Body.String())
	})
}

func TestHandleRefreshToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		us := &fakeUserService{bundle: testBundle()}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/refresh-token",
			refreshTokenRequest{RefreshToken: "r1"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r1", us.lastToken)
	})

	t.Run("empty token", func(t *testing.T) {
		h := newTestServer(t, &fakeUserService{}, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/refresh-token",
			refreshTokenRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// every token failure mode maps onto the same response
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"unknown", common.ErrInvalidToken},
		{"expired", common.ErrTokenExpired},
		{"rotated", common.ErrTokenAlreadyRotated},
		{"reuse detected", common.ErrTokenReuseDetected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			us := &fakeUserService{err: tc.err}
			h := newTestServer(t, us, nil).Handler()
			rec := doJSON(t, h, http.MethodPost, "/api/auth/refresh-token",
				refreshTokenRequest{RefreshToken: "r1"}, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
		})
	}
}

func TestHandleRevokeToken(t *testing.T) {
	t.Run("success passes reason through", func(t *testing.T) {
		us := &fakeUserService{}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/revoke-token",
			revokeTokenRequest{RefreshToken: "r1", Reason: "Compromised"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Compromised", us.lastReason)
	})

	t.Run("not found", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrorNotFound}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/revoke-token",
			revokeTokenRequest{RefreshToken: "r1"}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("already revoked", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrTokenRevoked}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPost, "/api/auth/revoke-token",
			revokeTokenRequest{RefreshToken: "r1"}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleChangePassword(t *testing.T) {
	t.Run("requires token", func(t *testing.T) {
		h := newTestServer(t, &fakeUserService{}, nil).Handler()
		rec := doJSON(t, h, http.MethodPut, "/api/auth/change-password",
			changePasswordRequest{CurrentPassword: "a", NewPassword: "b"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		us := &fakeUserService{}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPut, "/api/auth/change-password",
			changePasswordRequest{CurrentPassword: "a", NewPassword: "b"},
			bearerFor(t, "u1"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", us.lastUserID)
	})

	t.Run("wrong current password", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrorUnauthorized}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPut, "/api/auth/change-password",
			changePasswordRequest{CurrentPassword: "a", NewPassword: "b"},
			bearerFor(t, "u1"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unchanged password", func(t *testing.T) {
		us := &fakeUserService{err: common.ErrPasswordUnchanged}
		h := newTestServer(t, us, nil).Handler()
		rec := doJSON(t, h, http.MethodPut, "/api/auth/change-password",
			changePasswordRequest{CurrentPassword: "a", NewPassword: "a"},
			bearerFor(t, "u1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleCounters(t *testing.T) {
	us := &fakeUserService{}
	h := newTestServer(t, us, nil).Handler()
	headers := bearerFor(t, "u7")

	rec := doJSON(t, h, http.MethodPost, "/api/users/wins", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/users/losses", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, us.winsIncs)
	assert.Equal(t, 1, us.lossesIncs)
	assert.Equal(t, "u7", us.lastUserID)

	rec = doJSON(t, h, http.MethodPost, "/api/users/wins", nil,
		map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_LogsRejectedToken(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	s := NewHTTPServer(":0", logger, &fakeUserService{}, recaptcha.NoopVerifier{}, nil,
		testSecret, testIssuer, testAudience)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/users/wins", nil,
		map[string]string{"Authorization": "Bearer garbage"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, buf.String(), "bearer token rejected")
}

func TestHandleHealthz(t *testing.T) {
	h := newTestServer(t, &fakeUserService{}, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.5:4410"
	assert.Equal(t, "192.0.2.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.5")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
