package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(_ context.Context, tok string) (*core.IdentityUser, error) {
	if tok != "good-token" {
		return nil, errors.New("token expired")
	}
	return &core.IdentityUser{UID: "u1", Email: "ana@example.com", DisplayName: "Ana"}, nil
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyToken(t *testing.T) {
	r := gin.New()
	auth := NewAuthMiddleware(fakeVerifier{}, zap.NewNop())
	r.GET("/me", auth.VerifyToken(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": UserID(c), "email": c.GetString(ContextUserEmail)})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"good", "bearer good-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := perform(r, http.MethodGet, "/me", headers)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK {
				var body map[string]string
				json.Unmarshal(w.Body.Bytes(), &body)
				if body["uid"] != "u1" || body["email"] != "ana@example.com" {
					t.Errorf("body = %v", body)
				}
			}
		})
	}
}

type fakeSessions struct {
	core.SessionService
	err error
}

func (f fakeSessions) ValidateSession(_ context.Context, userID, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	if sessionID != userID+"_1" {
		return core.ErrSessionNotFound
	}
	return nil
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		err      error
		want     int
		wantCode string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, "session_required"},
		{"valid", "u1_1", nil, http.StatusOK, ""},
		{"unknown", "u1_2", nil, http.StatusUnauthorized, "session_invalid"},
		{"terminated", "u1_1", core.ErrSessionTerminated, http.StatusUnauthorized, "session_terminated"},
		{"store down", "u1_1", errors.New("unavailable"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { c.Set(ContextUserID, "u1") },
				RequireSession(fakeSessions{err: tt.err}, zap.NewNop()),
				func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })
			headers := map[string]string{}
			if tt.header != "" {
				headers[SessionHeader] = tt.header
			}
			w := perform(r, http.MethodGet, "/x", headers)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.wantCode != "" {
				var body ErrorResponse
				json.Unmarshal(w.Body.Bytes(), &body)
				if body.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	store := NewLimiterStore(2)
	r := gin.New()
	r.POST("/reset", RateLimit(store, "reset"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		if w := perform(r, http.MethodPost, "/reset", nil); w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := perform(r, http.MethodPost, "/reset", nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("third status = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestLimiterStoreRefillAndCleanup(t *testing.T) {
	store := NewLimiterStore(60)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	for i := 0; i < 60; i++ {
		store.Allow("k")
	}
	if ok, wait := store.Allow("k"); ok || wait <= 0 {
		t.Fatalf("allowed past burst: ok=%v wait=%v", ok, wait)
	}
	clock = clock.Add(time.Second)
	if ok, _ := store.Allow("k"); !ok {
		t.Error("token not refilled after a second")
	}

	store.Allow("idle")
	clock = clock.Add(10 * time.Minute)
	store.Allow("k")
	if n := store.Cleanup(5 * time.Minute); n != 1 {
		t.Errorf("cleaned = %d, want 1", n)
	}
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), RecoveryMiddleware(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", map[string]string{RequestIDHeader: "req-1"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) != "req-1" {
		t.Errorf("request id = %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRecoveryReportsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), RecoveryMiddleware(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", map[string]string{RequestIDHeader: "req-2"})
	if !strings.Contains(w.Body.String(), `"details":"req-2"`) || !strings.Contains(w.Body.String(), `"code":"internal"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
