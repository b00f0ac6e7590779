package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/auth"
	"github.com/mmeshcher/pickers-market/internal/clock"
)

func newTestEngine(c clock.Clock) *auth.Engine {
	return auth.NewEngine([]byte("test-secret"), time.Hour, c)
}

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	engine := newTestEngine(clock.Real())
	m := NewAuthMiddleware(engine, zap.NewNop())

	userID := uuid.New()
	token, err := engine.Issue(userID)
	require.NoError(t, err)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok, "user id not in context")
		assert.Equal(t, userID, id)
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	c := clock.Fake(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(c)
	m := NewAuthMiddleware(engine, zap.NewNop())

	expired, err := engine.Issue(uuid.New())
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "no header", header: "", msg: "missing authorization token"},
		{name: "wrong scheme", header: "Basic abc", msg: "invalid token"},
		{name: "garbage", header: "Bearer not-a-jwt", msg: "invalid token"},
		{name: "expired", header: "Bearer " + expired, msg: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Middleware(next).ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}
