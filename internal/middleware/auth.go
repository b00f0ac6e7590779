// Package middleware содержит HTTP middleware маркетплейса пикеров.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/pickers-market/internal/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenValidator проверяет токен доступа и возвращает идентификатор пользователя.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// AuthMiddleware проверяет токен доступа из заголовка Authorization.
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware.
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// Middleware проверяет bearer-токен и добавляет идентификатор пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, authMessage(err))
			return
		}

		userID, err := a.validator.Validate(token)
		if err != nil {
			a.logger.Debug("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSONError(w, http.StatusUnauthorized, authMessage(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing authorization token"
	case errors.Is(err, auth.ErrExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

// WithUserID возвращает контекст с идентификатором пользователя.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
