// Package auth выпускает и проверяет подписанные утверждения о личности
// пользователя (JWT, HS256).
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/pickers-market/internal/clock"
	"github.com/mmeshcher/pickers-market/internal/model"
)

// DefaultTTL срок жизни утверждения по умолчанию.
const DefaultTTL = 24 * time.Hour

var (
	// ErrMissingCredential возвращается, если токен не передан.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", model.ErrUnauthorized)
	// ErrMalformed возвращается, если токен не разбирается или подпись неверна.
	ErrMalformed = fmt.Errorf("%w: malformed token", model.ErrUnauthorized)
	// ErrExpired возвращается для корректно подписанного, но просроченного токена.
	ErrExpired = fmt.Errorf("%w: token expired", model.ErrUnauthorized)
)

// Claims утверждения токена: sub содержит идентификатор пользователя, также iat и exp.
type Claims struct {
	jwt.RegisteredClaims
}

// Engine выпускает и проверяет токены на общем симметричном секрете.
type Engine struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewEngine создаёт движок с секретом secret и сроком жизни ttl.
func NewEngine(secret []byte, ttl time.Duration, c clock.Clock) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{
		secret: secret,
		ttl:    ttl,
		clock:  c,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(c.Now),
		),
	}
}

// Issue выпускает токен для пользователя. При одинаковых секрете и времени
// результат детерминирован.
func (e *Engine) Issue(userID uuid.UUID) (string, error) {
	now := e.clock.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.ttl)),
		},
	})

	signed, err := token.SignedString(e.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate проверяет подпись и срок действия токена и возвращает
// идентификатор пользователя. Токен действителен, пока now < exp.
func (e *Engine) Validate(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, ErrMissingCredential
	}

	claims := &Claims{}
	token, err := e.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return e.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpired
		}
		return uuid.Nil, ErrMalformed
	}
	if !token.Valid {
		return uuid.Nil, ErrMalformed
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformed
	}
	return userID, nil
}

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformed
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}
