// Package auth проверяет access токены внешнего провайдера идентичности.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity описывает проверенного пользователя запроса.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// TokenManager проверяет JWT. Выпуск нужен только тестам и утилитам.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GenerateAccess выпускает access токен с клеймами sub и role.
func (m *TokenManager) GenerateAccess(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAccess извлекает пользователя и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return Identity{}, fmt.Errorf("auth: некорректный sub %q: %w", sub, jwt.ErrTokenInvalidClaims)
	}

	role, _ := claims["role"].(string)
	return Identity{UserID: userID, Role: role}, nil
}
