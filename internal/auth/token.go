package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hrportal_backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - токены выпускает внешняя система, здесь только проверка
type Claims struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
	Name   string          `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity - проверенная личность пользователя для HTTP и сокета
type Identity struct {
	UserID string          `json:"userId"`
	Role   models.UserRole `json:"userRole"`
	Name   string          `json:"userName"`
}

func (i Identity) IsStaff() bool {
	return i.Role.IsStaff()
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, Name: c.Name}
}

// TokenManager подписывает и проверяет HS256 токены
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate используется тестами и dev-инструментами
func (m *TokenManager) Generate(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse проверяет подпись, срок и роль
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" || !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}
