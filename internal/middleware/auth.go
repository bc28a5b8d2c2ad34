package middleware

import (
	"strings"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/models"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - middleware проверки JWT; токены выпускает внешняя система
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidToken.WithError(err))
			c.Abort()
			return
		}

		// Сохраняем claims в контекст
		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.RoleKey, claims.Role)
		c.Set(contextkeys.UserNameKey, claims.Name)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireRoles - middleware для проверки нескольких возможных ролей
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !roleSet[GetRole(c)] {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff - любая роль кроме кандидата
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetRole(c).IsStaff() {
			apperrors.HandleError(c, apperrors.ErrStaffOnly)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission проверяет право по таблице ролей
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.HasPermission(GetRole(c), permission) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

func GetRole(c *gin.Context) models.UserRole {
	val, exists := c.Get(contextkeys.RoleKey)
	if !exists {
		return ""
	}
	switch role := val.(type) {
	case models.UserRole:
		return role
	case string:
		return models.UserRole(role)
	}
	return ""
}

// GetIdentity собирает личность из контекста запроса
func GetIdentity(c *gin.Context) auth.Identity {
	return auth.Identity{
		UserID: GetUserID(c),
		Role:   GetRole(c),
		Name:   c.GetString(contextkeys.UserNameKey),
	}
}
