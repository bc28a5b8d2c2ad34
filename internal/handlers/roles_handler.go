package handlers

import (
	"net/http"

	"hrportal_backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// GetRoles - общая таблица роль -> название для UI
func GetRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": auth.Roles()})
}
