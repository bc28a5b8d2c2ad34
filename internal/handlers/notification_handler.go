package handlers

import (
	"net/http"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/middleware"
	"hrportal_backend/internal/services"
	"hrportal_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	*BaseHandler
	notificationService services.NotificationService
}

func NewNotificationHandler(base *BaseHandler, notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         base,
		notificationService: notificationService,
	}
}

// RegisterRoutes ожидает группу, уже закрытую AuthMiddleware
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.GetUserNotifications)
		notifications.GET("/count", h.GetUnreadCount)
		notifications.GET("/:notificationId", h.GetNotification)
		notifications.PUT("/read-all", h.MarkAllAsRead)
		notifications.PUT("/:notificationId/read", h.MarkAsRead)
		notifications.DELETE("/read", h.DeleteReadNotifications)
		notifications.DELETE("/:notificationId", h.DeleteNotification)
		notifications.POST("/test", h.SendTest)

		notifications.POST("", middleware.RequirePermission(auth.PermNotificationsCreate), h.CreateNotification)
		notifications.POST("/bulk", middleware.RequirePermission(auth.PermNotificationsBulk), h.SendBulkNotification)
	}
}

// --- Read state ---

func (h *NotificationHandler) GetUserNotifications(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	page, pageSize := ParsePagination(c)
	criteria := dto.NotificationCriteria{
		Page:       page,
		PageSize:   pageSize,
		UnreadOnly: ParseQueryBool(c, "unread_only"),
		Type:       c.Query("type"),
		Category:   c.Query("category"),
	}

	response, err := h.notificationService.GetUserNotifications(c.Request.Context(), identity.UserID, criteria)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	count, err := h.notificationService.GetUnreadCount(c.Request.Context(), identity.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{UnreadCount: count})
}

func (h *NotificationHandler) GetNotification(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	notification, err := h.notificationService.GetNotification(c.Request.Context(), identity.UserID, c.Param("notificationId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkAsRead(c.Request.Context(), identity.UserID, c.Param("notificationId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(c.Request.Context(), identity.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(c.Request.Context(), identity.UserID, c.Param("notificationId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

func (h *NotificationHandler) DeleteReadNotifications(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	deleted, err := h.notificationService.DeleteReadNotifications(c.Request.Context(), identity.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Read notifications deleted", "deleted": deleted})
}

// --- Fan-out ---

func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	notification, err := h.notificationService.CreateAndSend(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, notification)
}

func (h *NotificationHandler) SendBulkNotification(c *gin.Context) {
	var req dto.BulkNotificationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.notificationService.CreateBulk(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *NotificationHandler) SendTest(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	notification, err := h.notificationService.SendTest(c.Request.Context(), identity.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, notification)
}
