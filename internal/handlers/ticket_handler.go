package handlers

import (
	"net/http"

	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/middleware"
	"hrportal_backend/internal/services"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	*BaseHandler
	ticketService     services.TicketService
	attachmentService services.AttachmentService
}

func NewTicketHandler(base *BaseHandler, ticketService services.TicketService, attachmentService services.AttachmentService) *TicketHandler {
	return &TicketHandler{
		BaseHandler:       base,
		ticketService:     ticketService,
		attachmentService: attachmentService,
	}
}

func (h *TicketHandler) RegisterRoutes(r *gin.RouterGroup) {
	tickets := r.Group("/support/tickets")
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("", h.ListTickets)
		tickets.GET("/:ticketId", h.GetTicket)
		tickets.POST("/:ticketId/messages", h.SendMessage)
		tickets.POST("/:ticketId/attachments", h.UploadAttachment)
		tickets.PUT("/:ticketId/status", middleware.RequireStaff(), h.UpdateStatus)
	}
}

func (h *TicketHandler) CreateTicket(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateTicketRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	ticket, err := h.ticketService.CreateTicket(c.Request.Context(), identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) ListTickets(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	page, pageSize := ParsePagination(c)
	response, err := h.ticketService.ListTickets(c.Request.Context(), identity, dto.TicketCriteria{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Category: c.Query("category"),
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	ticket, err := h.ticketService.GetTicket(c.Request.Context(), identity, c.Param("ticketId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// SendMessage - тот же поток, что и message:send по сокету
func (h *TicketHandler) SendMessage(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}
	req.TicketID = c.Param("ticketId")

	ctx := logger.WithTicketID(c.Request.Context(), req.TicketID)
	outcome, err := h.ticketService.SendMessage(ctx, identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.ticketService.AfterMessage(ctx, identity, outcome)

	c.JSON(http.StatusCreated, outcome.Message)
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}
	req.TicketID = c.Param("ticketId")

	outcome, err := h.ticketService.UpdateStatus(logger.WithTicketID(c.Request.Context(), req.TicketID), identity, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket":         outcome.Ticket,
		"previous":       outcome.PrevStatus,
		"system_message": outcome.SystemMessage,
	})
}

func (h *TicketHandler) UploadAttachment(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("file is required"))
		return
	}

	attachment, err := h.attachmentService.Upload(c.Request.Context(), identity, c.Param("ticketId"), file)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}
