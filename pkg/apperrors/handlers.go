package apperrors

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартное тело ошибки
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler - обработчик ошибок для Gin
type GinErrorHandler struct {
	Debug bool
}

// Debug=false скрывает детали внутренних ошибок, выставляется из конфига при старте
var Debug = true

// HandleGinError пишет err как ErrorResponse
func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}
	if appErr.HTTPCode >= 500 && !h.Debug {
		hidden := *appErr
		hidden.Message = "Internal server error"
		hidden.Details = nil
		appErr = &hidden
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - сокращение для хендлеров и middleware
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: Debug}
	handler.HandleGinError(c, err)
}

// AsAppError пытается привести err к *AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
