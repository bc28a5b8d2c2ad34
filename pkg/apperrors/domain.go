package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for domain errors.
*/

// =========================================================================
// Фабрики
// =========================================================================

// ErrNotFound - промах репозитория (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общий конфликт (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - недопустимая операция (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - недопустимый статус или переход (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ошибки
// =========================================================================

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrStaffOnly = New(
	CodeForbidden,
	"auth",
	"Only staff members can perform this action",
	http.StatusForbidden,
)

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)

// --- Уведомления ---

var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

var ErrNotificationAccessDenied = New(
	CodeForbidden,
	"notification",
	"Notification belongs to another user",
	http.StatusForbidden,
)

var ErrNoRecipients = New(
	CodeValidationFailed,
	"notification",
	"No recipients resolved for bulk notification",
	http.StatusBadRequest,
)

// --- Тикеты поддержки ---

var ErrTicketNotFound = New(
	CodeNotFound,
	"support",
	"Ticket not found",
	http.StatusNotFound,
)

var ErrTicketAccessDenied = New(
	CodeForbidden,
	"support",
	"Access to ticket denied",
	http.StatusForbidden,
)

var ErrInvalidTicketStatus = New(
	CodeInvalidStatus,
	"support",
	"Invalid ticket status",
	http.StatusBadRequest,
)

var ErrTicketClosed = New(
	CodeInvalidOperation,
	"support",
	"Ticket is resolved or closed",
	http.StatusBadRequest,
)

var ErrEmptyMessage = New(
	CodeValidationFailed,
	"support",
	"Message must not be empty",
	http.StatusBadRequest,
)

// --- Сокеты ---

var ErrNotRegistered = New(
	CodeUnauthorized,
	"realtime",
	"Connection is not registered, send user:register first",
	http.StatusUnauthorized,
)

var ErrIdentityMismatch = New(
	CodeForbidden,
	"realtime",
	"Registered identity does not match the authenticated user",
	http.StatusForbidden,
)

// --- Загрузки ---

var ErrFileTooLarge = New(
	CodeValidationFailed,
	"upload",
	"File too large",
	http.StatusBadRequest,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"Invalid file type",
	http.StatusBadRequest,
)
