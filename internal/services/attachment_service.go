package services

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/models"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/internal/storage"
	"hrportal_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// AttachmentService загружает файлы до отправки сообщения; в тикет они попадают
// через attachments в message:send
type AttachmentService interface {
	Upload(ctx context.Context, actor auth.Identity, ticketID string, file *multipart.FileHeader) (*dto.AttachmentResponse, error)
}

type AttachmentConfig struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type attachmentService struct {
	tickets TicketService
	storage storage.Storage
	config  AttachmentConfig
}

func NewAttachmentService(tickets TicketService, store storage.Storage, config AttachmentConfig) AttachmentService {
	return &attachmentService{tickets: tickets, storage: store, config: config}
}

func (s *attachmentService) Upload(ctx context.Context, actor auth.Identity, ticketID string, file *multipart.FileHeader) (*dto.AttachmentResponse, error) {
	ticket, err := s.tickets.CanAccess(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, apperrors.NewBadRequestError("file is required")
	}

	contentType, err := s.validateFile(file)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	key := path.Join("tickets", ticket.ID, uuid.NewString()+ext)

	src, err := file.Open()
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("failed to open uploaded file: %w", err))
	}
	defer src.Close()

	if err := s.storage.Save(ctx, key, src, file.Size, contentType); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "upload", "Failed to store file", http.StatusBadGateway)
	}

	logger.CtxInfo(ctx, "ticket attachment stored", "ticket_id", ticket.ID, "key", key, "size", file.Size)
	return &dto.AttachmentResponse{Attachment: models.Attachment{
		Name:        filepath.Base(file.Filename),
		URL:         s.storage.URL(key),
		Key:         key,
		ContentType: contentType,
		Size:        file.Size,
	}}, nil
}

func (s *attachmentService) validateFile(file *multipart.FileHeader) (string, error) {
	if s.config.MaxFileSize > 0 && file.Size > s.config.MaxFileSize {
		return "", apperrors.ErrFileTooLarge
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}
	// "text/plain; charset=utf-8" -> "text/plain"
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}

	for _, allowed := range s.config.AllowedTypes {
		if mimeType == allowed {
			return mimeType, nil
		}
	}
	return "", apperrors.ErrInvalidFileType
}
