package dto

import "hrportal_backend/internal/models"

type AttachmentResponse struct {
	Attachment models.Attachment `json:"attachment"`
}
