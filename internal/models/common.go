package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate выставляет ID на стороне приложения, чтобы память и postgres вели себя одинаково
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	m.EnsureID()
	return nil
}

// EnsureID заполняет ID и CreatedAt, если они пустые
func (m *BaseModel) EnsureID() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
}
