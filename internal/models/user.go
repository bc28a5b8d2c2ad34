package models

// User приходит из внешней системы аутентификации; здесь только чтение для имен, ролей и email.
type User struct {
	BaseModel
	Email    string   `gorm:"uniqueIndex;not null" json:"email"`
	Name     string   `gorm:"not null" json:"name"`
	Role     UserRole `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool     `gorm:"default:true" json:"is_active"`
}
