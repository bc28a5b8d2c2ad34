package database

import (
	"fmt"
	"time"

	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectGorm открывает пул и проверяет соединение
func ConnectGorm(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return db, nil
}

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.SupportTicket{},
		&models.TicketMessage{},
	)
	logger.DBLog("automigrate", "users, notifications, support_tickets, ticket_messages", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
