package repositories

import (
	"context"
	"errors"
	"time"

	"hrportal_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	FindByID(ctx context.Context, id string) (*models.SupportTicket, error)
	FindWithMessages(ctx context.Context, id string) (*models.SupportTicket, error)
	FindTickets(ctx context.Context, criteria TicketCriteria) ([]models.SupportTicket, int64, error)
	// AppendMessage добавляет сообщение и увеличивает счетчик непрочитанного противоположной стороны
	AppendMessage(ctx context.Context, msg *models.TicketMessage, fromStaff bool) error
	UpdateStatus(ctx context.Context, ticket *models.SupportTicket) error
	ResetUnread(ctx context.Context, id string, staff bool) error
}

// TicketCriteria - пустой UserID означает все тикеты (для сотрудников)
type TicketCriteria struct {
	UserID   string
	Status   string
	Priority string
	Category string
	Page     int
	PageSize int
}

func (c TicketCriteria) offset() int {
	if c.Page < 1 {
		return 0
	}
	return (c.Page - 1) * c.PageSize
}

type TicketRepositoryImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &TicketRepositoryImpl{db: db}
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id string) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindWithMessages(ctx context.Context, id string) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) FindTickets(ctx context.Context, criteria TicketCriteria) ([]models.SupportTicket, int64, error) {
	var tickets []models.SupportTicket
	query := r.db.WithContext(ctx).Model(&models.SupportTicket{})

	if criteria.UserID != "" {
		query = query.Where("user_id = ?", criteria.UserID)
	}
	if criteria.Status != "" {
		query = query.Where("status = ?", criteria.Status)
	}
	if criteria.Priority != "" {
		query = query.Where("priority = ?", criteria.Priority)
	}
	if criteria.Category != "" {
		query = query.Where("category = ?", criteria.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("COALESCE(last_message_at, created_at) DESC").
		Limit(criteria.PageSize).
		Offset(criteria.offset()).
		Find(&tickets).Error
	return tickets, total, err
}

// AppendMessage - две записи в одной транзакции: сообщение и счетчики тикета
func (r *TicketRepositoryImpl) AppendMessage(ctx context.Context, msg *models.TicketMessage, fromStaff bool) error {
	counter := "unread_staff"
	if fromStaff {
		counter = "unread_user"
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		result := tx.Model(&models.SupportTicket{}).
			Where("id = ?", msg.TicketID).
			Updates(map[string]interface{}{
				counter:           gorm.Expr(counter + " + 1"),
				"last_message_at": msg.CreatedAt,
				"updated_at":      time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTicketNotFound
		}
		return nil
	})
}

func (r *TicketRepositoryImpl) UpdateStatus(ctx context.Context, ticket *models.SupportTicket) error {
	result := r.db.WithContext(ctx).Model(&models.SupportTicket{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]interface{}{
			"status":           ticket.Status,
			"resolution_notes": ticket.ResolutionNotes,
			"resolved_at":      ticket.ResolvedAt,
			"closed_at":        ticket.ClosedAt,
			"updated_at":       ticket.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) ResetUnread(ctx context.Context, id string, staff bool) error {
	counter := "unread_user"
	if staff {
		counter = "unread_staff"
	}
	return r.db.WithContext(ctx).Model(&models.SupportTicket{}).
		Where("id = ?", id).
		UpdateColumn(counter, 0).Error
}
