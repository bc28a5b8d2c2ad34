package validator

import (
	"log"

	"hrportal_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка регистрации - ошибка сборки приложения, не запускаемся
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// -----------------------------------------------------------------
	// Правила, основанные на 'statuses.go'
	// -----------------------------------------------------------------
	mustRegister("is-user-role", enumRule(func(s string) bool { return models.UserRole(s).IsValid() }))
	mustRegister("is-notification-type", enumRule(func(s string) bool { return models.NotificationType(s).IsValid() }))
	mustRegister("is-notification-priority", enumRule(func(s string) bool { return models.NotificationPriority(s).IsValid() }))
	mustRegister("is-notification-category", enumRule(func(s string) bool { return models.NotificationCategory(s).IsValid() }))
	mustRegister("is-notification-channel", enumRule(isChannel))
	mustRegister("is-ticket-status", enumRule(func(s string) bool { return models.TicketStatus(s).IsValid() }))
	mustRegister("is-ticket-priority", enumRule(func(s string) bool { return models.TicketPriority(s).IsValid() }))
	mustRegister("is-ticket-category", enumRule(func(s string) bool { return models.TicketCategory(s).IsValid() }))
	mustRegister("is-message-type", enumRule(func(s string) bool {
		return models.MessageType(s) == models.MessageTypeText
	}))
}

// enumRule пропускает пустые значения, для них есть 'required'
func enumRule(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return valid(value)
	}
}

func isChannel(value string) bool {
	switch models.NotificationChannel(value) {
	case models.ChannelInApp, models.ChannelRealtime, models.ChannelEmail:
		return true
	default:
		return false
	}
}
