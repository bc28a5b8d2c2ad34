package services

import (
	"errors"

	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/validator"
	"hrportal_backend/pkg/apperrors"
)

// mapRepoError переводит ошибки репозиториев в AppError
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotificationNotFound):
		return apperrors.ErrNotificationNotFound.WithError(err)
	case errors.Is(err, repositories.ErrTicketNotFound):
		return apperrors.ErrTicketNotFound.WithError(err)
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound.WithError(err)
	default:
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.InternalError(err)
	}
}

// validate оборачивает ошибки валидатора в ValidationError
func validate(v *validator.Validator, req interface{}) error {
	if err := v.Validate(req); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return apperrors.ValidationError(verr.Errors)
		}
		return apperrors.InternalError(err)
	}
	return nil
}
