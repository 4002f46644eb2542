package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/office-hours-api/internal/models"
	appErrors "github.com/noah-isme/office-hours-api/pkg/errors"
)

// requireRole rejects unauthenticated callers and callers of another role.
func requireRole(principal models.Principal, role models.UserRole, message string) error {
	if !principal.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if principal.Role != role {
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	return nil
}

func requireAuthenticated(principal models.Principal) error {
	if !principal.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		message = message + ": " + strings.Join(fields, ", ")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// storeError maps a store failure onto NotFound or PersistenceError.
func storeError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Persistence(err, failure)
}

// detach keeps values but drops the request deadline, for cleanup work that
// must run even after the client has gone away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
