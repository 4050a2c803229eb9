package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/repository"
	appErrors "github.com/noah-isme/sma-booking-api/pkg/errors"
)

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// createAccount hashes password and inserts user after an email uniqueness check.
// Emails are stored as given apart from surrounding whitespace.
func createAccount(ctx context.Context, repo accountStore, user *models.User, password string) error {
	user.Email = strings.TrimSpace(user.Email)
	user.Name = strings.TrimSpace(user.Name)

	if _, err := repo.FindByEmail(ctx, user.Email); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Store(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already registered")
		}
		return appErrors.Store(err, "failed to create user")
	}
	return nil
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
