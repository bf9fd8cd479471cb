// Package users declares the account store contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/mailreminder/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in ID and CreatedAt. An existing email
	// yields common.ErrorDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail and GetByID return common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
