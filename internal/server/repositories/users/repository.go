// Package users declares the server-side repository contract for player
// accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/seabattle/internal/server/models"
)

// Repository defines persistence operations for users.
type Repository interface {
	// Create stores a new user and returns it with the generated id filled
	// in. A duplicate username yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given id, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByName returns the user with the given name, or common.ErrorNotFound.
	GetByName(ctx context.Context, name string) (*models.User, error)

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error

	// IncrementWins atomically bumps the win counter.
	IncrementWins(ctx context.Context, id string) error

	// IncrementLosses atomically bumps the loss counter.
	IncrementLosses(ctx context.Context, id string) error
}
