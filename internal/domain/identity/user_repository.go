package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository stores users. Lookups return shared.ErrNotFound when no
// row matches; usernames are compared lower-cased.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
