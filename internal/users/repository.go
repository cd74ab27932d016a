package users

import "context"

// Repository is the persistence surface for accounts.
type Repository interface {
	Insert(ctx context.Context, username, passwordHash string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	Count(ctx context.Context) (int64, error)
	UpdateUsername(ctx context.Context, id int64, username string) (User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}
