package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/aegis-iam/aegis/internal/platform/password"
	"github.com/aegis-iam/aegis/internal/shared"
)

// MinPasswordLength is enforced on every credential write.
const MinPasswordLength = 8

// Invalidator drops cached grants for a user after an account mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// Service orchestrates account management.
type Service struct {
	repo  Repository
	cache Invalidator
}

// NewService constructs a Service.
func NewService(repo Repository, cache Invalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

// Create registers a new account with a freshly hashed credential.
func (s *Service) Create(ctx context.Context, username, plaintext string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("users: username required: %w", shared.ErrValidation)
	}
	if len(plaintext) < MinPasswordLength {
		return User{}, fmt.Errorf("users: password must be at least %d characters: %w", MinPasswordLength, shared.ErrValidation)
	}
	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, fmt.Errorf("users: username %q: %w", username, shared.ErrAlreadyExists)
	}
	hash, err := password.Hash(plaintext)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.Insert(ctx, username, hash)
}

// GetByID fetches an account.
func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByUsername fetches an account by name.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// List returns one page of accounts plus pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	p := shared.NewPagination(page, perPage, int(total))
	list, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, p, nil
}

// UpdateUsername renames an account, rejecting taken names.
func (s *Service) UpdateUsername(ctx context.Context, id int64, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("users: username required: %w", shared.ErrValidation)
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if username == current.Username {
		return current, nil
	}
	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, fmt.Errorf("users: username %q: %w", username, shared.ErrAlreadyExists)
	}
	return s.repo.UpdateUsername(ctx, id, username)
}

// ChangePassword rotates the credential after verifying the current one.
// Existing sessions carry a fingerprint of the old hash and stop resolving
// once the hash changes.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	ok, err := password.Verify(current, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("users: verify password: %w", err)
	}
	if !ok {
		return fmt.Errorf("users: current password: %w", shared.ErrInvalidCredentials)
	}
	return s.setPassword(ctx, id, next)
}

// ResetPassword rotates the credential without the current one. Reserved
// for administrative flows.
func (s *Service) ResetPassword(ctx context.Context, id int64, next string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.setPassword(ctx, id, next)
}

// Delete removes the account together with its role assignments.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}

func (s *Service) setPassword(ctx context.Context, id int64, plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return fmt.Errorf("users: password must be at least %d characters: %w", MinPasswordLength, shared.ErrValidation)
	}
	hash, err := password.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}
