package consent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-identity-worker/internal/domain"
)

// UserIndex resolves an e-mail address to the application's user id.
// It returns "" with a nil error when no user matches.
type UserIndex interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
}

// Store returns the newest consent record for a user and category, or nil when none exists.
type Store interface {
	Latest(ctx context.Context, userID string, category domain.ConsentCategory) (*domain.ConsentRecord, error)
}

type Checker struct {
	users  UserIndex
	store  Store
	logger *slog.Logger
}

func NewChecker(users UserIndex, store Store, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{users: users, store: store, logger: logger}
}

// Allowed reports whether email may receive a message of the given category.
// Transactional messages and addresses that do not resolve to a user are always allowed.
// Store failures are returned as transient errors so the event is redelivered.
func (c *Checker) Allowed(ctx context.Context, email string, category domain.ConsentCategory) (bool, error) {
	if category == domain.CategoryTransactional {
		return true, nil
	}
	userID, err := c.users.UserIDByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("resolve user for consent: %w", domain.Transient(err))
	}
	if userID == "" {
		c.logger.Info("consent subject not found, allowing", "category", category)
		return true, nil
	}
	rec, err := c.store.Latest(ctx, userID, category)
	if err != nil {
		return false, fmt.Errorf("load consent: %w", domain.Transient(err))
	}
	if rec == nil {
		return category.Default(), nil
	}
	return rec.Active(), nil
}
