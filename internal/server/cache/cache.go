// Package cache holds short-lived session state: password reset tokens and
// memoized user profiles.
package cache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contacts/internal/server/models"
)

// SessionCache is a TTL key-value store. Misses return common.ErrorNotFound.
type SessionCache interface {
	PutResetToken(ctx context.Context, token, email string, ttl time.Duration) error
	// ConsumeResetToken returns the email stored for token and removes the
	// entry in the same step, so a token redeems at most once.
	ConsumeResetToken(ctx context.Context, token string) (string, error)

	PutProfile(ctx context.Context, user *models.User, ttl time.Duration) error
	Profile(ctx context.Context, userID int64) (*models.User, error)
	InvalidateProfile(ctx context.Context, userID int64) error
}
