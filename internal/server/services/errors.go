package services

import (
	"fmt"

	"github.com/dmitrijs2005/contacts/internal/common"
)

// Errors returned by the services. Each wraps the common sentinel that
// describes its class, so callers can match either the specific error or
// the class.
var (
	ErrUserExists          = fmt.Errorf("user already exists: %w", common.ErrorConflict)
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials: %w", common.ErrorUnauthorized)
	ErrInvalidAccessToken  = fmt.Errorf("invalid token: %w", common.ErrorUnauthorized)
	ErrUnknownUser         = fmt.Errorf("user not found: %w", common.ErrorUnauthorized)
	ErrInvalidOneTimeToken = fmt.Errorf("invalid or expired token: %w", common.ErrorBadRequest)
	ErrResetUserMissing    = fmt.Errorf("user not found: %w", common.ErrorNotFound)
	ErrAvatarForbidden     = fmt.Errorf("avatar change not allowed: %w", common.ErrorForbidden)
	ErrNotAnImage          = fmt.Errorf("file is not an image: %w", common.ErrorBadRequest)
	ErrAvatarUpload        = fmt.Errorf("avatar upload returned no url: %w", common.ErrorBadRequest)

	ErrContactExists   = fmt.Errorf("contact already exists: %w", common.ErrorConflict)
	ErrContactNotFound = fmt.Errorf("contact not found: %w", common.ErrorNotFound)
	ErrInvalidQuery    = fmt.Errorf("invalid query: %w", common.ErrorBadRequest)
)
