// Package services contains server-side business logic. UserService drives
// the account lifecycle: registration, email verification, login, identity
// resolution, password reset and avatar changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/dbx"
	"github.com/dmitrijs2005/contacts/internal/logging"
	"github.com/dmitrijs2005/contacts/internal/server/auth"
	"github.com/dmitrijs2005/contacts/internal/server/cache"
	"github.com/dmitrijs2005/contacts/internal/server/config"
	"github.com/dmitrijs2005/contacts/internal/server/mailer"
	"github.com/dmitrijs2005/contacts/internal/server/models"
	"github.com/dmitrijs2005/contacts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contacts/internal/server/storage"
)

const oneTimeTokenBytes = 32

// UserDeps are the collaborators UserService needs. All of them are built
// once at startup and shared.
type UserDeps struct {
	Tokens   *auth.TokenManager
	Hasher   *auth.PasswordHasher
	Cache    cache.SessionCache
	Uploader storage.AvatarUploader
	Mailer   mailer.Mailer
	Logger   logging.Logger
}

type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	tokens          *auth.TokenManager
	hasher          *auth.PasswordHasher
	cache           cache.SessionCache
	uploader        storage.AvatarUploader
	mailer          mailer.Mailer
	logger          logging.Logger
	profileCacheTTL time.Duration
	resetTokenTTL   time.Duration
	appBaseURL      string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, deps UserDeps) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		tokens:          deps.Tokens,
		hasher:          deps.Hasher,
		cache:           deps.Cache,
		uploader:        deps.Uploader,
		mailer:          deps.Mailer,
		logger:          deps.Logger.With("module", "auth_service"),
		profileCacheTTL: cfg.ProfileCacheTTL,
		resetTokenTTL:   cfg.ResetTokenTTL,
		appBaseURL:      cfg.AppBaseURL,
	}
}

// Register creates an unverified user and sends the verification link.
// The email pre-check and the store's unique constraint both report
// ErrUserExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "lookup user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}

	token, err := common.MakeRandHexString(oneTimeTokenBytes)
	if err != nil {
		return nil, s.internal(ctx, "generate verification token", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: &token,
		Role:              common.RoleUser,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, s.internal(ctx, "create user", err)
	}

	link := mailer.Link(s.appBaseURL, "/auth/verify-email", token)
	if err := s.mailer.SendVerification(ctx, email, link); err != nil {
		s.logger.Warn(ctx, "send verification failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// VerifyEmail consumes a verification token. A token works once: success
// clears it from the record.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOneTimeToken
	}

	var userID int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByVerificationToken(ctx, token)
		if err != nil {
			return err
		}
		userID = user.ID
		return repo.MarkVerified(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidOneTimeToken
		}
		return s.internal(ctx, "verify email", err)
	}

	s.invalidateProfile(ctx, userID)
	s.logger.Info(ctx, "email verified", "user_id", userID)
	return nil
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", s.internal(ctx, "lookup user", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", s.internal(ctx, "sign token", err)
	}
	return token, nil
}

// ResolveIdentity maps an access token to its user, consulting the profile
// cache before the store and filling it on a store hit.
func (s *UserService) ResolveIdentity(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.GetUserIDFromToken(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	user, err := s.cache.Profile(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "profile cache read failed", "user_id", userID, "error", err)
	}

	user, err = s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, s.internal(ctx, "load user", err)
	}

	if err := s.cache.PutProfile(ctx, user, s.profileCacheTTL); err != nil {
		s.logger.Warn(ctx, "profile cache write failed", "user_id", userID, "error", err)
	}
	return user, nil
}

// RequestPasswordReset stores a reset token for email and sends the link.
// It does not reveal whether the email is registered.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	token, err := common.MakeRandHexString(oneTimeTokenBytes)
	if err != nil {
		return s.internal(ctx, "generate reset token", err)
	}

	if err := s.cache.PutResetToken(ctx, token, email, s.resetTokenTTL); err != nil {
		return s.internal(ctx, "store reset token", err)
	}

	link := mailer.Link(s.appBaseURL, "/auth/reset-password", token)
	if err := s.mailer.SendPasswordReset(ctx, email, link); err != nil {
		s.logger.Warn(ctx, "send password reset failed", "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash. The
// token is taken out of the cache before the update, so concurrent calls
// with one token succeed at most once; a failed update leaves it spent.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOneTimeToken
	}

	email, err := s.cache.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrInvalidOneTimeToken
		}
		return s.internal(ctx, "consume reset token", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internal(ctx, "hash password", err)
	}

	var userID int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		userID = user.ID
		return repo.UpdatePassword(ctx, user.ID, hash)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrResetUserMissing
		}
		return s.internal(ctx, "reset password", err)
	}

	s.invalidateProfile(ctx, userID)
	s.logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// UpdateAvatar uploads a new avatar for user. Only the admin role may
// change its avatar.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, image []byte) (*models.User, error) {
	if user.Role != common.RoleAdmin {
		return nil, ErrAvatarForbidden
	}

	contentType := http.DetectContentType(image)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotAnImage
	}

	url, err := s.uploader.Upload(ctx, user.ID, image, contentType)
	if err != nil {
		return nil, s.internal(ctx, "upload avatar", err)
	}
	if url == "" {
		return nil, ErrAvatarUpload
	}

	updated, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, s.internal(ctx, "save avatar", err)
	}

	s.invalidateProfile(ctx, user.ID)
	return updated, nil
}

func (s *UserService) invalidateProfile(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateProfile(ctx, userID); err != nil {
		s.logger.Error(ctx, "profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

// internal logs err and returns an opaque internal error.
func (s *UserService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrorInternal)
}
