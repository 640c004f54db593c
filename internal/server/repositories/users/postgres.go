package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/dbx"
	"github.com/dmitrijs2005/contacts/internal/server/models"
)

const userColumns = `id, email, hashed_password, is_active, avatar, created_at, updated_at, is_verified, verification_token, role`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		avatar    sql.NullString
		updatedAt sql.NullTime
		token     sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &avatar, &u.CreatedAt,
		&updatedAt, &u.IsVerified, &token, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	if token.Valid {
		u.VerificationToken = &token.String
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, hashed_password, verification_token, role)
         VALUES ($1, $2, $3, $4)
		 RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.VerificationToken, user.Role))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, err
	}

	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

// MarkVerified sets the verified flag and clears the token in one statement.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id int64) error {
	query :=
		`UPDATE users SET is_verified = TRUE, verification_token = NULL, updated_at = now()
		 WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id int64, avatarURL string) (*models.User, error) {
	query :=
		`UPDATE users SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, avatarURL))
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
