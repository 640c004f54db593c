package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/dbx"
	"github.com/dmitrijs2005/contacts/internal/server/models"
)

const contactColumns = `id, first_name, last_name, email, phone_number, birthday, additional_info, user_id`

const birthdayCondition = `((EXTRACT(MONTH FROM birthday) = $2 AND EXTRACT(DAY FROM birthday) >= $3)
		   OR (EXTRACT(MONTH FROM birthday) = $4 AND EXTRACT(DAY FROM birthday) <= $5))`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	c := &models.Contact{}
	var (
		birthday sql.NullTime
		info     sql.NullString
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber, &birthday, &info, &c.UserID); err != nil {
		return nil, err
	}
	if birthday.Valid {
		c.Birthday = &birthday.Time
	}
	if info.Valid {
		c.AdditionalInfo = &info.String
	}
	return c, nil
}

// scanOne maps a single-row result: no row is common.ErrorNotFound, a
// unique violation is common.ErrorAlreadyExists.
func scanOne(row *sql.Row) (*models.Contact, error) {
	c, err := scanContact(row)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrorNotFound
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) queryList(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) queryCount(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query :=
		`INSERT INTO contacts (first_name, last_name, email, phone_number, birthday, additional_info, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING ` + contactColumns

	return scanOne(r.db.QueryRowContext(ctx, query,
		contact.FirstName, contact.LastName, contact.Email, contact.PhoneNumber,
		contact.Birthday, contact.AdditionalInfo, contact.UserID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, ownerID int64, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM contacts WHERE user_id = $1 AND email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// likePattern wraps s for a substring ILIKE match, escaping the pattern
// metacharacters so they match literally.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// filterClause renders the owner scope plus the non-empty filters. Owner is
// always $1.
func filterClause(ownerID int64, filter models.ContactFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{ownerID}

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, likePattern(value))
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	add("first_name", filter.FirstName)
	add("last_name", filter.LastName)
	add("email", filter.Email)

	return strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) ([]models.Contact, error) {
	where, args := filterClause(ownerID, filter)
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		contactColumns, where, len(args)+1, len(args)+2)
	return r.queryList(ctx, query, append(args, limit, skip)...)
}

func (r *PostgresRepository) Count(ctx context.Context, ownerID int64, filter models.ContactFilter) (int64, error) {
	where, args := filterClause(ownerID, filter)
	return r.queryCount(ctx, `SELECT COUNT(*) FROM contacts WHERE `+where, args...)
}

func (r *PostgresRepository) UpcomingBirthdays(ctx context.Context, ownerID int64, w models.BirthdayWindow, skip, limit int) ([]models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1 AND ` + birthdayCondition + `
		 ORDER BY id LIMIT $6 OFFSET $7`
	return r.queryList(ctx, query, ownerID, w.FromMonth, w.FromDay, w.ToMonth, w.ToDay, limit, skip)
}

func (r *PostgresRepository) CountUpcomingBirthdays(ctx context.Context, ownerID int64, w models.BirthdayWindow) (int64, error) {
	query := `SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND ` + birthdayCondition
	return r.queryCount(ctx, query, ownerID, w.FromMonth, w.FromDay, w.ToMonth, w.ToDay)
}

// Update writes only the supplied fields. An empty update returns the
// current record.
func (r *PostgresRepository) Update(ctx context.Context, ownerID, id int64, u models.ContactUpdate) (*models.Contact, error) {
	if u.Empty() {
		return r.GetByID(ctx, ownerID, id)
	}

	args := []any{id, ownerID}
	sets := make([]string, 0, 6)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.FirstName != nil {
		set("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		set("last_name", *u.LastName)
	}
	if u.Email != nil {
		set("email", *u.Email)
	}
	if u.PhoneNumber != nil {
		set("phone_number", *u.PhoneNumber)
	}
	if u.ClearBirthday {
		sets = append(sets, "birthday = NULL")
	} else if u.Birthday != nil {
		set("birthday", *u.Birthday)
	}
	if u.ClearAdditionalInfo {
		sets = append(sets, "additional_info = NULL")
	} else if u.AdditionalInfo != nil {
		set("additional_info", *u.AdditionalInfo)
	}

	query := `UPDATE contacts SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND user_id = $2 RETURNING ` + contactColumns
	return scanOne(r.db.QueryRowContext(ctx, query, args...))
}

// Delete removes the contact and returns its last state.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	query := `DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING ` + contactColumns
	return scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// Search matches q against first name, last name or email.
func (r *PostgresRepository) Search(ctx context.Context, ownerID int64, q string, limit int) ([]models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		 ORDER BY id LIMIT $3`
	return r.queryList(ctx, query, ownerID, likePattern(q), limit)
}
