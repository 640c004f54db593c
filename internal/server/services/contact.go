package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/logging"
	"github.com/dmitrijs2005/contacts/internal/server/models"
	"github.com/dmitrijs2005/contacts/internal/server/repositories/repomanager"
)

const (
	DefaultLimit        = 100
	MaxLimit            = 500
	DefaultBirthdayDays = 7
	MaxBirthdayDays     = 30
)

// ContactService applies contact operations on behalf of an owner. Every
// lookup by id is scoped to the owner; another user's contact is reported
// as ErrContactNotFound.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "contact_service"),
		now:         time.Now,
	}
}

// Create stores a new contact for ownerID. A duplicate email for the same
// owner is ErrContactExists whether the pre-check or the unique constraint
// catches it.
func (s *ContactService) Create(ctx context.Context, ownerID int64, c models.Contact) (*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)

	exists, err := repo.ExistsByEmail(ctx, ownerID, c.Email)
	if err != nil {
		return nil, s.internal(ctx, "check contact email", err)
	}
	if exists {
		return nil, ErrContactExists
	}

	c.UserID = ownerID
	created, err := repo.Create(ctx, &c)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, ErrContactExists
		}
		return nil, s.internal(ctx, "create contact", err)
	}
	return created, nil
}

func (s *ContactService) Get(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapLookup(ctx, "get contact", err)
	}
	return c, nil
}

func checkPage(skip, limit int) error {
	if skip < 0 {
		return fmt.Errorf("skip must be >= 0: %w", ErrInvalidQuery)
	}
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d: %w", MaxLimit, ErrInvalidQuery)
	}
	return nil
}

// List returns one page of the owner's contacts matching filter.
// TotalCount counts all matches, not just the page.
func (s *ContactService) List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) (*models.ContactPage, error) {
	if err := checkPage(skip, limit); err != nil {
		return nil, err
	}

	repo := s.repomanager.Contacts(s.db)

	total, err := repo.Count(ctx, ownerID, filter)
	if err != nil {
		return nil, s.internal(ctx, "count contacts", err)
	}

	items, err := repo.List(ctx, ownerID, filter, skip, limit)
	if err != nil {
		return nil, s.internal(ctx, "list contacts", err)
	}

	return &models.ContactPage{TotalCount: total, Skip: skip, Limit: limit, Contacts: items}, nil
}

// UpcomingBirthdays lists contacts whose birthday month/day lies between
// today and today plus days. See models.BirthdayWindow for the comparison.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID int64, days, skip, limit int) (*models.ContactPage, error) {
	if days < 1 || days > MaxBirthdayDays {
		return nil, fmt.Errorf("days must be between 1 and %d: %w", MaxBirthdayDays, ErrInvalidQuery)
	}
	if err := checkPage(skip, limit); err != nil {
		return nil, err
	}

	window := models.NewBirthdayWindow(s.now(), days)
	repo := s.repomanager.Contacts(s.db)

	total, err := repo.CountUpcomingBirthdays(ctx, ownerID, window)
	if err != nil {
		return nil, s.internal(ctx, "count birthdays", err)
	}

	items, err := repo.UpcomingBirthdays(ctx, ownerID, window, skip, limit)
	if err != nil {
		return nil, s.internal(ctx, "list birthdays", err)
	}

	return &models.ContactPage{TotalCount: total, Skip: skip, Limit: limit, Contacts: items}, nil
}

// Update applies a partial update. Fields absent from update keep their
// values.
func (s *ContactService) Update(ctx context.Context, ownerID, id int64, update models.ContactUpdate) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).Update(ctx, ownerID, id, update)
	if err != nil {
		return nil, s.mapLookup(ctx, "update contact", err)
	}
	return c, nil
}

// Delete removes the contact and returns the deleted record.
func (s *ContactService) Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).Delete(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapLookup(ctx, "delete contact", err)
	}
	return c, nil
}

// Search matches query case-insensitively against first name, last name
// or email of the owner's contacts.
func (s *ContactService) Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.Contact, error) {
	if query == "" {
		return nil, fmt.Errorf("q is required: %w", ErrInvalidQuery)
	}
	if err := checkPage(0, limit); err != nil {
		return nil, err
	}

	items, err := s.repomanager.Contacts(s.db).Search(ctx, ownerID, query, limit)
	if err != nil {
		return nil, s.internal(ctx, "search contacts", err)
	}
	return items, nil
}

func (s *ContactService) mapLookup(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return ErrContactNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return ErrContactExists
	}
	return s.internal(ctx, op, err)
}

func (s *ContactService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrorInternal)
}
