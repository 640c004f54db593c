package contacts

import (
	"context"

	"github.com/dmitrijs2005/contacts/internal/server/models"
)

// Repository is the contact store. Every operation is scoped to the owning
// user: a contact belonging to someone else behaves exactly like a missing
// one (common.ErrorNotFound). Unique (owner, email) violations surface as
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetByID(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	ExistsByEmail(ctx context.Context, ownerID int64, email string) (bool, error)
	List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) ([]models.Contact, error)
	Count(ctx context.Context, ownerID int64, filter models.ContactFilter) (int64, error)
	UpcomingBirthdays(ctx context.Context, ownerID int64, window models.BirthdayWindow, skip, limit int) ([]models.Contact, error)
	CountUpcomingBirthdays(ctx context.Context, ownerID int64, window models.BirthdayWindow) (int64, error)
	Update(ctx context.Context, ownerID, id int64, update models.ContactUpdate) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.Contact, error)
}
