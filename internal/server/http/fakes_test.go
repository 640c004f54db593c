package http

import (
	"context"

	"github.com/dmitrijs2005/contacts/internal/server/models"
	"github.com/dmitrijs2005/contacts/internal/server/services"
)

const validToken = "good-token"

type fakeUsers struct {
	user *models.User

	registerErr error
	loginErr    error
	verifyErr   error
	resetErr    error
	avatarErr   error
	avatarURL   string

	verifiedToken string
	resetEmail    string
	avatarBytes   []byte
}

func (f *fakeUsers) Register(ctx context.Context, email, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: 7, Email: email, PasswordHash: "hash", IsActive: true, Role: "user"}, nil
}

func (f *fakeUsers) VerifyEmail(ctx context.Context, token string) error {
	f.verifiedToken = token
	return f.verifyErr
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "signed.jwt.token", nil
}

func (f *fakeUsers) ResolveIdentity(ctx context.Context, token string) (*models.User, error) {
	if token != validToken || f.user == nil {
		return nil, services.ErrInvalidAccessToken
	}
	return f.user, nil
}

func (f *fakeUsers) RequestPasswordReset(ctx context.Context, email string) error {
	f.resetEmail = email
	return nil
}

func (f *fakeUsers) ResetPassword(ctx context.Context, token, newPassword string) error {
	return f.resetErr
}

func (f *fakeUsers) UpdateAvatar(ctx context.Context, user *models.User, image []byte) (*models.User, error) {
	f.avatarBytes = image
	if f.avatarErr != nil {
		return nil, f.avatarErr
	}
	u := *user
	u.Avatar = &f.avatarURL
	return &u, nil
}

type listCall struct {
	owner       int64
	filter      models.ContactFilter
	skip, limit int
	days        int
}

type fakeContacts struct {
	err      error
	contact  *models.Contact
	page     *models.ContactPage
	found    []models.Contact
	lastList listCall
	created  models.Contact
	update   models.ContactUpdate
	lastID   int64
	query    string
}

func (f *fakeContacts) Create(ctx context.Context, ownerID int64, c models.Contact) (*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	c.ID = 11
	c.UserID = ownerID
	f.created = c
	return &c, nil
}

func (f *fakeContacts) Get(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.contact, nil
}

func (f *fakeContacts) List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) (*models.ContactPage, error) {
	f.lastList = listCall{owner: ownerID, filter: filter, skip: skip, limit: limit}
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeContacts) UpcomingBirthdays(ctx context.Context, ownerID int64, days, skip, limit int) (*models.ContactPage, error) {
	f.lastList = listCall{owner: ownerID, skip: skip, limit: limit, days: days}
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeContacts) Update(ctx context.Context, ownerID, id int64, update models.ContactUpdate) (*models.Contact, error) {
	f.lastID = id
	f.update = update
	if f.err != nil {
		return nil, f.err
	}
	return f.contact, nil
}

func (f *fakeContacts) Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.contact, nil
}

func (f *fakeContacts) Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.Contact, error) {
	f.query = query
	f.lastList = listCall{owner: ownerID, limit: limit}
	if f.err != nil {
		return nil, f.err
	}
	return f.found, nil
}
