package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/contacts/internal/common"
	"github.com/dmitrijs2005/contacts/internal/dbx"
	"github.com/dmitrijs2005/contacts/internal/server/models"
	contactsrepo "github.com/dmitrijs2005/contacts/internal/server/repositories/contacts"
	usersrepo "github.com/dmitrijs2005/contacts/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTxDB returns an in-memory database; the fakes ignore it but
// dbx.WithTx needs a real transaction to begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- users ---

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	createErr error
	getErr    error
	getByID   int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.nextID++
	c := cloneUser(u)
	c.ID = f.nextID
	c.IsActive = true
	c.CreatedAt = time.Now().UTC()
	f.byID[c.ID] = c
	return cloneUser(c), nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	f.getByID++
	f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (f *fakeUsers) mutate(id int64, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	now := time.Now().UTC()
	u.UpdatedAt = &now
	return nil
}

func (f *fakeUsers) MarkVerified(ctx context.Context, id int64) error {
	return f.mutate(id, func(u *models.User) {
		u.IsVerified = true
		u.VerificationToken = nil
	})
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return f.mutate(id, func(u *models.User) { u.PasswordHash = hash })
}

func (f *fakeUsers) UpdateAvatar(ctx context.Context, id int64, url string) (*models.User, error) {
	if err := f.mutate(id, func(u *models.User) { u.Avatar = &url }); err != nil {
		return nil, err
	}
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) delete(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

func (f *fakeUsers) get(id int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneUser(f.byID[id])
}

// --- contacts ---

type fakeContacts struct {
	mu        sync.Mutex
	rows      map[int64]models.Contact
	nextID    int64
	createErr error
	listErr   error
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{rows: map[int64]models.Contact{}}
}

func (f *fakeContacts) emailTaken(ownerID, exceptID int64, email string) bool {
	for id, c := range f.rows {
		if id != exceptID && c.UserID == ownerID && c.Email == email {
			return true
		}
	}
	return false
}

func (f *fakeContacts) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.emailTaken(c.UserID, 0, c.Email) {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	stored := *c
	stored.ID = f.nextID
	f.rows[stored.ID] = stored
	return &stored, nil
}

func (f *fakeContacts) GetByID(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (f *fakeContacts) ExistsByEmail(ctx context.Context, ownerID int64, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emailTaken(ownerID, 0, email), nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f *fakeContacts) selectSorted(match func(models.Contact) bool) []models.Contact {
	out := make([]models.Contact, 0)
	for _, c := range f.rows {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func page(all []models.Contact, skip, limit int) []models.Contact {
	if skip >= len(all) {
		return []models.Contact{}
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end]
}

func filterMatch(ownerID int64, filter models.ContactFilter) func(models.Contact) bool {
	return func(c models.Contact) bool {
		return c.UserID == ownerID &&
			containsFold(c.FirstName, filter.FirstName) &&
			containsFold(c.LastName, filter.LastName) &&
			containsFold(c.Email, filter.Email)
	}
}

func birthdayMatch(ownerID int64, w models.BirthdayWindow) func(models.Contact) bool {
	return func(c models.Contact) bool {
		return c.UserID == ownerID && c.Birthday != nil && w.Matches(*c.Birthday)
	}
}

func (f *fakeContacts) List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return page(f.selectSorted(filterMatch(ownerID, filter)), skip, limit), nil
}

func (f *fakeContacts) Count(ctx context.Context, ownerID int64, filter models.ContactFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.selectSorted(filterMatch(ownerID, filter)))), nil
}

func (f *fakeContacts) UpcomingBirthdays(ctx context.Context, ownerID int64, w models.BirthdayWindow, skip, limit int) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.selectSorted(birthdayMatch(ownerID, w)), skip, limit), nil
}

func (f *fakeContacts) CountUpcomingBirthdays(ctx context.Context, ownerID int64, w models.BirthdayWindow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.selectSorted(birthdayMatch(ownerID, w)))), nil
}

func (f *fakeContacts) Update(ctx context.Context, ownerID, id int64, u models.ContactUpdate) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	if u.Email != nil && f.emailTaken(ownerID, id, *u.Email) {
		return nil, common.ErrorAlreadyExists
	}
	updated := u.Apply(c)
	f.rows[id] = updated
	return &updated, nil
}

func (f *fakeContacts) Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, id)
	return &c, nil
}

func (f *fakeContacts) Search(ctx context.Context, ownerID int64, q string, limit int) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.selectSorted(func(c models.Contact) bool {
		return c.UserID == ownerID && (containsFold(c.FirstName, q) || containsFold(c.LastName, q) || containsFold(c.Email, q))
	})
	return page(all, 0, limit), nil
}

// --- repo manager ---

type fakeRepoManager struct {
	users    *fakeUsers
	contacts *fakeContacts
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contactsrepo.Repository { return m.contacts }

// --- session cache ---

type fakeCache struct {
	mu           sync.Mutex
	resetTokens  map[string]string
	profiles     map[int64]models.User
	profileHits  int
	invalidated  []int64
	profileErr   error
	putResetErr  error
	lastResetTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{resetTokens: map[string]string{}, profiles: map[int64]models.User{}}
}

func (c *fakeCache) PutResetToken(ctx context.Context, token, email string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putResetErr != nil {
		return c.putResetErr
	}
	c.resetTokens[token] = email
	c.lastResetTTL = ttl
	return nil
}

func (c *fakeCache) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	email, ok := c.resetTokens[token]
	if !ok {
		return "", common.ErrorNotFound
	}
	delete(c.resetTokens, token)
	return email, nil
}

func (c *fakeCache) PutProfile(ctx context.Context, u *models.User, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[u.ID] = *u
	return nil
}

func (c *fakeCache) Profile(ctx context.Context, id int64) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileErr != nil {
		return nil, c.profileErr
	}
	u, ok := c.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c.profileHits++
	return &u, nil
}

func (c *fakeCache) InvalidateProfile(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func (c *fakeCache) cached(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.profiles[id]
	return ok
}

// --- uploader & mailer ---

type fakeUploader struct {
	url         string
	err         error
	calls       int
	contentType string
}

func (u *fakeUploader) Upload(ctx context.Context, userID int64, data []byte, contentType string) (string, error) {
	u.calls++
	u.contentType = contentType
	return u.url, u.err
}

type sentMail struct {
	kind, email, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendVerification(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"verify", email, link})
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{"reset", email, link})
	return nil
}

// lastToken returns the token query value of the most recent link of kind.
func (m *fakeMailer) lastToken(t *testing.T, kind string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			_, token, ok := strings.Cut(m.sent[i].link, "?token=")
			require.True(t, ok, m.sent[i].link)
			return token
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return ""
}
