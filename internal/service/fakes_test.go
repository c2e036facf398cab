package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/accounts-api/internal/apperror"
	"github.com/sakif/accounts-api/internal/model"
	"github.com/sakif/accounts-api/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================
//
// memStore implements repository.Store with maps. WithinTx works on a deep
// copy and swaps it in only when the callback succeeds, which is enough to
// observe all-or-nothing behaviour from the services.

type memData struct {
	users    map[int64]model.User
	profiles map[int64]model.Profile
	tokens   map[int64]model.Token // by user id

	nextUserID    int64
	nextProfileID int64
}

func (d *memData) clone() *memData {
	c := &memData{
		users:         make(map[int64]model.User, len(d.users)),
		profiles:      make(map[int64]model.Profile, len(d.profiles)),
		tokens:        make(map[int64]model.Token, len(d.tokens)),
		nextUserID:    d.nextUserID,
		nextProfileID: d.nextProfileID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	return c
}

type memStore struct {
	mu   sync.Mutex
	data *memData

	// hideExisting makes the Exists* checks lie, so a duplicate reaches
	// the insert the way a concurrent registration would.
	hideExisting bool
	// failProfileCreate makes profile inserts fail.
	failProfileCreate error
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{data: &memData{
		users:    map[int64]model.User{},
		profiles: map[int64]model.Profile{},
		tokens:   map[int64]model.Token{},
	}}
}

func (s *memStore) Users() repository.UserRepository       { return memUsers{s} }
func (s *memStore) Profiles() repository.ProfileRepository { return memProfiles{s} }
func (s *memStore) Tokens() repository.TokenRepository     { return memTokens{s} }
func (s *memStore) Ping(context.Context) error             { return nil }

func (s *memStore) WithinTx(ctx context.Context, fn func(context.Context, repository.Store) error) error {
	s.mu.Lock()
	tx := &memStore{
		data:              s.data.clone(),
		hideExisting:      s.hideExisting,
		failProfileCreate: s.failProfileCreate,
	}
	s.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", "email")
		}
		if existing.Username == u.Username {
			return apperror.Conflict("user", "username")
		}
	}
	r.s.data.nextUserID++
	u.ID = r.s.data.nextUserID
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return &u, nil
}

func (r memUsers) find(match func(model.User) bool) (*model.User, bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if match(u) {
			return &u, true
		}
	}
	return nil, false
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := r.find(func(u model.User) bool { return u.Email == email }); ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", email)
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := r.find(func(u model.User) bool { return u.Username == username }); ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", username)
}

func (r memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if r.s.hideExisting {
		return false, nil
	}
	_, ok := r.find(func(u model.User) bool { return u.Email == email })
	return ok, nil
}

func (r memUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	if r.s.hideExisting {
		return false, nil
	}
	_, ok := r.find(func(u model.User) bool { return u.Username == username })
	return ok, nil
}

func (r memUsers) List(context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]model.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r memUsers) UpdateNames(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.users[u.ID]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(u.ID, 10))
	}
	stored.FirstName, stored.LastName = u.FirstName, u.LastName
	r.s.data.users[u.ID] = stored
	return nil
}

// Delete mirrors the ON DELETE CASCADE of the real schema.
func (r memUsers) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[id]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(r.s.data.users, id)
	delete(r.s.data.tokens, id)
	for pid, p := range r.s.data.profiles {
		if p.UserID == id {
			delete(r.s.data.profiles, pid)
		}
	}
	return nil
}

// --- profiles ---

type memProfiles struct{ s *memStore }

func (r memProfiles) Create(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failProfileCreate != nil {
		return r.s.failProfileCreate
	}
	for _, existing := range r.s.data.profiles {
		if existing.UserID == p.UserID {
			return apperror.Conflict("profile", "user_id")
		}
	}
	r.s.data.nextProfileID++
	p.ID = r.s.data.nextProfileID
	r.s.data.profiles[p.ID] = *p
	return nil
}

func (r memProfiles) withUser(p model.Profile) *model.ProfileWithUser {
	u := r.s.data.users[p.UserID]
	return &model.ProfileWithUser{Profile: p, Username: u.Username, Email: u.Email, DateJoined: u.DateJoined}
}

func (r memProfiles) GetByID(_ context.Context, id int64) (*model.ProfileWithUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	return r.withUser(p), nil
}

func (r memProfiles) GetByUserID(_ context.Context, userID int64) (*model.ProfileWithUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.profiles {
		if p.UserID == userID {
			return r.withUser(p), nil
		}
	}
	return nil, apperror.NotFound("profile", strconv.FormatInt(userID, 10))
}

func (r memProfiles) List(context.Context) ([]model.ProfileWithUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.ProfileWithUser, 0, len(r.s.data.profiles))
	for _, p := range r.s.data.profiles {
		out = append(out, *r.withUser(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update copies only the editable columns, like the SQL statement does.
func (r memProfiles) Update(_ context.Context, p *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.profiles[p.ID]
	if !ok {
		return apperror.NotFound("profile", strconv.FormatInt(p.ID, 10))
	}
	stored.DisplayName = p.DisplayName
	stored.Bio = p.Bio
	stored.Location = p.Location
	stored.Website = p.Website
	stored.GitHub = p.GitHub
	stored.Twitter = p.Twitter
	r.s.data.profiles[p.ID] = stored
	return nil
}

func (r memProfiles) DeleteByUserID(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.data.profiles {
		if p.UserID == userID {
			delete(r.s.data.profiles, id)
		}
	}
	return nil
}

// --- tokens ---

type memTokens struct{ s *memStore }

func (r memTokens) GetOrCreate(_ context.Context, userID int64, key string) (*model.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.data.tokens[userID]; ok {
		return &t, nil
	}
	t := model.Token{Key: key, UserID: userID, Created: time.Now().UTC()}
	r.s.data.tokens[userID] = t
	return &t, nil
}

func (r memTokens) GetByKey(_ context.Context, key string) (*model.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tokens {
		if t.Key == key {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("token", "<redacted>")
}

func (r memTokens) DeleteByUserID(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.tokens, userID)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
