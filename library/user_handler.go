package library

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// UserHandler coordinates user persistence and login. It owns a
// UsernameCache handed in at construction: Setup refreshes it from storage,
// and create/delete/undo-delete keep it current so Login can reject unknown
// usernames without a query.
type UserHandler struct {
	h     handler[*User]
	v     *Validator
	cache *UsernameCache
}

func NewUserHandler(repo Repository, v *Validator, cache *UsernameCache) *UserHandler {
	return &UserHandler{
		v:     v,
		cache: cache,
		h: handler[*User]{
			repo:   repo,
			table:  TableUsers,
			encode: (*User).fields,
			decode: func(r Row) (*User, error) { return decodeUser(v, r) },
			check:  (*User).validate,
			id:     (*User).ID,
			setID:  func(u *User, id int) { u.id = id },
		},
	}
}

// Setup refreshes the username cache from storage. Call it once after
// construction and again whenever the cache should be rebuilt wholesale.
func (uh *UserHandler) Setup() error {
	rows, err := uh.h.repo.FetchAll(TableUsers, false)
	if err != nil {
		return uh.h.storage("fetch all", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Str("username"))
	}
	uh.cache.Reset(names)
	return nil
}

// Create hashes the password and persists a new user. Usernames must be
// unique among non-deleted users.
func (uh *UserHandler) Create(username, password string, userType UserType, allowedRentals int) (*User, error) {
	if strings.TrimSpace(password) == "" {
		return nil, &ValidationError{Field: "password", Err: errors.New("must not be blank")}
	}
	if uh.cache.Contains(username) {
		return nil, invalid("username", ErrInvalidUsername, "%q is already taken", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &ValidationError{Field: "password", Err: err}
	}
	u, err := NewUser(uh.v, username, string(hash), userType, allowedRentals)
	if err != nil {
		return nil, err
	}
	created, err := uh.h.create(u)
	if err != nil {
		return nil, err
	}
	uh.cache.Add(created.Username())
	return created, nil
}

// Login verifies a username/password pair. It fails closed: an unknown
// username returns false without touching storage, and a wrong password
// returns false rather than an error.
func (uh *UserHandler) Login(username, password string) (bool, error) {
	if !uh.cache.Contains(username) {
		return false, nil
	}
	rows, err := uh.h.repo.FetchAll(TableUsers, false)
	if err != nil {
		return false, uh.h.storage("fetch all", err)
	}
	for _, row := range rows {
		if row.Str("username") != username {
			continue
		}
		match := bcrypt.CompareHashAndPassword([]byte(row.Str("password_hash")), []byte(password))
		return match == nil, nil
	}
	// Cache was stale; drop the entry and fail closed.
	uh.cache.Remove(username)
	return false, nil
}

func (uh *UserHandler) GetByID(id int, includeDeleted bool) (*User, error) {
	return uh.h.getByID(id, includeDeleted)
}

func (uh *UserHandler) List(includeDeleted bool) ([]*User, error) {
	return uh.h.list(includeDeleted)
}

// Update persists a changed user. A rename keeps the uniqueness invariant:
// the new username must not be taken by another non-deleted user, and the
// cache swaps the old name for the new one so Login follows the rename.
func (uh *UserHandler) Update(u *User) error {
	prev, err := uh.h.getByID(u.ID(), true)
	if err != nil {
		return err
	}
	renamed := prev.Username() != u.Username()
	if renamed && uh.cache.Contains(u.Username()) {
		return invalid("username", ErrInvalidUsername, "%q is already taken", u.Username())
	}
	if err := uh.h.update(u); err != nil {
		return err
	}
	if renamed && !u.Deleted() {
		uh.cache.Remove(prev.Username())
		uh.cache.Add(u.Username())
	}
	return nil
}

// Delete soft-deletes the user and drops the username from the cache, so
// the name no longer counts as taken.
func (uh *UserHandler) Delete(id int) error {
	u, err := uh.h.getByID(id, true)
	if err != nil {
		return err
	}
	if err := uh.h.softDelete(id, true); err != nil {
		return err
	}
	uh.cache.Remove(u.Username())
	return nil
}

// UndoDelete restores a soft-deleted user. It refuses to resurrect a
// username that has been taken by another user in the meantime.
func (uh *UserHandler) UndoDelete(id int) error {
	u, err := uh.h.getByID(id, true)
	if err != nil {
		return err
	}
	if u.Deleted() && uh.cache.Contains(u.Username()) {
		return invalid("username", ErrInvalidUsername, "%q is already taken", u.Username())
	}
	if err := uh.h.softDelete(id, false); err != nil {
		return err
	}
	uh.cache.Add(u.Username())
	return nil
}

// HardDelete permanently removes the user and the cached username.
func (uh *UserHandler) HardDelete(id int) error {
	u, err := uh.h.getByID(id, true)
	if err != nil {
		return err
	}
	if err := uh.h.hardDelete(id); err != nil {
		return err
	}
	if !u.Deleted() {
		uh.cache.Remove(u.Username())
	}
	return nil
}
