// ABOUTME: User record: the primary account entity for a podium site
// ABOUTME: Maintains the username/email identity indexes alongside each mutation

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hscpc/podium/internal/store"
)

// Store keys. The two index hashes are global singletons per database;
// they are only ever touched through the operations in this package.
const (
	recordPrefix = "user/"
	keyUsernames = "site/usernames" // username -> id
	keyEmails    = "site/emails"    // email -> id
)

// Record hash fields.
const (
	fieldUsername     = "username"
	fieldEmail        = "email"
	fieldRealname     = "realname"
	fieldPasswordHash = "passwordHash"
	fieldLevel        = "level"
)

// ErrInvalidLevel is returned by SetLevel for levels outside Root..Visitor.
// Callers treat it as a programming error, not a user-facing condition.
var ErrInvalidLevel = errors.New("invalid level")

// dummyHash keeps CheckPassword timing flat for accounts with no password
// set (prevents probing which usernames have completed signup).
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// User is one account record. Valid reports whether the account is usable
// for login: a non-empty username that resolves through the username index
// back to this record's ID.
//
// The multi-step index+record write sequences below are not atomic; a
// crash between steps can leave a dangling index entry. Accepted
// limitation of the data model, documented rather than fixed.
type User struct {
	ID           string
	Username     string
	Email        string
	Realname     string
	Level        Level
	Valid        bool
	passwordHash string

	st     *store.Store
	logger *slog.Logger
}

// Properties is the optional-field update set for SetProperties. Nil
// pointers leave the corresponding attribute untouched.
type Properties struct {
	Username *string
	Email    *string
	Realname *string
	Password *string
}

// Create generates a fresh unique ID and writes an unpopulated record:
// empty username/email/realname/password, level Pending. The returned user
// is not yet valid for login.
func Create(ctx context.Context, st *store.Store) (*User, error) {
	id, err := st.UniqueID()
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	u := &User{
		ID:     id,
		Level:  LevelPending,
		st:     st,
		logger: newLogger(id),
	}
	if err := u.persist(ctx); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	u.logger.Debug("user created")
	return u, nil
}

// ByID loads the user with the given ID, or store.ErrNotFound.
func ByID(ctx context.Context, st *store.Store, id string) (*User, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	return load(ctx, st, id)
}

// ByUsername resolves a username through the identity index and loads the
// record it points at. An empty username is reported as store.ErrNotFound
// outright.
func ByUsername(ctx context.Context, st *store.Store, username string) (*User, error) {
	if username == "" {
		return nil, store.ErrNotFound
	}
	id, err := st.HGet(ctx, keyUsernames, username)
	if err != nil {
		return nil, err
	}
	return load(ctx, st, id)
}

// ByEmail is the email-index counterpart of ByUsername.
func ByEmail(ctx context.Context, st *store.Store, email string) (*User, error) {
	if email == "" {
		return nil, store.ErrNotFound
	}
	id, err := st.HGet(ctx, keyEmails, email)
	if err != nil {
		return nil, err
	}
	return load(ctx, st, id)
}

// SetUsername claims a username for this user. First writer wins: if the
// name is already in the index (even mapped to this same user) the call is
// a silent no-op and the caller must re-check u.Username to detect the
// collision. A successful claim marks the user valid.
func (u *User) SetUsername(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	taken, err := u.st.HExists(ctx, keyUsernames, username)
	if err != nil {
		return fmt.Errorf("setting username: %w", err)
	}
	if taken {
		u.logger.Debug("username taken, ignoring", "username", username)
		return nil
	}

	if err := u.st.HSet(ctx, keyUsernames, username, u.ID); err != nil {
		return fmt.Errorf("setting username: %w", err)
	}
	u.Username = username
	u.Valid = true
	if err := u.persist(ctx); err != nil {
		return fmt.Errorf("setting username: %w", err)
	}

	u.logger.Debug("username set", "username", username)
	return nil
}

// SetEmail claims an email address, first-writer-wins like SetUsername.
// Claiming an email does not affect validity.
func (u *User) SetEmail(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	taken, err := u.st.HExists(ctx, keyEmails, email)
	if err != nil {
		return fmt.Errorf("setting email: %w", err)
	}
	if taken {
		u.logger.Debug("email taken, ignoring", "email", email)
		return nil
	}

	if err := u.st.HSet(ctx, keyEmails, email, u.ID); err != nil {
		return fmt.Errorf("setting email: %w", err)
	}
	u.Email = email
	if err := u.persist(ctx); err != nil {
		return fmt.Errorf("setting email: %w", err)
	}

	u.logger.Debug("email set", "email", email)
	return nil
}

// SetProperties applies a batch of attribute updates and persists the full
// record. Username and email go through their index-claiming setters, each
// independently skippable on collision. Realname overwrites
// unconditionally. Password is stored only as a bcrypt hash.
func (u *User) SetProperties(ctx context.Context, p Properties) error {
	if p.Username != nil {
		if err := u.SetUsername(ctx, *p.Username); err != nil {
			return err
		}
	}
	if p.Email != nil {
		if err := u.SetEmail(ctx, *p.Email); err != nil {
			return err
		}
	}
	if p.Realname != nil {
		u.Realname = *p.Realname
	}
	if p.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		u.passwordHash = string(hash)
	}
	if err := u.persist(ctx); err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// CheckPassword reports whether the candidate matches the stored hash.
// Accounts without a password always fail, at the same cost as a real
// comparison.
func (u *User) CheckPassword(candidate string) bool {
	if u.passwordHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(candidate))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(candidate)) == nil
}

// SetLevel assigns a role level and persists. Only Root through Visitor
// may be assigned; anything else is ErrInvalidLevel.
func (u *User) SetLevel(ctx context.Context, level Level) error {
	if !level.Assignable() {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	u.Level = level
	if err := u.persist(ctx); err != nil {
		return fmt.Errorf("setting level: %w", err)
	}

	u.logger.Debug("level set", "level", level.String())
	return nil
}

// Remove deletes the user's index entries and then the record itself,
// leaving no dangling index pointers. Already-missing index entries are
// tolerated, so Remove is idempotent.
func (u *User) Remove(ctx context.Context) error {
	if u.Username != "" {
		if err := u.st.HDel(ctx, keyUsernames, u.Username); err != nil {
			return fmt.Errorf("removing user: %w", err)
		}
	}
	if u.Email != "" {
		if err := u.st.HDel(ctx, keyEmails, u.Email); err != nil {
			return fmt.Errorf("removing user: %w", err)
		}
	}
	if err := u.st.Delete(ctx, recordPrefix+u.ID); err != nil {
		return fmt.Errorf("removing user: %w", err)
	}
	u.Valid = false

	u.logger.Info("user removed")
	return nil
}

// List enumerates every user record, loading each and filtering by level
// when a specific level is requested. Ordering follows store enumeration
// order and is unspecified.
func List(ctx context.Context, st *store.Store, filter Level) ([]*User, error) {
	keys, err := st.Keys(ctx, recordPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]*User, 0, len(keys))
	for _, key := range keys {
		u, err := load(ctx, st, strings.TrimPrefix(key, recordPrefix))
		if err != nil {
			// A record deleted between the scan and the load is not an
			// error for the listing as a whole.
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("listing users: %w", err)
		}
		if filter == LevelAny || u.Level == filter {
			users = append(users, u)
		}
	}

	return users, nil
}

// Count returns the number of user records without loading them.
func Count(ctx context.Context, st *store.Store) (int, error) {
	keys, err := st.Keys(ctx, recordPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return len(keys), nil
}

// load reads the record hash for id and derives validity: the stored
// username must be non-empty and round-trip through the username index to
// this same id.
func load(ctx context.Context, st *store.Store, id string) (*User, error) {
	data, err := st.HGetAll(ctx, recordPrefix+id)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           id,
		Username:     data[fieldUsername],
		Email:        data[fieldEmail],
		Realname:     data[fieldRealname],
		Level:        parseLevel(data[fieldLevel]),
		passwordHash: data[fieldPasswordHash],
		st:           st,
		logger:       newLogger(id),
	}

	if u.Username != "" {
		owner, err := st.HGet(ctx, keyUsernames, u.Username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		u.Valid = owner == id
	}

	return u, nil
}

// persist writes the full attribute hash for this user.
func (u *User) persist(ctx context.Context) error {
	key := recordPrefix + u.ID
	fields := map[string]string{
		fieldUsername:     u.Username,
		fieldEmail:        u.Email,
		fieldRealname:     u.Realname,
		fieldPasswordHash: u.passwordHash,
		fieldLevel:        strconv.Itoa(int(u.Level)),
	}
	for field, value := range fields {
		if err := u.st.HSet(ctx, key, field, value); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(id string) *slog.Logger {
	return slog.Default().With("component", "user", "id", id)
}
