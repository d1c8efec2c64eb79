// Package identity provides user lookup and credential checks.
// The Directory interface is the port other packages depend on; the
// StaticDirectory implementation backs it with a fixed in-memory user list.
package identity

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound is returned by a Directory when no user has the given username.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrInvalidCredentials is returned when the username or password does not match.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrInvalidUser is returned when a user record is missing required fields.
	ErrInvalidUser = errors.New("identity: invalid user record")
)

// User is a credential record.
// Exactly one of Password (plaintext) or PasswordHash (bcrypt) is expected to be set.
type User struct {
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	DisplayName  string `json:"displayName"`
	IsAdmin      bool   `json:"isAdmin"`
}

// Profile is the public view of a User, without credentials.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Profile returns the user's public fields.
func (u User) Profile() Profile {
	return Profile{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
	}
}

// CheckPassword reports whether password matches the user's credential.
func (u User) CheckPassword(password string) bool {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	if u.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// Directory looks up users by username.
type Directory interface {
	// Lookup returns the user with the given username.
	// Returns ErrUserNotFound if no such user exists.
	Lookup(ctx context.Context, username string) (User, error)
}

// Authenticate resolves username through dir and checks password against it.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func Authenticate(ctx context.Context, dir Directory, username, password string) (User, error) {
	u, err := dir.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("identity: lookup %q: %w", username, err)
	}
	if !u.CheckPassword(password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Compile-time check that StaticDirectory implements Directory.
var _ Directory = (*StaticDirectory)(nil)

// StaticDirectory is an immutable in-memory Directory.
type StaticDirectory struct {
	users map[string]User
}

// NewStaticDirectory creates a directory from users.
// Later entries replace earlier ones with the same username.
func NewStaticDirectory(users []User) *StaticDirectory {
	m := make(map[string]User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &StaticDirectory{users: m}
}

// Lookup returns the user with the given username.
func (d *StaticDirectory) Lookup(_ context.Context, username string) (User, error) {
	u, ok := d.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Len returns the number of users in the directory.
func (d *StaticDirectory) Len() int {
	return len(d.users)
}

// DefaultUsers returns the built-in demo accounts.
func DefaultUsers() []User {
	return []User{
		{Username: "admin", Password: "admin123", DisplayName: "Administrator", IsAdmin: true},
		{Username: "alice", Password: "alice123", DisplayName: "Alice", IsAdmin: false},
		{Username: "bob", Password: "bob123", DisplayName: "Bob", IsAdmin: false},
	}
}

// LoadFile reads a JSON array of users from path and returns a StaticDirectory.
func LoadFile(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("identity: read users file: %w", err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("identity: parse users file: %w", err)
	}

	for i, u := range users {
		if u.Username == "" {
			return nil, fmt.Errorf("%w: entry %d has no username", ErrInvalidUser, i)
		}
		if u.Password == "" && u.PasswordHash == "" {
			return nil, fmt.Errorf("%w: user %q has no password", ErrInvalidUser, u.Username)
		}
		if u.DisplayName == "" {
			users[i].DisplayName = u.Username
		}
	}

	return NewStaticDirectory(users), nil
}
