package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRecord is one entry of the users file
type UserRecord struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

type usersFile struct {
	Users []UserRecord `yaml:"users"`
}

// UserStore is the static user table
type UserStore struct {
	users map[string]UserRecord
}

// LoadUsers reads the YAML users file at path
func LoadUsers(path string) (*UserStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	return ParseUsers(data)
}

// ParseUsers parses a YAML user table:
//
//	users:
//	  - username: alice
//	    password_hash: argon2id$...$...
//	    role: admin
func ParseUsers(data []byte) (*UserStore, error) {
	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	store := &UserStore{users: make(map[string]UserRecord, len(file.Users))}
	for i, u := range file.Users {
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return nil, fmt.Errorf("users[%d]: username is required", i)
		}
		if !strings.HasPrefix(u.PasswordHash, hashPrefix+"$") {
			return nil, fmt.Errorf("user %s: password_hash must be an %s hash", u.Username, hashPrefix)
		}
		if _, dup := store.users[u.Username]; dup {
			return nil, fmt.Errorf("user %s is listed twice", u.Username)
		}
		if u.Role == "" {
			u.Role = "user"
		}
		store.users[u.Username] = u
	}
	return store, nil
}

// Len returns the number of users
func (s *UserStore) Len() int {
	return len(s.users)
}

// Authenticate checks a username and password against the table
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	record, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return nil, ErrInvalidCredentials
	}

	valid, err := VerifyPassword(record.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	return &User{Username: record.Username, Role: record.Role}, nil
}
