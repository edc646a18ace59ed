// Package credentials stores and verifies user passwords.
//
// Only bcrypt hashes are persisted; a plaintext password lives no longer
// than the Register or Verify call it was passed to.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"feedrelay/internal/model"
	"feedrelay/internal/storage"
)

// Sentinel errors returned by Store.
var (
	ErrExists   = errors.New("user already exists")
	ErrNotFound = errors.New("user does not exist")
	ErrMismatch = errors.New("invalid password")
)

// Store is the credential store keyed by identity.
type Store struct {
	accounts storage.Accounts
	cost     int
}

// New returns a Store persisting hashes in accounts.
func New(accounts storage.Accounts) *Store {
	return &Store{accounts: accounts, cost: bcrypt.DefaultCost}
}

// NewWithCost returns a Store using the given bcrypt cost (useful for testing).
func NewWithCost(accounts storage.Accounts, cost int) *Store {
	return &Store{accounts: accounts, cost: cost}
}

// Exists reports whether identity has registered.
func (s *Store) Exists(ctx context.Context, identity string) (bool, error) {
	return s.accounts.AccountExists(ctx, identity)
}

// Register hashes password and creates the credential entry for identity.
func (s *Store) Register(ctx context.Context, identity, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Create(ctx, identity, string(hash))
}

// Create stores an already hashed password for identity.
func (s *Store) Create(ctx context.Context, identity, hash string) error {
	err := s.accounts.CreateAccount(ctx, &model.Account{Identity: identity, PasswordHash: hash})
	if errors.Is(err, storage.ErrAccountExists) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Verify checks password against the stored hash of identity.
// It returns ErrNotFound or ErrMismatch when authentication fails.
func (s *Store) Verify(ctx context.Context, identity, password string) error {
	a, err := s.accounts.GetAccount(ctx, identity)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
