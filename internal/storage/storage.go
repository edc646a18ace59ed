// Package storage defines the persistence interfaces and their implementations.
package storage

import (
	"context"
	"errors"

	"feedrelay/internal/model"
)

// Sentinel errors returned by account storage.
var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// Accounts persists registered users and their password hashes.
type Accounts interface {
	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, identity string) (*model.Account, error)
	AccountExists(ctx context.Context, identity string) (bool, error)
}

// IgnoreLists persists each user's ordered list of ignore patterns.
// A user with nothing stored has an empty list.
// Save replaces the whole list.
type IgnoreLists interface {
	LoadIgnoreList(ctx context.Context, identity string) ([]string, error)
	SaveIgnoreList(ctx context.Context, identity string, patterns []string) error
}

// Storage is the interface for all database persistence operations.
type Storage interface {
	Accounts
	IgnoreLists

	Close() error
}
