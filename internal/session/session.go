// Package session tracks which users are logged in and their working ignore lists.
//
// The Store is shared by the feed poller and the command handler. Reads
// (IsLoggedIn, IsIgnored, LoggedInIdentities) take a shared lock on the
// session table; Login, Logout and AddIgnorePattern are additionally
// serialized per identity so that a read-modify-write of one user's ignore
// list never loses a concurrent update, while different users persist in
// parallel.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"feedrelay/internal/filter"
	"feedrelay/internal/keymutex"
	"feedrelay/internal/storage"
)

// Sentinel errors returned by Store.
var (
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrPersist           = errors.New("persist ignore list")
	ErrCorruptIgnoreList = errors.New("stored ignore list is corrupt")
)

// session is replaced, never mutated, once published in Store.sessions.
type session struct {
	patterns []filter.Pattern
}

// Store is the authoritative record of logged-in users.
type Store struct {
	lists storage.IgnoreLists
	log   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	perUser keymutex.Mutex
}

// New creates an empty Store that persists ignore lists in lists.
func New(lists storage.IgnoreLists, log *slog.Logger) *Store {
	return &Store{
		lists:    lists,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// Login marks identity as logged in and loads its stored ignore list.
// Logging in again reloads the list from storage.
func (s *Store) Login(ctx context.Context, identity string) error {
	unlock := s.perUser.Lock(identity)
	defer unlock()

	raw, err := s.lists.LoadIgnoreList(ctx, identity)
	if err != nil {
		return fmt.Errorf("load ignore list: %w", err)
	}
	patterns, err := filter.CompileAll(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptIgnoreList, err)
	}

	s.mu.Lock()
	s.sessions[identity] = &session{patterns: patterns}
	s.mu.Unlock()

	s.log.Info("user logged in", "identity", identity, "patterns", len(patterns))
	return nil
}

// Logout marks identity as logged out and drops its working ignore list.
func (s *Store) Logout(identity string) {
	unlock := s.perUser.Lock(identity)
	defer unlock()

	s.mu.Lock()
	_, ok := s.sessions[identity]
	delete(s.sessions, identity)
	s.mu.Unlock()

	if ok {
		s.log.Info("user logged out", "identity", identity)
	}
}

// IsLoggedIn reports whether identity has an active session.
func (s *Store) IsLoggedIn(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[identity]
	return ok
}

// LoggedInIdentities returns a sorted snapshot of the logged-in identities.
func (s *Store) LoggedInIdentities() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IsIgnored reports whether text matches any of identity's ignore patterns in full.
// Users without a session ignore nothing.
func (s *Store) IsIgnored(identity, text string) bool {
	s.mu.RLock()
	sess, ok := s.sessions[identity]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return filter.MatchAny(sess.patterns, text)
}

// IgnorePatterns returns the working ignore list of identity.
func (s *Store) IgnorePatterns(identity string) ([]string, error) {
	s.mu.RLock()
	sess, ok := s.sessions[identity]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return filter.Raw(sess.patterns), nil
}

// AddIgnorePattern validates pattern, appends it to identity's ignore list
// and persists the whole list before returning.
// The working list changes only if persisting succeeds.
func (s *Store) AddIgnorePattern(ctx context.Context, identity, pattern string) error {
	p, err := filter.Compile(pattern)
	if err != nil {
		return err
	}

	unlock := s.perUser.Lock(identity)
	defer unlock()

	s.mu.RLock()
	sess, ok := s.sessions[identity]
	s.mu.RUnlock()
	if !ok {
		return ErrNotLoggedIn
	}

	patterns := append(slices.Clip(sess.patterns), p)
	if err := s.lists.SaveIgnoreList(ctx, identity, filter.Raw(patterns)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.mu.Lock()
	s.sessions[identity] = &session{patterns: patterns}
	s.mu.Unlock()

	s.log.Info("ignore pattern added", "identity", identity, "pattern", pattern)
	return nil
}
