// Package model defines the domain types used across the application.
package model

import "time"

// FeedEntry is one canonical item of the activity feed.
// Entries are compared by value; two entries with the same link, title and
// author are the same entry.
type FeedEntry struct {
	Link   string
	Title  string
	Author string
}

// Account is a registered chat user.
type Account struct {
	Identity     string
	PasswordHash string
	CreatedAt    time.Time
}
