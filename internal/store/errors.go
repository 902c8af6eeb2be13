package store

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrListingFull     = errors.New("listing is full")
	ErrListingInactive = errors.New("listing is not active")
	ErrNotPending      = errors.New("checkout session is not pending")
	ErrEmailTaken      = errors.New("email already registered")
)

// sqliteTime matches the layout SQLite's datetime() produces, so stored
// timestamps compare correctly against datetime('now').
const sqliteTime = "2006-01-02 15:04:05"
