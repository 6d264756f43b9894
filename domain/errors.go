package domain

import "errors"

// Sentinel errors shared by every repository implementation. Callers branch
// on these with errors.Is; "record does not exist" is a normal outcome here,
// not an exceptional one.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record already exists")
	ErrForbidden = errors.New("forbidden")
)
