package domain

import "context"

// Directory is the managed user-directory service sitting behind this core.
// It owns credential storage and user attributes; this core only ever needs
// a stable user ID for a login identifier.
type Directory interface {
	// ResolveOrCreateUser returns the user ID for the given identifier,
	// creating the user if it does not exist yet. Absence is not an error
	// here; only directory failures are.
	ResolveOrCreateUser(ctx context.Context, input LoginInput) (string, error)
}

// ConfirmationSender delivers a short-lived confirmation code to one
// destination (an email address or a phone number). Fire and forget: the
// orchestrator does not retry a one-shot code.
type ConfirmationSender interface {
	SendConfirmationCode(ctx context.Context, destination, code string) error
}
