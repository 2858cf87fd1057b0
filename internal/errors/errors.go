// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Reasons an interactive credential resolution can fail.
var (
	ErrHandleNotFound    = errors.New("handle does not resolve to a public profile")
	ErrHandleInvalid     = errors.New("handle is not a valid account name")
	ErrTokenInvalid      = errors.New("token does not authenticate")
	ErrDuplicateHandle   = errors.New("handle already stored")
	ErrDuplicateToken    = errors.New("token already stored")
	ErrAttemptsExhausted = errors.New("too many failed attempts")
)

// ErrNoIdentity is returned by stores when no identity has been persisted yet.
var ErrNoIdentity = errors.New("no identity stored")

// AuthenticationFailure is returned when an identity cannot be resolved.
type AuthenticationFailure struct {
	Reason error
}

func (e *AuthenticationFailure) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Reason)
}

func (e *AuthenticationFailure) Unwrap() error { return e.Reason }

// ListingFailure is returned when the account repository listing does not succeed.
// It is fatal for a run.
type ListingFailure struct {
	StatusCode int
	Err        error
}

func (e *ListingFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("repository listing failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("repository listing failed: %v", e.Err)
}

func (e *ListingFailure) Unwrap() error { return e.Err }

// EnrichmentNotFound is returned when a repository search yields no usable result.
type EnrichmentNotFound struct {
	Repo string
}

func (e *EnrichmentNotFound) Error() string {
	return fmt.Sprintf("no search results for repository %q", e.Repo)
}

// StorageConstraintViolation wraps a unique or primary key violation reported by the store.
// Constraint names the violated column ("handle", "token", ...).
type StorageConstraintViolation struct {
	Constraint string
	Err        error
}

func (e *StorageConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %s: %v", e.Constraint, e.Err)
}

func (e *StorageConstraintViolation) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an EnrichmentNotFound.
func IsNotFound(err error) bool {
	var nf *EnrichmentNotFound
	return errors.As(err, &nf)
}
