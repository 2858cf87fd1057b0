// internal/credentials/resolver.go

// Package credentials resolves the single GitHub identity the enricher acts as.
// A stored identity is returned as-is; otherwise the user is prompted and the
// answers are verified against GitHub before being persisted.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)

// IdentityStore is the storage the resolver reads and writes.
type IdentityStore interface {
	GetIdentity(ctx context.Context) (model.Identity, error)
	CreateIdentity(ctx context.Context, id model.Identity) error
}

// Validator checks handles and tokens against GitHub.
type Validator interface {
	ProbeProfile(ctx context.Context, handle string) error
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Prompter collects answers from the user. Implementations return io.EOF
// when input is closed.
type Prompter interface {
	PromptHandle(ctx context.Context) (string, error)
	PromptToken(ctx context.Context) (string, error)
	Notify(msg string)
}

// Resolver implements cache-first identity resolution.
type Resolver struct {
	store       IdentityStore
	validator   Validator
	prompter    Prompter
	maxAttempts int
	logger      *slog.Logger
}

// NewResolver creates a Resolver. maxAttempts below one is treated as one.
func NewResolver(store IdentityStore, validator Validator, prompter Prompter, maxAttempts int, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:       store,
		validator:   validator,
		prompter:    prompter,
		maxAttempts: max(maxAttempts, 1),
		logger:      logger.With("component", "credentials"),
	}
}

// Resolve returns the stored identity, or runs the interactive flow to create one.
// Failures are reported as *errors.AuthenticationFailure.
func (r *Resolver) Resolve(ctx context.Context) (model.Identity, error) {
	id, err := r.store.GetIdentity(ctx)
	if err == nil {
		r.logger.Debug("Using stored identity", "handle", id.Handle)
		return id, nil
	}
	if !errors.Is(err, custom_errors.ErrNoIdentity) {
		return model.Identity{}, fmt.Errorf("failed to read stored identity: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		id, err := r.attempt(ctx)
		if err == nil {
			r.logger.Info("Identity stored", "handle", id.Handle)
			return id, nil
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return model.Identity{}, &custom_errors.AuthenticationFailure{Reason: err}
		}

		lastErr = err
		r.logger.Warn("Authentication attempt failed", "attempt", attempt, "max_attempts", r.maxAttempts, "error", err)
		r.prompter.Notify(diagnostic(err))
	}

	return model.Identity{}, &custom_errors.AuthenticationFailure{
		Reason: errors.Join(custom_errors.ErrAttemptsExhausted, lastErr),
	}
}

func (r *Resolver) attempt(ctx context.Context) (model.Identity, error) {
	handle, err := r.prompter.PromptHandle(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	if !handlePattern.MatchString(handle) {
		return model.Identity{}, fmt.Errorf("%q: %w", handle, custom_errors.ErrHandleInvalid)
	}
	if err := r.validator.ProbeProfile(ctx, handle); err != nil {
		return model.Identity{}, err
	}

	token, err := r.prompter.PromptToken(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	login, err := r.validator.ValidateToken(ctx, token)
	if err != nil {
		return model.Identity{}, err
	}
	if !strings.EqualFold(login, handle) {
		r.logger.Warn("Token belongs to a different account", "handle", handle, "login", login)
	}

	id := model.Identity{Handle: handle, Token: token}
	if err := r.store.CreateIdentity(ctx, id); err != nil {
		var violation *custom_errors.StorageConstraintViolation
		if errors.As(err, &violation) {
			switch violation.Constraint {
			case "token":
				return model.Identity{}, fmt.Errorf("%w: %v", custom_errors.ErrDuplicateToken, err)
			default:
				return model.Identity{}, fmt.Errorf("%w: %v", custom_errors.ErrDuplicateHandle, err)
			}
		}
		return model.Identity{}, fmt.Errorf("failed to store identity: %w", err)
	}
	return id, nil
}

func diagnostic(err error) string {
	switch {
	case errors.Is(err, custom_errors.ErrHandleInvalid):
		return "That is not a valid GitHub username. Please try again."
	case errors.Is(err, custom_errors.ErrHandleNotFound):
		return "No GitHub profile exists for that username. Please try again."
	case errors.Is(err, custom_errors.ErrTokenInvalid):
		return "The token was rejected by GitHub. Please try again."
	case errors.Is(err, custom_errors.ErrDuplicateHandle):
		return "That username is already stored. Please try again."
	case errors.Is(err, custom_errors.ErrDuplicateToken):
		return "That token is already stored. Please try again."
	default:
		return fmt.Sprintf("Authentication failed: %v. Please try again.", err)
	}
}
