package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type State string

const (
	// StateRedirected means a navigation side effect was issued.
	StateRedirected State = "redirected"
	// StateFallthrough lets the requested page render; the client phase is
	// the remaining fallback.
	StateFallthrough State = "fallthrough"
	// StateSuppressed means resolution finished but navigating was skipped,
	// either by the loop guard or because the page went away.
	StateSuppressed State = "suppressed"
)

// Outcome is the terminal state of one phase evaluation.
type Outcome struct {
	State          State
	Destination    Destination
	Identity       ResolvedIdentity
	ResolverCalled bool
	// Err records why the evaluation degraded or was suppressed. It is never
	// surfaced to the visitor.
	Err error
}

// resolveIdentity consults the resolver at most once, and only when the role
// is unknown and a credential exists.
func resolveIdentity(ctx context.Context, resolver ProfileResolver, cred Credential, hint RoleHint, logger *slog.Logger) (ResolvedIdentity, bool, error) {
	id := ResolvedIdentity{Credential: cred, Role: hint}
	if hint.Known() || !cred.Present() || resolver == nil {
		return id, false, nil
	}
	role, err := callResolver(ctx, resolver, cred)
	if err != nil {
		logger.Warn("resolve profile", "err", err)
		id.Role = RoleUnknown
		return id, true, err
	}
	id.Role = role
	return id, true, nil
}

func callResolver(ctx context.Context, resolver ProfileResolver, cred Credential) (role RoleHint, err error) {
	defer func() {
		if p := recover(); p != nil {
			role, err = RoleUnknown, fmt.Errorf("%w: panic: %v", ErrProfileUnavailable, p)
		}
	}()
	role, err = resolver.Resolve(ctx, cred)
	if err != nil {
		if !errors.Is(err, ErrProfileUnavailable) {
			err = fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
		}
		return RoleUnknown, err
	}
	return ParseRoleHint(string(role)), nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
