package identity

import (
	"context"
	"log/slog"
	"time"
)

// Navigator performs a full navigation to a destination.
type Navigator interface {
	Navigate(ctx context.Context, dest Destination) error
}

type NavigatorFunc func(ctx context.Context, dest Destination) error

func (f NavigatorFunc) Navigate(ctx context.Context, dest Destination) error {
	return f(ctx, dest)
}

// ClientPhase evaluates identity after a page has rendered. ctx stands for the
// mounted page: cancelling it suppresses any pending navigation.
type ClientPhase struct {
	Storage   Storage
	Resolver  ProfileResolver
	Navigator Navigator
	// Delay postpones evaluation so a server redirect in flight can land
	// first. Correctness does not depend on it.
	Delay  time.Duration
	Logger *slog.Logger
}

// Run evaluates once for the page identified by current.
func (p *ClientPhase) Run(ctx context.Context, current Destination) Outcome {
	logger := loggerOrDefault(p.Logger)

	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Outcome{State: StateSuppressed, Err: ctx.Err()}
		case <-t.C:
		}
	}

	cred, hint := ReadStorage(p.Storage, logger)
	id, called, err := resolveIdentity(ctx, p.Resolver, cred, hint, logger)
	if called && err == nil && id.Role.Known() {
		if werr := WriteRole(p.Storage, id.Role); werr != nil {
			logger.Warn("cache resolved role", "err", werr, "role", id.Role)
		}
	}

	out := Outcome{
		Destination:    Route(id.Credential, id.Role),
		Identity:       id,
		ResolverCalled: called,
		Err:            err,
	}
	if out.Destination == current {
		out.State = StateSuppressed
		out.Err = ErrRedirectLoop
		return out
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("client phase unmounted before navigation", "destination", out.Destination)
		out.State = StateSuppressed
		out.Err = ctxErr
		return out
	}
	if p.Navigator == nil {
		out.State = StateSuppressed
		return out
	}

	out.State = StateRedirected
	if nerr := p.Navigator.Navigate(ctx, out.Destination); nerr != nil {
		logger.Error("navigate", "err", nerr, "destination", out.Destination)
		out.Err = nerr
	}
	logger.Debug("client phase",
		"state", out.State,
		"destination", out.Destination,
		"role", id.Role,
		"resolver_called", called,
	)
	return out
}
