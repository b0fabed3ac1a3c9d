package identity

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type outcomeContextKey struct{}

// PhaseHeader tells the rendered page which way the server phase went.
const PhaseHeader = "X-Identity-Phase"

func WithOutcome(ctx context.Context, o Outcome) context.Context {
	return context.WithValue(ctx, outcomeContextKey{}, o)
}

func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	o, ok := ctx.Value(outcomeContextKey{}).(Outcome)
	return o, ok
}

// ServerPhase runs before a page is produced and redirects when the visitor's
// destination can be decided from the request alone or one profile lookup.
type ServerPhase struct {
	Resolver ProfileResolver
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewServerPhase(resolver ProfileResolver, timeout time.Duration, logger *slog.Logger) *ServerPhase {
	return &ServerPhase{
		Resolver: resolver,
		Timeout:  timeout,
		Logger:   logger,
	}
}

// Evaluate reads the request, resolves the role if needed and decides between
// redirecting and letting the page render. It never writes the role cache.
func (p *ServerPhase) Evaluate(r *http.Request) Outcome {
	logger := loggerOrDefault(p.Logger)
	cred, hint := ReadRequest(r)

	ctx := r.Context()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	id, called, err := resolveIdentity(ctx, p.Resolver, cred, hint, logger)

	out := Outcome{
		Destination:    Route(id.Credential, id.Role),
		Identity:       id,
		ResolverCalled: called,
		Err:            err,
	}
	switch {
	case !id.Credential.Present():
		// Cookies may simply not reach the server; the rendered page's
		// client phase reads persisted storage before settling on register.
		out.State = StateFallthrough
	case out.Destination == DestHome:
		out.State = StateFallthrough
	case out.Destination.Path() == r.URL.Path:
		out.State = StateFallthrough
		out.Err = ErrRedirectLoop
	default:
		out.State = StateRedirected
	}
	logger.Debug("server phase",
		"path", r.URL.Path,
		"state", out.State,
		"destination", out.Destination,
		"role", id.Role,
		"resolver_called", called,
	)
	return out
}

// Middleware wraps an entry route. Non-navigation methods pass straight through.
func (p *ServerPhase) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		out := p.Evaluate(r)
		if out.State == StateRedirected {
			http.Redirect(w, r, out.Destination.Path(), http.StatusFound)
			return
		}
		w.Header().Set(PhaseHeader, string(out.State))
		next.ServeHTTP(w, r.WithContext(WithOutcome(r.Context(), out)))
	})
}
