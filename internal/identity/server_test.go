package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serveEntry(t *testing.T, p *ServerPhase, r *http.Request) (*httptest.ResponseRecorder, *Outcome) {
	t.Helper()
	var rendered *Outcome
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o, ok := OutcomeFromContext(r.Context()); ok {
			rendered = &o
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	p.Middleware(page).ServeHTTP(rec, r)
	return rec, rendered
}

func TestServerPhaseEmployerHint(t *testing.T) {
	res := &fakeResolver{}
	p := NewServerPhase(res, time.Second, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "t1"})
	r.AddCookie(&http.Cookie{Name: KeyUserRole, Value: "employer"})

	rec, rendered := serveEntry(t, p, r)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/employer/dashboard" {
		t.Fatalf("Location = %q", loc)
	}
	if rendered != nil {
		t.Fatalf("page rendered after redirect")
	}
	if res.calls != 0 {
		t.Fatalf("resolver called %d times, want 0", res.calls)
	}
}

func TestServerPhaseAnonymousFallsThrough(t *testing.T) {
	res := &fakeResolver{role: RoleAdmin}
	p := NewServerPhase(res, time.Second, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyUserRole, Value: "admin"})

	rec, rendered := serveEntry(t, p, r)
	if rec.Code != http.StatusOK || rec.Header().Get("Location") != "" {
		t.Fatalf("got %d %q, want the page to render", rec.Code, rec.Header().Get("Location"))
	}
	if rec.Header().Get(PhaseHeader) != string(StateFallthrough) {
		t.Fatalf("%s = %q", PhaseHeader, rec.Header().Get(PhaseHeader))
	}
	if rendered == nil || rendered.Destination != DestRegister {
		t.Fatalf("rendered outcome = %+v, want register destination", rendered)
	}
	if res.calls != 0 {
		t.Fatalf("resolver called %d times, want 0", res.calls)
	}
}

// A visitor whose tokens live only in client storage reaches the client
// phase, which routes them to their dashboard instead of register.
func TestAnonymousServerPassHandsOffToClientPhase(t *testing.T) {
	p := NewServerPhase(&fakeResolver{}, time.Second, discardLogger)
	rec, _ := serveEntry(t, p, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("server phase status = %d, want 200", rec.Code)
	}

	store := newMapStorage(KeyAccessToken, "t1")
	res := &fakeResolver{role: RoleEmployer}
	nav := &recordingNavigator{}
	cp := &ClientPhase{Storage: store, Resolver: res, Navigator: nav, Logger: discardLogger}
	out := cp.Run(context.Background(), DestHome)
	if out.State != StateRedirected || out.Destination != DestEmployerDashboard {
		t.Fatalf("client outcome = %+v", out)
	}
	if len(nav.dests) != 1 || res.calls != 1 {
		t.Fatalf("navigations = %d, resolver calls = %d", len(nav.dests), res.calls)
	}
}

func TestServerPhaseResolvesUnknownRole(t *testing.T) {
	res := &fakeResolver{role: RoleAdmin}
	p := NewServerPhase(res, time.Second, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "t1"})

	rec, _ := serveEntry(t, p, r)
	if rec.Header().Get("Location") != "/admin-dashboard" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", res.calls)
	}
	if res.seen[0].AccessToken != "t1" {
		t.Fatalf("resolver got %+v", res.seen[0])
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("server phase must not write the role cache")
	}
}

func TestServerPhaseResolverFailureFallsThrough(t *testing.T) {
	res := &fakeResolver{err: ErrProfileUnavailable}
	p := NewServerPhase(res, time.Second, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "t1"})

	rec, rendered := serveEntry(t, p, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want page render", rec.Code)
	}
	if rec.Header().Get(PhaseHeader) != string(StateFallthrough) {
		t.Fatalf("phase header = %q", rec.Header().Get(PhaseHeader))
	}
	if rendered == nil || rendered.Destination != DestHome || !errors.Is(rendered.Err, ErrProfileUnavailable) {
		t.Fatalf("unexpected outcome %+v", rendered)
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", res.calls)
	}
}

func TestServerPhaseResolverPanicIsContained(t *testing.T) {
	p := NewServerPhase(ResolverFunc(func(ctx context.Context, cred Credential) (RoleHint, error) {
		panic("identity backend exploded")
	}), time.Second, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "t1"})

	out := p.Evaluate(r)
	if out.State != StateFallthrough || out.Destination != DestHome {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !errors.Is(out.Err, ErrProfileUnavailable) {
		t.Fatalf("err = %v", out.Err)
	}
}

func TestServerPhaseSlowResolverTimesOut(t *testing.T) {
	p := NewServerPhase(ResolverFunc(func(ctx context.Context, cred Credential) (RoleHint, error) {
		<-ctx.Done()
		return RoleUnknown, ctx.Err()
	}), 10*time.Millisecond, discardLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: KeyRefreshToken, Value: "r1"})

	out := p.Evaluate(r)
	if out.State != StateFallthrough || out.Destination != DestHome {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestServerPhaseLoopGuard(t *testing.T) {
	p := NewServerPhase(&fakeResolver{}, time.Second, discardLogger)

	r := requestWithToken("/employer/dashboard", "t1")
	r.AddCookie(&http.Cookie{Name: KeyUserRole, Value: "employer"})
	rec, rendered := serveEntry(t, p, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want render of /employer/dashboard", rec.Code)
	}
	if rendered == nil || !errors.Is(rendered.Err, ErrRedirectLoop) {
		t.Fatalf("unexpected outcome %+v", rendered)
	}
}

func TestServerPhaseIgnoresNonNavigation(t *testing.T) {
	res := &fakeResolver{}
	p := NewServerPhase(res, time.Second, discardLogger)
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	rec, _ := serveEntry(t, p, r)
	if rec.Code != http.StatusOK || res.calls != 0 {
		t.Fatalf("POST should pass through, got %d with %d resolver calls", rec.Code, res.calls)
	}
}
