package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newClientPhase(s Storage, res ProfileResolver, nav Navigator) *ClientPhase {
	return &ClientPhase{Storage: s, Resolver: res, Navigator: nav, Logger: discardLogger}
}

func TestClientPhaseEmployerHint(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1", KeyUserRole, "employer")
	res := &fakeResolver{}
	nav := &recordingNavigator{}

	out := newClientPhase(s, res, nav).Run(context.Background(), DestHome)
	if out.State != StateRedirected || out.Destination != DestEmployerDashboard {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(nav.dests) != 1 || nav.dests[0].Path() != "/employer/dashboard" {
		t.Fatalf("navigations = %v", nav.dests)
	}
	if res.calls != 0 {
		t.Fatalf("resolver called %d times", res.calls)
	}
}

func TestClientPhaseAnonymous(t *testing.T) {
	res := &fakeResolver{role: RoleAdmin}
	nav := &recordingNavigator{}

	out := newClientPhase(newMapStorage(), res, nav).Run(context.Background(), DestHome)
	if out.Destination != DestRegister || len(nav.dests) != 1 || nav.dests[0] != DestRegister {
		t.Fatalf("outcome %+v navigations %v", out, nav.dests)
	}
	if res.calls != 0 {
		t.Fatalf("resolver called %d times", res.calls)
	}
}

func TestClientPhaseResolvesAndCachesRole(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1")
	res := &fakeResolver{role: RoleAdmin}
	nav := &recordingNavigator{}

	out := newClientPhase(s, res, nav).Run(context.Background(), DestHome)
	if out.Destination != DestAdminDashboard || out.State != StateRedirected {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", res.calls)
	}
	if s.values[KeyUserRole] != "admin" {
		t.Fatalf("role not written back, storage = %v", s.values)
	}
}

func TestClientPhaseResolverFailure(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1")
	res := &fakeResolver{err: ErrProfileUnavailable}
	nav := &recordingNavigator{}

	out := newClientPhase(s, res, nav).Run(context.Background(), DestRegister)
	if out.Destination != DestHome {
		t.Fatalf("destination = %q, want home", out.Destination)
	}
	if !errors.Is(out.Err, ErrProfileUnavailable) {
		t.Fatalf("err = %v", out.Err)
	}
	if s.sets != 0 {
		t.Fatalf("cache written %d times on failure", s.sets)
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times", res.calls)
	}
}

func TestClientPhaseResolverFailureOnHomeIsGuarded(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1")
	nav := &recordingNavigator{}

	out := newClientPhase(s, &fakeResolver{err: errBoom}, nav).Run(context.Background(), DestHome)
	if out.State != StateSuppressed || !errors.Is(out.Err, ErrRedirectLoop) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(nav.dests) != 0 {
		t.Fatalf("navigated to %v", nav.dests)
	}
}

func TestClientPhaseAfterServerFallthrough(t *testing.T) {
	// The server gave up on a slow resolver and rendered home.
	server := NewServerPhase(ResolverFunc(func(ctx context.Context, cred Credential) (RoleHint, error) {
		<-ctx.Done()
		return RoleUnknown, ctx.Err()
	}), 5*time.Millisecond, discardLogger)
	s := newMapStorage(KeyAccessToken, "t1")
	if out := server.Evaluate(requestWithToken("/", "t1")); out.State != StateFallthrough {
		t.Fatalf("server phase = %+v, want fallthrough", out)
	}

	res := &fakeResolver{role: RoleEmployee}
	nav := &recordingNavigator{}
	out := newClientPhase(s, res, nav).Run(context.Background(), DestHome)
	if out.Destination != DestEmployeeDashboard {
		t.Fatalf("destination = %q", out.Destination)
	}
	if len(nav.dests) != 1 || nav.dests[0] != DestEmployeeDashboard {
		t.Fatalf("navigations = %v, want exactly one to employee-dashboard", nav.dests)
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times", res.calls)
	}
}

func TestClientPhaseAfterServerRedirectIsIdempotent(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1", KeyUserRole, "employee")
	nav := &recordingNavigator{}
	p := newClientPhase(s, &fakeResolver{}, nav)

	for i := 0; i < 2; i++ {
		out := p.Run(context.Background(), DestEmployeeDashboard)
		if out.State != StateSuppressed || !errors.Is(out.Err, ErrRedirectLoop) {
			t.Fatalf("run %d: unexpected outcome %+v", i, out)
		}
	}
	if len(nav.dests) != 0 {
		t.Fatalf("navigated to %v", nav.dests)
	}
}

func TestClientPhaseUnmountDuringResolve(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newMapStorage(KeyAccessToken, "t1")
	res := &fakeResolver{role: RoleEmployer, hook: func(context.Context) { cancel() }}
	nav := &recordingNavigator{}

	out := newClientPhase(s, res, nav).Run(ctx, DestHome)
	if out.State != StateSuppressed || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(nav.dests) != 0 {
		t.Fatalf("navigated after unmount: %v", nav.dests)
	}
	if s.values[KeyUserRole] != "employer" {
		t.Fatalf("resolved role should still be cached")
	}
}

func TestClientPhaseUnmountDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := &fakeResolver{role: RoleAdmin}
	nav := &recordingNavigator{}
	p := newClientPhase(newMapStorage(KeyAccessToken, "t1"), res, nav)
	p.Delay = time.Hour

	out := p.Run(ctx, DestHome)
	if out.State != StateSuppressed || res.calls != 0 || len(nav.dests) != 0 {
		t.Fatalf("outcome %+v calls %d navigations %v", out, res.calls, nav.dests)
	}
}

func TestClientPhaseStorageFailure(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1", KeyUserRole, "admin")
	s.getErr = errBoom
	nav := &recordingNavigator{}

	out := newClientPhase(s, &fakeResolver{}, nav).Run(context.Background(), DestHome)
	if out.Destination != DestRegister || len(nav.dests) != 1 {
		t.Fatalf("outcome %+v navigations %v", out, nav.dests)
	}
}

func TestClientPhaseCacheWriteFailureStillNavigates(t *testing.T) {
	s := newMapStorage(KeyAccessToken, "t1")
	s.setErr = errBoom
	nav := &recordingNavigator{}

	out := newClientPhase(s, &fakeResolver{role: RoleEmployer}, nav).Run(context.Background(), DestHome)
	if out.State != StateRedirected || len(nav.dests) != 1 || nav.dests[0] != DestEmployerDashboard {
		t.Fatalf("outcome %+v navigations %v", out, nav.dests)
	}
}
