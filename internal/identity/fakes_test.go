package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mapStorage struct {
	values map[string]string
	getErr error
	setErr error
	sets   int
}

func newMapStorage(kv ...string) *mapStorage {
	s := &mapStorage{values: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.values[kv[i]] = kv[i+1]
	}
	return s
}

func (s *mapStorage) Get(key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapStorage) Set(key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.values[key] = value
	return nil
}

type fakeResolver struct {
	role  RoleHint
	err   error
	calls int
	seen  []Credential
	hook  func(ctx context.Context)
}

func (f *fakeResolver) Resolve(ctx context.Context, cred Credential) (RoleHint, error) {
	f.calls++
	f.seen = append(f.seen, cred)
	if f.hook != nil {
		f.hook(ctx)
	}
	return f.role, f.err
}

type recordingNavigator struct {
	dests []Destination
	err   error
}

func (n *recordingNavigator) Navigate(ctx context.Context, dest Destination) error {
	n.dests = append(n.dests, dest)
	return n.err
}

var errBoom = errors.New("boom")

func requestWithToken(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: token})
	return r
}
