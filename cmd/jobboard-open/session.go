package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobboard/internal/auth"
	"jobboard/internal/clientstore"
	"jobboard/internal/identity"
)

// session talks to the job board the way a browser tab would: it never
// follows redirects on its own and carries the stored tokens on every request.
type session struct {
	base    *url.URL
	client  *http.Client
	store   *clientstore.FileStorage
	cookies bool
	out     io.Writer
}

func newSession(server string, store *clientstore.FileStorage, cookies bool, timeout time.Duration, out io.Writer) (*session, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", server)
	}
	return &session{
		base: base,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:   store,
		cookies: cookies,
		out:     out,
	}, nil
}

func (s *session) endpoint(path string) string {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (s *session) stored(key string) string {
	v, _, err := s.store.Get(key)
	if err != nil {
		return ""
	}
	return v
}

func (s *session) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	access := s.stored(identity.KeyAccessToken)
	refresh := s.stored(identity.KeyRefreshToken)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	if refresh != "" {
		req.Header.Set(auth.RefreshHeader, refresh)
	}
	if s.cookies {
		for _, key := range []string{identity.KeyAccessToken, identity.KeyRefreshToken, identity.KeyUserRole} {
			if v := s.stored(key); v != "" {
				req.AddCookie(&http.Cookie{Name: key, Value: v})
			}
		}
	}
	return req, nil
}

// get loads an entry page. Like a browser page load it carries cookies only,
// so with cookies disabled the server sees an anonymous visitor.
func (s *session) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Authorization")
	req.Header.Del(auth.RefreshHeader)
	req.Header.Set("Accept", "text/html")
	return s.client.Do(req)
}

// Navigate loads the destination page. It is the client phase's navigator.
func (s *session) Navigate(ctx context.Context, dest identity.Destination) error {
	resp, err := s.newRequestAndDo(ctx, http.MethodGet, dest.Path(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	fmt.Fprintf(s.out, "navigated to %s (%d)\n", dest.Path(), resp.StatusCode)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("navigate %s: status %d", dest.Path(), resp.StatusCode)
	}
	return nil
}

func (s *session) newRequestAndDo(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := s.newRequest(ctx, method, path, r)
	if err != nil {
		return nil, err
	}
	return s.client.Do(req)
}

type loginResponse struct {
	User *struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	auth.TokenPair
}

// login exchanges credentials for tokens and persists them. The role is only
// cached when cacheRole is set; otherwise the client phase resolves it.
func (s *session) login(ctx context.Context, email, password string, cacheRole bool) (identity.RoleHint, error) {
	resp, err := s.newRequestAndDo(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return identity.RoleUnknown, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return identity.RoleUnknown, fmt.Errorf("login: status %d", resp.StatusCode)
	}
	var body loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return identity.RoleUnknown, fmt.Errorf("login: decode: %w", err)
	}
	if body.AccessToken == "" {
		return identity.RoleUnknown, fmt.Errorf("login: response carried no access token")
	}

	role := identity.RoleUnknown
	if body.User != nil {
		role = identity.ParseRoleHint(body.User.Role)
	}
	values := map[string]string{
		identity.KeyAccessToken:  body.AccessToken,
		identity.KeyRefreshToken: body.RefreshToken,
	}
	if cacheRole && role.Known() {
		values[identity.KeyUserRole] = string(role)
	}
	if err := s.store.Clear(identity.KeyUserRole); err != nil {
		return role, err
	}
	return role, s.store.SetAll(values)
}

func (s *session) logout(ctx context.Context) error {
	if s.stored(identity.KeyRefreshToken) != "" {
		resp, err := s.newRequestAndDo(ctx, http.MethodPost, "/api/auth/logout", nil)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("logout: status %d", resp.StatusCode)
		}
	}
	return s.store.Clear(identity.KeyAccessToken, identity.KeyRefreshToken, identity.KeyUserRole)
}
