package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProfileResolver asks an identity authority for the role behind a credential.
type ProfileResolver interface {
	Resolve(ctx context.Context, cred Credential) (RoleHint, error)
}

type ResolverFunc func(ctx context.Context, cred Credential) (RoleHint, error)

func (f ResolverFunc) Resolve(ctx context.Context, cred Credential) (RoleHint, error) {
	return f(ctx, cred)
}

// HTTPResolver calls an identity endpoint once per Resolve. The credential is
// sent both as cookies and as a bearer header.
type HTTPResolver struct {
	URL    string
	Client *http.Client
}

func NewHTTPResolver(url string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

type profileResponse struct {
	Authenticated *bool  `json:"authenticated"`
	Role          string `json:"role"`
	User          *struct {
		Role string `json:"role"`
	} `json:"user"`
}

func (h *HTTPResolver) Resolve(ctx context.Context, cred Credential) (RoleHint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return RoleUnknown, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if cred.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
		req.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: cred.AccessToken})
	}
	if cred.RefreshToken != "" {
		req.AddCookie(&http.Cookie{Name: KeyRefreshToken, Value: cred.RefreshToken})
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return RoleUnknown, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return RoleUnknown, fmt.Errorf("%w: status %d", ErrProfileUnavailable, resp.StatusCode)
	}

	var body profileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return RoleUnknown, fmt.Errorf("%w: decode: %v", ErrProfileUnavailable, err)
	}
	if body.Authenticated != nil && !*body.Authenticated {
		return RoleUnknown, nil
	}
	role := body.Role
	if role == "" && body.User != nil {
		role = body.User.Role
	}
	return ParseRoleHint(role), nil
}
