package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Storage is client-side persisted key/value storage. Implementations own the
// data; the core only reads the three credential keys and writes KeyUserRole.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ReadRequest reads the credential and role hint carried by a server request.
func ReadRequest(r *http.Request) (Credential, RoleHint) {
	var cred Credential
	cred.AccessToken = cookieValue(r, KeyAccessToken)
	if cred.AccessToken == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			cred.AccessToken = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	cred.RefreshToken = cookieValue(r, KeyRefreshToken)
	return cred, ParseRoleHint(cookieValue(r, KeyUserRole))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// ReadStorage reads the credential and role hint from persisted storage. A
// failing store degrades to an anonymous visitor.
func ReadStorage(s Storage, logger *slog.Logger) (Credential, RoleHint) {
	if s == nil {
		return Credential{}, RoleUnknown
	}
	if logger == nil {
		logger = slog.Default()
	}
	var cred Credential
	var role string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyAccessToken, &cred.AccessToken},
		{KeyRefreshToken, &cred.RefreshToken},
		{KeyUserRole, &role},
	} {
		v, _, err := s.Get(f.key)
		if err != nil {
			logger.Warn("read credential storage", "err", fmt.Errorf("%w: %v", ErrStorageUnavailable, err), "key", f.key)
			return Credential{}, RoleUnknown
		}
		*f.dst = strings.TrimSpace(v)
	}
	return cred, ParseRoleHint(role)
}

// WriteRole caches a resolved role for future navigations.
func WriteRole(s Storage, role RoleHint) error {
	if s == nil {
		return ErrStorageUnavailable
	}
	if err := s.Set(KeyUserRole, string(role)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
