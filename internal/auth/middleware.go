package auth

import (
	"context"
	"net/http"

	"jobboard/internal/identity"
)

type contextKey string

const userContextKey contextKey = "jobboard_user"

// RefreshHeader carries a refresh token for clients that cannot send cookies.
const RefreshHeader = "X-Refresh-Token"

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok
}

// Middleware authenticates by access token (cookie or bearer) or, failing
// that, by refresh session.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, _ := identity.ReadRequest(r)
			if cred.RefreshToken == "" {
				cred.RefreshToken = r.Header.Get(RefreshHeader)
			}
			if !cred.Present() {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			user, err := svc.Identify(r.Context(), cred.AccessToken, cred.RefreshToken)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
