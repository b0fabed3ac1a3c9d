package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"jobboard/internal/identity"
)

const minPasswordLen = 8

type Service struct {
	store      UserStore
	refresh    RefreshStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(store UserStore, refresh RefreshStore, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      store,
		refresh:    refresh,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("role not allowed")
	ErrInvalidInput       = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

func (s *Service) Register(ctx context.Context, email, password string, role Role) (*User, error) {
	if !role.SelfServiceRole() {
		return nil, ErrInvalidRole
	}
	if _, err := mail.ParseAddress(email); err != nil || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}
	return s.store.Create(ctx, email, password, role)
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, TokenPair, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh session: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, TokenPair, error) {
	userID, err := s.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) issuePair(ctx context.Context, user *User) (TokenPair, error) {
	access, expiresAt, err := s.issueToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.refresh.Issue(ctx, user.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *Service) issueToken(user *User) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.accessTTL)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identify finds the user behind a pair of tokens. A valid access token wins;
// otherwise a live refresh session is looked up.
func (s *Service) Identify(ctx context.Context, accessToken, refreshToken string) (*User, error) {
	if accessToken != "" {
		claims, err := s.ParseToken(accessToken)
		if err == nil {
			return &User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
		}
		if refreshToken == "" {
			return nil, err
		}
	}
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	userID, err := s.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, userID)
}

// ResolveRole answers profile lookups in-process, for deployments where the
// server phase does not call the identity endpoint over HTTP.
func (s *Service) ResolveRole(ctx context.Context, cred identity.Credential) (identity.RoleHint, error) {
	user, err := s.Identify(ctx, cred.AccessToken, cred.RefreshToken)
	if err != nil {
		return identity.RoleUnknown, fmt.Errorf("%w: %v", identity.ErrProfileUnavailable, err)
	}
	return identity.ParseRoleHint(string(user.Role)), nil
}
