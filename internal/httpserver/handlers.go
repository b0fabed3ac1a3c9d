package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobboard/internal/auth"
	"jobboard/internal/identity"
)

type AuthHandler struct {
	Service      *auth.Service
	Logger       *slog.Logger
	CookieSecure bool
	RefreshTTL   time.Duration
}

type credentialsRequest struct {
	Email    string    `json:"email" binding:"required"`
	Password string    `json:"password" binding:"required"`
	Role     auth.Role `json:"role"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user,omitempty"`
	auth.TokenPair
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.Service.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	switch {
	case errors.Is(err, auth.ErrInvalidRole), errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Logger.Error("register user", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, pair, err := h.Service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("login", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	h.setSessionCookies(c, user, pair)
	c.JSON(http.StatusOK, sessionResponse{Authenticated: true, User: user, TokenPair: pair})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	user, pair, err := h.Service.Refresh(c.Request.Context(), token)
	if errors.Is(err, auth.ErrRefreshNotFound) || errors.Is(err, auth.ErrUserNotFound) {
		h.clearSessionCookies(c)
		c.Status(http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.Logger.Error("refresh session", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	h.setSessionCookies(c, user, pair)
	c.JSON(http.StatusOK, sessionResponse{Authenticated: true, User: user, TokenPair: pair})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token := refreshTokenFrom(c); token != "" {
		if err := h.Service.Logout(c.Request.Context(), token); err != nil {
			h.Logger.Error("revoke refresh session", "err", err)
		}
	}
	h.clearSessionCookies(c)
	c.Status(http.StatusNoContent)
}

// Me is the identity endpoint profile resolvers call. It runs behind
// auth.Middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := auth.UserFromContext(c.Request.Context())
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

func refreshTokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(identity.KeyRefreshToken); err == nil && v != "" {
		return v
	}
	if v := c.GetHeader(auth.RefreshHeader); v != "" {
		return v
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if c.Request.ContentLength > 0 && c.ShouldBindJSON(&body) == nil {
		return body.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, user *auth.User, pair auth.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	accessAge := int(time.Until(pair.ExpiresAt).Seconds())
	refreshAge := int(h.RefreshTTL.Seconds())
	c.SetCookie(identity.KeyAccessToken, pair.AccessToken, accessAge, "/", "", h.CookieSecure, true)
	c.SetCookie(identity.KeyRefreshToken, pair.RefreshToken, refreshAge, "/", "", h.CookieSecure, true)
	// Readable by page scripts so the client phase can use it as a hint.
	c.SetCookie(identity.KeyUserRole, string(user.Role), refreshAge, "/", "", h.CookieSecure, false)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	for _, name := range []string{identity.KeyAccessToken, identity.KeyRefreshToken, identity.KeyUserRole} {
		c.SetCookie(name, "", -1, "/", "", h.CookieSecure, name != identity.KeyUserRole)
	}
}
