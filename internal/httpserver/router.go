package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobboard/internal/auth"
	"jobboard/internal/identity"
)

const requestIDHeader = "X-Request-ID"

type Deps struct {
	Logger      *slog.Logger
	Auth        *auth.Service
	ServerPhase *identity.ServerPhase

	EntryPaths     []string
	AllowedOrigins []string
	CookieSecure   bool
	RefreshTTL     time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))
	// cors.New panics on an empty origin list; no origins means same-origin only.
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", auth.RefreshHeader},
			ExposeHeaders:    []string{identity.PhaseHeader, requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &AuthHandler{
		Service:      d.Auth,
		Logger:       d.Logger,
		CookieSecure: d.CookieSecure,
		RefreshTTL:   d.RefreshTTL,
	}
	api := r.Group("/api/auth")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/refresh", h.Refresh)
	api.POST("/logout", h.Logout)
	api.GET("/me", fromMiddleware(auth.Middleware(d.Auth)), h.Me)

	mountPages(r, d)
	return r
}

// fromMiddleware runs net/http middleware inside a gin chain. If the
// middleware answers without calling next, the chain stops there.
func fromMiddleware(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
		logger.Info("http request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
