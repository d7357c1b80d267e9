package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// PublicPaths is the default Skipper: health, metrics, registration and login.
func PublicPaths(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics", "/api/register", "/api/login":
		return true
	}
	return r.Method == http.MethodOptions
}

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware. A nil skipper uses PublicPaths.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	if skipper == nil {
		skipper = PublicPaths
	}
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// StreamPath is the only route that accepts a token query parameter.
const StreamPath = "/api/tips/stream"

// parseRequest reads the Authorization header. Browsers cannot set headers on
// an EventSource, so the tip stream also accepts a token query parameter when
// the header is absent. Other routes never read tokens from the URL.
func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if r.URL.Path != StreamPath {
			return nil, ErrMissingToken
		}
		return Parse(r.URL.Query().Get("token"), m.Config)
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	return Parse(header[len("Bearer "):], m.Config)
}
