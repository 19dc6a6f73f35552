package ginserver

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"circlo/internal/app/middleware"
)

const (
	principalKey = "circlo.principal"
	roleSystem   = "system"
)

var errNoSubject = errors.New("token has no subject")

// principal is the caller resolved from a bearer token. System is set only by
// the system role claim, whatever the subject says.
type principal struct {
	ID     string
	System bool
}

type claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves an HS256 bearer token into a principal. Requests
// without a valid token continue anonymously and handlers that need a caller
// reject them.
type AuthMiddleware struct {
	Secret []byte
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	if raw, ok := bearer(c.GetHeader("Authorization")); ok && len(m.Secret) > 0 {
		p, err := m.parse(raw)
		switch {
		case err == nil:
			c.Set(principalKey, p)
		case m.Logger != nil:
			m.Logger.Debug("bearer token rejected", "error", err)
		}
	}
	c.Next()
}

func (m AuthMiddleware) keyFunc(*jwt.Token) (any, error) { return m.Secret, nil }

func (m AuthMiddleware) parse(raw string) (principal, error) {
	var cl claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if _, err := parser.ParseWithClaims(raw, &cl, m.keyFunc); err != nil {
		return principal{}, err
	}
	subject := strings.TrimSpace(cl.Subject)
	if subject == "" {
		return principal{}, errNoSubject
	}
	system := slices.ContainsFunc(cl.Roles, func(r string) bool {
		return strings.EqualFold(strings.TrimSpace(r), roleSystem)
	})
	return principal{ID: subject, System: system}, nil
}

// IssueToken signs a token for subject. Local tooling and tests use it; real
// tokens come from the identity provider sharing the secret.
func IssueToken(secret []byte, subject string, roles []string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("issue token: empty secret")
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(secret)
}

// requirePrincipal writes a 401 and reports false when the request is
// anonymous.
func requirePrincipal(c *gin.Context) (principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(principal); ok {
			return p, true
		}
	}
	writeError(c, middleware.ErrUnauthenticated)
	return principal{}, false
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
