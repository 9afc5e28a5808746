package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ErrInvalidToken is returned for a bearer token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims the API accepts. Subject carries the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for a viewer. The API only verifies
// tokens; this is used by tests and local tooling.
func IssueToken(secret string, viewer queries.ViewerQuery, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: viewer.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.ViewerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies a token and returns the viewer it names.
func ParseToken(secret, raw string) (queries.ViewerQuery, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return queries.ViewerQuery{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return queries.ViewerQuery{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return queries.ViewerQuery{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return queries.ViewerQuery{ViewerID: id, Role: role}, nil
}

type viewerCtxKey struct{}

func withViewer(ctx context.Context, v queries.ViewerQuery) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, v)
}

// ViewerFromContext returns the authenticated viewer of a request.
func ViewerFromContext(ctx context.Context) (queries.ViewerQuery, bool) {
	v, ok := ctx.Value(viewerCtxKey{}).(queries.ViewerQuery)
	return v, ok
}

// Authenticator resolves the viewer of each request. With a secret, a
// valid bearer token is required. Without one, every request acts as
// the fallback viewer, and a role query parameter may switch sides.
type Authenticator struct {
	secret   string
	fallback queries.ViewerQuery
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(secret string, fallback queries.ViewerQuery) *Authenticator {
	return &Authenticator{secret: secret, fallback: fallback}
}

// Middleware wraps next with viewer resolution.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, err := a.resolve(r)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, domain.ErrInvalidRole) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), viewer)))
	})
}

func (a *Authenticator) resolve(r *http.Request) (queries.ViewerQuery, error) {
	if a.secret == "" {
		viewer := a.fallback
		if raw := r.URL.Query().Get("role"); raw != "" {
			role, err := domain.ParseRole(raw)
			if err != nil {
				return queries.ViewerQuery{}, err
			}
			viewer.Role = role
		}
		return viewer, nil
	}

	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return queries.ViewerQuery{}, fmt.Errorf("%w: missing bearer token", ErrInvalidToken)
	}
	return ParseToken(a.secret, raw)
}
