// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Actor is the caller identity carried by a verified bearer token.
type Actor struct {
	Username    string
	IsSuperuser bool
}

// Claims is the JWT payload. The subject is the username.
type Claims struct {
	IsSuperuser bool `json:"is_superuser"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// WithActor stores a in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// CurrentActor returns the actor loaded by LoadActor, if any.
func CurrentActor(r *http.Request) (Actor, bool) {
	a, ok := r.Context().Value(ctxKey{}).(Actor)
	return a, ok && a.Username != ""
}

// ActorName returns the current username, or "" for anonymous requests.
func ActorName(r *http.Request) string {
	a, _ := CurrentActor(r)
	return a.Username
}

// Verifier validates HS256 bearer tokens and exposes the actor middleware.
type Verifier struct {
	secret []byte
	issuer string
	log    *zap.Logger
}

// NewVerifier builds a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, log: logger}
}

// Parse validates tok and returns the actor it names.
func (v *Verifier) Parse(tok string) (Actor, error) {
	if len(v.secret) == 0 {
		return Actor{}, errors.New("auth: no signing secret configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Actor{}, fmt.Errorf("auth: %w", err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Actor{}, jwt.ErrTokenInvalidClaims
	}
	return Actor{Username: claims.Subject, IsSuperuser: claims.IsSuperuser}, nil
}

// LoadActor attaches the actor from the Authorization header to the request
// context. Missing or invalid tokens leave the request anonymous.
func (v *Verifier) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		a, err := v.Parse(raw)
		if err != nil {
			v.log.Debug("bearer token rejected", zap.Error(err), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

// RequireSignedIn rejects anonymous requests with 401.
func (v *Verifier) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentActor(r); !ok {
			deny(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-superusers with 403.
func (v *Verifier) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := CurrentActor(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !a.IsSuperuser {
			deny(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IssueToken signs a token for username. Login is handled elsewhere; this
// exists for tests and operator scripts.
func IssueToken(secret, issuer, username string, superuser bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsSuperuser: superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// deny writes the same error envelope as the respond package. It is
// duplicated here so auth stays free of feature-level imports.
func deny(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"success":false,"detail":%q}`, detail)
}
