package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ErrInvalidToken is returned when a staff token fails verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// StaffClaims is the JWT claim set issued to staff members.
type StaffClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// StaffVerifier validates HMAC-signed staff bearer tokens.
type StaffVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// VerifierOption customises the verifier.
type VerifierOption func(*StaffVerifier)

// WithClock injects a custom clock, primarily for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *StaffVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewStaffVerifier builds a verifier for the given shared secret and issuer.
func NewStaffVerifier(secret, issuer string, opts ...VerifierOption) (*StaffVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: staff token secret is required")
	}

	verifier := &StaffVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier, nil
}

// Verify parses and validates a raw token string, returning the caller identity.
func (v *StaffVerifier) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &StaffClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)

	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	return &Identity{
		Subject: claims.Subject,
		Name:    claims.Name,
		Role:    claims.Role,
	}, nil
}

// IssueStaffToken mints a signed staff token, used by provisioning tooling
// and tests.
func IssueStaffToken(secret, issuer, subject, name string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("auth: staff token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	claims := StaffClaims{
		Name: name,
		Role: RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    strings.TrimSpace(issuer),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// RequireStaff enforces a valid staff bearer token on the request, storing
// the verified identity on the context for downstream handlers.
func (v *StaffVerifier) RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" || !strings.HasPrefix(header, bearerPrefix) {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "staff bearer token required")
				return
			}

			identity, err := v.Verify(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				respondAuthError(w, http.StatusUnauthorized, "invalid_token", "staff token verification failed")
				return
			}
			if !identity.IsStaff() {
				respondAuthError(w, http.StatusForbidden, "forbidden", "staff capability required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
