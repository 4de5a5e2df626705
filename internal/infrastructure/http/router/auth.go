package router

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"checkout-fraud-engine/internal/interfaces/http/handler"
)

// Token roles. Checkout service tokens may only read trust bands.
const (
	RoleCheckout = "checkout"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

var errMissingToken = errors.New("missing bearer token")

// Claims are the JWT claims of a reviewer token
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Authenticator verifies HS256 reviewer tokens. With no secret configured
// every protected request is rejected.
type Authenticator struct {
	secret []byte
	issuer string
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(secret, issuer string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

// Enabled reports whether a signing secret is configured
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken signs a reviewer token
func (a *Authenticator) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("no signing secret configured")
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Require wraps next so that only tokens carrying one of roles get through.
// The token subject becomes the reviewer id of the request.
func (a *Authenticator) Require(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeAuthError(w, http.StatusUnauthorized, "Reviewer authentication is not configured")
			return
		}

		claims, err := a.verify(r)
		if err != nil {
			a.logger.Debug("rejected reviewer token", zap.Error(err))
			writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !slices.Contains(roles, claims.Role) {
			writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		next(w, r.WithContext(handler.WithReviewer(r.Context(), claims.Subject)))
	}
}

func (a *Authenticator) verify(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="fraud-review"`)
	}
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", message)
}
