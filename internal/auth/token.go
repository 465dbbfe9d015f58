// ABOUTME: Operator grants carried in HS256 JWTs issued by keyward
// ABOUTME: A grant names the operator and the privileged endpoints it may call

package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the "iss" claim on every operator token.
const Issuer = "keyward"

// Scope names a privileged operation an operator token unlocks.
type Scope string

// ScopeInitAccount allows creating accounts through POST /api/accounts.
const ScopeInitAccount Scope = "init_account"

var knownScopes = []Scope{ScopeInitAccount}

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrMissingClaim  = errors.New("missing required claim")
	ErrWrongIssuer   = errors.New("token not issued by keyward")
	ErrUnknownScope  = errors.New("unknown scope")
	ErrEmptyOperator = errors.New("operator name is empty")
)

// Grant is what a verified operator token authorizes.
type Grant struct {
	Operator string
	Scopes   []Scope
}

// Allows reports whether the grant covers scope.
func (g Grant) Allows(scope Scope) bool {
	return slices.Contains(g.Scopes, scope)
}

// TokenVerifier turns a bearer token into a grant.
type TokenVerifier interface {
	Verify(tokenString string) (Grant, error)
}

// operatorClaims is the token payload. Scopes travel as one space-separated
// "scope" string, as in OAuth access tokens.
type operatorClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTVerifier issues and verifies operator tokens with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks signature, expiry and issuer, then returns the grant. Scopes
// this build does not know are dropped rather than trusted.
func (v *JWTVerifier) Verify(tokenString string) (Grant, error) {
	var claims operatorClaims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Grant{}, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return Grant{}, fmt.Errorf("%w: exp", ErrMissingClaim)
	case err != nil:
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Issuer != Issuer {
		return Grant{}, fmt.Errorf("%w: %q", ErrWrongIssuer, claims.Issuer)
	}
	operator := strings.TrimSpace(claims.Subject)
	if operator == "" {
		return Grant{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	grant := Grant{Operator: operator}
	for _, s := range strings.Fields(claims.Scope) {
		if slices.Contains(knownScopes, Scope(s)) {
			grant.Scopes = append(grant.Scopes, Scope(s))
		}
	}
	if len(grant.Scopes) == 0 {
		return Grant{}, fmt.Errorf("%w: scope", ErrMissingClaim)
	}
	return grant, nil
}

// Generate issues a token granting scopes to operator for expiresIn.
func (v *JWTVerifier) Generate(operator string, scopes []Scope, expiresIn time.Duration) (string, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", ErrEmptyOperator
	}
	if len(scopes) == 0 {
		return "", fmt.Errorf("%w: none given", ErrUnknownScope)
	}
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !slices.Contains(knownScopes, s) {
			return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
		names = append(names, string(s))
	}

	now := time.Now()
	claims := operatorClaims{
		Scope: strings.Join(names, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ParseScopes reads a comma-separated scope list such as "init_account".
func ParseScopes(s string) ([]Scope, error) {
	var out []Scope
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !slices.Contains(knownScopes, Scope(part)) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScope, part)
		}
		out = append(out, Scope(part))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none given", ErrUnknownScope)
	}
	return out, nil
}
