// ABOUTME: HTTP middleware requiring an operator JWT on privileged endpoints
// ABOUTME: Extracts the bearer token and adds the operator to the request context

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RequireOperator rejects requests without a valid operator token granting
// scope. Bad tokens get 401; valid tokens lacking the scope get 403.
func RequireOperator(verifier TokenVerifier, scope Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", errMsg)
				return
			}

			grant, err := verifier.Verify(token)
			if err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, ErrExpiredToken):
					msg = "token expired"
				case errors.Is(err, ErrWrongIssuer):
					msg = "token not issued by keyward"
				}
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}
			if !grant.Allows(scope) {
				writeAuthError(w, http.StatusForbidden, "forbidden", "token lacks scope "+string(scope))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), grant.Operator)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
