package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/restq/restq/pkg/httputil"
)

// BasicAuthConfig holds the username-password pairs for basic authentication.
type BasicAuthConfig struct {
	Credentials map[string]string
}

// BasicAuthCreds creates a new instance of BasicAuthConfig with multiple username/password pairs.
func BasicAuthCreds(credentials map[string]string) *BasicAuthConfig {
	return &BasicAuthConfig{
		Credentials: credentials,
	}
}

// VerifyBasicAuth is a middleware function for basic authentication. The
// authenticated username is stored on the request context under
// httputil.BasicAuthCtxKey.
func VerifyBasicAuth(config *BasicAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Basic ") {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			encodedCredentials := strings.TrimPrefix(authHeader, "Basic ")
			credentials, err := base64.StdEncoding.DecodeString(encodedCredentials)
			if err != nil {
				http.Error(w, "Invalid base64 encoding", http.StatusUnauthorized)
				return
			}

			username, password, ok := strings.Cut(string(credentials), ":")
			if !ok {
				http.Error(w, "Invalid credentials format", http.StatusUnauthorized)
				return
			}

			// Verify the credentials
			validPassword, known := config.Credentials[username]
			if !known || subtle.ConstantTimeCompare([]byte(validPassword), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				http.Error(w, "Invalid credentials", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), httputil.BasicAuthCtxKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
