package middleware

import (
	"net/http"
)

// apiKeyHeader is the header carrying the API key on mutating requests.
const apiKeyHeader = "X-API-KEY"

// AuthConfig holds the set of valid API keys. An empty set disables
// authentication entirely (every request passes).
type AuthConfig struct {
	keys map[string]struct{}
}

// NewAuthConfigWithKeys creates an AuthConfig from a list of valid keys.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return AuthConfig{keys: set}
}

// enabled reports whether any API keys are configured.
func (c AuthConfig) enabled() bool {
	return len(c.keys) > 0
}

// valid reports whether key is one of the configured API keys.
func (c AuthConfig) valid(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// WriteProtect returns middleware that requires a valid X-API-KEY header on
// mutating HTTP methods (POST, PUT, PATCH, DELETE). Read methods (GET, HEAD,
// OPTIONS) always pass. If no keys are configured, all requests pass.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.enabled() || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(apiKeyHeader)
			if key == "" || !config.valid(key) {
				WriteError(w, r, NewAuthenticationError("missing or invalid API key"), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
