package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "x-api-key"

// apiKeyQuery carries the secret on WebSocket upgrades, where browsers
// cannot set headers.
const apiKeyQuery = "api_key"

// APIKey rejects requests whose x-api-key header does not equal key.
func APIKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if got == "" && isWebSocketUpgrade(r) {
				got = r.URL.Query().Get(apiKeyQuery)
			}
			if got == "" {
				writeError(w, http.StatusUnauthorized, "Missing x-api-key header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Warn("Rejected request with invalid API key", "path", r.URL.Path, "remote", ClientIP(r))
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "detail": detail})
}
