package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dividify/dividify-backend/pkg/logger"
)

// CronSecretHeader carries the shared secret presented by the external scheduler.
const CronSecretHeader = "X-Cron-Secret"

// CronSecret admits requests whose X-Cron-Secret header matches secret.
// An empty secret rejects everything.
func CronSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := []byte(strings.TrimSpace(r.Header.Get(CronSecretHeader)))
			if len(expected) == 0 || subtle.ConstantTimeCompare(presented, expected) != 1 {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "remote_ip", clientIP(r)), "cron.trigger.unauthorized")
				}
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
}
