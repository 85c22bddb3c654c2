package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
)

// RateLimit applies a per-IP token bucket of perSecond requests.
func RateLimit(perSecond float64, next http.HandlerFunc) http.HandlerFunc {
	message := map[string]any{
		"status": "error",
		"error":  "You are going too fast! You have been ratelimited.",
	}
	jsonMessage, _ := json.Marshal(message)

	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Minute * 1,
	})
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(string(jsonMessage))

	return tollbooth.LimitFuncHandler(lmt, next).ServeHTTP
}
