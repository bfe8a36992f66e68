package server

import (
	"net/http"
	"sync"
	"time"
)

// rateLimiterWindow is the fixed token-refill window applied to the
// MessagesPath endpoint.
const rateLimiterWindow = time.Minute

// rateLimiter is a simple per-client token bucket guarding the messages
// endpoint against a runaway prover/verifier integration.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	requests int
	window   time.Duration
}

type clientBucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(requests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients:  make(map[string]*clientBucket),
		requests: requests,
		window:   window,
	}
}

func (rl *rateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientID]
	if !exists {
		rl.clients[clientID] = &clientBucket{tokens: rl.requests - 1, lastSeen: now}
		return true
	}

	elapsed := now.Sub(client.lastSeen)
	refill := int(elapsed.Nanoseconds() * int64(rl.requests) / int64(rl.window.Nanoseconds()))
	client.tokens += refill
	if client.tokens > rl.requests {
		client.tokens = rl.requests
	}
	client.lastSeen = now

	if client.tokens <= 0 {
		return false
	}
	client.tokens--
	return true
}

// rateLimitMiddleware rejects requests beyond the configured rate with 429.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := getRealIP(r)
		if !s.limiter.allow(clientID) {
			s.logger.WithFields(map[string]interface{}{
				"method":    r.Method,
				"path":      r.URL.Path,
				"remote_ip": clientID,
			}).Warn("rate limit exceeded")
			s.writeErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
