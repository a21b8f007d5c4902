package httpapi

import (
	"strings"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/gin-gonic/gin"
)

const ctxUserKey = "authUser"

// AuthRequired implements spec §4.A's bearer verification for the HTTP edge.
func AuthRequired(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
		u, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// SecurityHeaders adds the baseline hardening headers the teacher's session
// cookie already implies (HttpOnly/SameSite) but extends to every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// IPRateLimit enforces spec §6's global "1000 req / 15 min" bound per
// client IP, degrading to allow when the cache backend is unavailable
// (spec §4.B's degrade-to-allow policy).
func IPRateLimit(store cache.Store, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(store, "ratelimit:ip:", limit, window)
}

// LoginRateLimit enforces spec §8 scenario 5's tighter "5 attempts / min"
// bound on the login endpoint alone, so a credential-stuffing burst trips
// long before it would ever reach the global per-IP ceiling.
func LoginRateLimit(store cache.Store, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(store, "ratelimit:login:", limit, window)
}

func rateLimit(store cache.Store, keyPrefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyPrefix + c.ClientIP()
		res, ok := store.CheckRateLimit(key, limit, window)
		if !ok {
			c.Next()
			return
		}
		if !res.Allowed {
			fail(c, apperr.New(apperr.ResourceExhausted, "rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
