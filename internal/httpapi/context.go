package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

func parseRFC3339(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// withTimeout bounds a handler's downstream calls to budget, per spec §7's
// ambient request-timeout policy (default 10s, longer for synchronous LLM
// calls). The cancel func is the caller's responsibility to defer.
func withTimeout(c *gin.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), budget)
}
