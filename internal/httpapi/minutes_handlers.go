package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// generateMinutes is spec §4.I's synchronous host-only endpoint; it runs
// with an extended timeout budget to cover the LLM round trip.
func (h *handlers) generateMinutes(c *gin.Context) {
	ctx, cancel := withTimeout(c, minutesGenerateTimeout)
	defer cancel()

	rec, err := h.deps.Minutes.Generate(ctx, c.Param("meetingId"), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "minutes generated", rec)
}

func (h *handlers) getMinutes(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	rec, err := h.deps.Minutes.Get(ctx, c.Param("meetingId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", rec)
}

func (h *handlers) listMinutes(c *gin.Context) {
	page, limit := pagingParams(c)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	recs, total, err := h.deps.Minutes.ListForUser(ctx, currentUser(c).Email, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"minutes": recs, "total": total, "page": page, "limit": limit})
}

type resendEmailRequest struct {
	Email string `json:"email"`
}

func (h *handlers) resendMinutesEmail(c *gin.Context) {
	var req resendEmailRequest
	_ = c.ShouldBindJSON(&req)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	if err := h.deps.Minutes.ResendEmail(ctx, c.Param("meetingId"), req.Email); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "email queued for delivery", nil)
}
