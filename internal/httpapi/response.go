package httpapi

import (
	"github.com/dkeye/confcore/internal/apperr"
	"github.com/gin-gonic/gin"
)

// envelope is the fixed JSON shape from spec §6: {success, message, data?}.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail maps an error to its apperr.Kind's HTTP status and writes the
// standard failure envelope. Never leaks Cause details to the client.
func fail(c *gin.Context, err error) {
	e := apperr.As(err)
	c.JSON(e.Kind.HTTPStatus(), envelope{Success: false, Message: e.Message})
}
