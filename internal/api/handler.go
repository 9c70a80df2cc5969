package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/calledit/calledit/pkg/telemetry"
)

// HandlerFunc handles one endpoint and returns the status and body to send
type HandlerFunc func(c *gin.Context) (int, interface{}, error)

// handle adapts h to gin, opening a span named after the endpoint and
// converting returned errors into {error} responses.
func handle(name string, h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "api."+name)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		status, body, err := h(c)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, err)
			return
		}
		c.JSON(status, body)
	}
}

// success is the body of write endpoints without a payload
var success = gin.H{"success": true}
