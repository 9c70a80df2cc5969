package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/pkg/logging"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a service error to its HTTP status
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthenticationRequired:
		return http.StatusUnauthorized
	case apperr.KindAuthorizationDenied:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {error}. Causes of 500s are logged and never
// sent to the client.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: apperr.PublicMessage(err)})
}

// bindJSON decodes the request body into dest
func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
