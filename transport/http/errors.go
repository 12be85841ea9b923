package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/core"
)

const (
	msgAuthenticationFailed = "authentication failed"
	msgUnauthorized         = "unauthorized"
	msgInternal             = "internal error"
	msgInvalidRequest       = "invalid request"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// abortWithError maps err to a status and a client-safe body.
// Authentication and token failures share one body each so callers cannot tell the reasons apart.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   msgInvalidRequest,
			Details: strings.TrimPrefix(err.Error(), core.ErrInvalidInput.Error()+": "),
		})
	case core.IsAuthenticationFailure(err):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msgAuthenticationFailed})
	case core.IsTokenFailure(err):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msgUnauthorized})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	}
}
