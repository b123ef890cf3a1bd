// Package handlers implements the HTTP API surface.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caselens/claimsift/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error onto its HTTP status. Internal
// errors are masked; everything else, including 502/503 outage codes,
// surfaces its code and message.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if status == http.StatusInternalServerError {
		c.JSON(status, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}
	c.JSON(status, ErrorResponse{Code: string(code), Message: err.Error()})
}
