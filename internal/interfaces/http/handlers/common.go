// Package handlers implements the gin handlers of the m2pcalc HTTP API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polymerlab/m2pcalc/internal/interfaces/http/middleware"
	"github.com/polymerlab/m2pcalc/pkg/errors"
	"github.com/polymerlab/m2pcalc/pkg/types/common"
)

// writeSuccess writes data inside the standard response envelope.
func writeSuccess[T any](c *gin.Context, status int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// writeError writes the error envelope with an explicit status and code.
func writeError(c *gin.Context, status int, code errors.ErrorCode, message string) {
	resp := common.NewErrorResponse(code.String(), message)
	resp.RequestID = middleware.GetRequestID(c)
	c.AbortWithStatusJSON(status, resp)
}

// writeAppError maps application errors to HTTP status codes.  Errors that
// carry no code are masked as internal errors.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		writeError(c, http.StatusInternalServerError, errors.ErrCodeInternal, "internal server error")
		return
	}
	message := err.Error()
	var ae *errors.AppError
	if errors.As(err, &ae) {
		message = ae.Message
	}
	writeError(c, errors.HTTPStatusForCode(code), code, message)
}

// bindJSON decodes the request body into v and writes a 400 (or 413 when the
// body limit was hit) on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, errors.ErrCodeBadRequest, "request body too large")
			return false
		}
		writeError(c, http.StatusBadRequest, errors.ErrCodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
