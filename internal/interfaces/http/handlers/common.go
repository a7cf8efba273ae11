// Package handlers implements the HTTP handlers of the pattern-engine API.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patentdesk/extraction-engine/internal/interfaces/http/middleware"
	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
	"github.com/patentdesk/extraction-engine/pkg/types/common"
)

// respond writes the standard success envelope.
func respond(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, common.APIResponse[interface{}]{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// respondError maps an application error to its HTTP status and writes the
// standard error envelope.  Server-side failures are masked: the code and the
// request ID reach the caller, internals stay in the logs.
func respondError(c *gin.Context, err error) {
	appErr := pkgerrors.GetAppError(err)
	status := pkgerrors.HTTPStatusForCode(appErr.Code)

	detail := appErr.Detail
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		message = pkgerrors.DefaultMessageForCode(appErr.Code)
		detail = ""
	}

	c.JSON(status, common.APIResponse[interface{}]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    appErr.Code.String(),
			Message: message,
			Detail:  detail,
		},
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// respondBadRequest reports a malformed request body.
func respondBadRequest(c *gin.Context, err error) {
	respondError(c, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").WithDetail(err.Error()))
}
