package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps a typed error to its status code and aborts the request.
// message is used for internal errors and untyped errors, whose details stay in the logs.
func HandleError(reqCtx *gin.Context, err error, message string) {
	_ = reqCtx.Error(err)

	var typed *apperrors.Error
	if !errors.As(err, &typed) {
		abort(reqCtx, http.StatusInternalServerError, apperrors.TypeInternal, message)
		return
	}

	errorMessage := typed.Message
	switch typed.Type {
	case apperrors.TypeUpstream:
		errorMessage = typed.Error()
	case apperrors.TypeInternal:
		errorMessage = message
	}
	if errorMessage == "" {
		errorMessage = message
	}

	abort(reqCtx, apperrors.HTTPStatus(typed.Type), typed.Type, errorMessage)
}

// HandleNewError aborts with a validation error created at the route layer.
func HandleNewError(reqCtx *gin.Context, errorType apperrors.ErrorType, message string) {
	abort(reqCtx, apperrors.HTTPStatus(errorType), errorType, message)
}

func abort(reqCtx *gin.Context, status int, errorType apperrors.ErrorType, message string) {
	reqCtx.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      string(errorType),
		RequestID: reqCtx.GetString("request_id"),
	})
}
