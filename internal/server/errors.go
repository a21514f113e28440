package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/auth"
	"github.com/spigell/resume-matcher/internal/matching"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newAPIError(code int, detail string) *APIError {
	return &APIError{Code: code, Message: http.StatusText(code), Detail: detail}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// toAPIError maps domain errors onto HTTP statuses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, auth.ErrUnauthenticated):
		return newAPIError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		return newAPIError(http.StatusForbidden, err.Error())
	case errors.Is(err, matching.ErrInvalidRequest):
		return newAPIError(http.StatusBadRequest, err.Error())
	case errors.Is(err, matching.ErrNoCandidates):
		return newAPIError(http.StatusNotFound, "No resumes found for this college code")
	case errors.Is(err, matching.ErrNotFound):
		return newAPIError(http.StatusNotFound, err.Error())
	case errors.Is(err, matching.ErrPersistence):
		return newAPIError(http.StatusServiceUnavailable, "storage is unavailable")
	case errors.Is(err, errUpstream):
		return newAPIError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "request was cancelled")
	default:
		return newAPIError(http.StatusInternalServerError, "unexpected error")
	}
}

func respondError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	body := *apiErr
	body.RequestID = requestID(c)
	if body.Code >= http.StatusInternalServerError {
		loggerFrom(c).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(body.Code, body)
}
