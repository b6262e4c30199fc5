package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/tracing"
)

const (
	MessageUnauthorized          = "Unauthorized"
	MessageUnauthorizedReconnect = "Unauthorized, reconnect"
	MessageInternal              = "Internal server error"

	// nginx convention for a client that went away before the response
	StatusClientClosedRequest = 499
)

// Status maps a service error to the HTTP status and body returned to the UI.
func Status(err error) (int, any) {
	var (
		authErr     *webmail_errors.AuthenticationError
		upstreamErr *webmail_errors.UpstreamError
		multiErr    *MultiErrors
	)

	switch {
	case errors.As(err, &multiErr):
		return http.StatusBadRequest, multiErr
	case errors.As(err, &authErr):
		if authErr.Reconnect {
			return http.StatusUnauthorized, gin.H{"error": MessageUnauthorizedReconnect}
		}
		return http.StatusUnauthorized, gin.H{"error": MessageUnauthorized}
	case errors.As(err, &upstreamErr):
		return upstreamErr.Status, gin.H{"error": upstreamErr.Message}
	case errors.Is(err, webmail_errors.ErrProviderNotSupported),
		errors.Is(err, webmail_errors.ErrInvalidDraft),
		errors.Is(err, webmail_errors.ErrInvalidMessageID),
		errors.Is(err, webmail_errors.ErrUserIDNotSet):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, webmail_errors.ErrMessageNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, gin.H{"error": "request cancelled"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, gin.H{"error": "upstream timeout"}
	default:
		return http.StatusInternalServerError, gin.H{"error": MessageInternal}
	}
}

// RespondWithError records err on the span and writes the mapped response.
func RespondWithError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	status, body := Status(err)
	c.AbortWithStatusJSON(status, body)
}
