package gmail

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/enum"
)

var providerName = string(enum.ProviderGoogle)

// tripsBreaker is false for client-side failures: a bad id or a revoked token
// says nothing about Gmail's health.
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return false
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests
	}
	return true
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return webmail_errors.NewUpstreamError(providerName, http.StatusServiceUnavailable, "gmail is temporarily unavailable", err)
	}

	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return webmail_errors.NewAuthenticationError("google access token cannot be refreshed", true, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return webmail_errors.NewAuthenticationError("google refused to refresh the access token", true, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return webmail_errors.NewAuthenticationError("google rejected the access token", true, err)
		case http.StatusNotFound:
			return webmail_errors.NewUpstreamError(providerName, apiErr.Code, apiErr.Message,
				errors.Wrap(webmail_errors.ErrMessageNotFound, apiErr.Error()))
		}
		return webmail_errors.NewUpstreamError(providerName, apiErr.Code, apiErr.Message, err)
	}

	return webmail_errors.NewUpstreamError(providerName, http.StatusBadGateway, err.Error(), err)
}
