package mail

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/webmail/api/errors"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

// ClearCache drops every cached entry of the caller.
func (h *MailHandler) ClearCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.ClearCache")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if err := h.mail.ClearCache(ctx, utils.GetUserIdFromContext(ctx)); err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PurgeCache runs the expired entry purge now instead of waiting for cron.
func (h *MailHandler) PurgeCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.PurgeCache")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		n, err := h.mail.PurgeCache(ctx)
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"purged": n})
	}
}
