package mail

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/webmail/api/errors"
	"github.com/customeros/webmail/api/middleware"
	"github.com/customeros/webmail/internal/tracing"
)

func (h *MailHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		message, status, err := h.mail.Get(ctx, middleware.AccountFromContext(c), id, queryOptions(c))
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}

		setCacheHeader(c, status)
		c.JSON(http.StatusOK, message)
	}
}

func (h *MailHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		if err := h.mail.Delete(ctx, middleware.AccountFromContext(c), id); err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
