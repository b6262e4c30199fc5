package mail

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	api_errors "github.com/customeros/webmail/api/errors"
	"github.com/customeros/webmail/api/middleware"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

// List serves GET /mail. folder is required and is checked before any
// upstream call.
func (h *MailHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.List")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		params := models.ListParams{
			Folder:     strings.TrimSpace(c.Query("folder")),
			Query:      c.Query("q"),
			MaxResults: queryMax(c),
			LabelIDs:   queryList(c, "labelIds"),
			PageToken:  c.Query("pageToken"),
		}
		if params.Folder == "" {
			errs := api_errors.NewMultiErrors()
			errs.Add("folder", "folder is required", errors.New("folder is empty"))
			api_errors.RespondWithError(c, span, errs)
			return
		}

		listing, status, err := h.mail.List(ctx, middleware.AccountFromContext(c), params, queryOptions(c))
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}

		setCacheHeader(c, status)
		c.JSON(http.StatusOK, listing)
	}
}

// Count serves GET /mail/count.
func (h *MailHandler) Count() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.Count")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		counts, err := h.mail.Count(ctx, middleware.AccountFromContext(c))
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}
