package mail

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	api_errors "github.com/customeros/webmail/api/errors"
	"github.com/customeros/webmail/api/middleware"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

// Send serves POST /mail. The body is either {raw} or a structured draft.
// Addresses are not validated here; the provider enforces them.
func (h *MailHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "MailHandler.Send")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var draft models.Draft
		if err := c.ShouldBindJSON(&draft); err != nil {
			errs := api_errors.NewMultiErrors()
			errs.Add("body", "invalid request format", err)
			api_errors.RespondWithError(c, span, errs)
			return
		}

		if errs := validateDraft(&draft); errs.HasErrors() {
			api_errors.RespondWithError(c, span, errs)
			return
		}

		result, err := h.mail.Send(ctx, middleware.AccountFromContext(c), draft)
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func validateDraft(draft *models.Draft) *api_errors.MultiErrors {
	errs := api_errors.NewMultiErrors()
	if draft.Raw == "" && !draft.HasRecipients() {
		errs.Add("to", "provide raw or at least one recipient", errors.New("draft has no recipients"))
	}
	return errs
}
