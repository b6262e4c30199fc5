package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	api_errors "github.com/customeros/webmail/api/errors"
	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

// SessionCookieName is written by the auth service. Its value is signed as
// "{token}.{signature}".
const SessionCookieName = "better-auth.session_token"

type SessionConfig struct {
	Sessions  interfaces.SessionRepository
	Accounts  interfaces.AccountRepository
	Users     interfaces.UserRepository
	AppSource string
}

// SessionMiddleware resolves the caller's session, user and linked account.
// A request without a live session is rejected with 401. A missing account is
// left for the handler, since some routes work without one.
func SessionMiddleware(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SessionMiddleware")
		defer span.Finish()
		tracing.TagComponentRest(span)

		token := sessionToken(c)
		if token == "" {
			api_errors.RespondWithError(c, span, webmail_errors.NewAuthenticationError("no session token", false, webmail_errors.ErrSessionNotFound))
			return
		}

		session, err := cfg.Sessions.GetByToken(ctx, token)
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		if session == nil {
			api_errors.RespondWithError(c, span, webmail_errors.NewAuthenticationError("unknown session", false, webmail_errors.ErrSessionNotFound))
			return
		}
		if session.Expired(utils.Now()) {
			api_errors.RespondWithError(c, span, webmail_errors.NewAuthenticationError("session expired", false, webmail_errors.ErrSessionExpired))
			return
		}

		c.Set(utils.GinKeyUserId, session.UserID)
		c.Set(utils.GinKeySessionId, session.ID)

		if cfg.Users != nil {
			user, err := cfg.Users.GetByID(ctx, session.UserID)
			if err != nil {
				api_errors.RespondWithError(c, span, err)
				return
			}
			if user != nil {
				c.Set(utils.GinKeyUserEmail, user.Email)
			}
		}

		account, err := cfg.Accounts.GetByUserID(ctx, session.UserID)
		if err != nil {
			api_errors.RespondWithError(c, span, err)
			return
		}
		if account != nil {
			c.Set(utils.GinKeyAccount, account)
		}

		c.Request = c.Request.WithContext(utils.WithCustomContextFromGinRequest(c, cfg.AppSource))
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		token, _, _ := strings.Cut(cookie, ".")
		return token
	}
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// AccountFromContext returns the account set by SessionMiddleware, or nil.
func AccountFromContext(c *gin.Context) *models.Account {
	value, ok := c.Get(utils.GinKeyAccount)
	if !ok {
		return nil
	}
	account, _ := value.(*models.Account)
	return account
}
