package gmail

import (
	"context"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/internal/utils"
)

const userMe = "me"

type Config struct {
	ClientID     string
	ClientSecret string
	// Endpoint overrides the Gmail API base URL, with trailing slash.
	Endpoint string
	// TokenURL overrides Google's token endpoint used for refreshes.
	TokenURL string
	// HTTPClient replaces the oauth2 transport. Used against fake servers.
	HTTPClient         *http.Client
	LegacySenderFormat bool
}

// Driver holds what is shared by every Gmail account: the oauth2 client and
// the circuit breaker guarding the API.
type Driver struct {
	cfg    Config
	oauth  *oauth2.Config
	cb     *gobreaker.CircuitBreaker
	logger logger.Logger
}

func NewDriver(cfg Config, log logger.Logger) *Driver {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	d := &Driver{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{gmailapi.MailGoogleComScope},
			Endpoint:     endpoint,
		},
		logger: log,
	}
	d.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return d
}

// New builds a provider for one account. It does not call the remote.
func (d *Driver) New(ctx context.Context, creds models.Credentials) (interfaces.MailProvider, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailDriver.New")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, string(enum.ProviderGoogle))

	if err := checkCredentials(creds, utils.Now()); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	opts := make([]option.ClientOption, 0, 2)
	if d.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.cfg.Endpoint))
	}
	if d.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(d.cfg.HTTPClient))
	} else {
		token := &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       creds.Expiry,
		}
		opts = append(opts, option.WithTokenSource(tokenSource{src: d.oauth.TokenSource(ctx, token)}))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create gmail service")
	}

	return &Provider{
		svc:    svc,
		driver: d,
		email:  creds.Email,
	}, nil
}

// checkCredentials rejects tokens that can never authorize a call, so they
// surface as a reconnect instead of failing inside the breaker.
func checkCredentials(creds models.Credentials, now time.Time) error {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return webmail_errors.NewAuthenticationError("google account has no tokens", true, webmail_errors.ErrMissingTokens)
	}
	if creds.RefreshToken == "" && !creds.Expiry.IsZero() && !now.Before(creds.Expiry) {
		return webmail_errors.NewAuthenticationError("google access token expired and cannot be refreshed", true, webmail_errors.ErrTokenExpired)
	}
	return nil
}

// TokenError is any failure of the oauth2 token source. The http client wraps
// it in a *url.Error, which still unwraps to it.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return "oauth2 token source: " + e.Err.Error()
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

type tokenSource struct {
	src oauth2.TokenSource
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	token, err := t.src.Token()
	if err != nil {
		return nil, &TokenError{Err: err}
	}
	return token, nil
}

// execute runs fn inside the breaker and maps whatever comes back.
func (d *Driver) execute(operation string, fn func() error) error {
	_, err := d.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
		d.logger.Warn("gmail call rejected by open circuit", zap.String("operation", operation))
	}
	return mapError(err)
}
