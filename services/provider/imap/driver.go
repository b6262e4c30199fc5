package imap

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

const (
	inboxMailbox       = "INBOX"
	defaultDialTimeout = 30 * time.Second
)

var providerName = string(enum.ProviderIMAP)

type Config struct {
	Host         string
	Port         int
	TLS          bool
	SmtpHost     string
	SmtpPort     int
	TrashMailbox string
	SpamMailbox  string
	SentMailbox  string
	DialTimeout  time.Duration

	LegacySenderFormat bool
	// Authenticator replaces OAUTHBEARER, for servers that only speak PLAIN.
	Authenticator func(creds models.Credentials) sasl.Client
}

type Driver struct {
	cfg    Config
	logger logger.Logger
}

func NewDriver(cfg Config, log logger.Logger) *Driver {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Driver{cfg: cfg, logger: log}
}

func (d *Driver) New(ctx context.Context, creds models.Credentials) (interfaces.MailProvider, error) {
	if creds.AccessToken == "" && d.cfg.Authenticator == nil {
		return nil, webmail_errors.NewAuthenticationError("imap account has no access token", true, webmail_errors.ErrMissingTokens)
	}
	return &Provider{driver: d, creds: creds}, nil
}

// mailboxFor maps the folder vocabulary shared with Gmail onto IMAP names.
func (d *Driver) mailboxFor(folder string) string {
	switch strings.ToLower(folder) {
	case "", enum.FolderInbox:
		return inboxMailbox
	case enum.FolderTrash:
		return d.cfg.TrashMailbox
	case enum.FolderSpam:
		return d.cfg.SpamMailbox
	case enum.FolderSent:
		return d.cfg.SentMailbox
	default:
		return folder
	}
}

func (d *Driver) authenticator(creds models.Credentials) sasl.Client {
	if d.cfg.Authenticator != nil {
		return d.cfg.Authenticator(creds)
	}
	return sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: creds.Email,
		Token:    creds.AccessToken,
		Host:     d.cfg.Host,
		Port:     d.cfg.Port,
	})
}

// connect dials and authenticates one session.
func (d *Driver) connect(ctx context.Context, creds models.Credentials) (*client.Client, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPDriver.connect")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	span.SetTag("server", d.cfg.Host)
	span.SetTag("port", d.cfg.Port)
	span.SetTag("tls", d.cfg.TLS)

	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	dialer := &net.Dialer{
		Timeout:   d.cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *client.Client
	var err error
	if d.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: d.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewUpstreamError(providerName, 0, "failed to connect to "+addr, err)
	}

	c.Timeout = d.cfg.DialTimeout
	if err = c.Authenticate(d.authenticator(creds)); err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewAuthenticationError("imap server rejected the credentials", true, err)
	}
	c.Timeout = 0

	return c, nil
}

// withClient runs fn on a fresh session and logs out afterwards. The
// connection is torn down if ctx ends first.
func (d *Driver) withClient(ctx context.Context, creds models.Credentials, fn func(c *client.Client) error) error {
	c, err := d.connect(ctx, creds)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Terminate()
		case <-done:
		}
	}()

	err = fn(c)
	close(done)

	if logoutErr := c.Logout(); logoutErr != nil && !errors.Is(logoutErr, client.ErrAlreadyLoggedOut) {
		d.logger.Debug("imap logout failed", zap.Error(logoutErr))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
