package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/opentracing/opentracing-go"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

const implicitTLSPort = 465

// xoauth2Auth is Google's XOAUTH2 SASL mechanism for net/smtp.
type xoauth2Auth struct {
	username string
	token    string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "XOAUTH2", []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"), nil
}

// Next answers the server's error challenge with an empty response so the
// server finishes with its failure code.
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func (d *Driver) sendMail(ctx context.Context, creds models.Credentials, from string, recipients []string, message []byte) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPDriver.sendMail")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	span.LogKV("smtp_server", d.cfg.SmtpHost)
	span.LogKV("smtp_port", d.cfg.SmtpPort)

	addr := net.JoinHostPort(d.cfg.SmtpHost, strconv.Itoa(d.cfg.SmtpPort))
	dialer := &net.Dialer{Timeout: d.cfg.DialTimeout}
	tlsConfig := &tls.Config{ServerName: d.cfg.SmtpHost}

	var conn net.Conn
	var err error
	if d.cfg.SmtpPort == implicitTLSPort {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "failed to connect to SMTP server", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, d.cfg.SmtpHost)
	if err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "failed to create SMTP client", err)
	}
	defer c.Close()

	if d.cfg.SmtpPort != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err = c.StartTLS(tlsConfig); err != nil {
				tracing.TraceErr(span, err)
				return webmail_errors.NewUpstreamError(providerName, 0, "failed to start TLS", err)
			}
		}
	}

	if err = c.Auth(&xoauth2Auth{username: creds.Email, token: creds.AccessToken}); err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewAuthenticationError("smtp server rejected the access token", true, err)
	}
	if err = c.Mail(from); err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "SMTP MAIL command failed", err)
	}
	for _, rcpt := range recipients {
		if err = c.Rcpt(rcpt); err != nil {
			tracing.TraceErr(span, err)
			return webmail_errors.NewUpstreamError(providerName, 0, fmt.Sprintf("SMTP RCPT command failed for %s", rcpt), err)
		}
	}

	w, err := c.Data()
	if err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "SMTP DATA command failed", err)
	}
	if _, err = w.Write(message); err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "failed to write message data", err)
	}
	if err = w.Close(); err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, 0, "SMTP server refused the message", err)
	}
	return c.Quit()
}
