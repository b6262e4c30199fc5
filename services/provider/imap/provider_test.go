package imap

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-sasl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/logger"
	"github.com/customeros/webmail/internal/models"
)

const htmlMessage = "From: \"Jane Doe\" <jane@example.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Launch plan\r\n" +
	"Date: Thu, 12 May 2016 09:00:00 +0000\r\n" +
	"Message-ID: <launch@example.com>\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Launch <b>tomorrow</b></p><script>alert(1)</script>"

const textMessage = "From: bob@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Re: Launch plan\r\n" +
	"Date: Thu, 12 May 2016 10:00:00 +0000\r\n" +
	"Message-ID: <reply@example.com>\r\n" +
	"References: <launch@example.com>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Sounds good <3"

func startServer(t *testing.T) *net.TCPAddr {
	t.Helper()
	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	require.NoError(t, err)
	require.NoError(t, user.CreateMailbox("[Gmail]/Spam"))

	inbox, err := user.GetMailbox("INBOX")
	require.NoError(t, err)
	require.NoError(t, inbox.CreateMessage([]string{}, time.Now(), bytes.NewBufferString(htmlMessage)))
	require.NoError(t, inbox.CreateMessage([]string{imap.FlaggedFlag}, time.Now(), bytes.NewBufferString(textMessage)))

	s := server.New(be)
	s.AllowInsecureAuth = true
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return l.Addr().(*net.TCPAddr)
}

func newTestProvider(t *testing.T) interfaces.MailProvider {
	t.Helper()
	addr := startServer(t)

	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()

	driver := NewDriver(Config{
		Host:         addr.IP.String(),
		Port:         addr.Port,
		TrashMailbox: "[Gmail]/Trash",
		SpamMailbox:  "[Gmail]/Spam",
		SentMailbox:  "[Gmail]/Sent Mail",
		Authenticator: func(creds models.Credentials) sasl.Client {
			return sasl.NewPlainClient("", "username", "password")
		},
	}, log)

	p, err := driver.New(context.Background(), models.Credentials{Email: "me@example.com"})
	require.NoError(t, err)
	return p
}

func TestProvider_ListNewestFirstWithPaging(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	listing, err := p.List(ctx, models.ListParams{Folder: "inbox", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, listing.Messages, 2)
	assert.Equal(t, "INBOX:8", listing.Messages[0].ID)
	assert.Equal(t, "INBOX:7", listing.Messages[1].ID)
	assert.Equal(t, "7", listing.NextPageToken)
	assert.Equal(t, int64(3), listing.ResultSizeEstimate)

	next, err := p.List(ctx, models.ListParams{Folder: "inbox", MaxResults: 2, PageToken: listing.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, "INBOX:6", next.Messages[0].ID)
	assert.Empty(t, next.NextPageToken)

	empty, err := p.List(ctx, models.ListParams{Folder: "inbox", PageToken: "1"})
	require.NoError(t, err)
	assert.Empty(t, empty.Messages)
}

func TestProvider_ListLabelsAndQuery(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	unread, err := p.List(ctx, models.ListParams{Folder: "inbox", LabelIDs: []string{"UNREAD"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.ResultSizeEstimate)

	starred, err := p.List(ctx, models.ListParams{Folder: "inbox", LabelIDs: []string{"STARRED"}})
	require.NoError(t, err)
	require.Len(t, starred.Messages, 1)
	assert.Equal(t, "INBOX:8", starred.Messages[0].ID)

	found, err := p.List(ctx, models.ListParams{Folder: "inbox", Query: "little message"})
	require.NoError(t, err)
	require.Len(t, found.Messages, 1)
	assert.Equal(t, "INBOX:6", found.Messages[0].ID)
}

func TestProvider_GetHTMLMessage(t *testing.T) {
	p := newTestProvider(t)

	msg, err := p.Get(context.Background(), "INBOX:7")
	require.NoError(t, err)
	assert.Equal(t, "INBOX:7", msg.ID)
	assert.Equal(t, "Launch plan", msg.Subject)
	assert.Equal(t, "Jane Doe", msg.Sender.Name)
	assert.Equal(t, "jane@example.com", msg.Sender.Email)
	assert.Equal(t, "Thu, 12 May 2016 09:00:00 +0000", msg.ReceivedOn)
	assert.True(t, msg.Unread)
	assert.Contains(t, msg.ProcessedHTML, "<b>tomorrow</b>")
	assert.NotContains(t, msg.ProcessedHTML, "<script")
	assert.True(t, msg.Complete())
}

func TestProvider_GetTextMessageIsEscaped(t *testing.T) {
	p := newTestProvider(t)

	msg, err := p.Get(context.Background(), "INBOX:8")
	require.NoError(t, err)
	assert.Equal(t, []string{"STARRED", "UNREAD"}, msg.Tags)
	assert.Equal(t, "launch@example.com", msg.ThreadID)
	assert.Contains(t, msg.ProcessedHTML, "Sounds good &lt;3")
	assert.Equal(t, "Sounds good <3", msg.Title)
}

func TestProvider_GetErrors(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Get(context.Background(), "INBOX:99")
	assert.ErrorIs(t, err, webmail_errors.ErrMessageNotFound)

	_, err = p.Get(context.Background(), "no-uid")
	assert.ErrorIs(t, err, webmail_errors.ErrInvalidMessageID)
}

func TestProvider_DeleteAndCount(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	counts, err := p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.FolderCount{{Folder: "inbox", Count: 3}, {Folder: "spam", Count: 0}}, counts)

	require.NoError(t, p.Delete(ctx, "INBOX:6"))

	counts, err = p.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[0].Count)
}

func TestParseMessageID(t *testing.T) {
	mailbox, uid, err := parseMessageID("[Gmail]/Sent Mail:42")
	require.NoError(t, err)
	assert.Equal(t, "[Gmail]/Sent Mail", mailbox)
	assert.Equal(t, uint32(42), uid)

	for _, bad := range []string{"", "INBOX:", ":5", "INBOX:x", "INBOX:0"} {
		_, _, err := parseMessageID(bad)
		assert.ErrorIs(t, err, webmail_errors.ErrInvalidMessageID, bad)
	}
}

func TestReadEnvelope_MergesDraftRecipients(t *testing.T) {
	raw := []byte("From: Me <me@example.com>\r\nTo: a@example.com\r\nMessage-Id: <x@example.com>\r\nSubject: s\r\n\r\nbody")

	out, err := readEnvelope(raw, models.Draft{To: []string{"a@example.com"}, Bcc: []string{"Hidden <b@example.com>"}})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", out.from)
	assert.Equal(t, "x@example.com", out.messageID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, out.recipients)
}

func TestXOAuth2Auth(t *testing.T) {
	auth := &xoauth2Auth{username: "me@example.com", token: "tok"}

	mech, ir, err := auth.Start(nil)
	require.NoError(t, err)
	assert.Equal(t, "XOAUTH2", mech)
	assert.Equal(t, "user=me@example.com\x01auth=Bearer tok\x01\x01", string(ir))
	assert.True(t, strings.HasPrefix(string(ir), "user="))
}
