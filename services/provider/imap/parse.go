package imap

import (
	"bytes"
	"html"
	"io"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/normalize"
	"github.com/customeros/webmail/internal/utils"
)

const titleLength = 200

func flagsToTags(flags []string) []string {
	tags := []string{}
	seen := false
	for _, f := range flags {
		switch imap.CanonicalFlag(f) {
		case imap.SeenFlag:
			seen = true
		case imap.FlaggedFlag:
			tags = append(tags, enum.LabelStarred)
		}
	}
	if !seen {
		tags = append(tags, enum.LabelUnread)
	}
	return tags
}

// parseMessage normalizes a fetched RFC 822 message. On a parse failure the
// returned record still carries the id and flags.
func parseMessage(id string, literal io.Reader, flags []string, legacySender bool) (*models.Message, error) {
	tags := flagsToTags(flags)
	msg := &models.Message{
		ID:         id,
		Tags:       tags,
		Unread:     utils.IsStringInSlice(enum.LabelUnread, tags),
		ReceivedOn: normalize.Failed,
		Sender:     normalize.ParseSender("", legacySender),
	}

	env, err := enmime.ReadEnvelope(literal)
	if err != nil {
		msg.ProcessedHTML = normalize.RenderDocument("")
		return msg, errors.Wrap(err, "failed to parse message")
	}

	if date := env.GetHeader("Date"); date != "" {
		msg.ReceivedOn = date
	}
	msg.Subject = env.GetHeader("Subject")
	msg.Sender = normalize.ParseSender(env.GetHeader("From"), legacySender)
	msg.ThreadID = threadRoot(env)

	body := env.HTML
	rendered := env.HTML
	if body == "" {
		body = env.Text
		rendered = textToHTML(env.Text)
	}
	msg.Body = normalize.EncodeBase64URL([]byte(body))
	msg.ProcessedHTML = normalize.RenderDocument(rendered)

	plain := strings.TrimSpace(env.Text)
	if plain == "" {
		plain, _ = normalize.PlainText(msg.ProcessedHTML)
	}
	msg.PlainText = plain
	msg.Title = truncateRunes(strings.Join(strings.Fields(plain), " "), titleLength)
	return msg, nil
}

// threadRoot is the first Message-ID in References, or the message's own id.
func threadRoot(env *enmime.Envelope) string {
	if refs := strings.Fields(env.GetHeader("References")); len(refs) > 0 {
		return strings.Trim(refs[0], "<>")
	}
	return strings.Trim(env.GetHeader("Message-Id"), "<> ")
}

func textToHTML(text string) string {
	if text == "" {
		return ""
	}
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type outgoing struct {
	from       string
	recipients []string
	messageID  string
}

// readEnvelope collects what SMTP needs from a rendered message. Bcc never
// survives into headers, so the draft's own lists are merged in.
func readEnvelope(raw []byte, draft models.Draft) (*outgoing, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read outgoing message")
	}

	out := &outgoing{messageID: strings.Trim(env.GetHeader("Message-Id"), "<> ")}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		out.from = from[0].Address
	}

	var recipients []string
	for _, key := range []string{"To", "Cc", "Bcc"} {
		list, err := env.AddressList(key)
		if err != nil {
			continue
		}
		for _, addr := range list {
			recipients = append(recipients, addr.Address)
		}
	}
	for _, value := range append(append(append([]string{}, draft.To...), draft.Cc...), draft.Bcc...) {
		if addr, err := mail.ParseAddress(value); err == nil {
			recipients = append(recipients, addr.Address)
		} else if v := strings.TrimSpace(value); v != "" {
			recipients = append(recipients, v)
		}
	}
	out.recipients = utils.UniqueEmails(recipients)
	return out, nil
}
