package provider

import (
	"bytes"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/utils"
)

// ComposeMIME renders a structured draft as an RFC 822 message. Addresses are
// not validated here; anything net/mail cannot parse is handed to the remote
// as-is.
func ComposeMIME(draft models.Draft, defaultFrom string) ([]byte, error) {
	fromHeader := draft.From
	if fromHeader == "" {
		fromHeader = defaultFrom
	}
	from := parseAddress(fromHeader)

	builder := enmime.Builder().
		From(from.Name, from.Address).
		Subject(draft.Subject).
		ToAddrs(parseAddresses(draft.To)).
		CCAddrs(parseAddresses(draft.Cc)).
		BCCAddrs(parseAddresses(draft.Bcc)).
		Header("Message-ID", utils.GenerateMessageID(messageIDDomain(from.Address), draft.ThreadID))

	if draft.Text != "" {
		builder = builder.Text([]byte(draft.Text))
	}
	if draft.HTML != "" {
		builder = builder.HTML([]byte(draft.HTML))
	}

	root, err := builder.Build()
	if err != nil {
		return nil, errors.Wrap(webmail_errors.ErrInvalidDraft, err.Error())
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to encode draft")
	}
	return buf.Bytes(), nil
}

func parseAddress(value string) mail.Address {
	value = strings.TrimSpace(value)
	if addr, err := mail.ParseAddress(value); err == nil {
		return *addr
	}
	return mail.Address{Address: value}
}

func parseAddresses(values []string) []mail.Address {
	addrs := make([]mail.Address, 0, len(values))
	for _, v := range utils.UniqueEmails(values) {
		if strings.TrimSpace(v) == "" {
			continue
		}
		addrs = append(addrs, parseAddress(v))
	}
	return addrs
}

func messageIDDomain(address string) string {
	if domain := utils.ExtractDomainFromEmail(address); domain != "" {
		return domain
	}
	return "webmail.local"
}
