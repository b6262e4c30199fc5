package gmail

import (
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/normalize"
	"github.com/customeros/webmail/internal/utils"
)

const mimeTypeHTML = "text/html"

// parseMessage builds the normalized record. A body that fails to decode
// still yields a message with an empty document; the error is returned so the
// caller can log it.
func parseMessage(msg *gmailapi.Message, legacySender bool) (*models.Message, error) {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	receivedOn := header(headers, "Date")
	if receivedOn == "" {
		receivedOn = normalize.Failed
	}

	tags := msg.LabelIds
	if tags == nil {
		tags = []string{}
	}

	body := findBody(msg.Payload)
	decoded, decodeErr := normalize.DecodeBase64URL(body)
	processed := normalize.RenderDocument(string(decoded))
	plain, _ := normalize.PlainText(processed)

	return &models.Message{
		ID:            msg.Id,
		ThreadID:      msg.ThreadId,
		Title:         normalize.DecodeEntities(msg.Snippet),
		Subject:       header(headers, "Subject"),
		Sender:        normalize.ParseSender(header(headers, "From"), legacySender),
		Tags:          tags,
		Unread:        utils.IsStringInSlice(enum.LabelUnread, tags),
		ReceivedOn:    receivedOn,
		Body:          body,
		ProcessedHTML: processed,
		PlainText:     plain,
	}, decodeErr
}

// header matches by exact name.
func header(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && h.Name == name {
			return h.Value
		}
	}
	return ""
}

// findBody walks the part tree depth-first and returns the first HTML body.
// Each part is visited at most once, so the walk ends after countParts steps.
func findBody(payload *gmailapi.MessagePart) string {
	if payload == nil {
		return ""
	}

	budget := countParts(payload)
	stack := []*gmailapi.MessagePart{payload}
	for len(stack) > 0 && budget > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		budget--

		if isHTML(part) && part.Body != nil && part.Body.Data != "" {
			return part.Body.Data
		}
		for i := len(part.Parts) - 1; i >= 0; i-- {
			if part.Parts[i] != nil {
				stack = append(stack, part.Parts[i])
			}
		}
	}

	if payload.Body != nil && payload.Body.Data != "" {
		return payload.Body.Data
	}
	if len(payload.Parts) > 0 && payload.Parts[0] != nil && payload.Parts[0].Body != nil {
		return payload.Parts[0].Body.Data
	}
	return ""
}

func countParts(root *gmailapi.MessagePart) int {
	n := 0
	stack := []*gmailapi.MessagePart{root}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		for _, child := range part.Parts {
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
	return n
}

func isHTML(part *gmailapi.MessagePart) bool {
	mimeType, _, _ := strings.Cut(part.MimeType, ";")
	return strings.EqualFold(strings.TrimSpace(mimeType), mimeTypeHTML)
}
