package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/customeros/webmail/internal/normalize"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestFindBody_FirstHTMLPartWinsDepthFirst(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain")}},
					{MimeType: "text/html; charset=UTF-8", Body: &gmailapi.MessagePartBody{Data: b64("<p>nested</p>")}},
				},
			},
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>later</p>")}},
		},
	}

	assert.Equal(t, b64("<p>nested</p>"), findBody(payload))
}

func TestFindBody_Fallbacks(t *testing.T) {
	t.Run("top level body", func(t *testing.T) {
		payload := &gmailapi.MessagePart{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("top")}}
		assert.Equal(t, b64("top"), findBody(payload))
	})
	t.Run("first part body", func(t *testing.T) {
		payload := &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Body:     &gmailapi.MessagePartBody{},
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("first")}},
			},
		}
		assert.Equal(t, b64("first"), findBody(payload))
	})
	t.Run("nothing", func(t *testing.T) {
		assert.Equal(t, "", findBody(&gmailapi.MessagePart{MimeType: "multipart/mixed"}))
		assert.Equal(t, "", findBody(nil))
	})
}

func TestFindBody_DeepTreeTerminates(t *testing.T) {
	root := &gmailapi.MessagePart{MimeType: "multipart/mixed"}
	cur := root
	for i := 0; i < 500; i++ {
		next := &gmailapi.MessagePart{MimeType: "multipart/mixed"}
		cur.Parts = []*gmailapi.MessagePart{next, {MimeType: "text/plain"}}
		cur = next
	}
	cur.Parts = []*gmailapi.MessagePart{{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<b>deep</b>")}}}

	assert.Equal(t, b64("<b>deep</b>"), findBody(root))
	assert.Equal(t, 1002, countParts(root))
}

func TestParseMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:       "18c",
		ThreadId: "18a",
		Snippet:  "It&#39;s &amp; done",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
				{Name: "From", Value: `"Jane Doe" <jane@example.com>`},
				{Name: "Subject", Value: "Quarterly"},
			},
			Body: &gmailapi.MessagePartBody{Data: b64(`<p>Hello</p><script>x()</script>`)},
		},
	}

	parsed, err := parseMessage(msg, false)
	require.NoError(t, err)

	assert.Equal(t, "18c", parsed.ID)
	assert.Equal(t, "18a", parsed.ThreadID)
	assert.Equal(t, "It's & done", parsed.Title)
	assert.Equal(t, "Quarterly", parsed.Subject)
	assert.Equal(t, "Jane Doe", parsed.Sender.Name)
	assert.Equal(t, "jane@example.com", parsed.Sender.Email)
	assert.True(t, parsed.Unread)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, parsed.Tags)
	assert.Equal(t, "Mon, 2 Jan 2006 15:04:05 -0700", parsed.ReceivedOn)
	assert.Contains(t, parsed.ProcessedHTML, "<p>Hello</p>")
	assert.NotContains(t, parsed.ProcessedHTML, "<script")
	assert.Equal(t, "Hello", parsed.PlainText)
	assert.True(t, parsed.Complete())
}

func TestParseMessage_MissingHeadersAndLegacySender(t *testing.T) {
	bare := &gmailapi.Message{Id: "1", Payload: &gmailapi.MessagePart{}}
	parsed, err := parseMessage(bare, false)
	require.NoError(t, err)
	assert.Equal(t, normalize.Failed, parsed.ReceivedOn)
	assert.Equal(t, normalize.Failed, parsed.Sender.Name)
	assert.Equal(t, normalize.Failed, parsed.Sender.Email)
	assert.Equal(t, []string{}, parsed.Tags)
	assert.False(t, parsed.Unread)

	legacy := &gmailapi.Message{Id: "2", Payload: &gmailapi.MessagePart{
		Headers: []*gmailapi.MessagePartHeader{{Name: "From", Value: `"Jane Doe" <jane@example.com>`}},
	}}
	parsed, err = parseMessage(legacy, true)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", parsed.Sender.Name)
	assert.Equal(t, "<jane@example.com", parsed.Sender.Email)
}

func TestParseMessage_HeadersMatchExactName(t *testing.T) {
	msg := &gmailapi.Message{Id: "3", Payload: &gmailapi.MessagePart{
		Headers: []*gmailapi.MessagePartHeader{{Name: "date", Value: "lowercase"}},
	}}
	parsed, _ := parseMessage(msg, false)
	assert.Equal(t, normalize.Failed, parsed.ReceivedOn)
}

func TestParseMessage_MalformedBodyDegrades(t *testing.T) {
	msg := &gmailapi.Message{Id: "4", Payload: &gmailapi.MessagePart{
		MimeType: "text/html",
		Body:     &gmailapi.MessagePartBody{Data: "%%%not base64%%%"},
	}}

	parsed, err := parseMessage(msg, false)
	assert.Error(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "4", parsed.ID)
	assert.Contains(t, parsed.ProcessedHTML, "<body>")
}

func decodeRaw(raw string) (string, error) {
	decoded, err := normalize.DecodeBase64URL(raw)
	return string(decoded), err
}
