package models

// Sender is the parsed From header of a message.
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is the normalized record produced by every provider.
type Message struct {
	ID            string   `json:"id"`
	ThreadID      string   `json:"threadId,omitempty"`
	Title         string   `json:"title"`
	Subject       string   `json:"subject,omitempty"`
	Sender        Sender   `json:"sender"`
	Tags          []string `json:"tags"`
	Unread        bool     `json:"unread"`
	ReceivedOn    string   `json:"receivedOn"`
	Body          string   `json:"body"`
	ProcessedHTML string   `json:"processedHtml"`
	PlainText     string   `json:"plainText,omitempty"`
}

// Complete reports whether the record carries everything the reading pane needs.
// Summaries stored by a listing are not complete.
func (m *Message) Complete() bool {
	return m != nil && m.ID != "" && m.ProcessedHTML != ""
}

type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
}

// Listing is one page of a folder or search, in provider order.
type Listing struct {
	Messages           []MessageSummary `json:"messages"`
	NextPageToken      string           `json:"nextPageToken,omitempty"`
	ResultSizeEstimate int64            `json:"resultSizeEstimate"`
}

// DefaultMaxResults applies when a listing asks for zero or fewer results.
const DefaultMaxResults = int64(10)

type ListParams struct {
	Folder     string
	Query      string
	MaxResults int64
	LabelIDs   []string
	PageToken  string
}

type FolderCount struct {
	Folder string `json:"folder"`
	Count  int64  `json:"count"`
}

// Draft is either a pre-encoded RFC 822 message (Raw) or structured fields
// the provider renders itself.
type Draft struct {
	Raw      string   `json:"raw,omitempty"`
	ThreadID string   `json:"threadId,omitempty"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to,omitempty"`
	Cc       []string `json:"cc,omitempty"`
	Bcc      []string `json:"bcc,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	HTML     string   `json:"html,omitempty"`
	Text     string   `json:"text,omitempty"`
}

func (d *Draft) HasRecipients() bool {
	return len(d.To)+len(d.Cc)+len(d.Bcc) > 0
}

type SendResult struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId,omitempty"`
	LabelIDs []string `json:"labelIds,omitempty"`
}

// QueryOptions controls how the query layer uses the cache. Revalidate skips
// the cache read. Background serves the cached value and refreshes it after
// the response.
type QueryOptions struct {
	Revalidate bool
	Background bool
}
