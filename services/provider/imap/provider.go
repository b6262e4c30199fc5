package imap

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/normalize"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/services/provider"
)

// Provider is an IMAP mailbox bound to one account. Every operation opens
// its own session.
type Provider struct {
	driver *Driver
	creds  models.Credentials
}

func (p *Provider) Name() string {
	return providerName
}

// messageID is "{mailbox}:{uid}". UIDs are stable while UIDVALIDITY holds.
func messageID(mailbox string, uid uint32) string {
	return fmt.Sprintf("%s:%d", mailbox, uid)
}

func parseMessageID(id string) (string, uint32, error) {
	idx := strings.LastIndex(id, ":")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, errors.Wrap(webmail_errors.ErrInvalidMessageID, id)
	}
	uid, err := strconv.ParseUint(id[idx+1:], 10, 32)
	if err != nil || uid == 0 {
		return "", 0, errors.Wrap(webmail_errors.ErrInvalidMessageID, id)
	}
	return id[:idx], uint32(uid), nil
}

// buildCriteria returns nil criteria when the page token leaves nothing to search.
func buildCriteria(params models.ListParams) (*imap.SearchCriteria, error) {
	criteria := imap.NewSearchCriteria()
	if q := strings.TrimSpace(params.Query); q != "" {
		criteria.Text = []string{q}
	}
	for _, label := range params.LabelIDs {
		switch strings.ToUpper(strings.TrimSpace(label)) {
		case enum.LabelUnread:
			criteria.WithoutFlags = append(criteria.WithoutFlags, imap.SeenFlag)
		case enum.LabelStarred:
			criteria.WithFlags = append(criteria.WithFlags, imap.FlaggedFlag)
		}
	}
	if params.PageToken != "" {
		below, err := strconv.ParseUint(params.PageToken, 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "invalid page token")
		}
		if below <= 1 {
			return nil, nil
		}
		criteria.Uid = new(imap.SeqSet)
		criteria.Uid.AddRange(1, uint32(below-1))
	}
	return criteria, nil
}

func (p *Provider) List(ctx context.Context, params models.ListParams) (*models.Listing, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPProvider.List")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	span.SetTag("folder", params.Folder)

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = models.DefaultMaxResults
	}
	mailbox := p.driver.mailboxFor(params.Folder)
	criteria, err := buildCriteria(params)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewUpstreamError(providerName, http.StatusBadRequest, err.Error(), err)
	}
	if criteria == nil {
		return &models.Listing{Messages: []models.MessageSummary{}}, nil
	}

	var uids []uint32
	err = p.driver.withClient(ctx, p.creds, func(c *client.Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return webmail_errors.NewUpstreamError(providerName, http.StatusNotFound, "mailbox not found: "+mailbox, err)
		}
		var err error
		uids, err = c.UidSearch(criteria)
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mapError(err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	listing := &models.Listing{ResultSizeEstimate: int64(len(uids))}
	page := uids
	if int64(len(page)) > maxResults {
		page = page[:maxResults]
		listing.NextPageToken = strconv.FormatUint(uint64(page[len(page)-1]), 10)
	}
	listing.Messages = make([]models.MessageSummary, 0, len(page))
	for _, uid := range page {
		listing.Messages = append(listing.Messages, models.MessageSummary{ID: messageID(mailbox, uid)})
	}
	span.SetTag("result.count", len(listing.Messages))
	return listing, nil
}

func (p *Provider) Get(ctx context.Context, id string) (*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPProvider.Get")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	tracing.TagEntity(span, id)

	mailbox, uid, err := parseMessageID(id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewUpstreamError(providerName, http.StatusBadRequest, err.Error(), err)
	}

	section := &imap.BodySectionName{Peek: true}
	var fetched *imap.Message
	err = p.driver.withClient(ctx, p.creds, func(c *client.Client) error {
		if _, err := c.Select(mailbox, true); err != nil {
			return webmail_errors.NewUpstreamError(providerName, http.StatusNotFound, "mailbox not found: "+mailbox, err)
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)

		ch := make(chan *imap.Message, 1)
		done := make(chan error, 1)
		go func() {
			done <- c.UidFetch(seqSet, []imap.FetchItem{imap.FetchUid, imap.FetchFlags, section.FetchItem()}, ch)
		}()
		for m := range ch {
			fetched = m
		}
		return <-done
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mapError(err)
	}
	if fetched == nil {
		err = webmail_errors.NewUpstreamError(providerName, http.StatusNotFound, "message not found",
			errors.Wrap(webmail_errors.ErrMessageNotFound, id))
		tracing.TraceErr(span, err)
		return nil, err
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		err = webmail_errors.NewUpstreamError(providerName, http.StatusBadGateway, "server returned no message body", nil)
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg, parseErr := parseMessage(id, literal, fetched.Flags, p.driver.cfg.LegacySenderFormat)
	if parseErr != nil {
		p.driver.logger.Warn("imap message could not be fully parsed", zap.String("messageId", id), zap.Error(parseErr))
	}
	return msg, nil
}

func (p *Provider) Create(ctx context.Context, draft models.Draft) (*models.SendResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPProvider.Create")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)

	var raw []byte
	var err error
	if draft.Raw != "" {
		raw, err = normalize.DecodeBase64URL(draft.Raw)
	} else {
		raw, err = provider.ComposeMIME(draft, p.creds.Email)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewUpstreamError(providerName, http.StatusBadRequest, err.Error(), err)
	}

	envelope, err := readEnvelope(raw, draft)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, webmail_errors.NewUpstreamError(providerName, http.StatusBadRequest, err.Error(), err)
	}
	if len(envelope.recipients) == 0 {
		err = errors.Wrap(webmail_errors.ErrInvalidDraft, "no recipients")
		tracing.TraceErr(span, err)
		return nil, err
	}

	from := envelope.from
	if from == "" {
		from = p.creds.Email
	}
	if err = p.driver.sendMail(ctx, p.creds, from, envelope.recipients, raw); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &models.SendResult{ID: envelope.messageID, ThreadID: draft.ThreadID}, nil
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPProvider.Delete")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	tracing.TagEntity(span, id)

	mailbox, uid, err := parseMessageID(id)
	if err != nil {
		tracing.TraceErr(span, err)
		return webmail_errors.NewUpstreamError(providerName, http.StatusBadRequest, err.Error(), err)
	}

	err = p.driver.withClient(ctx, p.creds, func(c *client.Client) error {
		if _, err := c.Select(mailbox, false); err != nil {
			return webmail_errors.NewUpstreamError(providerName, http.StatusNotFound, "mailbox not found: "+mailbox, err)
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uid)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return err
		}
		return c.Expunge(nil)
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return mapError(err)
	}
	return nil
}

func (p *Provider) Count(ctx context.Context) ([]models.FolderCount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPProvider.Count")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)

	folders := []string{enum.FolderInbox, enum.FolderSpam}
	counts := make([]models.FolderCount, 0, len(folders))
	err := p.driver.withClient(ctx, p.creds, func(c *client.Client) error {
		for _, folder := range folders {
			status, err := c.Status(p.driver.mailboxFor(folder), []imap.StatusItem{imap.StatusMessages})
			if err != nil {
				return err
			}
			counts = append(counts, models.FolderCount{Folder: folder, Count: int64(status.Messages)})
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mapError(err)
	}
	return counts, nil
}

// mapError leaves typed errors alone and reports anything else as a gateway failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var upstream *webmail_errors.UpstreamError
	var authErr *webmail_errors.AuthenticationError
	if errors.As(err, &upstream) || errors.As(err, &authErr) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return webmail_errors.NewUpstreamError(providerName, http.StatusBadGateway, err.Error(), err)
}
