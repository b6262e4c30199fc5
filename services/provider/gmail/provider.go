package gmail

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/customeros/webmail/internal/enum"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/normalize"
	"github.com/customeros/webmail/internal/tracing"
	"github.com/customeros/webmail/services/provider"
)

var countedFolders = []string{enum.FolderInbox, enum.FolderSpam}

// Provider is a Gmail mailbox bound to one account.
type Provider struct {
	svc    *gmailapi.Service
	driver *Driver
	email  string
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) List(ctx context.Context, params models.ListParams) (*models.Listing, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailProvider.List")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	span.SetTag("folder", params.Folder)

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = models.DefaultMaxResults
	}
	_, q := normalizeSearch(params.Folder, params.Query)
	labels := listLabels(params.Folder, params.LabelIDs)

	call := p.svc.Users.Messages.List(userMe).MaxResults(maxResults).Context(ctx)
	if q != "" {
		call = call.Q(q)
	}
	if len(labels) > 0 {
		call = call.LabelIds(labels...)
	}
	if params.PageToken != "" {
		call = call.PageToken(params.PageToken)
	}

	var resp *gmailapi.ListMessagesResponse
	err := p.driver.execute("list", func() error {
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	listing := &models.Listing{
		Messages:           make([]models.MessageSummary, 0, len(resp.Messages)),
		NextPageToken:      resp.NextPageToken,
		ResultSizeEstimate: resp.ResultSizeEstimate,
	}
	for _, m := range resp.Messages {
		if int64(len(listing.Messages)) >= maxResults {
			break
		}
		if m == nil {
			continue
		}
		listing.Messages = append(listing.Messages, models.MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
	}
	span.SetTag("result.count", len(listing.Messages))
	return listing, nil
}

func (p *Provider) Get(ctx context.Context, id string) (*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailProvider.Get")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	tracing.TagEntity(span, id)

	var msg *gmailapi.Message
	err := p.driver.execute("get", func() error {
		var err error
		msg, err = p.svc.Users.Messages.Get(userMe, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	parsed, decodeErr := parseMessage(msg, p.driver.cfg.LegacySenderFormat)
	if decodeErr != nil {
		p.driver.logger.Warn("gmail body could not be decoded",
			zap.String("messageId", id), zap.Error(decodeErr))
	}
	return parsed, nil
}

func (p *Provider) Create(ctx context.Context, draft models.Draft) (*models.SendResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailProvider.Create")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)

	raw := draft.Raw
	if raw == "" {
		built, err := provider.ComposeMIME(draft, p.email)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		raw = normalize.EncodeBase64URL(built)
	}

	var sent *gmailapi.Message
	err := p.driver.execute("create", func() error {
		var err error
		sent, err = p.svc.Users.Messages.Send(userMe, &gmailapi.Message{Raw: raw, ThreadId: draft.ThreadID}).Context(ctx).Do()
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	tracing.TagEntity(span, sent.Id)
	return &models.SendResult{ID: sent.Id, ThreadID: sent.ThreadId, LabelIDs: sent.LabelIds}, nil
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailProvider.Delete")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)
	tracing.TagEntity(span, id)

	err := p.driver.execute("delete", func() error {
		return p.svc.Users.Messages.Delete(userMe, id).Context(ctx).Do()
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// Count returns the result size estimate of every counted folder, in order.
func (p *Provider) Count(ctx context.Context) ([]models.FolderCount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailProvider.Count")
	defer span.Finish()
	tracing.SetDefaultProviderSpanTags(ctx, span, providerName)

	counts := make([]models.FolderCount, len(countedFolders))
	g, gctx := errgroup.WithContext(ctx)
	for i, folder := range countedFolders {
		i, folder := i, folder
		g.Go(func() error {
			_, q := normalizeSearch(folder, "")
			call := p.svc.Users.Messages.List(userMe).Context(gctx)
			if q != "" {
				call = call.Q(q)
			}
			if labels := listLabels(folder, nil); len(labels) > 0 {
				call = call.LabelIds(labels...)
			}
			return p.driver.execute("count", func() error {
				resp, err := call.Do()
				if err != nil {
					return err
				}
				counts[i] = models.FolderCount{Folder: folder, Count: resp.ResultSizeEstimate}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return counts, nil
}
