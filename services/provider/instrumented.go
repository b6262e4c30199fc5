package provider

import (
	"context"
	"time"

	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/metrics"
	"github.com/customeros/webmail/internal/models"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type instrumented struct {
	next interfaces.MailProvider
}

// Instrument records request latency for every provider operation.
func Instrument(p interfaces.MailProvider) interfaces.MailProvider {
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{next: p}
}

func (i *instrumented) observe(operation string, started time.Time, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	metrics.ObserveProvider(i.next.Name(), operation, status, started)
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) List(ctx context.Context, params models.ListParams) (*models.Listing, error) {
	started := time.Now()
	listing, err := i.next.List(ctx, params)
	i.observe("list", started, err)
	return listing, err
}

func (i *instrumented) Get(ctx context.Context, id string) (*models.Message, error) {
	started := time.Now()
	msg, err := i.next.Get(ctx, id)
	i.observe("get", started, err)
	return msg, err
}

func (i *instrumented) Create(ctx context.Context, draft models.Draft) (*models.SendResult, error) {
	started := time.Now()
	res, err := i.next.Create(ctx, draft)
	i.observe("create", started, err)
	return res, err
}

func (i *instrumented) Delete(ctx context.Context, id string) error {
	started := time.Now()
	err := i.next.Delete(ctx, id)
	i.observe("delete", started, err)
	return err
}

func (i *instrumented) Count(ctx context.Context) ([]models.FolderCount, error) {
	started := time.Now()
	counts, err := i.next.Count(ctx)
	i.observe("count", started, err)
	return counts, err
}
