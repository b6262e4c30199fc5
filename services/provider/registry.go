package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	webmail_errors "github.com/customeros/webmail/errors"
	"github.com/customeros/webmail/interfaces"
	"github.com/customeros/webmail/internal/models"
	"github.com/customeros/webmail/internal/tracing"
)

// Constructor builds a provider bound to one account's credentials.
type Constructor func(ctx context.Context, creds models.Credentials) (interfaces.MailProvider, error)

// Registry maps an account's providerId to the adapter able to serve it.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

func (r *Registry) Register(providerID string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[providerID] = constructor
}

func (r *Registry) New(ctx context.Context, providerID string, creds models.Credentials) (interfaces.MailProvider, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Registry.New")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("provider", providerID)

	r.mu.RLock()
	constructor, ok := r.constructors[providerID]
	r.mu.RUnlock()
	if !ok {
		err := errors.Wrap(webmail_errors.ErrProviderNotSupported, providerID)
		tracing.TraceErr(span, err)
		return nil, err
	}

	p, err := constructor(ctx, creds)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return Instrument(p), nil
}

func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
