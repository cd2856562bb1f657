package llm

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

// Factory builds the backend for one provider.
type Factory func(provider string, opts Options) (Client, error)

// DefaultFactory knows the anthropic, openai and ollama providers.
func DefaultFactory(provider string, opts Options) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "ollama":
		return NewOllama(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

// Router dispatches "provider/model" requests to per-provider backends,
// creating each backend on first use.
type Router struct {
	providers map[string]config.ProviderConfig
	factory   Factory
	logger    *logging.Logger
	tracer    trace.Tracer
	metrics   *telemetry.Metrics

	mu       sync.Mutex
	backends map[string]Client
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithFactory replaces the backend constructor.
func WithFactory(f Factory) RouterOption {
	return func(r *Router) { r.factory = f }
}

// WithBackend registers a ready-made backend for provider.
func WithBackend(provider string, c Client) RouterOption {
	return func(r *Router) { r.backends[provider] = c }
}

// WithLogger sets the router logger.
func WithLogger(l *logging.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithTelemetry instruments every backend the router creates.
func WithTelemetry(tracer trace.Tracer, m *telemetry.Metrics) RouterOption {
	return func(r *Router) {
		r.tracer = tracer
		r.metrics = m
	}
}

// NewRouter creates a router over the providers configured in cfg.
func NewRouter(cfg *config.Config, opts ...RouterOption) *Router {
	r := &Router{
		providers: map[string]config.ProviderConfig{},
		factory:   DefaultFactory,
		logger:    logging.NewNop(),
		backends:  map[string]Client{},
	}
	if cfg != nil {
		for name, pc := range cfg.Providers {
			r.providers[name] = pc
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete routes req to the backend named by its model prefix.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	provider, name, err := SplitModel(req.Model)
	if err != nil {
		return "", err
	}
	backend, err := r.backend(ctx, provider)
	if err != nil {
		return "", err
	}
	req.Model = name
	return backend.Complete(ctx, req)
}

// BatchComplete hands a batch that targets a single provider to that
// backend's batcher. Mixed batches fan out through Complete.
func (r *Router) BatchComplete(ctx context.Context, reqs []Request) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	provider := ""
	routed := make([]Request, len(reqs))
	for i, req := range reqs {
		p, name, err := SplitModel(req.Model)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		if i > 0 && p != provider {
			return fanOut(ctx, r, reqs)
		}
		provider = p
		req.Model = name
		routed[i] = req
	}
	backend, err := r.backend(ctx, provider)
	if err != nil {
		return nil, err
	}
	return BatchComplete(ctx, backend, routed)
}

func (r *Router) backend(ctx context.Context, provider string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.backends[provider]; ok {
		return c, nil
	}

	c, err := r.factory(provider, OptionsFromConfig(r.providers[provider]))
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", provider, err)
	}
	if r.tracer != nil || r.metrics != nil {
		c = Instrument(c, provider, r.tracer, r.metrics)
	}
	r.backends[provider] = c

	r.logger.Debug(ctx, "completion backend ready", zap.String("provider", provider))
	return c, nil
}

var (
	_ Client  = (*Router)(nil)
	_ Batcher = (*Router)(nil)
)
