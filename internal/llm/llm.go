package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultMaxTokens   = 1000
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
	defaultTimeout     = 60 * time.Second
)

var (
	// ErrInvalidModel is returned for model identifiers not in "provider/model" form.
	ErrInvalidModel = errors.New("model must be given as provider/model")

	// ErrUnknownProvider is returned when no backend exists for a provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyResponse is returned when a backend answers without any text.
	ErrEmptyResponse = errors.New("empty response from API")
)

// Message is one chat turn sent to a backend.
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call.
type Request struct {
	// Model is "provider/model" when sent through a Router and the bare
	// model name once it reaches a backend.
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// UserRequest builds a request holding a single user message.
func UserRequest(model, system, prompt string, temperature float64) Request {
	return Request{
		Model:       model,
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
	}
}

// Client produces one completion per request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Batcher is implemented by clients that handle a whole batch themselves.
type Batcher interface {
	BatchComplete(ctx context.Context, reqs []Request) ([]string, error)
}

// BatchComplete completes reqs concurrently and returns the responses in
// request order. The first failure cancels the remaining calls and is
// returned as the batch error.
func BatchComplete(ctx context.Context, c Client, reqs []Request) ([]string, error) {
	if b, ok := c.(Batcher); ok {
		return b.BatchComplete(ctx, reqs)
	}
	return fanOut(ctx, c, reqs)
}

func fanOut(ctx context.Context, c Client, reqs []Request) ([]string, error) {
	out := make([]string, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			text, err := c.Complete(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SplitModel splits "provider/model" at the first slash. Provider names are
// lower-cased; the model part keeps any further slashes.
func SplitModel(model string) (provider, name string, err error) {
	provider, name, ok := strings.Cut(model, "/")
	if !ok || provider == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidModel, model)
	}
	return strings.ToLower(provider), name, nil
}

// retryableError marks a transient backend failure.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
