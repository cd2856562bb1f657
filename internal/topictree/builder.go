package topictree

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/extraction"
	"github.com/fyrsmithlabs/promptwright/internal/llm"
	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/prompts"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

const (
	defaultMaxAttempts = 3
	subtopicMaxTokens  = 1000

	// DefaultPartialPath receives whatever was built when a build aborts.
	DefaultPartialPath = "partial_tree.jsonl"

	noErrorRecorded = "No error recorded"
)

// Args describes the tree to build.
type Args struct {
	RootPrompt   string
	SystemPrompt string
	Degree       int
	Depth        int
	Model        string
	Temperature  float64
}

// Observer is told about every expanded node.
type Observer interface {
	OnNode(path []string, subtopics []string, fallback bool)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnNode([]string, []string, bool) {}

// Builder expands topic trees through a completion backend.
type Builder struct {
	client      llm.Client
	extractor   *extraction.ListExtractor
	logger      *logging.Logger
	observer    Observer
	tracer      trace.Tracer
	metrics     *telemetry.Metrics
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	partialPath string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMaxAttempts sets the per-node attempt budget. Defaults to 3.
func WithMaxAttempts(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay after the given failed attempt (1-based).
// Defaults to 2^attempt seconds.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(b *Builder) { b.backoff = fn }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Builder) { b.sleep = fn }
}

// WithObserver is told about every expanded node.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithTelemetry enables node spans and tree metrics. Either may be nil.
func WithTelemetry(tracer trace.Tracer, m *telemetry.Metrics) Option {
	return func(b *Builder) {
		b.tracer = tracer
		b.metrics = m
	}
}

// WithPartialPath sets where a partial tree goes when a build aborts. An
// empty path disables the save.
func WithPartialPath(path string) Option {
	return func(b *Builder) { b.partialPath = path }
}

// NewBuilder creates a builder that talks to client.
func NewBuilder(client llm.Client, opts ...Option) *Builder {
	b := &Builder{
		client:      client,
		logger:      logging.NewNop(),
		observer:    NopObserver{},
		tracer:      noop.NewTracerProvider().Tracer("topictree"),
		maxAttempts: defaultMaxAttempts,
		backoff:     exponentialBackoff,
		sleep:       sleepContext,
		partialPath: DefaultPartialPath,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.extractor = extraction.NewListExtractor(extraction.TopicOrder,
		extraction.WithDiagnostic(func(msg string) {
			b.logger.Debug(context.Background(), "subtopic extraction", zap.String("note", msg))
		}),
	)
	return b
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// build carries the per-build state through the recursion.
type build struct {
	args   Args
	system string
	tree   *Tree
}

// Build expands args.RootPrompt depth-first. When ctx is cancelled the tree
// built so far is returned together with the context error and saved to the
// partial path.
func (b *Builder) Build(ctx context.Context, args Args) (*Tree, error) {
	if strings.TrimSpace(args.Model) == "" {
		return nil, ErrModelRequired
	}
	if strings.TrimSpace(args.RootPrompt) == "" {
		return nil, ErrRootRequired
	}
	if args.Degree < 0 || args.Depth < 0 {
		return nil, fmt.Errorf("%w: degree=%d depth=%d", ErrInvalidShape, args.Degree, args.Depth)
	}

	ctx, span := b.tracer.Start(ctx, "topictree.build", trace.WithAttributes(
		attribute.String("llm.model", args.Model),
		attribute.Int("tree.degree", args.Degree),
		attribute.Int("tree.depth", args.Depth),
	))
	defer span.End()

	b.logger.Info(ctx, "building topic tree",
		zap.String("model", args.Model),
		zap.Int("degree", args.Degree),
		zap.Int("depth", args.Depth),
	)

	st := &build{
		args:   args,
		system: prompts.TreeJSONInstructions + args.SystemPrompt,
		tree:   &Tree{},
	}
	if err := b.expand(ctx, st, []string{args.RootPrompt}, args.Depth); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error(ctx, "topic tree build aborted", zap.Error(err), zap.Int("paths", st.tree.Len()))
		b.savePartial(ctx, st.tree)
		return st.tree, err
	}

	span.SetAttributes(
		attribute.Int("tree.paths", st.tree.Len()),
		attribute.Int("tree.failed", len(st.tree.Failed)),
	)
	b.logger.Info(ctx, "topic tree complete", zap.Int("paths", st.tree.Len()))
	if n := len(st.tree.Failed); n > 0 {
		b.logger.Warn(ctx, "subtopic generations failed", zap.Int("failed", n))
	}
	return st.tree, nil
}

func (b *Builder) savePartial(ctx context.Context, t *Tree) {
	if b.partialPath == "" || t.Len() == 0 {
		return
	}
	if err := t.Save(b.partialPath); err != nil {
		b.logger.Error(ctx, "saving partial tree", zap.Error(err))
		return
	}
	b.logger.Info(ctx, "partial tree saved", zap.String("path", b.partialPath))
}

// expand appends every leaf path below path to st.tree.
func (b *Builder) expand(ctx context.Context, st *build, path []string, depth int) error {
	if depth == 0 {
		st.tree.Paths = append(st.tree.Paths, path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := b.subtopics(ctx, st, path)
	if err != nil {
		return err
	}
	if res.fallback {
		st.tree.Failed = append(st.tree.Failed, FailedGeneration{
			Path:      path,
			Attempts:  res.attempts,
			LastError: res.lastErr,
		})
	}
	b.metrics.RecordTreeNode(res.fallback)
	b.observer.OnNode(path, res.topics, res.fallback)

	for _, topic := range res.topics {
		child := make([]string, len(path)+1)
		copy(child, path)
		child[len(path)] = topic
		if err := b.expand(ctx, st, child, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// attempt is the outcome of one generation call.
type attempt struct {
	topics []string
	err    error
}

// nodeResult is what a node's attempts reduce to.
type nodeResult struct {
	topics   []string
	fallback bool
	attempts int
	lastErr  string
}

// subtopics runs up to maxAttempts generation attempts for one node and
// falls back to placeholders when none succeeds. Only context errors are
// returned.
func (b *Builder) subtopics(ctx context.Context, st *build, path []string) (nodeResult, error) {
	n := st.args.Degree
	if n == 0 {
		return nodeResult{}, nil
	}

	ctx = logging.WithTopicPath(ctx, path)
	prompt := prompts.Subtopics(st.system, path, n)
	b.logger.Debug(ctx, "generating subtopics", zap.Int("count", n))

	lastErr := noErrorRecorded
	tries := 0
	for tries < b.maxAttempts {
		out := b.try(ctx, st, prompt, n)
		tries++
		if out.err == nil {
			return nodeResult{topics: out.topics, attempts: tries}, nil
		}
		if ctx.Err() != nil {
			return nodeResult{}, ctx.Err()
		}

		lastErr = out.err.Error()
		b.logger.Warn(ctx, "subtopic generation attempt failed",
			zap.Int("attempt", tries),
			zap.Int("max_attempts", b.maxAttempts),
			zap.String("error", lastErr),
		)
		if tries < b.maxAttempts {
			if err := b.sleep(ctx, b.backoff(tries)); err != nil {
				return nodeResult{}, err
			}
		}
	}

	b.logger.Warn(ctx, "using placeholder subtopics", zap.Int("attempts", tries), zap.String("last_error", lastErr))
	return nodeResult{
		topics:   placeholders(path, n),
		fallback: true,
		attempts: tries,
		lastErr:  lastErr,
	}, nil
}

func (b *Builder) try(ctx context.Context, st *build, prompt string, n int) attempt {
	req := llm.UserRequest(st.args.Model, "", prompt, st.args.Temperature)
	req.MaxTokens = subtopicMaxTokens

	text, err := b.client.Complete(ctx, req)
	if err != nil {
		return attempt{err: err}
	}
	topics := extraction.Clean(b.extractor.Extract(text))
	if len(topics) < n {
		return attempt{err: errInsufficient}
	}
	return attempt{topics: topics[:n]}
}

func placeholders(path []string, n int) []string {
	last := path[len(path)-1]
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("subtopic_%d_for_%s", i+1, last)
	}
	return out
}

// IsAborted reports whether a Build error came from cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
