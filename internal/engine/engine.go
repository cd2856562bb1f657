package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promptwright/internal/dataset"
	"github.com/fyrsmithlabs/promptwright/internal/llm"
	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/prompts"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

// Engine turns prompts into a dataset of conversation samples.
type Engine struct {
	client   llm.Client
	cfg      Config
	logger   *logging.Logger
	observer Observer
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
	rand     *rand.Rand

	// generationSystemPrompt is what the generating model sees;
	// cfg.SystemPrompt is what ends up in samples.
	generationSystemPrompt string

	failures *FailureAnalysis
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver receives progress and step error callbacks.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithTelemetry enables step spans and sample metrics. Either may be nil.
func WithTelemetry(tracer trace.Tracer, m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.tracer = tracer
		e.metrics = m
	}
}

// WithRand sets the source for path and example draws.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// New creates an engine. cfg.Model must not be blank.
func New(client llm.Client, cfg Config, opts ...Option) (*Engine, error) {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, ErrModelRequired
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.InterruptedPath == "" {
		cfg.InterruptedPath = DefaultInterruptedPath
	}
	if cfg.ErrorPath == "" {
		cfg.ErrorPath = DefaultErrorPath
	}

	e := &Engine{
		client:                 client,
		cfg:                    cfg,
		logger:                 logging.NewNop(),
		observer:               NopObserver{},
		tracer:                 noop.NewTracerProvider().Tracer("engine"),
		rand:                   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		generationSystemPrompt: prompts.EngineJSONInstructions + cfg.SystemPrompt,
		failures:               NewFailureAnalysis(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Failures returns the registry of the most recent run.
func (e *Engine) Failures() *FailureAnalysis {
	return e.failures
}

// Summary summarizes the failures of the most recent run.
func (e *Engine) Summary() Summary {
	return e.failures.Summary()
}

// run is the state of one CreateData call.
type run struct {
	model     string
	sysMsg    bool
	batchSize int
	numSteps  int
	paths     [][]string
	ds        *dataset.Dataset
	added     int
}

// CreateData generates opts.NumSteps batches of opts.BatchSize samples.
//
// With a tree, exactly NumSteps*BatchSize distinct paths are drawn and
// each prompt is bound to one of them; requesting more samples than the
// tree has paths fails before any backend call.
func (e *Engine) CreateData(ctx context.Context, opts CreateOptions) (*dataset.Dataset, error) {
	r, err := e.plan(opts)
	if err != nil {
		return nil, err
	}
	e.failures = NewFailureAnalysis()

	ctx, span := e.tracer.Start(ctx, "engine.create_data", trace.WithAttributes(
		attribute.String("llm.model", r.model),
		attribute.Int("engine.num_steps", r.numSteps),
		attribute.Int("engine.batch_size", r.batchSize),
		attribute.Bool("engine.topic_paths", r.paths != nil),
	))
	defer span.End()

	total := r.numSteps * r.batchSize
	e.logger.Info(ctx, "generating dataset",
		zap.String("model", r.model),
		zap.Int("num_steps", r.numSteps),
		zap.Int("batch_size", r.batchSize),
	)
	e.observer.OnStart(total)

	err = e.steps(ctx, r)
	span.SetAttributes(
		attribute.Int("engine.samples", r.ds.Len()),
		attribute.Int("engine.failures", e.failures.Total()),
	)

	switch {
	case err == nil:
		e.logger.Info(ctx, "dataset generated", zap.Int("samples", r.ds.Len()))
		e.logSummary(ctx)
		return r.ds, nil

	case isInterrupt(ctx, err):
		e.logger.Warn(ctx, "generation interrupted", zap.Int("samples", r.ds.Len()))
		e.logSummary(ctx)
		e.save(ctx, r.ds, e.cfg.InterruptedPath)
		return r.ds, nil

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error(ctx, "generation failed", zap.Error(err))
		e.logSummary(ctx)
		e.save(ctx, r.ds, e.cfg.ErrorPath)
		return r.ds, err
	}
}

// plan validates opts and binds topic paths. It makes no backend calls.
func (e *Engine) plan(opts CreateOptions) (*run, error) {
	if opts.NumSteps <= 0 {
		return nil, ErrNumStepsRequired
	}

	r := &run{
		model:     e.cfg.Model,
		sysMsg:    e.cfg.SysMsg,
		batchSize: opts.BatchSize,
		numSteps:  opts.NumSteps,
		ds:        dataset.New(),
	}
	if m := strings.TrimSpace(opts.Model); m != "" {
		r.model = m
	}
	if r.model == "" {
		return nil, ErrModelRequired
	}
	if opts.SysMsg != nil {
		r.sysMsg = *opts.SysMsg
	}
	if r.batchSize == 0 {
		r.batchSize = DefaultBatchSize
	}
	if r.batchSize < 0 {
		return nil, ErrInvalidBatchSize
	}

	if opts.Tree != nil {
		required := r.numSteps * r.batchSize
		available := opts.Tree.Len()
		if required > available {
			return nil, fmt.Errorf("required samples (%d) %w (%d)", required, ErrExceedsTreePaths, available)
		}
		r.paths = drawPaths(e.rand, opts.Tree.Paths, required)
		r.numSteps = (len(r.paths) + r.batchSize - 1) / r.batchSize
	}
	return r, nil
}

// steps runs every step, turning panics into errors.
func (e *Engine) steps(ctx context.Context, r *run) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generation panicked: %v", p)
		}
	}()

	for step := range r.numSteps {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := e.stepPrompts(r, step)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		if err := e.step(ctx, r, step, batch); err != nil {
			return err
		}
	}
	return nil
}

// stepPrompts builds the prompts of one step. With topic paths the batch
// stops early once the paths run out.
func (e *Engine) stepPrompts(r *run, step int) ([]string, error) {
	start := step * r.batchSize
	out := make([]string, 0, r.batchSize)
	for i := range r.batchSize {
		var path []string
		if r.paths != nil {
			idx := start + i
			if idx >= len(r.paths) {
				break
			}
			path = r.paths[idx]
		}
		p, err := e.buildPrompt(path)
		if err != nil {
			return nil, fmt.Errorf("building prompt: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// step sends one batch, retrying only when the call itself fails. Only a
// context error is returned; exhausted retries are recorded as a failure.
func (e *Engine) step(ctx context.Context, r *run, step int, batch []string) error {
	ctx = logging.WithStep(ctx, step)
	ctx, span := e.tracer.Start(ctx, "engine.step", trace.WithAttributes(
		attribute.Int("engine.step", step),
		attribute.Int("engine.batch_len", len(batch)),
	))
	defer span.End()

	reqs := make([]llm.Request, len(batch))
	for i, p := range batch {
		reqs[i] = llm.UserRequest(r.model, "", p, e.cfg.Temperature)
	}

	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		responses, err := llm.BatchComplete(ctx, e.client, reqs)
		if err == nil {
			added := e.accept(ctx, r, responses)
			span.SetAttributes(attribute.Int("engine.added", added), attribute.Int("engine.attempts", attempt))
			e.metrics.RecordStep(true)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.observer.OnStepError(step, attempt, err)
		if attempt < e.cfg.MaxRetries {
			e.logger.Warn(ctx, "step attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		e.logger.Error(ctx, "step abandoned", zap.Int("attempts", attempt), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.record(ClassifyError(err), err.Error())
		e.metrics.RecordStep(false)
	}
	return nil
}

// accept parses responses into samples and adds them to the dataset.
func (e *Engine) accept(ctx context.Context, r *run, responses []string) int {
	raws := make([]dataset.RawSample, 0, len(responses))
	for _, text := range responses {
		raw, ok := parseSample(text)
		if !ok {
			e.record(ClassifyResponse(text), text)
			continue
		}
		if r.sysMsg {
			raw = withSystemMessage(raw, e.cfg.SystemPrompt)
		}
		raws = append(raws, raw)
	}
	if len(raws) == 0 {
		e.logger.Debug(ctx, "no parsable samples in batch", zap.Int("responses", len(responses)))
		return 0
	}

	failed, descriptions := r.ds.AddSamples(raws)
	for _, d := range descriptions {
		e.record(CategoryInvalidSchema, d)
	}

	added := len(raws) - len(failed)
	for range added {
		e.metrics.RecordSample()
	}
	r.added += added
	e.observer.OnProgress(added)
	e.logger.Debug(ctx, "samples added", zap.Int("added", added), zap.Int("rejected", len(failed)), zap.Int("total", r.added))
	return added
}

func (e *Engine) record(c Category, artifact string) {
	e.failures.Record(c, artifact)
	e.metrics.RecordFailure(string(c))
}

func (e *Engine) save(ctx context.Context, ds *dataset.Dataset, path string) {
	if err := ds.Save(path); err != nil {
		e.logger.Error(ctx, "saving dataset", zap.String("path", path), zap.Error(err))
		return
	}
	e.logger.Info(ctx, "dataset saved", zap.String("path", path), zap.Int("samples", ds.Len()))
}

func (e *Engine) logSummary(ctx context.Context) {
	s := e.failures.Summary()
	fields := []zap.Field{zap.Int("total_failures", s.Total)}
	for _, c := range Categories {
		if n := s.ByCategory[c]; n > 0 {
			fields = append(fields, zap.Int(string(c), n))
		}
	}
	e.logger.Info(ctx, "failure analysis", fields...)
	for _, c := range Categories {
		for _, ex := range s.Examples[c] {
			e.logger.Debug(ctx, "failure example", zap.String("category", string(c)), zap.String("example", ex))
		}
	}
}

func isInterrupt(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
